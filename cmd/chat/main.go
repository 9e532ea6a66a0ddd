package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"nau-assistant/internal/bootstrap"
	"nau-assistant/internal/config"
	"nau-assistant/internal/dto"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
)

var cli struct {
	Session   string `help:"Chat session to continue; a new one is created when empty." default:""`
	Snapshot  string `help:"Snapshot directory, overrides KNOWLEDGE_SNAPSHOT_DIR." default:""`
	Embedding string `help:"Embedding provider (local, ollama, openai), overrides EMBEDDING_PROVIDER." default:""`
	LLM       string `name:"llm" help:"LLM provider (anthropic, openai, ollama), overrides LLM_PROVIDER." default:""`
	Sources   bool   `help:"Print the sources after each answer." default:"true" negatable:""`
}

func main() {
	kong.Parse(&cli,
		kong.Name("nau-chat"),
		kong.Description("Ask the NAU assistant questions from the terminal."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Load()
	if cli.Snapshot != "" {
		cfg.Knowledge.SnapshotDir = cli.Snapshot
	}
	if cli.Embedding != "" {
		cfg.Ai.EmbeddingProvider = cli.Embedding
	}
	if cli.LLM != "" {
		cfg.Ai.LLMProvider = cli.LLM
	}

	container, err := bootstrap.NewContainer(ctx, cfg, bootstrap.ContainerOptions{Headless: true})
	if err != nil {
		color.Red("❌ %v", err)
		os.Exit(1)
	}
	defer container.Close()

	if err := container.Start(ctx); err != nil {
		color.Red("❌ %v", err)
		os.Exit(1)
	}
	status := container.IndexService.Status(ctx)
	color.Cyan("--- NAU Assistant (%d chunks, fallback=%t) ---", status.Chunks, status.Fallback)

	chatID := cli.Session
	if chatID == "" {
		created, err := container.ChatbotService.CreateSession(ctx)
		if err != nil {
			color.Red("❌ failed to start session: %v", err)
			os.Exit(1)
		}
		chatID = created.SessionId
	}
	color.Green("✅ Session: %s (type /quit to leave)", chatID)

	run(ctx, container, chatID)
}

func run(ctx context.Context, container *bootstrap.Container, chatID string) {
	scanner := bufio.NewScanner(os.Stdin)
	var pendingFollowUp string

	for {
		color.New(color.FgYellow).Print("\nyou> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		}

		res, err := container.ChatbotService.SendChat(ctx, &dto.SendChatRequest{
			ChatId:     chatID,
			Query:      line,
			FollowUpTo: pendingFollowUp,
		})
		if err != nil {
			color.Red("error: %v", err)
			continue
		}

		fmt.Printf("\nnau> %s\n", res.Answer)
		if cli.Sources && len(res.Sources) > 0 {
			color.HiBlack("sources: %s", strings.Join(res.Sources, ", "))
		}
		pendingFollowUp = res.FollowUpId
		if res.FollowUp != "" {
			color.Cyan("\nnau> %s", res.FollowUp)
		}
	}
}

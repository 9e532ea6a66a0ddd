package bootstrap

import (
	"context"
	"fmt"

	"nau-assistant/internal/config"
	"nau-assistant/internal/controller"
	"nau-assistant/internal/handler"
	"nau-assistant/internal/pkg/logger"
	"nau-assistant/internal/repository/contract"
	"nau-assistant/internal/repository/implementation"
	"nau-assistant/internal/repository/memory"
	redisrepo "nau-assistant/internal/repository/redis"
	"nau-assistant/internal/service"
	"nau-assistant/internal/websocket"
	"nau-assistant/pkg/canned"
	"nau-assistant/pkg/database"
	"nau-assistant/pkg/embedding"
	"nau-assistant/pkg/events"
	"nau-assistant/pkg/knowledge"
	"nau-assistant/pkg/llm"
	"nau-assistant/pkg/llm/factory"
	pktNats "nau-assistant/pkg/nats"
	"nau-assistant/pkg/rag/response"
	"nau-assistant/pkg/rag/search"
	"nau-assistant/pkg/rag/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const containerModule = "Bootstrap"

type Container struct {
	// Controllers
	ChatController  controller.IChatController
	AdminController controller.IAdminController

	// Services
	ChatbotService  service.IChatbotService
	IndexService    service.IIndexService
	ConsumerService service.IConsumerService
	Scheduler       *service.IndexScheduler

	// WebSockets
	ChatSocketHandler *handler.ChatSocketHandler
	WebSocketHub      *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

type ContainerOptions struct {
	// Headless skips the websocket hub and the schedulers, for the terminal client.
	Headless bool
}

func NewContainer(ctx context.Context, cfg *config.Config, opts ContainerOptions) (*Container, error) {
	c := &Container{}

	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	// 2. AI capabilities
	embedder, err := embedding.NewProvider(embedding.Config{
		Provider:   cfg.Ai.EmbeddingProvider,
		Model:      cfg.Ai.EmbeddingModel,
		APIKey:     cfg.Ai.OpenAIAPIKey,
		BaseURL:    embeddingBaseURL(cfg),
		Dimension:  cfg.Ai.EmbeddingDimension,
		MaxRetries: cfg.Ai.EmbeddingMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	sysLogger.Info(containerModule, "Embedding provider ready", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider})

	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		APIKey:   llmAPIKey(cfg),
		BaseURL:  llmBaseURL(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info(containerModule, "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 3. Redis, shared by the session backend and the hub fan-out
	var rdb *redis.Client
	if cfg.Session.Backend == "redis" || !opts.Headless {
		rdb = connectRedis(ctx, cfg.App.RedisURL, sysLogger)
		if rdb != nil {
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	var sessionRepo contract.SessionRepository
	switch cfg.Session.Backend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("session backend redis: redis unavailable at %s", cfg.App.RedisURL)
		}
		sessionRepo = redisrepo.NewSessionRepository(rdb, cfg.Session.Prefix, cfg.Session.TTL)
	case "memory", "":
		sessionRepo = memory.NewSessionRepository(cfg.Session.TTL)
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Session.Backend)
	}

	// 4. Snapshot source
	var loader knowledge.Loader
	var fileLoader *knowledge.FileLoader
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			return nil, fmt.Errorf("knowledge database: %w", err)
		}
		loader = implementation.NewKnowledgeChunkRepository(db)
		sysLogger.Info(containerModule, "Using database snapshot source", nil)
	} else {
		fileLoader = knowledge.NewFileLoader(cfg.Knowledge.SnapshotDir)
		loader = fileLoader
		sysLogger.Info(containerModule, "Using file snapshot source", map[string]interface{}{"dir": cfg.Knowledge.SnapshotDir})
	}

	// 5. Event buses
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var natsClient *pktNats.Client
	if cfg.Bus.NatsEnabled {
		natsClient, err = pktNats.Connect(ctx, cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(containerModule, "NATS unavailable, bus triggers disabled", map[string]interface{}{"error": err.Error()})
			natsClient = nil
		} else {
			c.closers = append(c.closers, natsClient.Close)
		}
	}

	// 6. Index lifecycle
	publisherService := service.NewPublisherService(cfg.Bus.RefreshTopic, pubSub)
	indexOpts := []service.IndexServiceOption{}
	var bus events.Publisher
	if natsClient != nil {
		bus = natsClient
		indexOpts = append(indexOpts, service.WithEventPublisher(natsClient))
	}
	if !opts.Headless {
		c.WebSocketHub = websocket.NewHub(rdb, logger.NewIsolatedLogger(cfg.App.HubLogFilePath))
		indexOpts = append(indexOpts, service.WithNotifier(c.WebSocketHub))
	}
	c.IndexService = service.NewIndexService(loader, embedder, publisherService, sysLogger, indexOpts...)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Bus.RefreshTopic, c.IndexService, sysLogger)

	if !opts.Headless {
		c.Scheduler = service.NewIndexScheduler(c.IndexService, service.IndexSchedulerConfig{
			RefreshCron:   cfg.Knowledge.RefreshCron,
			DataCheckCron: cfg.Knowledge.DataCheckCron,
		}, sysLogger)
		if cfg.Knowledge.Watch && fileLoader != nil {
			c.Scheduler.WatchFiles(fileLoader)
		}
		if natsClient != nil {
			c.Scheduler.ListenBus(natsClient)
		}
	}

	// 7. Dialogue
	rankerCfg := search.DefaultConfig()
	rankerCfg.TopK = cfg.Knowledge.TopK
	generator := response.NewGenerator(llmProvider, sysLogger, cfg.Ai.LLMTimeout,
		llm.WithTemperature(cfg.Ai.LLMTemperature),
		llm.WithMaxTokens(cfg.Ai.LLMMaxTokens),
	)
	c.ChatbotService = service.NewChatbotService(
		session.NewManager(sessionRepo),
		canned.NewDefaultMatcher(),
		search.NewRanker(rankerCfg),
		c.IndexService,
		embedder,
		generator,
		sysLogger,
		service.ChatbotOptions{TopK: cfg.Knowledge.TopK, EmbedTimeout: cfg.Ai.EmbeddingTimeout},
	)

	// 8. Controllers
	var socket *handler.ChatSocketHandler
	if c.WebSocketHub != nil {
		socket = handler.NewChatSocketHandler(c.ChatbotService, c.WebSocketHub, sysLogger)
		c.ChatSocketHandler = socket
		c.ChatController = controller.NewChatController(c.ChatbotService, socket.ServeWs)
	} else {
		c.ChatController = controller.NewChatController(c.ChatbotService, nil)
	}
	c.AdminController = controller.NewAdminController(c.IndexService, bus, cfg.App.AdminJwtSecret)

	return c, nil
}

// Start loads the first store and starts the background workers. The first
// load always leaves a usable store, falling back to the built-in corpus.
func (c *Container) Start(ctx context.Context) error {
	if c.WebSocketHub != nil {
		go c.WebSocketHub.Run(ctx)
	}
	if err := c.ConsumerService.Consume(ctx); err != nil {
		return fmt.Errorf("start refresh consumer: %w", err)
	}

	if _, err := c.IndexService.Reload(ctx, "startup"); err != nil {
		c.Logger.Warn(containerModule, "Initial index load failed", map[string]interface{}{"error": err.Error()})
	}

	if c.Scheduler != nil {
		if err := c.Scheduler.Start(ctx); err != nil {
			return err
		}
		c.closers = append(c.closers, c.Scheduler.Stop)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(containerModule, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(containerModule, "Redis unavailable", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func embeddingBaseURL(cfg *config.Config) string {
	if cfg.Ai.EmbeddingProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.OpenAIBaseURL
}

func llmAPIKey(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "openai" {
		return cfg.Ai.OpenAIAPIKey
	}
	return cfg.Ai.AnthropicAPIKey
}

func llmBaseURL(cfg *config.Config) string {
	switch cfg.Ai.LLMProvider {
	case "ollama":
		return cfg.Ai.OllamaBaseURL
	case "openai":
		return cfg.Ai.OpenAIBaseURL
	}
	return ""
}

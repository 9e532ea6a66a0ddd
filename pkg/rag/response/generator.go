package response

import (
	"context"
	"errors"
	"time"

	"nau-assistant/internal/pkg/logger"
	"nau-assistant/pkg/apperror"
	"nau-assistant/pkg/llm"
	"nau-assistant/pkg/rag/prompt"
	"nau-assistant/pkg/rag/search"
)

var errEmptyAnswer = errors.New("generator returned an empty answer")

const (
	DefaultTemperature = 0
	DefaultMaxTokens   = 1000
)

// Answer is a generated reply and the sources it cites.
type Answer struct {
	Text    string
	Sources []string
	// Degraded is set when the apology replaced a failed generation.
	Degraded bool
	Err      error
}

// Generator produces free-form answers from retrieved chunks. It never
// returns an error: a failed or timed out call yields the apology.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
	timeout     time.Duration
	options     []llm.Option
}

func NewGenerator(llmProvider llm.LLMProvider, logger logger.ILogger, timeout time.Duration, options ...llm.Option) *Generator {
	opts := []llm.Option{llm.WithTemperature(DefaultTemperature), llm.WithMaxTokens(DefaultMaxTokens)}
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
		timeout:     timeout,
		options:     append(opts, options...),
	}
}

func (g *Generator) Generate(ctx context.Context, query string, chunks []search.ScoredChunk) Answer {
	p := prompt.Build(query, chunks)

	sources := search.Sources(chunks)
	if len(sources) == 0 {
		sources = []string{DefaultSource}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	text, err := llm.Complete(ctx, g.llmProvider, p.System, p.User, g.options...)
	if err == nil && text == "" {
		err = errEmptyAnswer
	}
	if err != nil {
		err = apperror.Wrap(apperror.KindUpstreamFailure, "response.Generate", err)
		g.logger.Error("ResponseGenerator", "Generation failed, using apology", map[string]interface{}{
			"error":  err,
			"chunks": len(chunks),
		})
		return Answer{Text: Apology, Sources: []string{ContactSource}, Degraded: true, Err: err}
	}

	g.logger.Info("ResponseGenerator", "Answer generated", map[string]interface{}{
		"chunks":  len(chunks),
		"sources": len(sources),
	})
	return Answer{Text: text, Sources: sources}
}

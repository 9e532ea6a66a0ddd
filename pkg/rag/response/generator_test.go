package response

import (
	"context"
	"errors"
	"testing"
	"time"

	"nau-assistant/internal/pkg/logger"
	"nau-assistant/pkg/apperror"
	"nau-assistant/pkg/knowledge"
	"nau-assistant/pkg/llm"
	"nau-assistant/pkg/rag/prompt"
	"nau-assistant/pkg/rag/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	answer  string
	err     error
	block   bool
	history []llm.Message
	options llm.Options
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.history = history
	s.options = llm.Apply(llm.Options{Temperature: 0.7}, opts...)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.answer, s.err
}

func chunks(sources ...string) []search.ScoredChunk {
	out := make([]search.ScoredChunk, len(sources))
	for i, s := range sources {
		out[i] = search.ScoredChunk{Chunk: knowledge.Chunk{Content: "content " + s, Source: s}}
	}
	return out
}

func TestGenerator(t *testing.T) {
	log := logger.NewNopLogger()

	t.Run("Should cite distinct chunk sources", func(t *testing.T) {
		stub := &stubLLM{answer: "Tuition is $13,500."}
		g := NewGenerator(stub, log, time.Second)

		got := g.Generate(t.Context(), "tuition?", chunks("https://www.na.edu/a", "https://www.na.edu/b", "https://www.na.edu/a"))

		assert.Equal(t, "Tuition is $13,500.", got.Text)
		assert.Equal(t, []string{"https://www.na.edu/a", "https://www.na.edu/b"}, got.Sources)
		assert.False(t, got.Degraded)
		assert.Equal(t, 0.0, stub.options.Temperature)
		assert.Equal(t, DefaultMaxTokens, stub.options.MaxTokens)
		require.Len(t, stub.history, 2)
		assert.Equal(t, prompt.RetrievalSystem, stub.history[0].Content)
	})

	t.Run("Should call the model with the no context prompt and default source", func(t *testing.T) {
		stub := &stubLLM{answer: "I can only assist with topics related to North American University."}
		g := NewGenerator(stub, log, time.Second)

		got := g.Generate(t.Context(), "weather?", nil)

		assert.Equal(t, []string{DefaultSource}, got.Sources)
		assert.Equal(t, prompt.NoContextSystem, stub.history[0].Content)
	})

	tests := []struct {
		name string
		stub *stubLLM
	}{
		{"provider error", &stubLLM{err: errors.New("overloaded")}},
		{"empty answer", &stubLLM{}},
		{"timeout", &stubLLM{block: true}},
	}
	for _, tt := range tests {
		t.Run("Should apologize on "+tt.name, func(t *testing.T) {
			g := NewGenerator(tt.stub, log, 20*time.Millisecond)

			got := g.Generate(t.Context(), "tuition?", chunks("https://www.na.edu/a"))

			assert.Equal(t, Apology, got.Text)
			assert.Equal(t, []string{ContactSource}, got.Sources)
			assert.True(t, got.Degraded)
			assert.ErrorIs(t, got.Err, apperror.ErrUpstreamFailure)
		})
	}
}

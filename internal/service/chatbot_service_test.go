package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/logger"
	"nau-assistant/internal/repository/memory"
	"nau-assistant/pkg/apperror"
	"nau-assistant/pkg/canned"
	"nau-assistant/pkg/followup"
	"nau-assistant/pkg/knowledge"
	"nau-assistant/pkg/llm"
	"nau-assistant/pkg/rag/prompt"
	"nau-assistant/pkg/rag/response"
	"nau-assistant/pkg/rag/search"
	"nau-assistant/pkg/rag/session"
	"nau-assistant/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type countingEmbedder struct {
	vector []float32
	err    error
	calls  atomic.Int32
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

type scriptedLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	systems []string
}

func (l *scriptedLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if len(history) > 0 {
		l.systems = append(l.systems, history[0].Content)
	}
	return l.answer, l.err
}

func (l *scriptedLLM) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type staticStore struct {
	store *knowledge.Store
}

func (s staticStore) Current() *knowledge.Store { return s.store }

type harness struct {
	svc      IChatbotService
	embedder *countingEmbedder
	llm      *scriptedLLM
	sessions *session.Manager
}

func testStore(t *testing.T) *knowledge.Store {
	t.Helper()
	st, err := knowledge.Build(&knowledge.Snapshot{
		Records: []knowledge.Record{
			{Content: "Tuition for undergraduates is $13,500 per semester.", Source: "https://www.na.edu/admissions/tuition-and-fees/"},
			{Content: "Tuition for graduates is $7,725 per semester.", Source: "https://www.na.edu/admissions/tuition-and-fees/"},
			{Content: "The library opens at 8am.", Source: "https://www.na.edu/library/"},
		},
		Vectors: [][]float32{{1, 0}, {0.9, 0.1}, {0.8, 0.1}},
		Origin:  "test",
	})
	require.NoError(t, err)
	return st
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	h := &harness{
		embedder: &countingEmbedder{vector: []float32{1, 0}},
		llm:      &scriptedLLM{answer: "Generated answer."},
		sessions: session.NewManager(memory.NewSessionRepository(0)),
	}
	h.svc = NewChatbotService(
		h.sessions,
		canned.NewDefaultMatcher(),
		search.NewRanker(search.DefaultConfig()),
		staticStore{store: testStore(t)},
		h.embedder,
		response.NewGenerator(h.llm, log, time.Second),
		log,
		ChatbotOptions{TopK: 8, EmbedTimeout: time.Second},
	)
	return h
}

func housingFollowUp(t *testing.T) followup.Binary {
	t.Helper()
	entry, ok := canned.NewDefaultMatcher().Lookup(canned.KeyTuition)
	require.True(t, ok)
	spec, ok := entry.FollowUp.(followup.Binary)
	require.True(t, ok)
	return spec
}

func TestSendChatCannedAndFollowUp(t *testing.T) {
	t.Run("Should answer tuition verbatim and resolve yes without retrieval", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		spec := housingFollowUp(t)

		first, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "s1", Query: "What are the tuition fees?"})
		require.NoError(t, err)

		assert.Equal(t, []string{"https://www.na.edu/admissions/tuition-and-fees/"}, first.Sources)
		assert.Equal(t, spec.Prompt, first.FollowUp)
		assert.Contains(t, first.FollowUpId, session.FollowUpIDPrefix)

		second, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "s1", Query: "yes", FollowUpTo: first.FollowUpId})
		require.NoError(t, err)

		assert.Equal(t, spec.YesResponse, second.Answer)
		assert.Equal(t, first.Sources, second.Sources)
		assert.Empty(t, second.FollowUpId)
		assert.Zero(t, h.embedder.calls.Load())
		assert.Zero(t, h.llm.callCount())

		history, err := h.svc.GetChatHistory(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, history, 5)
		assert.Equal(t, store.RoleUser, history[0].Role)
		assert.Equal(t, "What are the tuition fees?", history[1].OriginalQuestion)
		assert.True(t, history[2].FollowUp)
		assert.Equal(t, first.FollowUpId, history[2].FollowUpId)
		assert.Equal(t, first.FollowUpId, history[3].FollowUpTo)
		assert.True(t, history[4].IsFollowUpResponse)
		for i := 1; i < len(history); i++ {
			assert.Greater(t, history[i].Seq, history[i-1].Seq)
		}
	})

	t.Run("Should resolve no to the no response", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		first, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "s1", Query: "tuition fees"})
		require.NoError(t, err)
		second, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "s1", Query: "No thanks", FollowUpTo: first.FollowUpId})
		require.NoError(t, err)

		assert.Equal(t, housingFollowUp(t).NoResponse, second.Answer)
	})

	t.Run("Should answer canned entry without follow up", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "I forgot password"})
		require.NoError(t, err)

		assert.Empty(t, res.FollowUp)
		assert.Empty(t, res.FollowUpId)
		history, err := h.svc.GetChatHistory(t.Context(), "s1")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("Should issue distinct follow up ids", func(t *testing.T) {
		h := newHarness(t)
		a, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "tuition fees"})
		require.NoError(t, err)
		b, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "tuition fees"})
		require.NoError(t, err)

		assert.NotEqual(t, a.FollowUpId, b.FollowUpId)
	})
}

func TestSendChatFollowUpFallThrough(t *testing.T) {
	t.Run("Should treat an unknown follow up reference as a fresh query", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		withRef, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "a", Query: "library hours", FollowUpTo: "followup_missing"})
		require.NoError(t, err)
		withoutRef, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "b", Query: "library hours"})
		require.NoError(t, err)

		assert.Equal(t, withoutRef.Answer, withRef.Answer)
		assert.ElementsMatch(t, withoutRef.Sources, withRef.Sources)
		assert.Equal(t, 2, h.llm.callCount())
	})

	t.Run("Should fall through to canned matching for a reply that is itself a canned question", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		res, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "s1", Query: "how to apply", FollowUpTo: "followup_missing"})
		require.NoError(t, err)

		entry, ok := canned.NewDefaultMatcher().Lookup(canned.KeyAdmission)
		require.True(t, ok)
		assert.Equal(t, entry.Answer, res.Answer)
	})

	t.Run("Should ignore follow up ids from another session", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		first, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "a", Query: "tuition fees"})
		require.NoError(t, err)

		res, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "b", Query: "yes", FollowUpTo: first.FollowUpId})
		require.NoError(t, err)

		assert.NotEqual(t, housingFollowUp(t).YesResponse, res.Answer)
		assert.Equal(t, 1, h.llm.callCount())
	})
}

func TestSendChatRetrieval(t *testing.T) {
	t.Run("Should cite distinct sources of ranked chunks", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "how expensive is a semester"})
		require.NoError(t, err)

		assert.Equal(t, "Generated answer.", res.Answer)
		assert.ElementsMatch(t, []string{"https://www.na.edu/admissions/tuition-and-fees/", "https://www.na.edu/library/"}, res.Sources)
		assert.Equal(t, prompt.RetrievalSystem, h.llm.systems[0])

		msgs, err := h.sessions.Get(t.Context(), "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Len(t, msgs[1].RetrievedChunks, 3)
		assert.Equal(t, "how expensive is a semester", msgs[1].OriginalQuestion)
	})

	t.Run("Should use the no context prompt and default source when nothing passes the floor", func(t *testing.T) {
		h := newHarness(t)
		h.embedder.vector = []float32{0, 1}
		h.llm.answer = "I can only assist with topics related to North American University."

		res, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "who won the game"})
		require.NoError(t, err)

		assert.Equal(t, []string{response.DefaultSource}, res.Sources)
		assert.Equal(t, prompt.NoContextSystem, h.llm.systems[0])
	})

	t.Run("Should use the no context path when embedding fails", func(t *testing.T) {
		h := newHarness(t)
		h.embedder.err = errors.New("embedding server down")

		res, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "library hours"})
		require.NoError(t, err)

		assert.Equal(t, []string{response.DefaultSource}, res.Sources)
	})

	t.Run("Should apologize and still log the turn when generation fails", func(t *testing.T) {
		h := newHarness(t)
		h.llm.err = errors.New("overloaded")

		res, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: "library hours"})
		require.NoError(t, err)

		assert.Equal(t, response.Apology, res.Answer)
		assert.Equal(t, []string{response.ContactSource}, res.Sources)

		history, err := h.svc.GetChatHistory(t.Context(), "s1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, response.Apology, history[1].Content)
	})
}

func TestSendChatTracing(t *testing.T) {
	spanAttr := func(t *testing.T, h *harness, query string) attribute.Value {
		t.Helper()
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
		h.svc.(*chatbotService).tracer = tp.Tracer("test")

		_, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: query})
		require.NoError(t, err)

		spans := recorder.Ended()
		require.Len(t, spans, 1)
		for _, kv := range spans[0].Attributes() {
			if kv.Key == "chat.degraded" {
				return kv.Value
			}
		}
		t.Fatalf("chat.degraded attribute missing")
		return attribute.Value{}
	}

	t.Run("Should mark the span degraded when generation fails", func(t *testing.T) {
		h := newHarness(t)
		h.llm.err = errors.New("overloaded")

		assert.True(t, spanAttr(t, h, "library hours").AsBool())
	})

	t.Run("Should leave the span undegraded on a generated answer", func(t *testing.T) {
		h := newHarness(t)

		assert.False(t, spanAttr(t, h, "library hours").AsBool())
	})
}

func TestSendChatValidation(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		t.Run(fmt.Sprintf("Should reject %q without touching history", q), func(t *testing.T) {
			h := newHarness(t)

			_, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{ChatId: "s1", Query: q})

			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
			history, herr := h.svc.GetChatHistory(t.Context(), "s1")
			require.NoError(t, herr)
			assert.Empty(t, history)
		})
	}

	t.Run("Should reject nil request", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.SendChat(t.Context(), nil)
		assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
	})

	t.Run("Should map an empty chat id to the default session", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.SendChat(t.Context(), &dto.SendChatRequest{Query: "reset password"})
		require.NoError(t, err)

		assert.Equal(t, DefaultChatId, res.ChatId)
		history, err := h.svc.GetChatHistory(t.Context(), DefaultChatId)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("Should keep sessions isolated", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		_, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "a", Query: "reset password"})
		require.NoError(t, err)
		_, err = h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "b", Query: "student portal"})
		require.NoError(t, err)

		a, err := h.svc.GetChatHistory(ctx, "a")
		require.NoError(t, err)
		require.Len(t, a, 2)
		assert.Equal(t, "reset password", a[0].Content)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		_, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "a", Query: "reset password"})
		require.NoError(t, err)

		require.NoError(t, h.svc.DeleteSession(ctx, "a"))
		require.NoError(t, h.svc.DeleteSession(ctx, "a"))

		history, err := h.svc.GetChatHistory(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("Should list created sessions once they have a user message", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		created, err := h.svc.CreateSession(ctx)
		require.NoError(t, err)
		assert.Contains(t, created.SessionId, session.SessionIDPrefix)

		list, err := h.svc.GetAllSessions(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: created.SessionId, Query: "reset password"})
		require.NoError(t, err)

		list, err = h.svc.GetAllSessions(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.SessionId, list[0].Id)
		assert.Equal(t, "reset password", list[0].Preview)
	})

	t.Run("Should not interleave concurrent turns of one session", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := h.svc.SendChat(ctx, &dto.SendChatRequest{ChatId: "busy", Query: fmt.Sprintf("library question %d", i)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		history, err := h.svc.GetChatHistory(ctx, "busy")
		require.NoError(t, err)
		require.Len(t, history, 20)
		for i := 0; i < len(history); i += 2 {
			assert.Equal(t, store.RoleUser, history[i].Role)
			assert.Equal(t, store.RoleAssistant, history[i+1].Role)
			assert.Equal(t, history[i].Content, history[i+1].OriginalQuestion)
		}
	})
}

// Package sessiontest holds behaviour checks shared by every
// contract.SessionRepository backend.
package sessiontest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"nau-assistant/internal/repository/contract"
	"nau-assistant/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(role, content string, at time.Time) store.Message {
	return store.Message{Role: role, Content: content, Timestamp: at}
}

// Run exercises repo factories produced by newRepo. Each subtest gets a fresh
// repository.
func Run(t *testing.T, newRepo func(t *testing.T) contract.SessionRepository) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should read unknown session as empty", func(t *testing.T) {
		repo := newRepo(t)

		msgs, err := repo.Get(t.Context(), "missing")
		require.NoError(t, err)
		assert.Empty(t, msgs)

		exists, err := repo.Exists(t.Context(), "missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should assign increasing sequence numbers in append order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		for i := 0; i < 3; i++ {
			stored, err := repo.Append(ctx, "s1", message(store.RoleUser, fmt.Sprintf("m%d", i), base))
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), stored.Seq)
		}

		msgs, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		for i, m := range msgs {
			assert.Equal(t, int64(i+1), m.Seq)
			assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		}
	})

	t.Run("Should keep sessions isolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		_, err := repo.Append(ctx, "a", message(store.RoleUser, "from a", base))
		require.NoError(t, err)
		_, err = repo.Append(ctx, "b", message(store.RoleUser, "from b", base))
		require.NoError(t, err)

		msgs, err := repo.Get(ctx, "b")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "from b", msgs[0].Content)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		_, err := repo.Append(ctx, "s1", message(store.RoleUser, "hi", base))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "s1"))
		require.NoError(t, repo.Delete(ctx, "s1"))
		require.NoError(t, repo.Delete(ctx, "never-existed"))

		msgs, err := repo.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("Should register empty sessions on create", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		require.NoError(t, repo.Create(ctx, "fresh"))
		require.NoError(t, repo.Create(ctx, "fresh"))

		exists, err := repo.Exists(ctx, "fresh")
		require.NoError(t, err)
		assert.True(t, exists)

		summaries, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})

	t.Run("Should list summaries newest first with truncated preview", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()
		long := "How much does it cost to live on campus for a full academic year at NAU?"

		_, err := repo.Append(ctx, "old", message(store.RoleUser, "short question", base))
		require.NoError(t, err)
		_, err = repo.Append(ctx, "new", message(store.RoleUser, long, base.Add(time.Minute)))
		require.NoError(t, err)
		_, err = repo.Append(ctx, "new", message(store.RoleAssistant, "answer", base.Add(2*time.Minute)))
		require.NoError(t, err)
		_, err = repo.Append(ctx, "assistant-only", message(store.RoleAssistant, "hello", base.Add(time.Hour)))
		require.NoError(t, err)

		summaries, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		assert.Equal(t, "new", summaries[0].ID)
		assert.Equal(t, long[:50]+"...", summaries[0].Preview)
		assert.True(t, summaries[0].Timestamp.Equal(base.Add(2*time.Minute)))
		assert.Equal(t, "old", summaries[1].ID)
		assert.Equal(t, "short question", summaries[1].Preview)
	})

	t.Run("Should not lose appends under concurrency", func(t *testing.T) {
		repo := newRepo(t)
		ctx := t.Context()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Append(ctx, "busy", message(store.RoleUser, fmt.Sprintf("m%d", i), base))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		msgs, err := repo.Get(ctx, "busy")
		require.NoError(t, err)
		require.Len(t, msgs, 20)
		seen := map[int64]bool{}
		for _, m := range msgs {
			assert.False(t, seen[m.Seq])
			seen[m.Seq] = true
		}
	})
}

package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"nau-assistant/pkg/apperror"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	err error
}

func (s stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Records: []Record{
			{Content: "Tuition is $13,500", Source: "https://www.na.edu/admissions/tuition-and-fees/", Title: "Tuition"},
			{Content: "Housing starts at $1,900"},
		},
		Vectors: [][]float32{{1, 0}, {0, 1}},
		Origin:  "test",
	}
}

func TestBuild(t *testing.T) {
	t.Run("Should build store with ids and default source", func(t *testing.T) {
		store, err := Build(sampleSnapshot())
		require.NoError(t, err)

		assert.Equal(t, 2, store.Len())
		assert.Equal(t, 2, store.Dimension())
		assert.Equal(t, "chunk-0", store.Chunks()[0].ID)
		assert.Equal(t, DefaultSource, store.Chunks()[1].Source)
		assert.False(t, store.IsFallback())
	})

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"mismatched lengths", func(s *Snapshot) { s.Vectors = s.Vectors[:1] }},
		{"empty snapshot", func(s *Snapshot) { s.Records = nil; s.Vectors = nil }},
		{"mixed dimensions", func(s *Snapshot) { s.Vectors[1] = []float32{1, 2, 3} }},
		{"empty vector", func(s *Snapshot) { s.Vectors[0] = nil }},
		{"empty content", func(s *Snapshot) { s.Records[0].Content = "" }},
	}
	for _, tt := range tests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			snap := sampleSnapshot()
			tt.mutate(snap)

			store, err := Build(snap)

			assert.Nil(t, store)
			assert.ErrorIs(t, err, apperror.ErrDataUnavailable)
		})
	}
}

func TestFileLoader(t *testing.T) {
	t.Run("Should round trip a written snapshot", func(t *testing.T) {
		loader := NewFileLoader(t.TempDir())
		require.NoError(t, loader.Write(sampleSnapshot()))

		store, err := Load(t.Context(), loader)
		require.NoError(t, err)

		assert.Equal(t, 2, store.Len())
		assert.Equal(t, "Tuition", store.Chunks()[0].Title)
		assert.Equal(t, []float32{0, 1}, store.Chunks()[1].Vector)
		assert.False(t, loader.ModTime().IsZero())
	})

	t.Run("Should report missing snapshot as data unavailable", func(t *testing.T) {
		loader := NewFileLoader(filepath.Join(t.TempDir(), "absent"))

		_, err := Load(t.Context(), loader)

		assert.ErrorIs(t, err, apperror.ErrDataUnavailable)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.True(t, loader.ModTime().IsZero())
		for _, info := range loader.Files() {
			assert.False(t, info.Exists)
		}
	})

	t.Run("Should report corrupt json as data unavailable", func(t *testing.T) {
		dir := t.TempDir()
		loader := NewFileLoader(dir)
		require.NoError(t, os.WriteFile(loader.ChunksPath(), []byte("{not json"), 0o644))
		require.NoError(t, os.WriteFile(loader.EmbeddingsPath(), []byte("[]"), 0o644))

		_, err := Load(t.Context(), loader)

		assert.ErrorIs(t, err, apperror.ErrDataUnavailable)
	})
}

func TestBuildFallback(t *testing.T) {
	t.Run("Should embed every fallback chunk", func(t *testing.T) {
		store, err := BuildFallback(t.Context(), stubEmbedder{})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, store.Len(), 5)
		assert.True(t, store.IsFallback())
		assert.Equal(t, 3, store.Dimension())
		for _, c := range store.Chunks() {
			assert.Len(t, c.Vector, 3)
		}
	})

	t.Run("Should keep chunks without vectors when embedding fails", func(t *testing.T) {
		store, err := BuildFallback(t.Context(), stubEmbedder{err: errors.New("model offline")})

		assert.Error(t, err)
		require.NotNil(t, store)
		assert.GreaterOrEqual(t, store.Len(), 5)
		for _, c := range store.Chunks() {
			assert.Nil(t, c.Vector)
		}
	})

	t.Run("Should cover tuition housing dining admissions and financial aid", func(t *testing.T) {
		var sources []string
		for _, r := range FallbackRecords() {
			sources = append(sources, r.Source)
		}
		joined := strings.Join(sources, " ")
		for _, want := range []string{"tuition-and-fees", "housing", "dining", "admissions/", "financial-aid"} {
			assert.Contains(t, joined, want)
		}
	})
}

func TestHolder(t *testing.T) {
	t.Run("Should assign increasing generations on swap", func(t *testing.T) {
		first, err := Build(sampleSnapshot())
		require.NoError(t, err)
		h := NewHolder(first)

		second, err := Build(sampleSnapshot())
		require.NoError(t, err)
		prev := h.Swap(second)

		assert.Same(t, first, prev)
		assert.Same(t, second, h.Current())
		assert.Equal(t, uint64(1), first.Generation())
		assert.Equal(t, uint64(2), second.Generation())
	})

	t.Run("Should never expose a mixed generation to readers", func(t *testing.T) {
		h := NewHolder(nil)
		small, err := Build(sampleSnapshot())
		require.NoError(t, err)
		h.Swap(small)

		var wg sync.WaitGroup
		stop := make(chan struct{})
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					s := h.Current()
					for _, c := range s.Chunks() {
						assert.Len(t, c.Vector, s.Dimension())
					}
				}
			}()
		}

		for i := 0; i < 50; i++ {
			snap := sampleSnapshot()
			if i%2 == 0 {
				snap.Vectors = [][]float32{{1, 0, 0}, {0, 1, 0}}
			}
			next, err := Build(snap)
			require.NoError(t, err)
			h.Swap(next)
		}
		close(stop)
		wg.Wait()
	})
}

func TestWatcherMatches(t *testing.T) {
	loader := NewFileLoader("/data")
	w := NewWatcher(loader, func() {}, nil)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to chunks", fsnotify.Event{Name: "/data/na_edu_chunks.json", Op: fsnotify.Write}, true},
		{"create embeddings", fsnotify.Event{Name: "/data/na_edu_embeddings.json", Op: fsnotify.Create}, true},
		{"rename embeddings", fsnotify.Event{Name: "/data/na_edu_embeddings.json", Op: fsnotify.Rename}, true},
		{"chmod chunks", fsnotify.Event{Name: "/data/na_edu_chunks.json", Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: "/data/notes.txt", Op: fsnotify.Write}, false},
		{"empty name", fsnotify.Event{Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.matches(tt.event))
		})
	}
}

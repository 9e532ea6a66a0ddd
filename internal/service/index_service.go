package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"nau-assistant/internal/dto"
	"nau-assistant/internal/pkg/logger"
	"nau-assistant/pkg/apperror"
	"nau-assistant/pkg/embedding"
	"nau-assistant/pkg/events"
	"nau-assistant/pkg/knowledge"

	"golang.org/x/sync/singleflight"
)

const indexModule = "IndexService"

// IIndexService owns the live chunk store and its refresh lifecycle.
type IIndexService interface {
	StoreSource
	// Reload rebuilds the store from the snapshot source and swaps it in.
	// Concurrent calls share one reload.
	Reload(ctx context.Context, reason string) (*dto.RefreshResult, error)
	// RequestRefresh queues an asynchronous reload.
	RequestRefresh(ctx context.Context, reason string) error
	// CheckForUpdates queues a reload when the snapshot files changed since the
	// last successful load.
	CheckForUpdates(ctx context.Context) (bool, error)
	Status(ctx context.Context) *dto.IndexStatusResponse
}

// IndexNotifier is told about every store that goes live.
type IndexNotifier interface {
	BroadcastIndexRefreshed(msg *dto.IndexRefreshedMessage)
}

// SnapshotFiles is implemented by loaders backed by files on disk.
type SnapshotFiles interface {
	Files() []knowledge.FileInfo
	ModTime() time.Time
}

type indexService struct {
	holder    *knowledge.Holder
	loader    knowledge.Loader
	embedder  embedding.Provider
	publisher IPublisherService
	events    events.Publisher
	notifier  IndexNotifier
	logger    logger.ILogger
	group     singleflight.Group

	mu          sync.Mutex
	loadedMod   time.Time
	failedMod   time.Time
	lastRefresh *dto.RefreshResult
}

type IndexServiceOption func(*indexService)

// WithEventPublisher announces refreshes on the event bus.
func WithEventPublisher(p events.Publisher) IndexServiceOption {
	return func(s *indexService) { s.events = p }
}

func WithNotifier(n IndexNotifier) IndexServiceOption {
	return func(s *indexService) { s.notifier = n }
}

func NewIndexService(
	loader knowledge.Loader,
	embedder embedding.Provider,
	publisher IPublisherService,
	logger logger.ILogger,
	opts ...IndexServiceOption,
) IIndexService {
	s := &indexService{
		holder:    knowledge.NewHolder(nil),
		loader:    loader,
		embedder:  embedder,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *indexService) Current() *knowledge.Store {
	return s.holder.Current()
}

func (s *indexService) Reload(ctx context.Context, reason string) (*dto.RefreshResult, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		return s.reload(ctx, reason)
	})
	if shared {
		s.logger.Debug(indexModule, "Reload coalesced", map[string]interface{}{"reason": reason})
	}
	result, _ := v.(*dto.RefreshResult)
	return result, err
}

func (s *indexService) reload(ctx context.Context, reason string) (*dto.RefreshResult, error) {
	started := time.Now()
	var mod time.Time
	if files, ok := s.loader.(SnapshotFiles); ok {
		mod = files.ModTime()
	}

	next, loadErr := knowledge.Load(ctx, s.loader)
	if loadErr != nil {
		// a broken snapshot is not retried until its files change again
		s.mu.Lock()
		s.failedMod = mod
		s.mu.Unlock()

		current := s.holder.Current()
		if current != nil && !current.IsFallback() {
			// a good store stays live when a refresh fails
			s.logger.Warn(indexModule, "Snapshot reload failed, keeping current store", map[string]interface{}{
				"reason":     reason,
				"generation": current.Generation(),
				"error":      loadErr.Error(),
			})
			return s.record(reason, current, loadErr), loadErr
		}

		s.logger.Warn(indexModule, "Snapshot unavailable, using fallback corpus", map[string]interface{}{
			"reason": reason,
			"error":  loadErr.Error(),
		})
		fallback, embedErr := knowledge.BuildFallback(ctx, s.embedder)
		if embedErr != nil {
			s.logger.Error(indexModule, "Fallback corpus embedding failed", map[string]interface{}{
				"error": apperror.Wrap(apperror.KindUpstreamFailure, "index.reload", embedErr),
			})
		}
		next = fallback
	}

	s.holder.Swap(next)
	if loadErr == nil {
		s.mu.Lock()
		s.loadedMod = mod
		s.mu.Unlock()
	}

	s.logger.Info(indexModule, "Chunk store swapped", map[string]interface{}{
		"reason":     reason,
		"generation": next.Generation(),
		"chunks":     next.Len(),
		"dimension":  next.Dimension(),
		"origin":     next.Origin(),
		"fallback":   next.IsFallback(),
		"took_ms":    time.Since(started).Milliseconds(),
	})
	s.announce(ctx, next)

	return s.record(reason, next, loadErr), nil
}

func (s *indexService) announce(ctx context.Context, st *knowledge.Store) {
	msg := &dto.IndexRefreshedMessage{
		Generation: st.Generation(),
		Chunks:     st.Len(),
		Origin:     st.Origin(),
		Fallback:   st.IsFallback(),
		LoadedAt:   st.LoadedAt(),
	}

	if s.notifier != nil {
		s.notifier.BroadcastIndexRefreshed(msg)
	}
	if s.events != nil {
		evt := events.IndexRefreshed{
			Generation: msg.Generation,
			Chunks:     msg.Chunks,
			Origin:     msg.Origin,
			Fallback:   msg.Fallback,
			LoadedAt:   msg.LoadedAt,
		}
		// the event is auxiliary, the swap already happened
		if err := s.events.Publish(ctx, evt); err != nil {
			s.logger.Warn(indexModule, "Failed to publish index refreshed event", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (s *indexService) record(reason string, st *knowledge.Store, err error) *dto.RefreshResult {
	result := &dto.RefreshResult{
		Reason:     reason,
		Success:    err == nil,
		Generation: st.Generation(),
		Chunks:     st.Len(),
		Fallback:   st.IsFallback(),
		FinishedAt: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}

	s.mu.Lock()
	s.lastRefresh = result
	s.mu.Unlock()
	return result
}

func (s *indexService) RequestRefresh(ctx context.Context, reason string) error {
	if s.publisher == nil {
		return errors.New("no refresh publisher configured")
	}
	return s.publisher.PublishIndexRefresh(ctx, reason)
}

func (s *indexService) CheckForUpdates(ctx context.Context) (bool, error) {
	files, ok := s.loader.(SnapshotFiles)
	if !ok {
		return false, nil
	}
	mod := files.ModTime()

	s.mu.Lock()
	loaded := s.loadedMod
	if s.failedMod.After(loaded) {
		loaded = s.failedMod
	}
	s.mu.Unlock()

	if mod.IsZero() || !mod.After(loaded) {
		return false, nil
	}
	s.logger.Info(indexModule, "Snapshot files changed", map[string]interface{}{
		"modified_at": mod,
		"loaded_at":   loaded,
	})
	return true, s.RequestRefresh(ctx, "data_changed")
}

func (s *indexService) Status(_ context.Context) *dto.IndexStatusResponse {
	res := &dto.IndexStatusResponse{Files: []dto.SnapshotFileResponse{}}
	if current := s.holder.Current(); current != nil {
		res.Generation = current.Generation()
		res.Chunks = current.Len()
		res.Dimension = current.Dimension()
		res.Origin = current.Origin()
		res.Fallback = current.IsFallback()
		res.LoadedAt = current.LoadedAt()
	}

	if files, ok := s.loader.(SnapshotFiles); ok {
		for _, f := range files.Files() {
			file := dto.SnapshotFileResponse{Path: f.Path, Exists: f.Exists, Size: f.Size}
			if f.Exists {
				mod := f.LastModified
				file.ModifiedAt = &mod
			}
			res.Files = append(res.Files, file)
		}
	}

	s.mu.Lock()
	if s.lastRefresh != nil {
		last := *s.lastRefresh
		res.LastRefresh = &last
	}
	s.mu.Unlock()
	return res
}

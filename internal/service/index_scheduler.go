package service

import (
	"context"
	"fmt"

	"nau-assistant/internal/pkg/logger"
	"nau-assistant/pkg/events"
	"nau-assistant/pkg/knowledge"
	"nau-assistant/pkg/nats"

	"github.com/robfig/cron/v3"
)

const schedulerModule = "IndexScheduler"

const refreshRequestDurable = "nau-assistant-index-refresh"

type IndexSchedulerConfig struct {
	// RefreshCron forces a reload, e.g. weekly after the crawler runs.
	RefreshCron string
	// DataCheckCron polls the snapshot files for a newer modification time.
	DataCheckCron string
}

// IndexScheduler turns time, file system and bus signals into refresh
// requests on the index service.
type IndexScheduler struct {
	index   IIndexService
	cfg     IndexSchedulerConfig
	cron    *cron.Cron
	watcher *knowledge.Watcher
	bus     *nats.Client
	logger  logger.ILogger
	stopBus func()
}

func NewIndexScheduler(index IIndexService, cfg IndexSchedulerConfig, logger logger.ILogger) *IndexScheduler {
	return &IndexScheduler{
		index:  index,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
	}
}

// WatchFiles reloads whenever the snapshot files are written.
func (s *IndexScheduler) WatchFiles(loader *knowledge.FileLoader) {
	s.watcher = knowledge.NewWatcher(loader,
		func() { s.request(context.Background(), "file_changed") },
		func(err error) {
			s.logger.Warn(schedulerModule, "Snapshot watcher error", map[string]interface{}{"error": err.Error()})
		},
	)
}

// ListenBus reloads when the crawler announces a refresh on NATS.
func (s *IndexScheduler) ListenBus(client *nats.Client) {
	s.bus = client
}

// Start registers the cron jobs and starts the optional watchers. It returns
// once everything is running.
func (s *IndexScheduler) Start(ctx context.Context) error {
	if s.cfg.RefreshCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() { s.request(ctx, "scheduled") }); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", s.cfg.RefreshCron, err)
		}
	}
	if s.cfg.DataCheckCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.DataCheckCron, func() { s.checkData(ctx) }); err != nil {
			return fmt.Errorf("invalid data check schedule %q: %w", s.cfg.DataCheckCron, err)
		}
	}
	s.cron.Start()

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error(schedulerModule, "Snapshot watcher stopped", map[string]interface{}{"error": err})
			}
		}()
	}

	if s.bus != nil {
		stop, err := s.bus.Subscribe(ctx, events.Subject(events.TypeIndexRefreshRequested), refreshRequestDurable,
			func(ctx context.Context, event events.Event) error {
				return s.index.RequestRefresh(ctx, events.ReasonFrom(event, "bus"))
			})
		if err != nil {
			s.logger.Warn(schedulerModule, "Cannot subscribe to refresh requests", map[string]interface{}{"error": err.Error()})
		} else {
			s.stopBus = stop
		}
	}

	s.logger.Info(schedulerModule, "Index scheduler started", map[string]interface{}{
		"refresh_cron":    s.cfg.RefreshCron,
		"data_check_cron": s.cfg.DataCheckCron,
		"watch":           s.watcher != nil,
		"bus":             s.bus != nil,
	})
	return nil
}

// Stop halts the cron jobs and waits for running jobs to finish.
func (s *IndexScheduler) Stop() {
	if s.stopBus != nil {
		s.stopBus()
	}
	<-s.cron.Stop().Done()
}

func (s *IndexScheduler) request(ctx context.Context, reason string) {
	if err := s.index.RequestRefresh(ctx, reason); err != nil {
		s.logger.Warn(schedulerModule, "Refresh request failed", map[string]interface{}{"reason": reason, "error": err.Error()})
	}
}

func (s *IndexScheduler) checkData(ctx context.Context) {
	if _, err := s.index.CheckForUpdates(ctx); err != nil {
		s.logger.Warn(schedulerModule, "Data check failed", map[string]interface{}{"error": err.Error()})
	}
}

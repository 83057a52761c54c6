// Package scheduler implements the scheduler (spec component C9):
// registers periodic per-source crawl tasks from the catalog, bounds
// in-flight tasks with global and per-source semaphores, and exposes a
// manual trigger. Grounded on the teacher's cmd/worker/main.go
// startCronWorker/runCrawlJob pair (a single robfig/cron job), generalized
// from one cron expression covering every source to one task per source
// definition, each with its own schedule, jitter, and health bookkeeping.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sentryfeed/sentryfeed/internal/browser"
	"github.com/sentryfeed/sentryfeed/internal/catalog"
	"github.com/sentryfeed/sentryfeed/internal/crawler"
	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

// Scheduler owns the cron loop, the in-flight semaphores, and the handle
// to the browser pool it must shut down on stop.
type Scheduler struct {
	Catalog *catalog.Catalog
	Crawler *crawler.Crawler
	Store   *storage.Store
	Pool    *browser.Pool
	Logger  *slog.Logger
	Cfg     Config

	// PrimeFunc is invoked once at Start() when data/raw is empty, to run
	// the full pipeline asynchronously before the regular schedule takes
	// over (spec §4.9 "first-run priming"). Left nil in tests/standalone
	// crawler use; cmd/sentryfeed wires it to the pipeline orchestrator.
	PrimeFunc func(ctx context.Context)

	cron      *cron.Cron
	globalSem chan struct{}
	inFlight  sync.Map // source_id -> *int32 (0 idle, 1 running)

	mu      sync.Mutex
	running bool
}

// New builds a Scheduler. Call Start to register tasks and begin running.
func New(cat *catalog.Catalog, crawl *crawler.Crawler, store *storage.Store, pool *browser.Pool, logger *slog.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Catalog:   cat,
		Crawler:   crawl,
		Store:     store,
		Pool:      pool,
		Logger:    logger,
		Cfg:       cfg,
		globalSem: make(chan struct{}, cfg.MaxConcurrentCrawls),
	}
}

// Start loads the catalog's enabled sources, reconciles their persisted
// state, registers one cron entry per source, and primes the pipeline on
// first run (spec §4.9 contract). It never blocks: the cron scheduler runs
// in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	states, err := s.Store.LoadSourceStates()
	if err != nil {
		return fmt.Errorf("load source states: %w", err)
	}

	s.cron = cron.New(cron.WithLocation(time.UTC))
	for _, src := range s.Catalog.Enabled(states) {
		spec, err := cronSpec(src.Schedule)
		if err != nil {
			s.Logger.Warn("skipping source with invalid schedule",
				slog.String("source_id", src.ID), slog.Any("error", err))
			continue
		}
		jitter := time.Duration(rand.Intn(s.Cfg.JitterMaxSeconds+1)) * time.Second
		task := s.sourceTask(ctx, src, jitter)
		if _, err := s.cron.AddFunc(spec, task); err != nil {
			s.Logger.Warn("failed to register source schedule",
				slog.String("source_id", src.ID), slog.Any("error", err))
			continue
		}
		s.Logger.Info("source scheduled",
			slog.String("source_id", src.ID), slog.String("schedule", string(src.Schedule)),
			slog.Duration("jitter", jitter))
	}
	s.cron.Start()
	s.running = true

	if s.PrimeFunc != nil && !s.Store.HasAnyRawArtifacts() {
		s.Logger.Info("data/raw is empty, priming full pipeline")
		go s.PrimeFunc(ctx)
	}
	return nil
}

// sourceTask builds the cron job closure for one source: sleep the fixed
// per-source jitter, then run under the global+per-source semaphores.
func (s *Scheduler) sourceTask(ctx context.Context, src domain.SourceDefinition, jitter time.Duration) func() {
	return func() {
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return
		}
		s.runOne(ctx, src)
	}
}

// runOne acquires the global and per-source semaphores and runs the
// crawler for one source, rejecting (not queuing) a second concurrent
// invocation of the same source per spec §4.9 ("max_instances = 1").
func (s *Scheduler) runOne(ctx context.Context, src domain.SourceDefinition) {
	flagVal, _ := s.inFlight.LoadOrStore(src.ID, new(int32))
	flag := flagVal.(*int32)
	if !atomic.CompareAndSwapInt32(flag, 0, 1) {
		s.Logger.Warn("rejecting overlapping run for source", slog.String("source_id", src.ID))
		return
	}
	defer atomic.StoreInt32(flag, 0)

	select {
	case s.globalSem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.globalSem }()

	s.Crawler.Run(ctx, src)
}

// Trigger runs one source immediately, out-of-band from its schedule
// (spec §4.9: "trigger(source_id) runs a source once"). It shares the same
// semaphores as scheduled runs, so it can be rejected if that source is
// already in flight.
func (s *Scheduler) Trigger(ctx context.Context, sourceID string) (domain.CrawlResult, error) {
	src, ok := s.Catalog.Get(sourceID)
	if !ok {
		return domain.CrawlResult{}, fmt.Errorf("unknown source %q", sourceID)
	}

	flagVal, _ := s.inFlight.LoadOrStore(src.ID, new(int32))
	flag := flagVal.(*int32)
	if !atomic.CompareAndSwapInt32(flag, 0, 1) {
		return domain.CrawlResult{}, fmt.Errorf("source %q is already running", sourceID)
	}
	defer atomic.StoreInt32(flag, 0)

	select {
	case s.globalSem <- struct{}{}:
	case <-ctx.Done():
		return domain.CrawlResult{}, ctx.Err()
	}
	defer func() { <-s.globalSem }()

	return s.Crawler.Run(ctx, src), nil
}

// Stop quiesces in-flight tasks and shuts down the browser pool (spec
// §4.9: "cancel pending task invocations, wait up to a deadline for
// in-flight fetches to complete, then force-close").
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.Logger.Info("scheduler quiesced cleanly")
	case <-time.After(s.Cfg.StopDeadline):
		s.Logger.Warn("scheduler stop deadline exceeded, forcing close")
	}

	if s.Pool != nil {
		if err := s.Pool.Close(); err != nil {
			s.Logger.Error("browser pool close failed", slog.Any("error", err))
		}
	}
	s.running = false
}

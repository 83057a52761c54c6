// Package crawler implements the crawler base protocol (spec component
// C7): run(source_def) -> CrawlResult. Grounded on the teacher's
// Service.processSingleSource (internal/usecase/fetch/service.go),
// generalized from a single RSS-shaped fetch into the C6 registry
// dispatch this spec requires, and from a SQL article repository into
// C8's file-based artifact store.
package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/metrics"
	"github.com/sentryfeed/sentryfeed/internal/registry"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

// Crawler runs one source through fetch, dedup, and persistence.
type Crawler struct {
	Registry *registry.Registry
	Store    *storage.Store
	Logger   *slog.Logger
	Metrics  *metrics.Recorder // optional; nil disables metrics recording
}

func New(reg *registry.Registry, store *storage.Store, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{Registry: reg, Store: store, Logger: logger}
}

// Run executes spec §4.7's six steps for one source and persists the
// resulting artifact, state update, and run-log entry as a side effect.
func (c *Crawler) Run(ctx context.Context, src domain.SourceDefinition) domain.CrawlResult {
	result := domain.CrawlResult{
		SourceID:  src.ID,
		StartedAt: time.Now(),
	}

	fetcher, err := c.Registry.BuildFetcher(src)
	if err != nil {
		result.EndedAt = time.Now()
		result.Classify(err, 0)
		c.persist(src, result)
		return result
	}

	items, itemErrs, err := fetcher.FetchAndParse(ctx, src)
	result.EndedAt = time.Now()
	if err != nil {
		result.Classify(err, itemErrs)
		c.persist(src, result)
		c.Logger.Warn("source crawl failed",
			slog.String("source_id", src.ID), slog.Any("error", err))
		return result
	}

	result.Items = items

	if c.Store != nil {
		newCount, werr := c.Store.WriteArtifact(src.Dimension, src.Group, src.ID, src.Name, items)
		if werr != nil {
			c.Logger.Error("write artifact failed",
				slog.String("source_id", src.ID), slog.Any("error", werr))
			result.Classify(werr, itemErrs)
			c.persist(src, result)
			return result
		}
		result.ItemsNew = newCount
	}

	result.Classify(nil, itemErrs)
	c.persist(src, result)

	c.Logger.Info("source crawl completed",
		slog.String("source_id", src.ID),
		slog.String("status", string(result.Status)),
		slog.Int("items_total", result.ItemsTotal),
		slog.Int("items_new", result.ItemsNew),
		slog.Duration("duration", time.Duration(result.DurationSecs*float64(time.Second))),
	)
	return result
}

func (c *Crawler) persist(src domain.SourceDefinition, result domain.CrawlResult) {
	if c.Metrics != nil {
		duration := time.Duration(result.DurationSecs * float64(time.Second))
		c.Metrics.RecordCrawl(src.ID, string(result.Status), duration, result.ItemsTotal, result.ItemsNew)
	}
	if c.Store == nil {
		return
	}
	if err := c.Store.RecordRunOutcome(src.ID, result); err != nil {
		c.Logger.Error("record run outcome failed", slog.String("source_id", src.ID), slog.Any("error", err))
	}
	if err := c.Store.AppendRunLog(src.ID, storage.RunLogEntryFromResult(result)); err != nil {
		c.Logger.Error("append run log failed", slog.String("source_id", src.ID), slog.Any("error", err))
	}
}

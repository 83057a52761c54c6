// Package fetchstrategy implements the tagged-union fetcher variants (spec
// component C5): static, dynamic, rss, snapshot, faculty, and the bespoke
// API parsers dispatched by parser_kind. Each generalizes one of the
// teacher's single-purpose scrapers (internal/infra/scraper/{webflow,rss,
// nextjs,remix}.go, internal/usecase/fetch/service.go) into a strategy
// driven entirely by domain.SourceDefinition.
package fetchstrategy

import (
	"context"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// Fetcher is the common contract every strategy and API parser implements.
// FetchAndParse never aborts on partial failure: it returns whatever items
// it managed to produce alongside the per-item errors it swallowed, per
// spec §4.5's "common error handling" rule. itemErrs is the count of
// detail-page (or equivalent) failures that degraded gracefully rather
// than failing the whole source.
type Fetcher interface {
	FetchAndParse(ctx context.Context, src domain.SourceDefinition) (items []domain.CrawledItem, itemErrs int, err error)
}

// SnapshotStore is the narrow slice of C8 the snapshot strategy needs: the
// most recent snapshot record for a source and the ability to append a new
// one. internal/storage provides the concrete implementation.
type SnapshotStore interface {
	LatestSnapshot(sourceID string) (domain.SnapshotRecord, bool, error)
	AppendSnapshot(sourceID string, rec domain.SnapshotRecord) error
}

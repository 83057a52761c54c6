// Package registry implements the source registry (spec component C6):
// build_fetcher(source_def) -> Fetcher, resolving parser_kind first, then
// fetch_strategy, failing unknown kinds with domain.ErrUnknownFetcherKind.
// Grounded on the teacher's ScraperFactory.CreateScrapers
// (internal/infra/scraper/factory.go), generalized from a fixed map built
// once at startup into a resolver that also dispatches bespoke API
// parsers by name.
package registry

import (
	"fmt"

	"github.com/sentryfeed/sentryfeed/internal/browser"
	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/fetchstrategy"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
)

// parserConstructor lazily builds an API parser fetcher. Constructors are
// cheap closures over already-built dependencies; "lazy" here means the
// table entry is only invoked (and the parser only instantiated) when a
// source actually resolves to it, per spec §4.6.
type parserConstructor func() fetchstrategy.Fetcher

// Registry resolves SourceDefinitions to Fetchers. It is built once at
// startup from the shared C1 client, C2 browser pool, and C8 snapshot
// store, then reused for every crawl across the catalog's lifetime.
type Registry struct {
	client  *httpclient.Client
	pool    *browser.Pool
	snaps   fetchstrategy.SnapshotStore

	staticFetcher  *fetchstrategy.StaticFetcher
	dynamicFetcher *fetchstrategy.DynamicFetcher
	rssFetcher     *fetchstrategy.RSSFetcher
	snapFetcher    *fetchstrategy.SnapshotFetcher
	facultyFetcher *fetchstrategy.FacultyFetcher

	parsers map[string]parserConstructor
}

// New builds a Registry. pool may be nil when dynamic rendering is
// disabled (ENABLE_BROWSER=false); sources resolving to `dynamic` will
// then fail at build time. `faculty` sources do not use the pool.
func New(client *httpclient.Client, pool *browser.Pool, snaps fetchstrategy.SnapshotStore) *Registry {
	r := &Registry{
		client:         client,
		pool:           pool,
		snaps:          snaps,
		staticFetcher:  fetchstrategy.NewStaticFetcher(client, 4),
		rssFetcher:     fetchstrategy.NewRSSFetcher(client),
		snapFetcher:    fetchstrategy.NewSnapshotFetcher(client, snaps),
		facultyFetcher: fetchstrategy.NewFacultyFetcher(client),
	}
	if pool != nil {
		r.dynamicFetcher = fetchstrategy.NewDynamicFetcher(pool, client)
	}

	r.parsers = map[string]parserConstructor{
		"arxiv":            func() fetchstrategy.Fetcher { return fetchstrategy.NewArxivParser(client) },
		"github_trending":  func() fetchstrategy.Fetcher { return fetchstrategy.NewGitHubTrendingParser(client) },
		"hackernews":       func() fetchstrategy.Fetcher { return fetchstrategy.NewHackerNewsParser(client) },
		"twitter":          func() fetchstrategy.Fetcher { return fetchstrategy.NewTwitterParser(client) },
	}
	return r
}

// BuildFetcher resolves a SourceDefinition to a Fetcher: parser_kind takes
// precedence over fetch_strategy, per spec §4.6.
func (r *Registry) BuildFetcher(src domain.SourceDefinition) (fetchstrategy.Fetcher, error) {
	if src.ParserKind != "" {
		ctor, ok := r.parsers[src.ParserKind]
		if !ok {
			return nil, fmt.Errorf("%w: parser_kind %q", domain.ErrUnknownFetcherKind, src.ParserKind)
		}
		return ctor(), nil
	}

	switch src.FetchStrategy {
	case domain.StrategyStatic:
		return r.staticFetcher, nil
	case domain.StrategyDynamic:
		if r.dynamicFetcher == nil {
			return nil, fmt.Errorf("%w: dynamic strategy requires a browser pool", domain.ErrUnknownFetcherKind)
		}
		return r.dynamicFetcher, nil
	case domain.StrategyRSS, "":
		return r.rssFetcher, nil
	case domain.StrategySnapshot:
		return r.snapFetcher, nil
	case domain.StrategyFaculty:
		return r.facultyFetcher, nil
	default:
		return nil, fmt.Errorf("%w: fetch_strategy %q", domain.ErrUnknownFetcherKind, src.FetchStrategy)
	}
}

// RegisterParser adds or overrides a bespoke API parser by name, used by
// callers that wire in additional parser_kind implementations beyond the
// built-in four.
func (r *Registry) RegisterParser(name string, ctor func() fetchstrategy.Fetcher) {
	r.parsers[name] = ctor
}

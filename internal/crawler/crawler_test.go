package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/fetchstrategy"
	"github.com/sentryfeed/sentryfeed/internal/registry"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

type fakeFetcher struct {
	items    []domain.CrawledItem
	itemErrs int
	err      error
}

func (f fakeFetcher) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	return f.items, f.itemErrs, f.err
}

func newTestCrawler(t *testing.T, fetcher fetchstrategy.Fetcher) (*Crawler, *storage.Store) {
	t.Helper()
	reg := registry.New(nil, nil, nil)
	reg.RegisterParser("fake", func() fetchstrategy.Fetcher { return fetcher })

	store := storage.New(filepath.Join(t.TempDir(), "data"))
	return New(reg, store, nil), store
}

func testSource() domain.SourceDefinition {
	return domain.SourceDefinition{
		ID: "src1", Name: "Test Source", Dimension: domain.DimensionNationalPolicy, ParserKind: "fake",
	}
}

func TestCrawlerRunSuccess(t *testing.T) {
	fetcher := fakeFetcher{items: []domain.CrawledItem{
		{URL: "https://a.example/1", URLHash: "h1"},
		{URL: "https://a.example/2", URLHash: "h2"},
	}}
	c, store := newTestCrawler(t, fetcher)
	src := testSource()

	result := c.Run(context.Background(), src)

	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 2, result.ItemsTotal)
	assert.Equal(t, 2, result.ItemsNew)

	states, err := store.LoadSourceStates()
	require.NoError(t, err)
	assert.Equal(t, 0, states["src1"].ConsecutiveFailures)

	logs, err := store.LoadRunLog("src1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.StatusSuccess, logs[0].Status)
}

func TestCrawlerRunNoNewContent(t *testing.T) {
	c, _ := newTestCrawler(t, fakeFetcher{items: nil})
	result := c.Run(context.Background(), testSource())
	assert.Equal(t, domain.StatusNoNewContent, result.Status)
}

func TestCrawlerRunPartial(t *testing.T) {
	c, _ := newTestCrawler(t, fakeFetcher{
		items:    []domain.CrawledItem{{URL: "https://a.example/1", URLHash: "h1"}},
		itemErrs: 1,
	})
	result := c.Run(context.Background(), testSource())
	assert.Equal(t, domain.StatusPartial, result.Status)
}

func TestCrawlerRunFetchFailureRecordsConsecutiveFailures(t *testing.T) {
	c, store := newTestCrawler(t, fakeFetcher{err: errors.New("boom")})
	src := testSource()

	result := c.Run(context.Background(), src)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "boom", result.ErrorMessage)

	c.Run(context.Background(), src)

	states, err := store.LoadSourceStates()
	require.NoError(t, err)
	assert.Equal(t, 2, states["src1"].ConsecutiveFailures)
	assert.Equal(t, domain.HealthWarning, states["src1"].Health())
}

func TestCrawlerRunUnknownParserKindFails(t *testing.T) {
	reg := registry.New(nil, nil, nil)
	store := storage.New(filepath.Join(t.TempDir(), "data"))
	c := New(reg, store, nil)

	result := c.Run(context.Background(), domain.SourceDefinition{ID: "src1", ParserKind: "does-not-exist"})
	assert.Equal(t, domain.StatusFailed, result.Status)
}

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/fetchstrategy"
)

func TestBuildFetcherParserKindTakesPrecedence(t *testing.T) {
	reg := New(nil, nil, nil)
	fetcher, err := reg.BuildFetcher(domain.SourceDefinition{
		ParserKind:    "arxiv",
		FetchStrategy: domain.StrategyStatic,
	})
	require.NoError(t, err)
	assert.IsType(t, &fetchstrategy.ArxivParser{}, fetcher)
}

func TestBuildFetcherUnknownParserKind(t *testing.T) {
	reg := New(nil, nil, nil)
	_, err := reg.BuildFetcher(domain.SourceDefinition{ParserKind: "not-a-real-parser"})
	assert.ErrorIs(t, err, domain.ErrUnknownFetcherKind)
}

func TestBuildFetcherByStrategy(t *testing.T) {
	reg := New(nil, nil, nil)

	cases := []struct {
		strategy domain.FetchStrategy
		want     interface{}
	}{
		{domain.StrategyStatic, &fetchstrategy.StaticFetcher{}},
		{domain.StrategyRSS, &fetchstrategy.RSSFetcher{}},
		{"", &fetchstrategy.RSSFetcher{}},
		{domain.StrategySnapshot, &fetchstrategy.SnapshotFetcher{}},
		{domain.StrategyFaculty, &fetchstrategy.FacultyFetcher{}},
	}
	for _, c := range cases {
		fetcher, err := reg.BuildFetcher(domain.SourceDefinition{FetchStrategy: c.strategy})
		require.NoError(t, err)
		assert.IsType(t, c.want, fetcher)
	}
}

func TestBuildFetcherDynamicWithoutPoolFails(t *testing.T) {
	reg := New(nil, nil, nil)
	_, err := reg.BuildFetcher(domain.SourceDefinition{FetchStrategy: domain.StrategyDynamic})
	assert.ErrorIs(t, err, domain.ErrUnknownFetcherKind)
}

func TestBuildFetcherUnknownStrategy(t *testing.T) {
	reg := New(nil, nil, nil)
	_, err := reg.BuildFetcher(domain.SourceDefinition{FetchStrategy: "nonsense"})
	assert.ErrorIs(t, err, domain.ErrUnknownFetcherKind)
}

type stubFetcher struct{}

func (stubFetcher) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	return nil, 0, nil
}

func TestRegisterParserOverridesBuiltin(t *testing.T) {
	reg := New(nil, nil, nil)
	reg.RegisterParser("arxiv", func() fetchstrategy.Fetcher { return stubFetcher{} })

	fetcher, err := reg.BuildFetcher(domain.SourceDefinition{ParserKind: "arxiv"})
	require.NoError(t, err)
	assert.IsType(t, stubFetcher{}, fetcher)
}

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

func TestHasAnyRawArtifacts(t *testing.T) {
	store := New(t.TempDir())
	assert.False(t, store.HasAnyRawArtifacts())

	_, err := store.WriteArtifact(domain.DimensionNationalPolicy, "", "src1", "Source One",
		[]domain.CrawledItem{{URL: "https://a.example/1", URLHash: "h1"}})
	require.NoError(t, err)

	assert.True(t, store.HasAnyRawArtifacts())
}

func TestWriteArtifactMarksNewItems(t *testing.T) {
	store := New(t.TempDir())

	items := []domain.CrawledItem{
		{URL: "https://a.example/1", URLHash: "h1"},
		{URL: "https://a.example/2", URLHash: "h2"},
	}
	newCount, err := store.WriteArtifact(domain.DimensionNationalPolicy, "", "src1", "Source One", items)
	require.NoError(t, err)
	assert.Equal(t, 2, newCount)

	art, ok, err := store.LoadLatestArtifact(domain.DimensionNationalPolicy, "", "src1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, art.ItemCount)
	assert.Nil(t, art.PreviousCrawledAt)

	// A second write reusing h1 and adding h3 should mark only h3 as new,
	// and this time carry a previous_crawled_at stamp.
	second := []domain.CrawledItem{
		{URL: "https://a.example/1", URLHash: "h1"},
		{URL: "https://a.example/3", URLHash: "h3"},
	}
	newCount, err = store.WriteArtifact(domain.DimensionNationalPolicy, "", "src1", "Source One", second)
	require.NoError(t, err)
	assert.Equal(t, 1, newCount)
	assert.False(t, second[0].IsNew)
	assert.True(t, second[1].IsNew)

	art2, ok, err := store.LoadLatestArtifact(domain.DimensionNationalPolicy, "", "src1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, art2.PreviousCrawledAt)
}

func TestListArtifactsByDimension(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.WriteArtifact(domain.DimensionNationalPolicy, "", "src1", "Source One",
		[]domain.CrawledItem{{URL: "https://a.example/1", URLHash: "h1"}})
	require.NoError(t, err)
	_, err = store.WriteArtifact(domain.DimensionNationalPolicy, "", "src2", "Source Two",
		[]domain.CrawledItem{{URL: "https://b.example/1", URLHash: "h2"}})
	require.NoError(t, err)
	_, err = store.WriteArtifact(domain.DimensionPersonnel, "", "src3", "Source Three",
		[]domain.CrawledItem{{URL: "https://c.example/1", URLHash: "h3"}})
	require.NoError(t, err)

	arts, err := store.ListArtifactsByDimension(domain.DimensionNationalPolicy)
	require.NoError(t, err)
	assert.Len(t, arts, 2)

	none, err := store.ListArtifactsByDimension(domain.DimensionUniversities)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRunOutcomeTracksFailures(t *testing.T) {
	store := New(t.TempDir())

	now := time.Now().UTC()
	require.NoError(t, store.RecordRunOutcome("src1", domain.CrawlResult{
		Status: domain.StatusFailed, EndedAt: now,
	}))
	require.NoError(t, store.RecordRunOutcome("src1", domain.CrawlResult{
		Status: domain.StatusFailed, EndedAt: now.Add(time.Hour),
	}))

	states, err := store.LoadSourceStates()
	require.NoError(t, err)
	assert.Equal(t, 2, states["src1"].ConsecutiveFailures)
	assert.Equal(t, domain.HealthWarning, states["src1"].Health())

	require.NoError(t, store.RecordRunOutcome("src1", domain.CrawlResult{
		Status: domain.StatusSuccess, EndedAt: now.Add(2 * time.Hour),
	}))
	states, err = store.LoadSourceStates()
	require.NoError(t, err)
	assert.Equal(t, 0, states["src1"].ConsecutiveFailures)
	assert.Equal(t, domain.HealthHealthy, states["src1"].Health())
}

func TestAppendRunLogTrimsToMax(t *testing.T) {
	store := New(t.TempDir())

	for i := 0; i < domain.MaxRunLogEntries+5; i++ {
		require.NoError(t, store.AppendRunLog("src1", domain.RunLogEntry{
			Status: domain.StatusSuccess, ItemsTotal: i,
		}))
	}

	entries, err := store.LoadRunLog("src1")
	require.NoError(t, err)
	assert.Len(t, entries, domain.MaxRunLogEntries)
	// oldest 5 entries (items_total 0..4) must have been dropped
	assert.Equal(t, 5, entries[0].ItemsTotal)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := New(t.TempDir())

	_, ok, err := store.LatestSnapshot("src1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AppendSnapshot("src1", domain.SnapshotRecord{ContentHash: "h1", ContentLength: 10}))
	require.NoError(t, store.AppendSnapshot("src1", domain.SnapshotRecord{ContentHash: "h2", ContentLength: 20}))

	latest, ok, err := store.LatestSnapshot("src1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h2", latest.ContentHash)
}

func TestWriteAtomicJSONAndReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	type payload struct {
		Value int `json:"value"`
	}

	require.NoError(t, WriteAtomicJSON(path, payload{Value: 42}))

	var got payload
	ok, err := ReadJSONFile(path, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, got.Value)

	var missing payload
	ok, err = ReadJSONFile(filepath.Join(t.TempDir(), "absent.json"), &missing)
	require.NoError(t, err)
	assert.False(t, ok)
}

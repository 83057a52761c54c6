package briefing_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/processor/briefing"
	"github.com/sentryfeed/sentryfeed/internal/processor/hashtrack"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

type fakeFeedItem struct {
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Importance string `json:"importance"`
}

func TestProcess_ComposesSectionsFromUpstreamFeeds(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")

	require.NoError(t, hashtrack.SaveOutputJSON(dataDir, "policy", "feed.json", []fakeFeedItem{
		{SourceID: "src-a", Title: "高优先级政策", URL: "https://example.com/p1", Importance: "high"},
		{SourceID: "src-b", Title: "普通政策", URL: "https://example.com/p2", Importance: "low"},
	}))
	require.NoError(t, hashtrack.SaveOutputJSON(dataDir, "personnel", "feed.json", []fakeFeedItem{
		{SourceID: "src-c", Title: "人事变动", URL: "https://example.com/n1", Importance: "medium"},
	}))

	proc := briefing.New(dataDir, nil, false, nil)
	result, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SectionCount)
	assert.Equal(t, 3, result.ItemCount)

	var b briefing.Briefing
	ok, err := storage.ReadJSONFile(filepath.Join(dataDir, "processed", "briefing", "briefing.json"), &struct {
		Data *briefing.Briefing `json:"data"`
	}{Data: &b})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, b.Sections, 2)
	assert.NotEmpty(t, b.Narrative)

	policySection := b.Sections[0]
	assert.Equal(t, "policy", policySection.Name)
	require.Len(t, policySection.Items, 2)
	assert.Equal(t, "高优先级政策", policySection.Items[0].Title)
}

func TestProcess_SkipsModulesWithNoFeed(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")

	proc := briefing.New(dataDir, nil, false, nil)
	result, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SectionCount)
}

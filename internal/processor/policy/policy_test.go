package policy_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/processor/policy"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

func TestProcess_ScoresAndExtractsOpportunity(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)

	publishedAt := time.Now()
	items := []domain.CrawledItem{
		{
			Title:       "关于加快人工智能产业发展的实施方案",
			URL:         "https://example.gov.cn/policy/1",
			URLHash:     "hash-1",
			ContentHash: "content-1",
			Content:     "本实施方案明确，对符合条件的项目，资助上限 500 万元，申报截止 2026-06-30。",
			PublishedAt: &publishedAt,
			SourceID:    "src-national",
			Dimension:   domain.DimensionNationalPolicy,
		},
	}
	_, err := store.WriteArtifact(domain.DimensionNationalPolicy, "", "src-national", "Test Source", items)
	require.NoError(t, err)

	proc := policy.New(store, dataDir, nil, false, nil)
	result, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)

	require.Equal(t, 1, result.ItemsProcessed)
	require.Equal(t, 1, result.OpportunityCount)

	var feed []policy.FeedItem
	ok, err := storage.ReadJSONFile(filepath.Join(dataDir, "processed", "policy", "feed.json"), &struct {
		GeneratedAt time.Time          `json:"generated_at"`
		Data        *[]policy.FeedItem `json:"data"`
	}{Data: &feed})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, feed, 1)
	assert.GreaterOrEqual(t, feed[0].MatchScore, 70.0)
	assert.Equal(t, "high", feed[0].Importance)

	var opportunities []policy.Opportunity
	ok, err = storage.ReadJSONFile(filepath.Join(dataDir, "processed", "policy", "opportunities.json"), &struct {
		GeneratedAt time.Time             `json:"generated_at"`
		Data        *[]policy.Opportunity `json:"data"`
	}{Data: &opportunities})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, opportunities, 1)
	assert.Equal(t, "500万元", opportunities[0].FundingAmount)
	assert.Equal(t, "2026-06-30", opportunities[0].DeadlineDate)
}

func TestProcess_SkipsUnchangedItemsWithoutForce(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)

	items := []domain.CrawledItem{
		{
			Title:       "普通通知",
			URL:         "https://example.gov.cn/notice/1",
			URLHash:     "hash-2",
			ContentHash: "content-2",
			Content:     "常规事项通知。",
			SourceID:    "src-national",
			Dimension:   domain.DimensionNationalPolicy,
		},
	}
	_, err := store.WriteArtifact(domain.DimensionNationalPolicy, "", "src-national", "Test Source", items)
	require.NoError(t, err)

	proc := policy.New(store, dataDir, nil, false, nil)
	first, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)
	require.Equal(t, 1, first.ItemsProcessed)

	second, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ItemsProcessed)

	third, err := proc.Process(context.Background(), false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, third.ItemsProcessed)
}

package techfrontier_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/processor/techfrontier"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

func TestProcess_BinsItemsIntoFixedTopics(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)

	items := []domain.CrawledItem{
		{
			Title:       "某公司发布新一代大模型",
			URL:         "https://example.com/tech/1",
			URLHash:     "hash-1",
			ContentHash: "content-1",
			Content:     "该大语言模型在多个基准上取得领先成绩。",
			SourceID:    "src-tech",
			Dimension:   domain.DimensionTechnology,
		},
	}
	_, err := store.WriteArtifact(domain.DimensionTechnology, "", "src-tech", "Test Source", items)
	require.NoError(t, err)

	proc := techfrontier.New(store, dataDir, nil, false, nil)
	result, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.ItemsProcessed)

	var topics []techfrontier.Topic
	ok, err := storage.ReadJSONFile(filepath.Join(dataDir, "processed", "techfrontier", "topics.json"), &struct {
		Data *[]techfrontier.Topic `json:"data"`
	}{Data: &topics})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, topics, 8)

	var found bool
	for _, topic := range topics {
		if topic.ID == "large_models" {
			found = true
			assert.Len(t, topic.RelatedNews, 1)
		}
	}
	assert.True(t, found)
}

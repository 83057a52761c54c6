package personnel_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/processor/personnel"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

func TestProcess_ExtractsAppointmentChange(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)

	items := []domain.CrawledItem{
		{
			Title:       "国务院任命张三为教育部副部长",
			URL:         "https://example.gov.cn/personnel/1",
			URLHash:     "hash-1",
			ContentHash: "content-1",
			Content:     "国务院今日发布任免通知。",
			SourceID:    "src-personnel",
			Dimension:   domain.DimensionPersonnel,
		},
	}
	_, err := store.WriteArtifact(domain.DimensionPersonnel, "", "src-personnel", "Test Source", items)
	require.NoError(t, err)

	proc := personnel.New(store, dataDir, nil, false, nil)
	result, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)

	require.Equal(t, 1, result.ArticlesProcessed)
	require.Equal(t, 1, result.ChangeCount)

	var changes []personnel.ChangeRecord
	ok, err := storage.ReadJSONFile(filepath.Join(dataDir, "processed", "personnel", "changes.json"), &struct {
		Data *[]personnel.ChangeRecord `json:"data"`
	}{Data: &changes})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, changes, 1)

	rec := changes[0]
	assert.Equal(t, "张三", rec.Name)
	assert.Equal(t, personnel.ActionAppointed, rec.Action)
	assert.Equal(t, "教育部副部长", rec.Position)
	assert.Equal(t, "国务院", rec.Organization)

	var feed []personnel.FeedItem
	ok, err = storage.ReadJSONFile(filepath.Join(dataDir, "processed", "personnel", "feed.json"), &struct {
		Data *[]personnel.FeedItem `json:"data"`
	}{Data: &feed})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, feed, 1)
	assert.Contains(t, []string{"medium", "high"}, feed[0].Importance)
}

func TestExtractChanges_HandlesMultipleRecordsInOneArticle(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)

	items := []domain.CrawledItem{
		{
			Title:       "人事任免",
			URL:         "https://example.gov.cn/personnel/2",
			URLHash:     "hash-2",
			ContentHash: "content-2",
			Content:     "国务院任命李四为财政部副部长。王五卸任财政部副部长职务。",
			SourceID:    "src-personnel",
			Dimension:   domain.DimensionPersonnel,
		},
	}
	_, err := store.WriteArtifact(domain.DimensionPersonnel, "", "src-personnel", "Test Source", items)
	require.NoError(t, err)

	proc := personnel.New(store, dataDir, nil, false, nil)
	result, err := proc.Process(context.Background(), false, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ChangeCount, 2)
}

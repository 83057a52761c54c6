package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/catalog"
	"github.com/sentryfeed/sentryfeed/internal/crawler"
	"github.com/sentryfeed/sentryfeed/internal/pipeline"
	"github.com/sentryfeed/sentryfeed/internal/processor/briefing"
	"github.com/sentryfeed/sentryfeed/internal/processor/personnel"
	"github.com/sentryfeed/sentryfeed/internal/processor/policy"
	"github.com/sentryfeed/sentryfeed/internal/processor/techfrontier"
	"github.com/sentryfeed/sentryfeed/internal/processor/university"
	"github.com/sentryfeed/sentryfeed/internal/registry"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

func emptyCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: []\n"), 0o644))
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	return cat
}

func TestPipeline_OracleDisabledSkipsStage6AndSucceedsOverall(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)
	cat := emptyCatalog(t)
	reg := registry.New(nil, nil, nil)
	crawl := crawler.New(reg, store, nil)

	policyProc := policy.New(store, dataDir, nil, false, nil)
	personnelProc := personnel.New(store, dataDir, nil, false, nil)
	universityProc := university.New(store, dataDir, nil)
	techProc := techfrontier.New(store, dataDir, nil, false, nil)
	briefingProc := briefing.New(dataDir, nil, false, nil)

	pl := pipeline.New(cat, crawl, store, dataDir, policyProc, personnelProc, universityProc, techProc, briefingProc, false, 2, nil)

	status := pl.Run(context.Background())

	var oracleStage *pipeline.StageRecord
	for i := range status.Stages {
		if status.Stages[i].Name == "oracle_enrichment" {
			oracleStage = &status.Stages[i]
		}
	}
	require.NotNil(t, oracleStage)
	assert.Equal(t, pipeline.StageSkipped, oracleStage.Status)

	for _, s := range status.Stages {
		assert.NotEqual(t, pipeline.StageFailed, s.Status, "stage %s failed unexpectedly: %s", s.Name, s.Error)
	}
	assert.Equal(t, "success", status.Overall)

	var persisted pipeline.Status
	ok, err := storage.ReadJSONFile(filepath.Join(dataDir, "pipeline_status.json"), &persisted)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success", persisted.Overall)
}

func TestPipeline_NoEnabledSourcesSkipsCrawlStage(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	store := storage.New(dataDir)
	cat := emptyCatalog(t)
	reg := registry.New(nil, nil, nil)
	crawl := crawler.New(reg, store, nil)

	pl := pipeline.New(cat, crawl, store, dataDir, nil, nil, nil, nil, nil, false, 2, nil)
	status := pl.Run(context.Background())

	require.NotEmpty(t, status.Stages)
	assert.Equal(t, "crawl_all", status.Stages[0].Name)
	assert.Equal(t, pipeline.StageSkipped, status.Stages[0].Status)
	assert.Equal(t, "success", status.Overall)
}

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/config"
	"github.com/sentryfeed/sentryfeed/internal/oracle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestLoadCatalogReadsYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
sources:
  - id: src1
    name: Test Source
    dimension: national_policy
    fetch_strategy: rss
    url: https://a.example/feed.xml
    schedule: daily
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.yaml"), []byte(yamlContent), 0o644))

	t.Setenv("SOURCE_CATALOG_DIR", dir)
	cat, err := loadCatalog(testLogger())
	require.NoError(t, err)
	src, ok := cat.Get("src1")
	require.True(t, ok)
	assert.Equal(t, "Test Source", src.Name)
}

func TestLoadCatalogFallsBackToEmptyWhenNoFiles(t *testing.T) {
	t.Setenv("SOURCE_CATALOG_DIR", t.TempDir())
	cat, err := loadCatalog(testLogger())
	require.NoError(t, err)
	assert.Empty(t, cat.Sources)
}

func TestBuildOracleProviderNoOpWithoutAPIKey(t *testing.T) {
	provider := buildOracleProvider(config.AppConfig{}, testLogger())
	assert.IsType(t, oracle.NewNoOp(), provider)
}

func TestBuildOracleProviderConcreteWithAPIKey(t *testing.T) {
	provider := buildOracleProvider(config.AppConfig{OracleAPIKey: "key", OracleModel: "claude-3-5-haiku-latest"}, testLogger())
	assert.NotEqual(t, oracle.NewNoOp(), provider)
}

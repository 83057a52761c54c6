// Command sentryfeed is the operator-facing entry point: an admin CLI
// that wires every collaborator (C1-C11) and exposes the pipeline and each
// processor as subcommands, rather than the teacher's single always-on
// cron worker (cmd/worker/main.go). Grounded on initLogger's structured
// logging and setupFetchService's dependency-wiring decomposition, with
// the command surface itself borrowed from theRebelliousNerd-codenerd's
// cobra tree (cmd/nerd/cmd_auth.go: package-level *cobra.Command vars
// registered onto a root command in init()).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sentryfeed/sentryfeed/internal/browser"
	"github.com/sentryfeed/sentryfeed/internal/catalog"
	"github.com/sentryfeed/sentryfeed/internal/config"
	"github.com/sentryfeed/sentryfeed/internal/crawler"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/logging"
	"github.com/sentryfeed/sentryfeed/internal/metrics"
	"github.com/sentryfeed/sentryfeed/internal/oracle"
	"github.com/sentryfeed/sentryfeed/internal/pipeline"
	"github.com/sentryfeed/sentryfeed/internal/processor/briefing"
	"github.com/sentryfeed/sentryfeed/internal/processor/personnel"
	"github.com/sentryfeed/sentryfeed/internal/processor/policy"
	"github.com/sentryfeed/sentryfeed/internal/processor/techfrontier"
	"github.com/sentryfeed/sentryfeed/internal/processor/university"
	"github.com/sentryfeed/sentryfeed/internal/registry"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

// app bundles every collaborator a subcommand might need. Built once in
// main() and threaded into each RunE closure via the package-level appv
// (see root.go), mirroring setupFetchService's "build once, hand to
// whoever needs it" shape without the database lifecycle that function
// also manages.
type app struct {
	logger *slog.Logger
	cfg    config.AppConfig

	catalog *catalog.Catalog
	store   *storage.Store
	crawl   *crawler.Crawler
	pool    *browser.Pool

	policyProc     *policy.Processor
	personnelProc  *personnel.Processor
	universityProc *university.Processor
	techProc       *techfrontier.Processor
	briefingProc   *briefing.Processor

	pipeline *pipeline.Pipeline
}

var appv *app

func main() {
	logger := initLogger()
	appv = buildApp(logger)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initLogger mirrors cmd/worker's initLogger, delegating to
// internal/logging so the CLI shares the same JSON-handler construction
// every package-level slog.Default() call downstream picks up.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// buildApp wires every collaborator exactly once, fail-open per
// config.AppConfig's philosophy: a disabled or misconfigured optional
// dependency (browser pool, oracle) degrades that feature rather than
// aborting startup.
func buildApp(logger *slog.Logger) *app {
	cfg := config.Load(logger)
	runID := uuid.New().String()
	logger = logging.WithRunID(logger, runID)

	rec := metrics.New()

	cat, err := loadCatalog(logger)
	if err != nil {
		logger.Error("failed to load source catalog", slog.Any("error", err))
		os.Exit(1)
	}

	store := storage.New(cfg.DataDir)

	client := httpclient.New(httpclient.Config{
		MaxConcurrentPerDomain: cfg.MaxConcurrentPerDomain,
		RequestDelay:           time.Duration(cfg.RequestDelaySeconds * float64(time.Second)),
		Timeout:                httpclient.DefaultConfig().Timeout,
		MaxRetries:             httpclient.DefaultConfig().MaxRetries,
		MaxBodySize:            httpclient.DefaultConfig().MaxBodySize,
		MaxRedirects:           httpclient.DefaultConfig().MaxRedirects,
	})

	var pool *browser.Pool
	if os.Getenv("ENABLE_BROWSER") == "true" {
		browserCfg := browser.DefaultConfig()
		browserCfg.MaxContexts = cfg.PlaywrightMaxContexts
		pool = browser.New(browserCfg)
		logger.Info("browser pool enabled", slog.Int("max_contexts", browserCfg.MaxContexts))
	} else {
		logger.Info("browser pool disabled", slog.String("reason", "ENABLE_BROWSER not set"))
	}

	reg := registry.New(client, pool, store)
	crawl := crawler.New(reg, store, logger)
	crawl.Metrics = rec

	provider := buildOracleProvider(cfg, logger)
	oracleGate := cfg.OracleEnabled()

	policyProc := policy.New(store, cfg.DataDir, provider, oracleGate, logger)
	personnelProc := personnel.New(store, cfg.DataDir, provider, oracleGate, logger)
	universityProc := university.New(store, cfg.DataDir, logger)
	techProc := techfrontier.New(store, cfg.DataDir, provider, oracleGate, logger)
	briefingProc := briefing.New(cfg.DataDir, provider, oracleGate, logger)

	pl := pipeline.New(cat, crawl, store, cfg.DataDir,
		policyProc, personnelProc, universityProc, techProc, briefingProc,
		oracleGate, cfg.MaxConcurrentCrawls, logger)

	return &app{
		logger: logger, cfg: cfg,
		catalog: cat, store: store, crawl: crawl, pool: pool,
		policyProc: policyProc, personnelProc: personnelProc, universityProc: universityProc,
		techProc: techProc, briefingProc: briefingProc,
		pipeline: pl,
	}
}

// loadCatalog reads every YAML file under SOURCE_CATALOG_DIR (default
// "sources"), one file per dimension plus a mixed-dimension twitter.yaml,
// per spec §6's catalog file format.
func loadCatalog(logger *slog.Logger) (*catalog.Catalog, error) {
	dir := config.LoadEnvString("SOURCE_CATALOG_DIR", "sources")
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob catalog dir %s: %w", dir, err)
	}
	if len(matches) == 0 {
		logger.Warn("no catalog files found, starting with an empty source catalog", slog.String("dir", dir))
		return catalog.LoadAll(nil)
	}
	logger.Info("loaded source catalog files", slog.Int("count", len(matches)), slog.String("dir", dir))
	return catalog.LoadAll(matches)
}

// buildOracleProvider selects a Claude or OpenAI-backed provider per
// ORACLE_MODEL the way cmd/worker's createSummarizer dispatches on
// SUMMARIZER_TYPE, falling back to a NoOp provider when no key is
// configured so every processor can unconditionally hold a non-nil
// oracle.Provider and rely solely on OracleGate to decide whether to call it.
func buildOracleProvider(cfg config.AppConfig, logger *slog.Logger) oracle.Provider {
	if cfg.OracleAPIKey == "" {
		logger.Info("oracle enrichment disabled", slog.String("reason", "ORACLE_API_KEY not set"))
		return oracle.NewNoOp()
	}
	logger.Info("oracle provider configured", slog.String("model", cfg.OracleModel))
	return oracle.New(cfg.OracleAPIKey, cfg.OracleModel)
}

package config

import (
	"fmt"
	"log/slog"
	"time"
)

// AppConfig is the process-wide configuration loaded once at startup from
// the environment variables named in spec §6. Every field is loaded
// fail-open via LoadEnv*: a missing or invalid value never aborts startup,
// it logs a warning and falls back to a sane default.
type AppConfig struct {
	MaxConcurrentCrawls    int
	MaxConcurrentPerDomain int
	PlaywrightMaxContexts  int
	PipelineCronHour       int
	PipelineCronMinute     int
	EnableLLMEnrichment    bool
	OracleAPIKey           string
	OracleModel            string
	TwitterAPIKey          string
	RequestDelaySeconds    float64
	DataDir                string
}

// Load reads AppConfig from the environment, logging every applied
// fallback. It never returns an error, mirroring the teacher's fail-open
// configuration philosophy (internal/infra/worker.LoadConfigFromEnv).
func Load(logger *slog.Logger) AppConfig {
	cfg := AppConfig{}

	cfg.MaxConcurrentCrawls = loadInt(logger, "MAX_CONCURRENT_CRAWLS", 5, func(v int) error { return ValidateIntRange(v, 1, 100) })
	cfg.MaxConcurrentPerDomain = loadInt(logger, "MAX_CONCURRENT_PER_DOMAIN", 2, func(v int) error { return ValidateIntRange(v, 1, 20) })
	cfg.PlaywrightMaxContexts = loadInt(logger, "PLAYWRIGHT_MAX_CONTEXTS", 3, func(v int) error { return ValidateIntRange(v, 1, 20) })
	cfg.PipelineCronHour = loadInt(logger, "PIPELINE_CRON_HOUR", 6, func(v int) error { return ValidateIntRange(v, 0, 23) })
	cfg.PipelineCronMinute = loadInt(logger, "PIPELINE_CRON_MINUTE", 0, func(v int) error { return ValidateIntRange(v, 0, 59) })

	enrichResult := LoadEnvBool("ENABLE_LLM_ENRICHMENT", false)
	logFallback(logger, "ENABLE_LLM_ENRICHMENT", enrichResult)
	cfg.EnableLLMEnrichment = enrichResult.Value.(bool)

	cfg.OracleAPIKey = LoadEnvString("ORACLE_API_KEY", "")
	cfg.OracleModel = LoadEnvString("ORACLE_MODEL", "claude-3-5-haiku-latest")
	cfg.TwitterAPIKey = LoadEnvString("TWITTER_API_KEY", "")
	cfg.DataDir = LoadEnvString("SENTRYFEED_DATA_DIR", "data")

	delayResult := LoadEnvDuration("REQUEST_DELAY", 1*time.Second, ValidateNonNegativeDuration)
	logFallback(logger, "REQUEST_DELAY", delayResult)
	cfg.RequestDelaySeconds = delayResult.Value.(time.Duration).Seconds()

	return cfg
}

// OracleEnabled reports whether oracle enrichment stages should run: both
// the feature flag and a non-empty API key must be present, per spec §4.10
// stage 6's gating rule.
func (c AppConfig) OracleEnabled() bool {
	return c.EnableLLMEnrichment && c.OracleAPIKey != ""
}

func loadInt(logger *slog.Logger, key string, def int, validator func(int) error) int {
	result := LoadEnvInt(key, def, validator)
	logFallback(logger, key, result)
	return result.Value.(int)
}

func logFallback(logger *slog.Logger, key string, result ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	for _, w := range result.Warnings {
		logger.Warn("config fallback applied", slog.String("key", key), slog.String("detail", w))
	}
}

// ValidateIntRange validates that v falls within [min, max] inclusive.
func ValidateIntRange(v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("value %d out of range [%d, %d]", v, min, max)
	}
	return nil
}

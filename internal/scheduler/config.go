package scheduler

import (
	"log/slog"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/config"
)

// Config holds the scheduler's own tunables, loaded fail-open the way the
// teacher's worker.WorkerConfig is (internal/infra/worker/config.go), but
// scoped to scheduling concerns only: concurrency caps and jitter live
// here, while oracle/data-dir/pipeline-cron settings live in the shared
// config.AppConfig.
type Config struct {
	MaxConcurrentCrawls int
	JitterMaxSeconds    int
	StopDeadline        time.Duration
}

// DefaultConfig mirrors spec §4.9/§5 defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentCrawls: 5,
		JitterMaxSeconds:    300,
		StopDeadline:        30 * time.Second,
	}
}

// LoadConfigFromEnv loads scheduler settings fail-open, logging a warning
// and falling back to defaults on any invalid value (spec's ambient
// "fail-open configuration" convention, shared with config.Load).
func LoadConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()

	result := config.LoadEnvInt("MAX_CONCURRENT_CRAWLS", cfg.MaxConcurrentCrawls, func(v int) error {
		return config.ValidateIntRange(v, 1, 100)
	})
	logConfigFallback(logger, "MAX_CONCURRENT_CRAWLS", result)
	cfg.MaxConcurrentCrawls = result.Value.(int)

	result = config.LoadEnvInt("SCHEDULER_JITTER_MAX_SECONDS", cfg.JitterMaxSeconds, func(v int) error {
		return config.ValidateIntRange(v, 0, 3600)
	})
	logConfigFallback(logger, "SCHEDULER_JITTER_MAX_SECONDS", result)
	cfg.JitterMaxSeconds = result.Value.(int)

	durResult := config.LoadEnvDuration("SCHEDULER_STOP_DEADLINE", cfg.StopDeadline, func(d time.Duration) error {
		return config.ValidatePositiveDuration(d)
	})
	logConfigFallback(logger, "SCHEDULER_STOP_DEADLINE", durResult)
	cfg.StopDeadline = durResult.Value.(time.Duration)

	return cfg
}

func logConfigFallback(logger *slog.Logger, key string, result config.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	for _, w := range result.Warnings {
		logger.Warn("scheduler config fallback applied", slog.String("key", key), slog.String("detail", w))
	}
}

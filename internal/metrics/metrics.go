// Package metrics holds the process-wide Prometheus recorders for crawl
// runs, pipeline stages, and oracle calls. Grounded on the teacher's
// internal/infra/worker.WorkerMetrics (cron-job counters/histograms) and
// internal/infra/summarizer's PrometheusSummaryMetrics, generalized from
// one fixed cron job and one fixed summarizer call into per-source-crawl,
// per-pipeline-stage, and per-oracle-provider recorders (spec §9's
// testable properties all imply counters/durations the read API's health
// endpoint and an operator's Grafana board would consume).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the process-wide metrics handle, built once at startup and
// handed to the crawler, which records every run through RecordCrawl. The
// pipeline orchestrator and the oracle providers do not hold it, so the
// stage and oracle recorders are not called outside tests.
type Recorder struct {
	CrawlRunsTotal      *prometheus.CounterVec
	CrawlDuration       *prometheus.HistogramVec
	CrawlItemsTotal     *prometheus.CounterVec
	CrawlItemsNewTotal  *prometheus.CounterVec

	PipelineStageRuns   *prometheus.CounterVec
	PipelineStageTime   *prometheus.HistogramVec
	PipelineLastSuccess prometheus.Gauge

	OracleCallsTotal    *prometheus.CounterVec
	OracleCallDuration  *prometheus.HistogramVec
	OracleCircuitOpen   *prometheus.CounterVec
}

// New builds and registers every metric. Call once per process; tests
// that need a fresh registry should use NewWithRegistry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry builds metrics against a caller-supplied registerer, so
// tests can use a private prometheus.NewRegistry() instead of polluting
// the global default registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		CrawlRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentryfeed_crawl_runs_total",
			Help: "Total crawler runs by source_id and status",
		}, []string{"source_id", "status"}),

		CrawlDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentryfeed_crawl_duration_seconds",
			Help:    "Duration of a single source crawl run",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"source_id"}),

		CrawlItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentryfeed_crawl_items_total",
			Help: "Total items seen per source crawl run",
		}, []string{"source_id"}),

		CrawlItemsNewTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentryfeed_crawl_items_new_total",
			Help: "Total new (previously unseen) items per source crawl run",
		}, []string{"source_id"}),

		PipelineStageRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentryfeed_pipeline_stage_runs_total",
			Help: "Total pipeline orchestrator stage executions by stage and status",
		}, []string{"stage", "status"}),

		PipelineStageTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentryfeed_pipeline_stage_duration_seconds",
			Help:    "Duration of one pipeline orchestrator stage",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900},
		}, []string{"stage"}),

		PipelineLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentryfeed_pipeline_last_success_timestamp",
			Help: "Unix timestamp of the last pipeline run where all stages succeeded or were skipped",
		}),

		OracleCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentryfeed_oracle_calls_total",
			Help: "Total oracle enrichment calls by module and outcome",
		}, []string{"module", "outcome"}),

		OracleCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentryfeed_oracle_call_duration_seconds",
			Help:    "Duration of one oracle enrichment call",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"module"}),

		OracleCircuitOpen: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentryfeed_oracle_circuit_open_total",
			Help: "Total oracle calls rejected because the circuit breaker was open",
		}, []string{"module"}),
	}
}

// RecordCrawl records one crawler run's outcome, duration, and item counts.
func (r *Recorder) RecordCrawl(sourceID, status string, duration time.Duration, itemsTotal, itemsNew int) {
	r.CrawlRunsTotal.WithLabelValues(sourceID, status).Inc()
	r.CrawlDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
	r.CrawlItemsTotal.WithLabelValues(sourceID).Add(float64(itemsTotal))
	r.CrawlItemsNewTotal.WithLabelValues(sourceID).Add(float64(itemsNew))
}

// RecordStage records one pipeline orchestrator stage's outcome.
func (r *Recorder) RecordStage(stage, status string, duration time.Duration) {
	r.PipelineStageRuns.WithLabelValues(stage, status).Inc()
	r.PipelineStageTime.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPipelineSuccess stamps the last-fully-successful pipeline run gauge.
func (r *Recorder) RecordPipelineSuccess() {
	r.PipelineLastSuccess.SetToCurrentTime()
}

// RecordOracleCall records one oracle completion attempt's outcome and
// duration. Circuit-breaker rejections are counted by
// RecordOracleCircuitOpen.
func (r *Recorder) RecordOracleCall(module, outcome string, duration time.Duration) {
	r.OracleCallsTotal.WithLabelValues(module, outcome).Inc()
	r.OracleCallDuration.WithLabelValues(module).Observe(duration.Seconds())
}

func (r *Recorder) RecordOracleCircuitOpen(module string) {
	r.OracleCircuitOpen.WithLabelValues(module).Inc()
}

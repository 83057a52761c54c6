package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestRecorder() *Recorder {
	return NewWithRegistry(prometheus.NewRegistry())
}

func TestRecordCrawl(t *testing.T) {
	rec := newTestRecorder()

	rec.RecordCrawl("src1", "SUCCESS", 2*time.Second, 10, 3)

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.CrawlRunsTotal.WithLabelValues("src1", "SUCCESS")))
	assert.Equal(t, float64(10), testutil.ToFloat64(rec.CrawlItemsTotal.WithLabelValues("src1")))
	assert.Equal(t, float64(3), testutil.ToFloat64(rec.CrawlItemsNewTotal.WithLabelValues("src1")))
}

func TestRecordStage(t *testing.T) {
	rec := newTestRecorder()

	rec.RecordStage("crawl_all", "success", time.Second)
	rec.RecordStage("crawl_all", "failed", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.PipelineStageRuns.WithLabelValues("crawl_all", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.PipelineStageRuns.WithLabelValues("crawl_all", "failed")))
}

func TestRecordPipelineSuccess(t *testing.T) {
	rec := newTestRecorder()

	before := testutil.ToFloat64(rec.PipelineLastSuccess)
	assert.Zero(t, before)

	rec.RecordPipelineSuccess()
	assert.Greater(t, testutil.ToFloat64(rec.PipelineLastSuccess), float64(0))
}

func TestRecordOracleCallAndCircuitOpen(t *testing.T) {
	rec := newTestRecorder()

	rec.RecordOracleCall("policy", "success", 500*time.Millisecond)
	rec.RecordOracleCircuitOpen("policy")
	rec.RecordOracleCircuitOpen("policy")

	assert.Equal(t, float64(1), testutil.ToFloat64(rec.OracleCallsTotal.WithLabelValues("policy", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.OracleCircuitOpen.WithLabelValues("policy")))
}

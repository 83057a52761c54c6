package domain

import "time"

// SourceState is the process-wide, mutable per-source health record. It is
// written only by the fetcher-run path (internal/crawler + internal/storage)
// and read by the scheduler's failure-recovery logic and the (external)
// health endpoint.
type SourceState struct {
	LastCrawlAt         time.Time `json:"last_crawl_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	IsEnabledOverride   *bool     `json:"is_enabled_override,omitempty"`
}

// HealthBand classifies a SourceState into the three operator-facing bands
// named in spec §7: healthy, warning, failing.
type HealthBand string

const (
	HealthHealthy HealthBand = "healthy"
	HealthWarning HealthBand = "warning"
	HealthFailing HealthBand = "failing"
)

// Health applies the threshold consecutive_failures >= 3 => failing, >=1 =>
// warning, else healthy.
func (s SourceState) Health() HealthBand {
	switch {
	case s.ConsecutiveFailures >= 3:
		return HealthFailing
	case s.ConsecutiveFailures >= 1:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// RunLogEntry is one record in a source's bounded run-log array.
type RunLogEntry struct {
	Timestamp    time.Time   `json:"timestamp"`
	Status       CrawlStatus `json:"status"`
	ItemsTotal   int         `json:"items_total"`
	ItemsNew     int         `json:"items_new"`
	DurationSecs float64     `json:"duration_seconds"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// MaxRunLogEntries bounds the run-log array per spec §4.8; inserting the
// 101st entry drops the oldest.
const MaxRunLogEntries = 100

// RawArtifact is the on-disk JSON representation of the latest crawl output
// for one source (spec §3/§4.8).
type RawArtifact struct {
	SourceID          string        `json:"source_id"`
	Dimension         Dimension     `json:"dimension"`
	Group             string        `json:"group,omitempty"`
	SourceName        string        `json:"source_name"`
	CrawledAt         time.Time     `json:"crawled_at"`
	PreviousCrawledAt *time.Time    `json:"previous_crawled_at"`
	ItemCount         int           `json:"item_count"`
	NewItemCount      int           `json:"new_item_count"`
	Items             []CrawledItem `json:"items"`
}

// SnapshotRecord is one entry in a snapshot-strategy source's change log.
type SnapshotRecord struct {
	CapturedAt    time.Time `json:"captured_at"`
	ContentHash   string    `json:"content_hash"`
	ContentLength int       `json:"content_length"`
	DiffSummary   string    `json:"diff_summary"`

	// RawText holds the captured content itself, truncated to a bounded
	// size, so the next run can produce a real line-level diff against it
	// instead of only comparing hash and length.
	RawText string `json:"raw_text,omitempty"`
}

package domain

import "time"

// Image is one sanitized <img> extracted from a detail page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// CrawledItem is the per-entry record a fetcher strategy produces for one
// source run. IsNew is populated by the storage layer when the artifact is
// written, not by the fetcher itself.
type CrawledItem struct {
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	URLHash     string         `json:"url_hash"`
	PublishedAt *time.Time     `json:"published_at"`
	Author      string         `json:"author,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Content     string         `json:"content,omitempty"`
	ContentHTML string         `json:"content_html,omitempty"`
	ContentHash string         `json:"content_hash,omitempty"`
	SourceID    string         `json:"source_id"`
	Dimension   Dimension      `json:"dimension"`
	Tags        []string       `json:"tags,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	IsNew       bool           `json:"is_new"`
}

// CrawlStatus classifies the outcome of one source run per the predicates
// in the data model: SUCCESS iff items were produced and nothing errored;
// NO_NEW_CONTENT iff the run was clean but yielded zero items; PARTIAL iff
// some items succeeded and some failed; FAILED iff no items were produced
// and at least one error occurred.
type CrawlStatus string

const (
	StatusSuccess      CrawlStatus = "SUCCESS"
	StatusNoNewContent CrawlStatus = "NO_NEW_CONTENT"
	StatusPartial      CrawlStatus = "PARTIAL"
	StatusFailed       CrawlStatus = "FAILED"
)

// CrawlResult is the standard record produced by running one source through
// the crawler base protocol (C7).
type CrawlResult struct {
	SourceID      string        `json:"source_id"`
	Status        CrawlStatus   `json:"status"`
	ItemsTotal    int           `json:"items_total"`
	ItemsNew      int           `json:"items_new"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	DurationSecs  float64       `json:"duration_seconds"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	Items         []CrawledItem `json:"items"`
}

// Classify sets Status per the data-model predicates in spec §3. itemErrs
// is the count of per-item errors encountered during this run (detail
// fetch failures degrade gracefully and do not themselves fail the run,
// but they do push a run with at least one success into PARTIAL).
func (r *CrawlResult) Classify(fatalErr error, itemErrs int) {
	r.DurationSecs = r.EndedAt.Sub(r.StartedAt).Seconds()
	switch {
	case fatalErr != nil && len(r.Items) == 0:
		r.Status = StatusFailed
		r.ErrorMessage = fatalErr.Error()
	case len(r.Items) == 0:
		r.Status = StatusNoNewContent
	case itemErrs > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSuccess
	}
	r.ItemsTotal = len(r.Items)
}

package fetchstrategy

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

func rosterDoc(t *testing.T, rows ...string) *goquery.Document {
	t.Helper()
	html := `<html><body><div id="roster">` + strings.Join(rows, "\n") + `</div></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

// TestBuildSnapshotResult_S2Diff reproduces spec.md's S2 scenario: first run
// on "A: Smith" captures a snapshot and emits one item; second run on
// "A: Smith" + "B: Jones" emits a diff summary that must literally contain
// "+ B: Jones"; a third run with unchanged content yields no item.
func TestBuildSnapshotResult_S2Diff(t *testing.T) {
	src := domain.SourceDefinition{ID: "ex2", Name: "Leaders Roster", URL: "https://site.example/leaders",
		SnapshotSelectors: domain.SnapshotSelectors{ContentArea: "#roster"}}

	doc1 := rosterDoc(t, "A: Smith")
	item1, rec1, changed1 := buildSnapshotResult(doc1, src, domain.SnapshotRecord{}, false, time.Now())
	require.True(t, changed1)
	assert.Contains(t, item1.URL, "#snapshot-")
	assert.Equal(t, rec1.ContentHash, item1.ContentHash)
	hash1 := rec1.ContentHash

	doc2 := rosterDoc(t, "A: Smith", "B: Jones")
	item2, rec2, changed2 := buildSnapshotResult(doc2, src, rec1, true, time.Now())
	require.True(t, changed2)
	assert.NotEqual(t, hash1, rec2.ContentHash)
	assert.Contains(t, item2.URL, "#snapshot-")
	assert.Contains(t, item2.Content, "+ B: Jones")
	assert.Contains(t, rec2.DiffSummary, "+ B: Jones")

	doc3 := rosterDoc(t, "A: Smith", "B: Jones")
	_, _, changed3 := buildSnapshotResult(doc3, src, rec2, true, time.Now())
	assert.False(t, changed3, "unchanged content must yield zero items")
}

func TestDiffSummary_InitialCaptureHasNoDiffMarkers(t *testing.T) {
	summary := diffSummary("", "A: Smith")
	assert.Contains(t, summary, "initial capture")
	assert.NotContains(t, summary, "+")
}

func TestDiffSummary_ReportsAdditionsAndRemovals(t *testing.T) {
	summary := diffSummary("A: Smith\nB: Jones", "A: Smith\nC: Lee")
	assert.Contains(t, summary, "- B: Jones")
	assert.Contains(t, summary, "+ C: Lee")
}

func TestDiffSummary_UnchangedWithoutPriorLinesFallsBack(t *testing.T) {
	// A previous record predating the RawText field (or one truncated away)
	// has no retained text; the summary must still say something useful
	// rather than crash on an empty prevText.
	summary := diffSummary("", "A: Smith\nB: Jones")
	assert.Contains(t, summary, "initial capture")
}

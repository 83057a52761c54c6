package fetchstrategy

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	textutil "github.com/sentryfeed/sentryfeed/internal/textutil"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// maxSnapshotRawTextRunes bounds how much captured text a snapshot record
// retains for the next run's diff, mirroring the oracle package's prompt
// clamp (internal/oracle.clampPrompt) rather than persisting unbounded page
// bodies forever (spec §4.8's bounded-state design).
const maxSnapshotRawTextRunes = 20000

// maxDiffSummaryLines bounds how many "+ "/"- " lines a single diff summary
// may list, so a full page rewrite doesn't produce an unbounded item body.
const maxDiffSummaryLines = 20

func truncateSnapshotText(s string) string {
	if textutil.CountRunes(s) <= maxSnapshotRawTextRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxSnapshotRawTextRunes])
}

// SnapshotFetcher implements the `snapshot` strategy: fetch the page,
// isolate content_area, strip noise patterns, and diff the resulting
// content hash against the source's most recent recorded snapshot. A
// changed hash emits exactly one synthetic CrawledItem carrying a
// line-level diff summary; an unchanged hash yields no items.
type SnapshotFetcher struct {
	Client *httpclient.Client
	Store  SnapshotStore
}

func NewSnapshotFetcher(client *httpclient.Client, store SnapshotStore) *SnapshotFetcher {
	return &SnapshotFetcher{Client: client, Store: store}
}

func (f *SnapshotFetcher) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	body, _, err := f.Client.FetchPage(ctx, src.URL, optionsFor(src))
	if err != nil {
		return nil, 0, fmt.Errorf("fetch snapshot page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(newReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse snapshot html: %w", err)
	}

	prev, hasPrev, err := f.Store.LatestSnapshot(src.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("load prior snapshot: %w", err)
	}

	item, rec, changed := buildSnapshotResult(doc, src, prev, hasPrev, time.Now())
	if !changed {
		return nil, 0, nil
	}
	if err := f.Store.AppendSnapshot(src.ID, rec); err != nil {
		return nil, 0, fmt.Errorf("append snapshot: %w", err)
	}
	return []domain.CrawledItem{item}, 0, nil
}

// buildSnapshotResult holds FetchAndParse's entire page-to-record pipeline
// (content isolation, noise stripping, hashing and diffing) as a pure
// function of an already-parsed document and the prior record, so it can
// be exercised directly in tests without a real HTTP fetch. FetchPage's
// urlutil.ValidateURL SSRF guard otherwise rejects httptest.Server's
// loopback address outright.
func buildSnapshotResult(doc *goquery.Document, src domain.SourceDefinition, prev domain.SnapshotRecord, hasPrev bool, capturedAt time.Time) (domain.CrawledItem, domain.SnapshotRecord, bool) {
	area := doc.Selection
	if src.SnapshotSelectors.ContentArea != "" {
		area = doc.Find(src.SnapshotSelectors.ContentArea)
	}
	rawText := area.Text()

	for _, pattern := range src.SnapshotSelectors.IgnorePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		rawText = re.ReplaceAllString(rawText, "")
	}
	// Hashing and the stored content_length use whitespace-collapsed text
	// (spec §3's content_hash definition), but the diff itself needs the
	// original line breaks to tell additions/deletions apart line by line,
	// so rawText is kept separate and retained (bounded) for next run.
	collapsed := urlutil.CollapseWhitespace(rawText)
	hash := urlutil.ContentHash(collapsed)

	if hasPrev && prev.ContentHash == hash {
		return domain.CrawledItem{}, domain.SnapshotRecord{}, false
	}

	diff := diffSummary(prevRawText(prev, hasPrev), rawText)
	rec := domain.SnapshotRecord{
		CapturedAt:    capturedAt,
		ContentHash:   hash,
		ContentLength: len(collapsed),
		DiffSummary:   diff,
		RawText:       truncateSnapshotText(rawText),
	}

	itemURL := fmt.Sprintf("%s#snapshot-%s", src.URL, hash[:12])
	item := domain.CrawledItem{
		Title:       fmt.Sprintf("%s changed", src.Name),
		URL:         itemURL,
		URLHash:     urlutil.URLHash(itemURL),
		PublishedAt: timePtr(rec.CapturedAt),
		Content:     diff,
		ContentHash: hash,
		SourceID:    src.ID,
		Dimension:   src.Dimension,
		Tags:        src.Tags,
	}
	return item, rec, true
}

func prevRawText(prev domain.SnapshotRecord, hasPrev bool) string {
	if !hasPrev {
		return ""
	}
	return prev.RawText
}

// diffSummary produces a line-level additions/deletions summary between the
// prior capture's retained text and the current one, using go-difflib's
// SequenceMatcher opcodes. Each changed line is rendered "+ <line>" for an
// addition or "- <line>" for a removal, per spec §4.3's scenario S2. When no
// prior text was retained (first capture, or an older record predating
// RawText), it falls back to a length/line-count description.
func diffSummary(prevText, current string) string {
	currentLen := len(current)
	lines := strings.Count(current, "\n") + 1
	if prevText == "" {
		return fmt.Sprintf("initial capture: %d chars, %d lines", currentLen, lines)
	}

	// strings.Split (not difflib.SplitLines) so lines compare equal
	// regardless of whether a trailing newline follows them in one text
	// but not the other; keepends would otherwise report an unchanged
	// line as replaced just because it moved from last line to a middle
	// one.
	oldLines := strings.Split(prevText, "\n")
	newLines := strings.Split(current, "\n")
	matcher := difflib.NewMatcher(oldLines, newLines)

	var changed []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			changed = append(changed, markDiffLines("-", oldLines[op.I1:op.I2])...)
			changed = append(changed, markDiffLines("+", newLines[op.J1:op.J2])...)
		case 'd':
			changed = append(changed, markDiffLines("-", oldLines[op.I1:op.I2])...)
		case 'i':
			changed = append(changed, markDiffLines("+", newLines[op.J1:op.J2])...)
		}
		if len(changed) >= maxDiffSummaryLines {
			break
		}
	}
	if len(changed) == 0 {
		return fmt.Sprintf("content changed (no line-level difference detected), %d chars, %d lines", currentLen, lines)
	}
	if len(changed) > maxDiffSummaryLines {
		changed = changed[:maxDiffSummaryLines]
	}
	return strings.Join(changed, "; ")
}

// markDiffLines renders blank/whitespace-only lines out of a diff chunk and
// prefixes the rest with "+ " or "- ".
func markDiffLines(prefix string, lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(strings.TrimRight(l, "\n"))
		if trimmed == "" {
			continue
		}
		out = append(out, prefix+" "+trimmed)
	}
	return out
}

func timePtr(t time.Time) *time.Time { return &t }

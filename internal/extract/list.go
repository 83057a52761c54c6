// Package extract implements the selector-based list-page and detail-page
// extraction engine shared by the static and dynamic fetcher strategies
// (spec component C4). It generalizes the goquery selector plumbing the
// teacher wrote once per scraper (internal/infra/scraper/webflow.go) into a
// single engine driven entirely by domain.ListSelectors/DetailSelectors.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// ListItem is one (title, absolute url, published_at?) tuple produced by
// list-page extraction, before any detail-page enrichment.
type ListItem struct {
	Title       string
	URL         string
	PublishedAt *time.Time
}

var (
	urlDateT      = regexp.MustCompile(`/t(\d{4})(\d{2})(\d{2})`)
	urlDateDashed = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	urlDateDir    = regexp.MustCompile(`/(\d{4})(\d{2})/`)
)

// ExtractList runs spec §4.4's list-page algorithm: for each element
// matching sel.ListItem, resolve title/link/date, apply the keyword
// filter, and deduplicate by title within the page.
func ExtractList(doc *goquery.Document, sel domain.ListSelectors, baseURL string, keywordFilter []string) ([]ListItem, error) {
	matches := doc.Find(sel.ListItem)
	if matches.Length() == 0 {
		return nil, fmt.Errorf("%w: selector %q", domain.ErrSelectorMiss, sel.ListItem)
	}

	normBase := urlutil.NormalizeBaseURL(baseURL)
	linkAttr := sel.LinkAttr
	if linkAttr == "" {
		linkAttr = "href"
	}

	seen := make(map[string]bool)
	var items []ListItem

	matches.Each(func(_ int, s *goquery.Selection) {
		title := extractTitle(s, sel.Title)
		title = strings.TrimSpace(title)
		if title == "" || seen[title] {
			return
		}

		linkSel := s
		if sel.Link != "" && sel.Link != "_self" {
			linkSel = s.Find(sel.Link).First()
		}
		rawLink, exists := linkSel.Attr(linkAttr)
		if !exists || rawLink == "" {
			return
		}
		absURL, err := urlutil.MakeAbsolute(normBase, rawLink)
		if err != nil {
			return
		}

		seen[title] = true
		items = append(items, ListItem{
			Title:       title,
			URL:         absURL,
			PublishedAt: extractDate(s, sel, absURL),
		})
	})

	return ApplyKeywordFilter(items, keywordFilter), nil
}

func extractTitle(s *goquery.Selection, titleSel string) string {
	if titleSel == "" || titleSel == "_self" {
		return s.Text()
	}
	return s.Find(titleSel).First().Text()
}

// extractDate applies the three-strategy fallback chain from spec §4.4:
// selector text parsed by date_format, then URL path pattern /tYYYYMMDD or
// YYYY-MM-DD, then URL directory pattern /YYYYMM/.
func extractDate(s *goquery.Selection, sel domain.ListSelectors, absURL string) *time.Time {
	if sel.Date != "" {
		dateText := s.Find(sel.Date).First().Text()
		if sel.DateRegex != "" {
			if re, err := regexp.Compile(sel.DateRegex); err == nil {
				if m := re.FindString(dateText); m != "" {
					dateText = m
				}
			}
		}
		dateText = strings.TrimSpace(dateText)
		if dateText != "" {
			format := sel.DateFormat
			if format == "" {
				format = "2006-01-02"
			}
			if t, err := time.Parse(format, dateText); err == nil {
				return &t
			}
		}
	}

	if m := urlDateT.FindStringSubmatch(absURL); m != nil {
		if t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])); err == nil {
			return &t
		}
	}
	if m := urlDateDashed.FindStringSubmatch(absURL); m != nil {
		if t, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])); err == nil {
			return &t
		}
	}
	if m := urlDateDir.FindStringSubmatch(absURL); m != nil {
		if t, err := time.Parse("2006-01", fmt.Sprintf("%s-%s", m[1], m[2])); err == nil {
			return &t
		}
	}
	return nil
}

// ApplyKeywordFilter keeps items whose title contains any configured
// keyword (case-insensitive substring). An empty filter disables filtering.
func ApplyKeywordFilter(items []ListItem, keywords []string) []ListItem {
	if len(keywords) == 0 {
		return items
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	var out []ListItem
	for _, it := range items {
		title := strings.ToLower(it.Title)
		for _, k := range lowered {
			if strings.Contains(title, k) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

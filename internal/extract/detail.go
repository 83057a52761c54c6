package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// sanitizePolicy implements the tag/attribute whitelist from spec §4.4
// step 2 using bluemonday, the ecosystem-standard HTML sanitizer.
func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6",
		"a", "img", "table", "tr", "td", "ul", "ol", "li", "br",
		"strong", "em", "pre", "code")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("title").Globally()
	p.RequireNoFollowOnLinks(false)
	p.AllowStandardURLs()
	return p
}

var sanitize = sanitizePolicy()

// SanitizeHTML applies the same tag/attribute whitelist ExtractDetail uses
// to arbitrary HTML fragments, for strategies (rss) that receive HTML
// outside of a full document (spec §4.5: "if the feed itself carries HTML
// content, sanitize it through C4's sanitizer").
func SanitizeHTML(html string) string {
	return sanitize.Sanitize(html)
}

// DetailResult is the set of fields spec §4.4's detail-page algorithm
// derives from one article page.
type DetailResult struct {
	Content         string
	ContentHTML     string
	ContentHash     string
	Author          string
	Images          []domain.Image
	PDFURL          string
	HeadingSections map[string]string
	LabelSections   map[string]string
}

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)
var labelLine = regexp.MustCompile(`^([^:：]{1,30})[:：]\s*(.+)$`)

// ExtractDetail runs spec §4.4's detail-page algorithm. An absent content
// selector is non-fatal: the result carries empty fields.
func ExtractDetail(doc *goquery.Document, sel domain.DetailSelectors, baseURL string) DetailResult {
	var result DetailResult
	if sel.Content == "" {
		return result
	}

	contentSel := doc.Find(sel.Content).First()
	if contentSel.Length() == 0 {
		return result
	}

	return extractViaSelector(doc, contentSel, sel, baseURL)
}

// ExtractDetailAuto runs the same spec §4.4 algorithm but falls back to
// go-shiori/go-readability's automatic article extraction when a source
// carries no configured content selector, the way the teacher's
// readability fetcher (internal/infra/fetcher/readability.go) extracted
// clean article text from arbitrary pages with no site-specific markup
// knowledge.
func ExtractDetailAuto(doc *goquery.Document, sel domain.DetailSelectors, baseURL string) DetailResult {
	if sel.Content != "" {
		return ExtractDetail(doc, sel, baseURL)
	}

	var result DetailResult
	rawHTML, err := doc.Html()
	if err != nil {
		return result
	}
	parsedURL, _ := url.Parse(baseURL)
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil || article.TextContent == "" {
		return result
	}

	result.ContentHTML = sanitize.Sanitize(article.Content)
	result.Content = urlutil.CollapseWhitespace(article.TextContent)
	result.ContentHash = urlutil.ContentHash(result.Content)
	result.Author = article.Byline
	if sanitizedDoc, err := goquery.NewDocumentFromReader(strings.NewReader(result.ContentHTML)); err == nil {
		result.Images = collectImages(sanitizedDoc, baseURL)
		result.PDFURL = findPDFLink(sanitizedDoc, baseURL)
	}

	if len(sel.HeadingSections) > 0 {
		result.HeadingSections = extractHeadingSections(doc, sel.HeadingSections)
	}
	if len(sel.LabelPrefixSections) > 0 {
		result.LabelSections = extractLabelSections(doc, sel.LabelPrefixSections)
	}
	return result
}

func extractViaSelector(doc *goquery.Document, contentSel *goquery.Selection, sel domain.DetailSelectors, baseURL string) DetailResult {
	var result DetailResult

	rawHTML, err := contentSel.Html()
	if err != nil {
		return result
	}
	result.ContentHTML = sanitize.Sanitize(rawHTML)

	sanitizedDoc, err := goquery.NewDocumentFromReader(strings.NewReader(result.ContentHTML))
	if err != nil {
		result.Content = urlutil.CollapseWhitespace(contentSel.Text())
	} else {
		result.Content = urlutil.CollapseWhitespace(sanitizedDoc.Text())
		result.Images = collectImages(sanitizedDoc, baseURL)
		result.PDFURL = findPDFLink(sanitizedDoc, baseURL)
	}
	result.ContentHash = urlutil.ContentHash(result.Content)

	if sel.Author != "" {
		result.Author = strings.TrimSpace(doc.Find(sel.Author).First().Text())
	}

	if len(sel.HeadingSections) > 0 {
		result.HeadingSections = extractHeadingSections(doc, sel.HeadingSections)
	}
	if len(sel.LabelPrefixSections) > 0 {
		result.LabelSections = extractLabelSections(doc, sel.LabelPrefixSections)
	}

	return result
}

func collectImages(doc *goquery.Document, baseURL string) []domain.Image {
	var images []domain.Image
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		abs, err := urlutil.MakeAbsolute(baseURL, src)
		if err != nil {
			abs = src
		}
		alt, _ := s.Attr("alt")
		images = append(images, domain.Image{Src: abs, Alt: alt})
	})
	return images
}

func findPDFLink(doc *goquery.Document, baseURL string) string {
	var pdfURL string
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || !pdfSuffix.MatchString(href) {
			return true
		}
		abs, err := urlutil.MakeAbsolute(baseURL, href)
		if err != nil {
			abs = href
		}
		pdfURL = abs
		return false
	})
	return pdfURL
}

// extractHeadingSections finds, for each configured {field: heading text}
// pair, a heading element whose text equals or contains the heading, and
// collects sibling text until the next heading.
func extractHeadingSections(doc *goquery.Document, fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	headings := doc.Find("h2, h3, h4, p, div")
	for field, heading := range fields {
		headings.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if !strings.Contains(text, heading) {
				return true
			}
			var buf strings.Builder
			for next := s.Next(); next.Length() > 0; next = next.Next() {
				nodeText := strings.TrimSpace(next.Text())
				if isHeadingLike(next) {
					break
				}
				if nodeText != "" {
					buf.WriteString(nodeText)
					buf.WriteString(" ")
				}
			}
			out[field] = strings.TrimSpace(buf.String())
			return false
		})
	}
	return out
}

func isHeadingLike(s *goquery.Selection) bool {
	tag := goquery.NodeName(s)
	return tag == "h1" || tag == "h2" || tag == "h3" || tag == "h4" || tag == "h5" || tag == "h6"
}

// extractLabelSections scans <p>/<li> elements for "Label: Value" or
// "Label：Value" lines and maps them to configured field names.
func extractLabelSections(doc *goquery.Document, fields map[string]string) map[string]string {
	inverted := make(map[string]string, len(fields))
	for field, label := range fields {
		inverted[label] = field
	}
	out := make(map[string]string)
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		m := labelLine.FindStringSubmatch(text)
		if m == nil {
			return
		}
		label := strings.TrimSpace(m[1])
		if field, ok := inverted[label]; ok {
			out[field] = strings.TrimSpace(m[2])
		}
	})
	return out
}

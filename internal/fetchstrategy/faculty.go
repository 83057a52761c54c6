package fetchstrategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/extract"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// FacultyFetcher implements the `faculty` strategy: a roster-oriented
// extension of static that parses person-cards rather than article-shaped
// list items, with optional pagination up to max_pages (a page=N query
// parameter), fetching every page over plain HTTP. Each card matched by
// list_item becomes one item: the title selector gives the name and the
// link selector the profile URL. Each key of label_prefix_sections is used
// as a CSS selector inside the card and its text is stored in Extra under
// that key; the configured label values are not consulted, and
// heading_sections is not read. The content selector's text becomes
// research_areas, the card's first img src becomes photo_url, and the
// sanitized card HTML becomes the bio.
type FacultyFetcher struct {
	Client *httpclient.Client
}

func NewFacultyFetcher(client *httpclient.Client) *FacultyFetcher {
	return &FacultyFetcher{Client: client}
}

func (f *FacultyFetcher) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	maxPages := src.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var items []domain.CrawledItem
	var itemErrs int
	base := src.BaseURL
	if base == "" {
		base = src.URL
	}

	for page := 1; page <= maxPages; page++ {
		pageURL := src.URL
		if page > 1 {
			sep := "?"
			if strings.Contains(pageURL, "?") {
				sep = "&"
			}
			pageURL = fmt.Sprintf("%s%spage=%d", pageURL, sep, page)
		}

		body, _, err := f.Client.FetchPage(ctx, pageURL, optionsFor(src))
		if err != nil {
			if page == 1 {
				return nil, 0, fmt.Errorf("fetch faculty page: %w", err)
			}
			break
		}

		doc, err := goquery.NewDocumentFromReader(newReader(body))
		if err != nil {
			itemErrs++
			continue
		}

		cards := doc.Find(src.ListSelectors.ListItem)
		if cards.Length() == 0 {
			break
		}

		cards.Each(func(_ int, s *goquery.Selection) {
			name := strings.TrimSpace(extractField(s, src.ListSelectors.Title))
			if name == "" {
				itemErrs++
				return
			}

			profileURL := ""
			if href, ok := s.Find(src.ListSelectors.Link).First().Attr("href"); ok {
				if abs, err := urlutil.MakeAbsolute(urlutil.NormalizeBaseURL(base), href); err == nil {
					profileURL = abs
				}
			}
			if profileURL == "" {
				profileURL = fmt.Sprintf("%s#%s", pageURL, urlutil.ShortHash(name))
			}

			extraFields := map[string]any{}
			for field, label := range src.DetailSelectors.LabelPrefixSections {
				_ = label
				extraFields[field] = strings.TrimSpace(s.Find(field).Text())
			}
			researchAreas := strings.TrimSpace(s.Find(src.DetailSelectors.Content).Text())
			if researchAreas != "" {
				extraFields["research_areas"] = researchAreas
			}
			if photo, ok := s.Find("img").Attr("src"); ok {
				if abs, err := urlutil.MakeAbsolute(urlutil.NormalizeBaseURL(base), photo); err == nil {
					extraFields["photo_url"] = abs
				}
			}

			bio := extract.SanitizeHTML(extractInnerHTML(s))

			items = append(items, domain.CrawledItem{
				Title:       name,
				URL:         profileURL,
				URLHash:     urlutil.URLHash(profileURL),
				Content:     urlutil.CollapseWhitespace(s.Text()),
				ContentHTML: bio,
				ContentHash: urlutil.ContentHash(urlutil.CollapseWhitespace(s.Text())),
				SourceID:    src.ID,
				Dimension:   src.Dimension,
				Tags:        src.Tags,
				Extra:       extraFields,
			})
		})
	}

	return items, itemErrs, nil
}

func extractField(s *goquery.Selection, sel string) string {
	if sel == "" || sel == "_self" {
		return s.Text()
	}
	return s.Find(sel).First().Text()
}

func extractInnerHTML(s *goquery.Selection) string {
	html, err := s.Html()
	if err != nil {
		return ""
	}
	return html
}

package fetchstrategy

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// arxivFeed mirrors the subset of the ArXiv Atom API response this parser
// consumes (spec §4.5: "ArXiv Atom API (one call, map <entry>s)").
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string `xml:"title"`
	ID        string `xml:"id"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

// ArxivParser is a bespoke API parser (parser_kind = "arxiv") issuing one
// call against the ArXiv Atom export API.
type ArxivParser struct {
	Client *httpclient.Client
}

func NewArxivParser(client *httpclient.Client) *ArxivParser {
	return &ArxivParser{Client: client}
}

func (p *ArxivParser) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	body, _, err := p.Client.FetchPage(ctx, src.URL, optionsFor(src))
	if err != nil {
		return nil, 0, fmt.Errorf("fetch arxiv feed: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, 0, fmt.Errorf("decode arxiv atom: %w", err)
	}

	maxEntries := src.MaxEntries
	if maxEntries <= 0 || maxEntries > len(feed.Entries) {
		maxEntries = len(feed.Entries)
	}

	items := make([]domain.CrawledItem, 0, maxEntries)
	for _, e := range feed.Entries[:maxEntries] {
		var author string
		if len(e.Authors) > 0 {
			author = e.Authors[0].Name
		}
		var publishedAt *time.Time
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			publishedAt = &t
		}
		items = append(items, domain.CrawledItem{
			Title:       e.Title,
			URL:         e.ID,
			URLHash:     urlutil.URLHash(e.ID),
			PublishedAt: publishedAt,
			Author:      author,
			Summary:     urlutil.CollapseWhitespace(e.Summary),
			Content:     urlutil.CollapseWhitespace(e.Summary),
			ContentHash: urlutil.ContentHash(e.Summary),
			SourceID:    src.ID,
			Dimension:   src.Dimension,
			Tags:        src.Tags,
		})
	}
	return items, 0, nil
}

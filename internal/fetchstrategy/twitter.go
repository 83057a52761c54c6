package fetchstrategy

import (
	"context"
	"fmt"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// TwitterParser is a bespoke API parser (parser_kind = "twitter") for
// search/KOL-timeline style endpoints (spec §4.5). The concrete endpoint
// shape (search query vs. user timeline) is opaque to this parser: it is
// configured per-source via headers (bearer auth) and the source URL,
// decoding a generic tweet-list envelope.
type TwitterParser struct {
	Client *httpclient.Client
}

func NewTwitterParser(client *httpclient.Client) *TwitterParser {
	return &TwitterParser{Client: client}
}

type twitterResponse struct {
	Data []twitterTweet `json:"data"`
}

type twitterTweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

func (p *TwitterParser) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	var resp twitterResponse
	if err := p.Client.FetchJSON(ctx, src.URL, optionsFor(src), &resp); err != nil {
		return nil, 0, fmt.Errorf("fetch twitter timeline: %w", err)
	}

	maxEntries := src.MaxEntries
	if maxEntries <= 0 || maxEntries > len(resp.Data) {
		maxEntries = len(resp.Data)
	}

	items := make([]domain.CrawledItem, 0, maxEntries)
	for _, tw := range resp.Data[:maxEntries] {
		tweetURL := fmt.Sprintf("https://twitter.com/i/web/status/%s", tw.ID)
		var publishedAt *time.Time
		if t, err := time.Parse(time.RFC3339, tw.CreatedAt); err == nil {
			publishedAt = &t
		}
		items = append(items, domain.CrawledItem{
			Title:       tw.Text,
			URL:         tweetURL,
			URLHash:     urlutil.URLHash(tweetURL),
			PublishedAt: publishedAt,
			Author:      tw.AuthorID,
			Content:     tw.Text,
			ContentHash: urlutil.ContentHash(tw.Text),
			SourceID:    src.ID,
			Dimension:   src.Dimension,
			Tags:        src.Tags,
		})
	}
	return items, 0, nil
}

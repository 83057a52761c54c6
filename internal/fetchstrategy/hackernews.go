package fetchstrategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

const hnDetailParallelism = 10

// HackerNewsParser is a bespoke API parser (parser_kind = "hackernews")
// implementing spec §4.5's two-step fetch: top-story IDs, then per-story
// detail with bounded concurrency.
type HackerNewsParser struct {
	Client *httpclient.Client
}

func NewHackerNewsParser(client *httpclient.Client) *HackerNewsParser {
	return &HackerNewsParser{Client: client}
}

type hnStory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Score int    `json:"score"`
	Type  string `json:"type"`
}

func (p *HackerNewsParser) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	listURL := src.URL
	if listURL == "" {
		listURL = "https://hacker-news.firebaseio.com/v0/topstories.json"
	}

	var ids []int
	if err := p.Client.FetchJSON(ctx, listURL, optionsFor(src), &ids); err != nil {
		return nil, 0, fmt.Errorf("fetch top story ids: %w", err)
	}

	maxEntries := src.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 30
	}
	if maxEntries > len(ids) {
		maxEntries = len(ids)
	}
	ids = ids[:maxEntries]

	items := make([]domain.CrawledItem, len(ids))
	valid := make([]bool, len(ids))
	var itemErrs int32
	sem := make(chan struct{}, hnDetailParallelism)
	eg, egCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			var story hnStory
			itemURL := fmt.Sprintf("https://hacker-news.firebaseio.com/v0/item/%d.json", id)
			if err := p.Client.FetchJSON(egCtx, itemURL, httpclient.Options{}, &story); err != nil {
				mu.Lock()
				itemErrs++
				mu.Unlock()
				return nil
			}
			if story.Type != "" && story.Type != "story" {
				return nil
			}

			link := story.URL
			if link == "" {
				link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
			}
			publishedAt := time.Unix(story.Time, 0)

			items[i] = domain.CrawledItem{
				Title:       story.Title,
				URL:         link,
				URLHash:     urlutil.URLHash(link),
				PublishedAt: &publishedAt,
				Author:      story.By,
				Content:     story.Text,
				ContentHash: urlutil.ContentHash(story.Text),
				SourceID:    src.ID,
				Dimension:   src.Dimension,
				Tags:        src.Tags,
				Extra:       map[string]any{"score": story.Score, "hn_id": story.ID},
			}
			valid[i] = true
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]domain.CrawledItem, 0, len(items))
	for i, ok := range valid {
		if ok {
			out = append(out, items[i])
		}
	}
	return out, int(itemErrs), nil
}

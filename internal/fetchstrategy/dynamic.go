package fetchstrategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentryfeed/sentryfeed/internal/browser"
	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/extract"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
)

// DynamicFetcher implements the `dynamic` strategy: render the list page
// through C2, extract via C4, then fetch details through the same browser
// context (sharing cookies) unless detail_via_plain_http opts into C1.
type DynamicFetcher struct {
	Pool           *browser.Pool
	PlainClient    *httpclient.Client
	DetailTimeout  time.Duration
}

func NewDynamicFetcher(pool *browser.Pool, plain *httpclient.Client) *DynamicFetcher {
	return &DynamicFetcher{Pool: pool, PlainClient: plain, DetailTimeout: 10 * time.Second}
}

func (f *DynamicFetcher) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	listHTML, err := f.Pool.Render(ctx, src.URL, src.WaitCondition, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("render list page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listHTML))
	if err != nil {
		return nil, 0, fmt.Errorf("parse list html: %w", err)
	}

	base := src.BaseURL
	if base == "" {
		base = src.URL
	}
	listItems, err := extract.ExtractList(doc, src.ListSelectors, base, src.KeywordFilter)
	if err != nil {
		return nil, 0, err
	}
	listItems = extract.ApplyKeywordFilter(listItems, src.KeywordFilter)
	if src.MaxEntries > 0 && len(listItems) > src.MaxEntries {
		listItems = listItems[:src.MaxEntries]
	}

	items := make([]domain.CrawledItem, len(listItems))
	urls := make([]string, len(listItems))
	for i, li := range listItems {
		items[i] = toCrawledItem(li, src)
		urls[i] = li.URL
	}

	if src.DetailSelectors.Content == "" || len(urls) == 0 {
		return items, 0, nil
	}

	var detailFetcher func(context.Context, string) (string, error)
	if src.DetailViaPlainHTTP && f.PlainClient != nil {
		opts := optionsFor(src)
		detailFetcher = func(ctx context.Context, u string) (string, error) {
			body, _, err := f.PlainClient.FetchPage(ctx, u, opts)
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
	}

	_, details, err := f.Pool.RenderAndFetchDetails(ctx, src.URL, src.WaitCondition, urls, f.DetailTimeout, detailFetcher)
	if err != nil {
		return items, len(urls), nil
	}

	var itemErrs int
	for i := range items {
		html, ok := details[items[i].URL]
		if !ok {
			itemErrs++
			continue
		}
		ddoc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			itemErrs++
			continue
		}
		detail := extract.ExtractDetailAuto(ddoc, src.DetailSelectors, base)
		applyDetail(&items[i], detail)
	}

	return items, itemErrs, nil
}

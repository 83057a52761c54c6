package fetchstrategy

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/extract"
	"github.com/sentryfeed/sentryfeed/internal/httpclient"
	"github.com/sentryfeed/sentryfeed/internal/urlutil"
)

// StaticFetcher implements the `static` strategy: GET the list page via C1,
// extract via C4, then GET each item's detail page (bounded concurrency)
// when detail_selectors.content is configured. Grounded on the teacher's
// WebflowScraper (internal/infra/scraper/webflow.go), generalized from a
// hard-coded selector set to domain.SourceDefinition's configured ones.
type StaticFetcher struct {
	Client             *httpclient.Client
	DetailParallelism  int
}

// NewStaticFetcher builds a StaticFetcher with the shared C1 client. A
// parallelism of 0 defaults to 4 concurrent detail fetches.
func NewStaticFetcher(client *httpclient.Client, detailParallelism int) *StaticFetcher {
	if detailParallelism <= 0 {
		detailParallelism = 4
	}
	return &StaticFetcher{Client: client, DetailParallelism: detailParallelism}
}

func (f *StaticFetcher) FetchAndParse(ctx context.Context, src domain.SourceDefinition) ([]domain.CrawledItem, int, error) {
	opts := optionsFor(src)
	body, _, err := f.Client.FetchPage(ctx, src.URL, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch list page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(newReader(body))
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
	for i, li := range listItems {
		items[i] = toCrawledItem(li, src)
	}

	if src.DetailSelectors.Content == "" {
		return items, 0, nil
	}

	var itemErrs int32
	sem := make(chan struct{}, f.DetailParallelism)
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range items {
		i := i
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			if fillErr := f.fillDetail(egCtx, &items[i], src, opts); fillErr != nil {
				atomic.AddInt32(&itemErrs, 1)
			}
			return nil
		})
	}
	_ = eg.Wait()

	return items, int(itemErrs), nil
}

func (f *StaticFetcher) fillDetail(ctx context.Context, item *domain.CrawledItem, src domain.SourceDefinition, opts httpclient.Options) error {
	body, _, err := f.Client.FetchPage(ctx, item.URL, opts)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(newReader(body))
	if err != nil {
		return err
	}
	base := src.BaseURL
	if base == "" {
		base = src.URL
	}
	detail := extract.ExtractDetailAuto(doc, src.DetailSelectors, base)
	applyDetail(item, detail)
	return nil
}

func optionsFor(src domain.SourceDefinition) httpclient.Options {
	opts := httpclient.Options{Headers: src.Headers, EncodingOverride: src.Encoding}
	if src.VerifySSL != nil {
		v := *src.VerifySSL
		opts.VerifyTLS = &v
	}
	return opts
}

func toCrawledItem(li extract.ListItem, src domain.SourceDefinition) domain.CrawledItem {
	return domain.CrawledItem{
		Title:       li.Title,
		URL:         li.URL,
		URLHash:     urlutil.URLHash(li.URL),
		PublishedAt: li.PublishedAt,
		SourceID:    src.ID,
		Dimension:   src.Dimension,
		Tags:        src.Tags,
	}
}

func applyDetail(item *domain.CrawledItem, detail extract.DetailResult) {
	item.Content = detail.Content
	item.ContentHTML = detail.ContentHTML
	item.ContentHash = detail.ContentHash
	item.Author = detail.Author
	if len(detail.Images) > 0 || detail.PDFURL != "" || len(detail.HeadingSections) > 0 || len(detail.LabelSections) > 0 {
		item.Extra = map[string]any{}
		if len(detail.Images) > 0 {
			item.Extra["images"] = detail.Images
		}
		if detail.PDFURL != "" {
			item.Extra["pdf_url"] = detail.PDFURL
		}
		for k, v := range detail.HeadingSections {
			item.Extra[k] = v
		}
		for k, v := range detail.LabelSections {
			item.Extra[k] = v
		}
	}
}

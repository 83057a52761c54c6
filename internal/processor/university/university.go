// Package university implements the university processor (spec §4.11
// "University processor"): keyword classification of university-ecosystem
// raw items into {personnel, research_outputs, events, general}, with no
// oracle pass by default. No teacher equivalent exists; grounded on spec
// §4.11's prose plus the shared hashtrack package.
package university

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/processor/hashtrack"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

const module = "university"

// Category is the closed four-way classification spec §4.11 names.
type Category string

const (
	CategoryPersonnel      Category = "personnel"
	CategoryResearchOutput Category = "research_outputs"
	CategoryEvents         Category = "events"
	CategoryGeneral        Category = "general"
)

var categoryKeywords = map[Category][]string{
	CategoryPersonnel:      {"任命", "聘任", "当选", "卸任", "校长", "院长"},
	CategoryResearchOutput: {"论文", "发表", "成果", "专利", "研究", "期刊"},
	CategoryEvents:         {"会议", "论坛", "研讨会", "讲座", "峰会"},
}

// FeedItem is one article-level record in feed.json.
type FeedItem struct {
	SourceID string   `json:"source_id"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Category Category `json:"category"`
}

// Overview is the aggregate summary in overview.json.
type Overview struct {
	TotalItems      int              `json:"total_items"`
	ItemsByCategory map[Category]int `json:"items_by_category"`
}

// ResearchOutput is one research-output-category record in
// research_outputs.json.
type ResearchOutput struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// Result summarizes one Process call.
type Result struct {
	ItemsProcessed int
}

// Processor classifies university-ecosystem raw items by keyword.
type Processor struct {
	Store   *storage.Store
	DataDir string
	Logger  *slog.Logger
}

func New(store *storage.Store, dataDir string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Store: store, DataDir: dataDir, Logger: logger}
}

// Process implements the C11 processor contract: process(dry_run, force).
// No oracle pass runs for this processor (spec §4.11: "No oracle pass by
// default").
func (p *Processor) Process(ctx context.Context, dryRun, force bool) (Result, error) {
	tracker, err := hashtrack.New(p.DataDir, module)
	if err != nil {
		return Result{}, fmt.Errorf("load hash tracker: %w", err)
	}

	artifacts, err := p.Store.ListArtifactsByDimension(domain.DimensionUniversities)
	if err != nil {
		return Result{}, fmt.Errorf("list artifacts: %w", err)
	}

	var feed []FeedItem
	var researchOutputs []ResearchOutput
	overview := Overview{ItemsByCategory: make(map[Category]int)}

	for _, art := range artifacts {
		for _, item := range art.Items {
			if !tracker.IsNewOrChanged(item.URLHash, item.ContentHash, force) {
				continue
			}
			tracker.Mark(item.URLHash, item.ContentHash)

			category := classify(item.Title, item.Content)
			feed = append(feed, FeedItem{SourceID: item.SourceID, Title: item.Title, URL: item.URL, Category: category})
			overview.TotalItems++
			overview.ItemsByCategory[category]++

			if category == CategoryResearchOutput {
				researchOutputs = append(researchOutputs, ResearchOutput{SourceID: item.SourceID, Title: item.Title, URL: item.URL})
			}
		}
	}

	if !dryRun {
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "feed.json", feed); err != nil {
			return Result{}, fmt.Errorf("write feed.json: %w", err)
		}
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "overview.json", overview); err != nil {
			return Result{}, fmt.Errorf("write overview.json: %w", err)
		}
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "research_outputs.json", researchOutputs); err != nil {
			return Result{}, fmt.Errorf("write research_outputs.json: %w", err)
		}
		if err := tracker.Save(); err != nil {
			return Result{}, fmt.Errorf("save hash tracker: %w", err)
		}
	}

	return Result{ItemsProcessed: overview.TotalItems}, nil
}

// classify picks the first matching category in priority order
// (personnel, research_outputs, events), falling back to general.
func classify(title, content string) Category {
	text := title + "\n" + content
	for _, cat := range []Category{CategoryPersonnel, CategoryResearchOutput, CategoryEvents} {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return CategoryGeneral
}

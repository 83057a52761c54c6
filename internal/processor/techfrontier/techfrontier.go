// Package techfrontier implements the tech-frontier processor (spec
// §4.11 "Tech-frontier processor"): fixed 8-topic keyword binning over
// the technology/industry/twitter/AI-institute dimensions, per-topic
// heat scoring, and optional oracle refinement of topic labels. No
// teacher equivalent exists; grounded on spec §4.11's prose plus the
// shared hashtrack package.
package techfrontier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/oracle"
	"github.com/sentryfeed/sentryfeed/internal/processor/hashtrack"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

const module = "techfrontier"

// aggregateDimensions names every dimension the tech-frontier processor
// aggregates over (spec: "technology, industry, twitter, and the
// AI-institute subset of universities"). The AI-institute subset of
// universities is approximated by keyword-filtering universities items
// at bin time rather than a separate catalog flag, since the spec names
// no dedicated field for it.
var aggregateDimensions = []domain.Dimension{
	domain.DimensionTechnology,
	domain.DimensionIndustry,
	domain.DimensionTwitter,
	domain.DimensionUniversities,
}

// aiInstituteKeywords filters universities-dimension items down to the
// AI-institute subset this processor cares about.
var aiInstituteKeywords = []string{"人工智能", "AI", "机器学习", "实验室", "研究院"}

// topicDefinition names one of the 8 fixed topics and its keyword bin.
type topicDefinition struct {
	ID       string
	Label    string
	Keywords []string
}

// topics is the closed set of 8 fixed bins spec §4.11 names ("bins each
// raw item into one of 8 fixed topics by keyword matching").
var topics = []topicDefinition{
	{ID: "large_models", Label: "Large Models", Keywords: []string{"大模型", "LLM", "GPT", "大语言模型"}},
	{ID: "chips", Label: "Chips & Compute", Keywords: []string{"芯片", "算力", "GPU", "半导体"}},
	{ID: "robotics", Label: "Robotics", Keywords: []string{"机器人", "具身智能", "人形机器人"}},
	{ID: "autonomous_driving", Label: "Autonomous Driving", Keywords: []string{"自动驾驶", "无人驾驶", "智能驾驶"}},
	{ID: "biotech", Label: "Biotech", Keywords: []string{"生物技术", "基因", "新药"}},
	{ID: "new_energy", Label: "New Energy", Keywords: []string{"新能源", "光伏", "储能", "电池"}},
	{ID: "quantum", Label: "Quantum Computing", Keywords: []string{"量子计算", "量子"}},
	{ID: "other_frontier", Label: "Other Frontier Tech", Keywords: nil}, // catch-all
}

// TopicSignal is one related-news or KOL entry surfaced under a topic.
type TopicSignal struct {
	SourceID string     `json:"source_id"`
	Title    string     `json:"title"`
	URL      string     `json:"url"`
	IsKOL    bool       `json:"is_kol"`
	PublishedAt *time.Time `json:"published_at"`
}

// Topic is one of the 8 topic objects in topics.json.
type Topic struct {
	ID           string        `json:"id"`
	Label        string        `json:"label"`
	Heat         float64       `json:"heat"`
	RelatedNews  []TopicSignal `json:"related_news"`
	KOLVoices    []TopicSignal `json:"kol_voices"`
	AIInsight    string        `json:"ai_insight,omitempty"`
}

// Opportunity mirrors the policy processor's shape for tech-adjacent
// fundable signals surfaced from this dimension set.
type Opportunity struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	TopicID  string `json:"topic_id"`
}

// Stats is the KPI summary in stats.json.
type Stats struct {
	TotalItems   int            `json:"total_items"`
	ItemsByTopic map[string]int `json:"items_by_topic"`
	TopTopic     string         `json:"top_topic,omitempty"`
}

// Result summarizes one Process call.
type Result struct {
	ItemsProcessed int
	EnrichedCount  int
}

// Processor bins raw items into the 8 fixed topics and computes heat.
type Processor struct {
	Store      *storage.Store
	DataDir    string
	Oracle     oracle.Provider
	OracleGate bool
	Logger     *slog.Logger
}

func New(store *storage.Store, dataDir string, provider oracle.Provider, oracleEnabled bool, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Store: store, DataDir: dataDir, Oracle: provider, OracleGate: oracleEnabled, Logger: logger}
}

// Process implements the C11 processor contract: process(dry_run, force).
func (p *Processor) Process(ctx context.Context, dryRun, force bool) (Result, error) {
	tracker, err := hashtrack.New(p.DataDir, module)
	if err != nil {
		return Result{}, fmt.Errorf("load hash tracker: %w", err)
	}

	byTopic := make(map[string][]domain.CrawledItem)
	itemsProcessed := 0

	for _, dim := range aggregateDimensions {
		artifacts, err := p.Store.ListArtifactsByDimension(dim)
		if err != nil {
			return Result{}, fmt.Errorf("list artifacts for %s: %w", dim, err)
		}
		for _, art := range artifacts {
			for _, item := range art.Items {
				if dim == domain.DimensionUniversities && !matchesAny(item.Title+item.Content, aiInstituteKeywords) {
					continue
				}
				if !tracker.IsNewOrChanged(item.URLHash, item.ContentHash, force) {
					continue
				}
				tracker.Mark(item.URLHash, item.ContentHash)
				itemsProcessed++

				topicID := classifyTopic(item.Title, item.Content)
				byTopic[topicID] = append(byTopic[topicID], item)
			}
		}
	}

	topicResults := make([]Topic, 0, len(topics))
	stats := Stats{TotalItems: itemsProcessed, ItemsByTopic: make(map[string]int)}
	var opportunities []Opportunity
	topTopicHeat := -1.0

	for _, def := range topics {
		items := byTopic[def.ID]
		heat := computeHeat(items)
		topic := Topic{ID: def.ID, Label: def.Label, Heat: heat}
		for _, item := range items {
			signal := TopicSignal{SourceID: item.SourceID, Title: item.Title, URL: item.URL, PublishedAt: item.PublishedAt, IsKOL: item.Dimension == domain.DimensionTwitter}
			if signal.IsKOL {
				topic.KOLVoices = append(topic.KOLVoices, signal)
			} else {
				topic.RelatedNews = append(topic.RelatedNews, signal)
			}
			if strings.Contains(item.Content, "融资") || strings.Contains(item.Content, "招募") || strings.Contains(item.Content, "招聘") {
				opportunities = append(opportunities, Opportunity{SourceID: item.SourceID, Title: item.Title, URL: item.URL, TopicID: def.ID})
			}
		}
		topicResults = append(topicResults, topic)
		stats.ItemsByTopic[def.ID] = len(items)
		if heat > topTopicHeat {
			topTopicHeat = heat
			stats.TopTopic = def.ID
		}
	}

	enrichedCount := 0
	if p.OracleGate && p.Oracle != nil {
		enrichedCount = p.enrichTopics(ctx, topicResults)
	}

	if !dryRun {
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "topics.json", topicResults); err != nil {
			return Result{}, fmt.Errorf("write topics.json: %w", err)
		}
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "opportunities.json", opportunities); err != nil {
			return Result{}, fmt.Errorf("write opportunities.json: %w", err)
		}
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "stats.json", stats); err != nil {
			return Result{}, fmt.Errorf("write stats.json: %w", err)
		}
		if err := tracker.Save(); err != nil {
			return Result{}, fmt.Errorf("save hash tracker: %w", err)
		}
	}

	return Result{ItemsProcessed: itemsProcessed, EnrichedCount: enrichedCount}, nil
}

// classifyTopic returns the first topic whose keyword bin matches title
// or content, falling back to the catch-all "other_frontier" topic.
func classifyTopic(title, content string) string {
	text := title + "\n" + content
	for _, def := range topics {
		if matchesAny(text, def.Keywords) {
			return def.ID
		}
	}
	return "other_frontier"
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// computeHeat is count plus a recency-weighted bonus (spec: "per-topic
// heat (count + recency-weighted)"): each item published within the
// last 48 hours contributes an extra half point of heat.
func computeHeat(items []domain.CrawledItem) float64 {
	heat := float64(len(items))
	for _, item := range items {
		if item.PublishedAt != nil && time.Since(*item.PublishedAt) < 48*time.Hour {
			heat += 0.5
		}
	}
	return heat
}

// enrichTopics refines each topic's label/insight via the oracle.
// Failures are non-fatal (spec §7): the topic keeps its rule-engine
// label.
func (p *Processor) enrichTopics(ctx context.Context, topicResults []Topic) int {
	enriched := 0
	for i := range topicResults {
		topic := topicResults[i]
		if len(topic.RelatedNews) == 0 && len(topic.KOLVoices) == 0 {
			continue
		}
		prompt := fmt.Sprintf("Summarize the current state of the %q technology topic in one or two sentences, "+
			"given %d related items, and respond with JSON {\"label\":\"...\",\"ai_insight\":\"...\"}.", topic.Label, len(topic.RelatedNews)+len(topic.KOLVoices))
		raw, err := p.Oracle.Complete(ctx, "You are a technology trend analyst.", prompt)
		if err != nil {
			p.Logger.Warn("techfrontier oracle enrichment failed, keeping rule-engine topic",
				slog.String("topic_id", topic.ID), slog.Any("error", err))
			continue
		}
		var parsed struct {
			Label     string `json:"label"`
			AIInsight string `json:"ai_insight"`
		}
		if err := json.Unmarshal([]byte(oracle.ExtractJSON(raw)), &parsed); err != nil {
			p.Logger.Warn("techfrontier oracle response unparsable, keeping rule-engine topic", slog.Any("error", err))
			continue
		}
		if parsed.Label != "" {
			topicResults[i].Label = parsed.Label
		}
		topicResults[i].AIInsight = parsed.AIInsight
		enriched++
	}
	return enriched
}

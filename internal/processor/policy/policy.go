// Package policy implements the policy processor (spec §4.11 "Policy
// processor"): Tier 1 keyword scoring + opportunity detection over the
// national_policy and beijing_policy dimensions, with an optional Tier 2
// oracle enrichment pass. Items of the personnel dimension are not read
// by this processor. No teacher
// equivalent exists for rule-engine scoring; grounded on spec §4.11's
// prose plus the shared internal/processor/ruleengine scorer and
// internal/processor/hashtrack incremental-reprocessing gate.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/oracle"
	"github.com/sentryfeed/sentryfeed/internal/processor/hashtrack"
	"github.com/sentryfeed/sentryfeed/internal/processor/ruleengine"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

const module = "policy"

// keywordDictionary is the domain vocabulary the Tier 1 scorer matches
// against; weights are tuned so a strong policy announcement clears the
// "high" importance band (match_score >= 70) on title signal alone.
var keywordDictionary = []ruleengine.KeywordWeight{
	{Keyword: "人工智能", Weight: 30},
	{Keyword: "产业", Weight: 10},
	{Keyword: "实施方案", Weight: 15},
	{Keyword: "发展", Weight: 5},
	{Keyword: "资助", Weight: 15},
	{Keyword: "补贴", Weight: 12},
	{Keyword: "专项", Weight: 10},
	{Keyword: "扶持", Weight: 10},
	{Keyword: "创新", Weight: 8},
	{Keyword: "科技", Weight: 8},
}

var scoreConfig = ruleengine.ScoreConfig{
	Keywords:        keywordDictionary,
	TitleMultiplier: 2.0,
	SourceAuthority: 0,
	RecencyHalfLife: 14 * 24 * time.Hour,
	RecencyMaxBoost: 10,
}

// opportunityThreshold is the match_score floor above which an item is
// additionally checked for fundable signals (spec: "opportunities
// (policies with fundable signals)").
const opportunityThreshold = 40.0

// Tier2Threshold is the match_score floor for oracle enrichment
// candidates ("for top-N items by match_score above a threshold").
const tier2Threshold = 70.0

// Tier2TopN bounds how many qualifying items get an oracle call per run.
const tier2TopN = 10

var (
	fundingAmountRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*万元|[%¥]\s*\d+(?:\.\d+)?|RMB\s*\d+(?:\.\d+)?`)
	deadlineMarkerRe = regexp.MustCompile(`(?:申报截止|截止日期)\D{0,6}(\d{4}-\d{2}-\d{2})`)
)

// FeedItem is one article-level record in feed.json.
type FeedItem struct {
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt *time.Time `json:"published_at"`
	MatchScore  float64   `json:"match_score"`
	Importance  string    `json:"importance"`
	AIInsight   string    `json:"ai_insight,omitempty"`
	Category    string    `json:"category,omitempty"`
}

// Opportunity is one fundable-signal record in opportunities.json.
type Opportunity struct {
	SourceID      string  `json:"source_id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	FundingAmount string  `json:"funding_amount,omitempty"`
	DeadlineDate  string  `json:"deadline_date,omitempty"`
	Contact       string  `json:"contact,omitempty"`
	MatchScore    float64 `json:"match_score"`
}

// Result summarizes one Process call for the pipeline orchestrator's
// stage record.
type Result struct {
	ItemsProcessed   int
	OpportunityCount int
	EnrichedCount    int
}

// Processor runs the policy rule engine and optional oracle enrichment.
type Processor struct {
	Store       *storage.Store
	DataDir     string
	Oracle      oracle.Provider
	OracleGate  bool // config.AppConfig.OracleEnabled()
	Logger      *slog.Logger
}

func New(store *storage.Store, dataDir string, provider oracle.Provider, oracleEnabled bool, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Store: store, DataDir: dataDir, Oracle: provider, OracleGate: oracleEnabled, Logger: logger}
}

var dimensions = []domain.Dimension{domain.DimensionNationalPolicy, domain.DimensionBeijingPolicy}

// Process implements the C11 processor contract: process(dry_run, force).
func (p *Processor) Process(ctx context.Context, dryRun, force bool) (Result, error) {
	tracker, err := hashtrack.New(p.DataDir, module)
	if err != nil {
		return Result{}, fmt.Errorf("load hash tracker: %w", err)
	}

	var feed []FeedItem
	var opportunities []Opportunity

	for _, dim := range dimensions {
		artifacts, err := p.Store.ListArtifactsByDimension(dim)
		if err != nil {
			return Result{}, fmt.Errorf("list artifacts for %s: %w", dim, err)
		}
		for _, art := range artifacts {
			for _, item := range art.Items {
				if !tracker.IsNewOrChanged(item.URLHash, item.ContentHash, force) {
					continue
				}
				tracker.Mark(item.URLHash, item.ContentHash)

				score := ruleengine.Score(item.Title, item.Content, item.PublishedAt, scoreConfig)
				feedItem := FeedItem{
					SourceID:    item.SourceID,
					Title:       item.Title,
					URL:         item.URL,
					PublishedAt: item.PublishedAt,
					MatchScore:  score,
					Importance:  string(ruleengine.Band(score)),
				}
				feed = append(feed, feedItem)

				if score >= opportunityThreshold {
					if opp, ok := detectOpportunity(item); ok {
						opp.MatchScore = score
						opportunities = append(opportunities, opp)
					}
				}
			}
		}
	}

	enrichedCount := 0
	if p.OracleGate && p.Oracle != nil {
		enrichedCount = p.enrichTopN(ctx, feed)
	}

	if !dryRun {
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "feed.json", feed); err != nil {
			return Result{}, fmt.Errorf("write feed.json: %w", err)
		}
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "opportunities.json", opportunities); err != nil {
			return Result{}, fmt.Errorf("write opportunities.json: %w", err)
		}
		if err := tracker.Save(); err != nil {
			return Result{}, fmt.Errorf("save hash tracker: %w", err)
		}
	}

	return Result{ItemsProcessed: len(feed), OpportunityCount: len(opportunities), EnrichedCount: enrichedCount}, nil
}

// detectOpportunity applies the fundable-signal regexes to one item's
// body and extracts structured deadline_date/funding_amount fields.
func detectOpportunity(item domain.CrawledItem) (Opportunity, bool) {
	body := item.Content
	amount := fundingAmountRe.FindString(body)
	deadlineMatch := deadlineMarkerRe.FindStringSubmatch(body)

	if amount == "" && len(deadlineMatch) == 0 {
		return Opportunity{}, false
	}

	opp := Opportunity{
		SourceID:      item.SourceID,
		Title:         item.Title,
		URL:           item.URL,
		FundingAmount: strings.ReplaceAll(amount, " ", ""),
	}
	if len(deadlineMatch) > 1 {
		opp.DeadlineDate = deadlineMatch[1]
	}
	return opp, true
}

// enrichTopN calls the oracle for the top tier2TopN items by match_score
// above tier2Threshold, refining match_score and attaching ai_insight and
// category. Oracle failures are non-fatal (spec §7): the item keeps its
// rule-engine fields.
func (p *Processor) enrichTopN(ctx context.Context, feed []FeedItem) int {
	candidates := make([]int, 0)
	for i, item := range feed {
		if item.MatchScore >= tier2Threshold {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > tier2TopN {
		candidates = candidates[:tier2TopN]
	}

	enriched := 0
	for _, idx := range candidates {
		item := feed[idx]
		prompt := fmt.Sprintf("Analyze this Chinese government policy item and respond with JSON {\"ai_insight\":\"...\",\"category\":\"...\",\"match_score\":0-100}.\nTitle: %s", item.Title)
		raw, err := p.Oracle.Complete(ctx, "You are a policy analyst.", prompt)
		if err != nil {
			p.Logger.Warn("policy oracle enrichment failed, keeping rule-engine fields",
				slog.String("source_id", item.SourceID), slog.Any("error", err))
			continue
		}
		var parsed struct {
			AIInsight  string  `json:"ai_insight"`
			Category   string  `json:"category"`
			MatchScore float64 `json:"match_score"`
		}
		if err := parseOracleJSON(raw, &parsed); err != nil {
			p.Logger.Warn("policy oracle response unparsable, keeping rule-engine fields", slog.Any("error", err))
			continue
		}
		feed[idx].AIInsight = parsed.AIInsight
		feed[idx].Category = parsed.Category
		if parsed.MatchScore > 0 {
			feed[idx].MatchScore = parsed.MatchScore
			feed[idx].Importance = string(ruleengine.Band(parsed.MatchScore))
		}
		enriched++
	}
	return enriched
}

// parseOracleJSON strips a markdown fence if present and unmarshals the
// oracle's response into dst.
func parseOracleJSON(raw string, dst interface{}) error {
	return json.Unmarshal([]byte(oracle.ExtractJSON(raw)), dst)
}

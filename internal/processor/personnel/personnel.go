// Package personnel implements the personnel processor (spec §4.11
// "Personnel processor"): regex-based extraction of Chinese job-title
// change records (appointments, elections, removals, retirements) from
// raw items in the personnel dimension, with an optional Tier 2 oracle
// enrichment pass. No teacher equivalent exists; grounded on spec
// §4.11's prose plus the shared ruleengine/hashtrack packages built for
// the policy processor.
package personnel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/oracle"
	"github.com/sentryfeed/sentryfeed/internal/processor/hashtrack"
	"github.com/sentryfeed/sentryfeed/internal/processor/ruleengine"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

const module = "personnel"

// Action classifies one personnel change record.
type Action string

const (
	ActionAppointed Action = "appointed"
	ActionElected   Action = "elected"
	ActionRemoved   Action = "removed"
	ActionRetired   Action = "retired"
	ActionOther     Action = "other"
)

// changePattern pairs a regex with the Action it implies and which
// capture group holds each structured field. All patterns assume the
// org/name/position appear in that left-to-right order, matching the
// canonical "X任命Y为Z" construction.
type changePattern struct {
	re       *regexp.Regexp
	action   Action
	org      int
	name     int
	position int
}

// changeTerminator closes every pattern that needs to recognize "end of
// the sentence/title" rather than a literal trailing word. It includes \n
// alongside the usual CJK/ASCII punctuation because extractChanges joins
// an item's title and content with a literal newline before matching, and
// Go RE2's $ only matches true end-of-text (not end-of-line) without the
// (?m) flag, so a title-only appointment would otherwise never terminate.
const changeTerminator = `(?:[。，,.\n]|$)`

var changePatterns = []changePattern{
	// 国务院任命张三为教育部副部长
	{re: regexp.MustCompile(`(\S{2,20}?)任命(\S{2,10}?)为(\S{2,30}?)` + changeTerminator), action: ActionAppointed, org: 1, name: 2, position: 3},
	// 张三当选教育部部长
	{re: regexp.MustCompile(`(\S{2,10}?)当选(\S{2,30}?)` + changeTerminator), action: ActionElected, org: 0, name: 1, position: 2},
	// 国务院免去张三教育部副部长职务
	{re: regexp.MustCompile(`(\S{2,20}?)免去(\S{2,10}?)(\S{2,30}?)职务`), action: ActionRemoved, org: 1, name: 2, position: 3},
	// 张三卸任教育部副部长
	{re: regexp.MustCompile(`(\S{2,10}?)卸任(\S{2,30}?)` + changeTerminator), action: ActionRetired, org: 0, name: 1, position: 2},
	// 张三退休
	{re: regexp.MustCompile(`(\S{2,10}?)退休`), action: ActionRetired, org: 0, name: 1, position: 0},
}

// ChangeRecord is one person-level record in changes.json.
type ChangeRecord struct {
	Name          string  `json:"name"`
	Action        Action  `json:"action"`
	Position      string  `json:"position"`
	Organization  string  `json:"organization,omitempty"`
	EffectiveDate string  `json:"effective_date,omitempty"`
	SourceURL     string  `json:"source_url"`
	Relevance     string  `json:"relevance,omitempty"`
	Importance    string  `json:"importance,omitempty"`
	Group         string  `json:"group,omitempty"`
	Note          string  `json:"note,omitempty"`
	ActionSuggest string  `json:"action_suggestion,omitempty"`
	Background    string  `json:"background,omitempty"`
	Signals       []string `json:"signals,omitempty"`
	AIInsight     string  `json:"ai_insight,omitempty"`
}

// FeedItem is one article-level record in feed.json.
type FeedItem struct {
	SourceID    string  `json:"source_id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Importance  string  `json:"importance"`
	ChangeCount int     `json:"change_count"`
}

var scoreConfig = ruleengine.ScoreConfig{
	Keywords: []ruleengine.KeywordWeight{
		{Keyword: "任命", Weight: 40},
		{Keyword: "当选", Weight: 35},
		{Keyword: "卸任", Weight: 30},
		{Keyword: "免去", Weight: 30},
		{Keyword: "退休", Weight: 20},
		{Keyword: "部长", Weight: 10},
		{Keyword: "书记", Weight: 10},
	},
	TitleMultiplier: 2.0,
}

// Result summarizes one Process call for the pipeline orchestrator.
type Result struct {
	ArticlesProcessed int
	ChangeCount       int
	EnrichedCount     int
}

// Processor runs the personnel regex library and optional oracle
// enrichment.
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

	artifacts, err := p.Store.ListArtifactsByDimension(domain.DimensionPersonnel)
	if err != nil {
		return Result{}, fmt.Errorf("list artifacts: %w", err)
	}

	var feed []FeedItem
	var changes []ChangeRecord

	for _, art := range artifacts {
		for _, item := range art.Items {
			if !tracker.IsNewOrChanged(item.URLHash, item.ContentHash, force) {
				continue
			}
			tracker.Mark(item.URLHash, item.ContentHash)

			text := item.Title + "\n" + item.Content
			recs := extractChanges(text, item.URL)
			changes = append(changes, recs...)

			score := ruleengine.Score(item.Title, item.Content, item.PublishedAt, scoreConfig)
			importance := ruleengine.Band(score)
			if len(recs) > 0 && importance == ruleengine.ImportanceLow {
				importance = ruleengine.ImportanceMedium
			}

			feed = append(feed, FeedItem{
				SourceID:    item.SourceID,
				Title:       item.Title,
				URL:         item.URL,
				Importance:  string(importance),
				ChangeCount: len(recs),
			})
		}
	}

	enrichedCount := 0
	if p.OracleGate && p.Oracle != nil {
		enrichedCount = p.enrichChanges(ctx, changes)
	}

	if !dryRun {
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "feed.json", feed); err != nil {
			return Result{}, fmt.Errorf("write feed.json: %w", err)
		}
		filename := "changes.json"
		if enrichedCount > 0 {
			if err := hashtrack.SaveOutputJSON(p.DataDir, module, "enriched_feed.json", changes); err != nil {
				return Result{}, fmt.Errorf("write enriched_feed.json: %w", err)
			}
		}
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, filename, changes); err != nil {
			return Result{}, fmt.Errorf("write %s: %w", filename, err)
		}
		if err := tracker.Save(); err != nil {
			return Result{}, fmt.Errorf("save hash tracker: %w", err)
		}
	}

	return Result{ArticlesProcessed: len(feed), ChangeCount: len(changes), EnrichedCount: enrichedCount}, nil
}

// extractChanges applies every change pattern to text and returns one
// ChangeRecord per match. A single article may contain multiple
// distinct appointments, so every pattern scans the whole text rather
// than stopping at the first hit.
func extractChanges(text, sourceURL string) []ChangeRecord {
	var out []ChangeRecord
	for _, pat := range changePatterns {
		matches := pat.re.FindAllStringSubmatch(text, -1)
		for _, m := range matches {
			rec := ChangeRecord{Action: pat.action, SourceURL: sourceURL}
			if pat.org > 0 && pat.org < len(m) {
				rec.Organization = m[pat.org]
			}
			if pat.name > 0 && pat.name < len(m) {
				rec.Name = m[pat.name]
			}
			if pat.position > 0 && pat.position < len(m) {
				rec.Position = m[pat.position]
			}
			if rec.Name == "" {
				continue
			}
			out = append(out, rec)
		}
	}
	return out
}

// enrichChanges calls the oracle once per change record, attaching the
// relevance/importance/group/note/action_suggestion/background/signals/
// ai_insight fields spec §4.11 names for enriched_feed.json. Oracle
// failures are non-fatal (spec §7).
func (p *Processor) enrichChanges(ctx context.Context, changes []ChangeRecord) int {
	enriched := 0
	for i := range changes {
		rec := changes[i]
		prompt := fmt.Sprintf("Analyze this Chinese government personnel change and respond with JSON "+
			"{\"relevance\":\"...\",\"importance\":\"high|medium|low\",\"group\":\"...\",\"note\":\"...\","+
			"\"action_suggestion\":\"...\",\"background\":\"...\",\"signals\":[\"...\"],\"ai_insight\":\"...\"}.\n"+
			"Name: %s, Action: %s, Position: %s, Organization: %s", rec.Name, rec.Action, rec.Position, rec.Organization)
		raw, err := p.Oracle.Complete(ctx, "You are a government personnel analyst.", prompt)
		if err != nil {
			p.Logger.Warn("personnel oracle enrichment failed, keeping rule-engine fields",
				slog.String("name", rec.Name), slog.Any("error", err))
			continue
		}
		var parsed struct {
			Relevance     string   `json:"relevance"`
			Importance    string   `json:"importance"`
			Group         string   `json:"group"`
			Note          string   `json:"note"`
			ActionSuggest string   `json:"action_suggestion"`
			Background    string   `json:"background"`
			Signals       []string `json:"signals"`
			AIInsight     string   `json:"ai_insight"`
		}
		if err := json.Unmarshal([]byte(oracle.ExtractJSON(raw)), &parsed); err != nil {
			p.Logger.Warn("personnel oracle response unparsable, keeping rule-engine fields", slog.Any("error", err))
			continue
		}
		changes[i].Relevance = parsed.Relevance
		changes[i].Importance = parsed.Importance
		changes[i].Group = parsed.Group
		changes[i].Note = parsed.Note
		changes[i].ActionSuggest = parsed.ActionSuggest
		changes[i].Background = parsed.Background
		changes[i].Signals = parsed.Signals
		changes[i].AIInsight = parsed.AIInsight
		enriched++
	}
	return enriched
}

// Package briefing implements the daily-briefing processor (spec §4.11
// "Daily-briefing processor"): reads the per-module feeds produced by
// policy/personnel/university/tech-frontier, picks top-ranked items per
// dimension, and renders one briefing.json with sections and a short
// narrative, oracle-generated when enabled and rule-composed otherwise.
// Only processed/{module}/feed.json files are read; the tech-frontier
// processor writes topics.json, opportunities.json and stats.json but no
// feed.json, so no tech_frontier section is produced from its output.
// No teacher equivalent exists; grounded on spec §4.11's prose.
package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/sentryfeed/sentryfeed/internal/oracle"
	"github.com/sentryfeed/sentryfeed/internal/processor/hashtrack"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

const module = "briefing"

// maxItemsPerSection bounds how many top-ranked items each section
// surfaces, keeping the daily briefing skimmable.
const maxItemsPerSection = 5

// SectionItem is one top-ranked entry surfaced in a briefing section.
type SectionItem struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceID   string `json:"source_id"`
	Importance string `json:"importance,omitempty"`
}

// Section is one named group of top-ranked items (policy, personnel,
// university, tech_frontier).
type Section struct {
	Name  string        `json:"name"`
	Items []SectionItem `json:"items"`
}

// Briefing is the full briefing.json payload.
type Briefing struct {
	Sections []Section `json:"sections"`
	Narrative string   `json:"narrative"`
}

// feedEnvelope mirrors the {generated_at, data} wrapper every
// processor's feed.json carries.
type feedEnvelope struct {
	Data []rawFeedItem `json:"data"`
}

// rawFeedItem is the superset of fields a module's feed.json items may
// carry; unused fields simply stay zero-valued for modules that don't
// emit them (e.g. university's feed.json has no importance field).
type rawFeedItem struct {
	SourceID   string `json:"source_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Importance string `json:"importance"`
	Category   string `json:"category"`
}

var moduleOrder = []string{"policy", "personnel", "university", "techfrontier"}

var moduleSectionName = map[string]string{
	"policy":       "policy",
	"personnel":    "personnel",
	"university":   "university",
	"techfrontier": "tech_frontier",
}

// Result summarizes one Process call.
type Result struct {
	SectionCount int
	ItemCount    int
}

// Processor composes the daily briefing from every other module's
// feed.json.
type Processor struct {
	DataDir    string
	Oracle     oracle.Provider
	OracleGate bool
	Logger     *slog.Logger
}

func New(dataDir string, provider oracle.Provider, oracleEnabled bool, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{DataDir: dataDir, Oracle: provider, OracleGate: oracleEnabled, Logger: logger}
}

// Process implements the C11 processor contract: process(dry_run, force).
// force has no effect here since briefing has no upstream HashTracker
// gate of its own — it always recomposes from whatever the other
// modules last wrote.
func (p *Processor) Process(ctx context.Context, dryRun, force bool) (Result, error) {
	var sections []Section
	totalItems := 0

	for _, mod := range moduleOrder {
		var env feedEnvelope
		ok, err := readFeed(p.DataDir, mod, &env)
		if err != nil {
			return Result{}, fmt.Errorf("read %s feed: %w", mod, err)
		}
		if !ok || len(env.Data) == 0 {
			continue
		}

		items := rankTopItems(env.Data)
		section := Section{Name: moduleSectionName[mod]}
		for _, item := range items {
			section.Items = append(section.Items, SectionItem{
				Title:      item.Title,
				URL:        item.URL,
				SourceID:   item.SourceID,
				Importance: item.Importance,
			})
		}
		sections = append(sections, section)
		totalItems += len(section.Items)
	}

	narrative := p.composeNarrative(ctx, sections)

	result := Briefing{Sections: sections, Narrative: narrative}

	if !dryRun {
		if err := hashtrack.SaveOutputJSON(p.DataDir, module, "briefing.json", result); err != nil {
			return Result{}, fmt.Errorf("write briefing.json: %w", err)
		}
	}

	return Result{SectionCount: len(sections), ItemCount: totalItems}, nil
}

// readFeed loads a module's processed feed.json, tolerating its absence
// (a module that hasn't run yet this cycle simply contributes no
// section).
func readFeed(dataDir, mod string, env *feedEnvelope) (bool, error) {
	path := filepath.Join(dataDir, "processed", mod, "feed.json")
	return storage.ReadJSONFile(path, env)
}

// rankTopItems sorts items by importance (high > medium > low > "") and
// truncates to maxItemsPerSection.
func rankTopItems(items []rawFeedItem) []rawFeedItem {
	rank := map[string]int{"high": 0, "medium": 1, "low": 2, "": 3}
	sorted := make([]rawFeedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i].Importance] < rank[sorted[j].Importance]
	})
	if len(sorted) > maxItemsPerSection {
		sorted = sorted[:maxItemsPerSection]
	}
	return sorted
}

// composeNarrative produces the briefing's short narrative: oracle-
// generated when enabled, rule-composed otherwise (spec §4.11). Oracle
// failures fall back to the rule-composed narrative rather than leaving
// the field empty (spec §7: oracle failures are non-fatal).
func (p *Processor) composeNarrative(ctx context.Context, sections []Section) string {
	fallback := composeRuleNarrative(sections)
	if !p.OracleGate || p.Oracle == nil {
		return fallback
	}

	prompt := "Write a two-to-three sentence executive narrative summarizing today's briefing sections: "
	for _, sec := range sections {
		prompt += fmt.Sprintf("%s (%d items); ", sec.Name, len(sec.Items))
	}
	narrative, err := p.Oracle.Complete(ctx, "You write concise daily intelligence briefings.", prompt)
	if err != nil {
		p.Logger.Warn("briefing oracle narrative failed, using rule-composed narrative", slog.Any("error", err))
		return fallback
	}
	return narrative
}

// composeRuleNarrative renders a deterministic narrative from section
// item counts when the oracle is unavailable.
func composeRuleNarrative(sections []Section) string {
	if len(sections) == 0 {
		return "No new developments across tracked modules today."
	}
	narrative := "Today's monitoring pipeline surfaced activity across"
	for i, sec := range sections {
		if i > 0 {
			narrative += ","
		}
		narrative += fmt.Sprintf(" %s (%d item(s))", sec.Name, len(sec.Items))
	}
	narrative += "."
	return narrative
}

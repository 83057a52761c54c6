// Package pipeline implements the daily pipeline orchestrator (spec
// component C10): an ordered sequence of named, idempotent stages —
// crawl all sources, then each domain processor, then oracle
// enrichment, index generation, and the daily briefing — continuing
// past failed stages by default and recording a pipeline_status.json
// summary. No teacher equivalent exists as a multi-stage orchestrator;
// grounded on spec §4.10's stage-order contract, reusing the crawler
// (C7) and processor (C11) packages this pipeline sequences.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/catalog"
	"github.com/sentryfeed/sentryfeed/internal/crawler"
	"github.com/sentryfeed/sentryfeed/internal/domain"
	"github.com/sentryfeed/sentryfeed/internal/processor/briefing"
	"github.com/sentryfeed/sentryfeed/internal/processor/personnel"
	"github.com/sentryfeed/sentryfeed/internal/processor/policy"
	"github.com/sentryfeed/sentryfeed/internal/processor/techfrontier"
	"github.com/sentryfeed/sentryfeed/internal/processor/university"
	"github.com/sentryfeed/sentryfeed/internal/storage"
)

// StageStatus is the closed set of per-stage outcomes spec §4.10 names.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

// StageRecord is one entry in the pipeline_status.json stage list.
type StageRecord struct {
	Name           string      `json:"name"`
	Status         StageStatus `json:"status"`
	DurationSecs   float64     `json:"duration_seconds"`
	Error          string      `json:"error,omitempty"`
}

// Status is the overall pipeline_status.json payload.
type Status struct {
	Overall    string        `json:"overall_status"`
	Stages     []StageRecord `json:"stages"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Pipeline wires every collaborator the 8-stage orchestrator sequences.
type Pipeline struct {
	Catalog    *catalog.Catalog
	Crawler    *crawler.Crawler
	Store      *storage.Store
	DataDir    string

	Policy       *policy.Processor
	Personnel    *personnel.Processor
	University   *university.Processor
	TechFrontier *techfrontier.Processor
	Briefing     *briefing.Processor

	OracleGate bool // ENABLE_LLM_ENRICHMENT && ORACLE_API_KEY present

	MaxConcurrentCrawls int
	Logger              *slog.Logger
}

// New builds a Pipeline. MaxConcurrentCrawls bounds stage 1's crawl
// fan-out; 0 is treated as 1.
func New(cat *catalog.Catalog, crawl *crawler.Crawler, store *storage.Store, dataDir string,
	policyProc *policy.Processor, personnelProc *personnel.Processor, universityProc *university.Processor,
	techProc *techfrontier.Processor, briefingProc *briefing.Processor, oracleGate bool, maxConcurrentCrawls int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrentCrawls <= 0 {
		maxConcurrentCrawls = 1
	}
	return &Pipeline{
		Catalog: cat, Crawler: crawl, Store: store, DataDir: dataDir,
		Policy: policyProc, Personnel: personnelProc, University: universityProc,
		TechFrontier: techProc, Briefing: briefingProc,
		OracleGate: oracleGate, MaxConcurrentCrawls: maxConcurrentCrawls, Logger: logger,
	}
}

// Run executes all 8 stages in order, in a single goroutine except for
// stage 1's bounded crawl fan-out, recording and persisting
// pipeline_status.json at the end.
func (p *Pipeline) Run(ctx context.Context) Status {
	status := Status{GeneratedAt: time.Now().UTC()}

	status.Stages = append(status.Stages, p.runStage("crawl_all", p.stageCrawlAll(ctx)))
	status.Stages = append(status.Stages, p.runStage("policy", p.stagePolicy(ctx)))
	status.Stages = append(status.Stages, p.runStage("personnel", p.stagePersonnel(ctx)))
	status.Stages = append(status.Stages, p.runStage("university", p.stageUniversity(ctx)))
	status.Stages = append(status.Stages, p.runStage("techfrontier", p.stageTechFrontier(ctx)))
	status.Stages = append(status.Stages, p.runStage("oracle_enrichment", p.stageOracleEnrichment()))
	status.Stages = append(status.Stages, p.runStage("index_generation", p.stageIndexGeneration()))
	status.Stages = append(status.Stages, p.runStage("daily_briefing", p.stageDailyBriefing(ctx, status.Stages)))

	status.Overall = overallStatus(status.Stages)

	if err := storage.WriteAtomicJSON(filepath.Join(p.DataDir, "pipeline_status.json"), status); err != nil {
		p.Logger.Error("failed to write pipeline_status.json", slog.Any("error", err))
	}
	return status
}

// runStage times a stage function and converts its error into a
// StageRecord, continuing the pipeline past a failure by default (spec
// §4.10: "continues past failed stages by default").
func (p *Pipeline) runStage(name string, fn func() (StageStatus, error)) StageRecord {
	start := time.Now()
	stageStatus, err := fn()
	rec := StageRecord{Name: name, Status: stageStatus, DurationSecs: time.Since(start).Seconds()}
	if err != nil {
		rec.Status = StageFailed
		rec.Error = err.Error()
		p.Logger.Warn("pipeline stage failed", slog.String("stage", name), slog.Any("error", err))
	}
	return rec
}

// stageCrawlAll crawls every enabled source, bounded by
// MaxConcurrentCrawls, per spec §4.10 stage 1.
func (p *Pipeline) stageCrawlAll(ctx context.Context) func() (StageStatus, error) {
	return func() (StageStatus, error) {
		states, err := p.Store.LoadSourceStates()
		if err != nil {
			return StageFailed, fmt.Errorf("load source states: %w", err)
		}
		sources := p.Catalog.Enabled(states)
		if len(sources) == 0 {
			return StageSkipped, nil
		}

		sem := make(chan struct{}, p.MaxConcurrentCrawls)
		var wg sync.WaitGroup
		var mu sync.Mutex
		failed := 0

		for _, src := range sources {
			src := src
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				result := p.Crawler.Run(ctx, src)
				if result.Status == domain.StatusFailed {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if failed == len(sources) {
			return StageFailed, fmt.Errorf("all %d sources failed", len(sources))
		}
		if failed > 0 {
			p.Logger.Warn("crawl_all stage completed with partial failures", slog.Int("failed", failed), slog.Int("total", len(sources)))
		}
		return StageSuccess, nil
	}
}

func (p *Pipeline) stagePolicy(ctx context.Context) func() (StageStatus, error) {
	return func() (StageStatus, error) {
		if p.Policy == nil {
			return StageSkipped, nil
		}
		_, err := p.Policy.Process(ctx, false, false)
		return resultStatus(err)
	}
}

func (p *Pipeline) stagePersonnel(ctx context.Context) func() (StageStatus, error) {
	return func() (StageStatus, error) {
		if p.Personnel == nil {
			return StageSkipped, nil
		}
		_, err := p.Personnel.Process(ctx, false, false)
		return resultStatus(err)
	}
}

func (p *Pipeline) stageUniversity(ctx context.Context) func() (StageStatus, error) {
	return func() (StageStatus, error) {
		if p.University == nil {
			return StageSkipped, nil
		}
		_, err := p.University.Process(ctx, false, false)
		return resultStatus(err)
	}
}

func (p *Pipeline) stageTechFrontier(ctx context.Context) func() (StageStatus, error) {
	return func() (StageStatus, error) {
		if p.TechFrontier == nil {
			return StageSkipped, nil
		}
		_, err := p.TechFrontier.Process(ctx, false, false)
		return resultStatus(err)
	}
}

// stageOracleEnrichment is a bookkeeping-only stage: the actual oracle
// calls happen inline inside the policy/personnel/techfrontier
// processors' Tier 2 passes, gated on each processor's own OracleGate
// field. This stage just records whether enrichment ran at all this
// cycle, per spec §4.10 stage 6 and §8 scenario S7 ("ENABLE_LLM_ENRICHMENT
// =false ... Stage 6 records status=skipped").
func (p *Pipeline) stageOracleEnrichment() func() (StageStatus, error) {
	return func() (StageStatus, error) {
		if !p.OracleGate {
			return StageSkipped, nil
		}
		return StageSuccess, nil
	}
}

// stageIndexGeneration produces data/index.json, aggregating every
// module's last-generated-at timestamp and item counts, for the read API
// (spec §4.10 stage 7).
func (p *Pipeline) stageIndexGeneration() func() (StageStatus, error) {
	return func() (StageStatus, error) {
		index := buildIndex(p.DataDir)
		if err := storage.WriteAtomicJSON(filepath.Join(p.DataDir, "index.json"), index); err != nil {
			return StageFailed, fmt.Errorf("write index.json: %w", err)
		}
		return StageSuccess, nil
	}
}

// stageDailyBriefing runs the briefing processor, skipped if stages 2-5
// (the indices of policy/personnel/university/techfrontier in prior)
// produced no output at all (spec §4.10 stage 8).
func (p *Pipeline) stageDailyBriefing(ctx context.Context, priorStages []StageRecord) func() (StageStatus, error) {
	return func() (StageStatus, error) {
		if p.Briefing == nil {
			return StageSkipped, nil
		}
		if !anyProducedOutput(priorStages) {
			return StageSkipped, nil
		}
		_, err := p.Briefing.Process(ctx, false, false)
		return resultStatus(err)
	}
}

// anyProducedOutput reports whether any of the 4 domain-processor stages
// (indices 1-4: policy, personnel, university, techfrontier) succeeded.
func anyProducedOutput(stages []StageRecord) bool {
	for i := 1; i <= 4 && i < len(stages); i++ {
		if stages[i].Status == StageSuccess {
			return true
		}
	}
	return false
}

func resultStatus(err error) (StageStatus, error) {
	if err != nil {
		return StageFailed, err
	}
	return StageSuccess, nil
}

// overallStatus implements spec §4.10's summary rule: success iff every
// stage is success or skipped; else partial if at least one stage
// succeeded, else failed.
func overallStatus(stages []StageRecord) string {
	anySuccess := false
	anyFailed := false
	for _, s := range stages {
		switch s.Status {
		case StageSuccess:
			anySuccess = true
		case StageFailed:
			anyFailed = true
		}
	}
	switch {
	case !anyFailed:
		return "success"
	case anySuccess:
		return "partial"
	default:
		return "failed"
	}
}

package scheduler

import (
	"log/slog"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// HealthSummary is the aggregate the health endpoint and CLI status
// subcommand render (spec §6: "Health (scheduler up, last-run summary)").
type HealthSummary struct {
	SchedulerRunning bool                        `json:"scheduler_running"`
	SourceCount      int                         `json:"source_count"`
	Healthy          int                         `json:"healthy"`
	Warning          int                         `json:"warning"`
	Failing          int                         `json:"failing"`
	Sources          map[string]domain.SourceState `json:"sources"`
}

// Health aggregates every enabled source's persisted state into the
// healthy/warning/failing bands spec §7 names, using
// SourceState.Health's consecutive_failures thresholds.
func (s *Scheduler) Health() HealthSummary {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	summary := HealthSummary{SchedulerRunning: running, Sources: make(map[string]domain.SourceState)}

	states, err := s.Store.LoadSourceStates()
	if err != nil {
		s.Logger.Error("health: load source states failed", slog.Any("error", err))
		return summary
	}

	for _, src := range s.Catalog.Enabled(states) {
		st := states[src.ID]
		summary.Sources[src.ID] = st
		summary.SourceCount++
		switch st.Health() {
		case domain.HealthFailing:
			summary.Failing++
		case domain.HealthWarning:
			summary.Warning++
		default:
			summary.Healthy++
		}
	}
	return summary
}

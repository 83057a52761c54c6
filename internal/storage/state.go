package storage

import (
	"fmt"
	"sync"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// LoadSourceStates reads the whole source_state.json map.
func (s *Store) LoadSourceStates() (map[string]domain.SourceState, error) {
	states := make(map[string]domain.SourceState)
	if _, err := readJSON(s.statePath(), &states); err != nil {
		return nil, fmt.Errorf("read source_state.json: %w", err)
	}
	return states, nil
}

// UpdateSourceState performs a read-modify-write of one source_id's entry
// in source_state.json under an in-process mutex, with the write itself
// atomic (spec §4.8/§5: "serialized by an in-process mutex; writes are
// atomic rename").
func (s *Store) UpdateSourceState(sourceID string, mutate func(domain.SourceState) domain.SourceState) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	states, err := s.LoadSourceStates()
	if err != nil {
		return err
	}
	states[sourceID] = mutate(states[sourceID])
	return writeAtomic(s.statePath(), states)
}

// RecordRunOutcome applies a CrawlResult to a source's state: resets
// consecutive_failures on success/partial/no-new-content, increments it on
// failure, and stamps last_crawl_at/last_success_at.
func (s *Store) RecordRunOutcome(sourceID string, result domain.CrawlResult) error {
	return s.UpdateSourceState(sourceID, func(st domain.SourceState) domain.SourceState {
		st.LastCrawlAt = result.EndedAt
		switch result.Status {
		case domain.StatusFailed:
			st.ConsecutiveFailures++
		default:
			st.ConsecutiveFailures = 0
			st.LastSuccessAt = result.EndedAt
		}
		return st
	})
}

// logMutexFor returns the per-source mutex guarding crawl_logs.json writes
// (spec §5: "crawl_logs.json per source: serialized by a per-source mutex").
func (s *Store) logMutexFor(sourceID string) *sync.Mutex {
	v, _ := s.logMu.LoadOrStore(sourceID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// AppendRunLog appends one RunLogEntry to a source's bounded crawl_logs.json,
// trimming the oldest entry once the array exceeds domain.MaxRunLogEntries.
func (s *Store) AppendRunLog(sourceID string, entry domain.RunLogEntry) error {
	mu := s.logMutexFor(sourceID)
	mu.Lock()
	defer mu.Unlock()

	var entries []domain.RunLogEntry
	if _, err := readJSON(s.logPath(sourceID), &entries); err != nil {
		return fmt.Errorf("read crawl_logs.json: %w", err)
	}
	entries = append(entries, entry)
	if len(entries) > domain.MaxRunLogEntries {
		entries = entries[len(entries)-domain.MaxRunLogEntries:]
	}
	return writeAtomic(s.logPath(sourceID), entries)
}

// LoadRunLog reads a source's bounded run-log array.
func (s *Store) LoadRunLog(sourceID string) ([]domain.RunLogEntry, error) {
	var entries []domain.RunLogEntry
	if _, err := readJSON(s.logPath(sourceID), &entries); err != nil {
		return nil, fmt.Errorf("read crawl_logs.json: %w", err)
	}
	return entries, nil
}

// RunLogEntryFromResult converts a CrawlResult into the RunLogEntry shape
// crawl_logs.json stores, for callers (internal/crawler) that need it
// without duplicating the field mapping.
func RunLogEntryFromResult(result domain.CrawlResult) domain.RunLogEntry {
	return domain.RunLogEntry{
		Timestamp:    result.EndedAt,
		Status:       result.Status,
		ItemsTotal:   result.ItemsTotal,
		ItemsNew:     result.ItemsNew,
		DurationSecs: result.DurationSecs,
		ErrorMessage: result.ErrorMessage,
	}
}

package storage

import (
	"fmt"
	"sync"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

var snapshotMu sync.Map // source_id -> *sync.Mutex, scoped separately from crawl logs

func (s *Store) snapshotMutexFor(sourceID string) *sync.Mutex {
	v, _ := snapshotMu.LoadOrStore(sourceID+"@"+s.root, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// LatestSnapshot returns the most recently appended snapshot record for a
// source, implementing fetchstrategy.SnapshotStore.
func (s *Store) LatestSnapshot(sourceID string) (domain.SnapshotRecord, bool, error) {
	var records []domain.SnapshotRecord
	ok, err := readJSON(s.snapshotPath(sourceID), &records)
	if err != nil {
		return domain.SnapshotRecord{}, false, err
	}
	if !ok || len(records) == 0 {
		return domain.SnapshotRecord{}, false, nil
	}
	return records[len(records)-1], true, nil
}

// AppendSnapshot appends a new record to a source's snapshot list, per
// spec §4.8 ("data/state/snapshots/{source_id}.json is a JSON list
// maintained by the snapshot strategy").
func (s *Store) AppendSnapshot(sourceID string, rec domain.SnapshotRecord) error {
	mu := s.snapshotMutexFor(sourceID)
	mu.Lock()
	defer mu.Unlock()

	var records []domain.SnapshotRecord
	if _, err := readJSON(s.snapshotPath(sourceID), &records); err != nil {
		return fmt.Errorf("read snapshots: %w", err)
	}
	records = append(records, rec)
	return writeAtomic(s.snapshotPath(sourceID), records)
}

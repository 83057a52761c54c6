// Package hashtrack implements the shared HashTracker every domain
// processor (C11) uses to decide whether a raw item is "new or changed"
// since its last processing pass, and the save_output_json helper that
// writes processor outputs atomically with a generated_at timestamp.
// Grounded on the teacher's atomic-write discipline (temp file + rename,
// internal/storage) and the incremental-reprocessing gate implied by
// spec §4.11 ("HashTracker maintains _processed_hashes.json ... a raw
// item is treated as new-or-changed iff its current content_hash differs
// from the stored one").
package hashtrack

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/storage"
)

// Tracker maps item_url_hash -> processing_content_hash for one module
// (policy, personnel, tech-frontier, university), persisted to
// data/state/{module}/_processed_hashes.json.
type Tracker struct {
	path string
	mu   sync.Mutex
	hash map[string]string
}

// New loads (or lazily initializes) the hash map for one module under
// dataDir/state/{module}/_processed_hashes.json.
func New(dataDir, module string) (*Tracker, error) {
	path := filepath.Join(dataDir, "state", module, "_processed_hashes.json")
	hashes := make(map[string]string)
	if _, err := storage.ReadJSONFile(path, &hashes); err != nil {
		return nil, err
	}
	return &Tracker{path: path, hash: hashes}, nil
}

// IsNewOrChanged reports whether urlHash's stored content_hash differs
// from contentHash (including "never seen"). force bypasses the check
// entirely, per each processor's process(dry_run, force) contract.
func (t *Tracker) IsNewOrChanged(urlHash, contentHash string, force bool) bool {
	if force {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.hash[urlHash]
	return !ok || prev != contentHash
}

// Mark records urlHash's current content_hash as processed. Callers must
// still call Save to persist it; Mark only updates the in-memory map so a
// dry run can call IsNewOrChanged/Mark freely without ever touching disk.
func (t *Tracker) Mark(urlHash, contentHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hash[urlHash] = contentHash
}

// Save persists the current map atomically. Processors call this once at
// the end of a non-dry-run pass.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return storage.WriteAtomicJSON(t.path, t.hash)
}

// SaveOutputJSON writes a processor output payload atomically, wrapping
// it with a generated_at timestamp the way every C11 output file carries
// one (spec §4.11: "save_output_json ... records the generated_at
// timestamp").
func SaveOutputJSON(dataDir, module, filename string, payload interface{}) error {
	path := filepath.Join(dataDir, "processed", module, filename)
	envelope := struct {
		GeneratedAt time.Time   `json:"generated_at"`
		Data        interface{} `json:"data"`
	}{
		GeneratedAt: time.Now().UTC(),
		Data:        payload,
	}
	return storage.WriteAtomicJSON(path, envelope)
}

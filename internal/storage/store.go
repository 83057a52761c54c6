// Package storage implements the file-based storage layer (spec component
// C8): atomic write-then-rename JSON artifacts, a mutex-guarded source
// state map, per-source bounded run logs, and snapshot records. It
// replaces the teacher's SQL-backed repository package with the strictly
// file-based model spec §4.8 requires, reusing the teacher's atomic-write
// discipline (temp file + rename) wherever the teacher's repository layer
// already wrote to disk.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// Store is the single file-based persistence layer for raw artifacts,
// source state, run logs, and snapshots, all rooted under one data
// directory (spec §4.8's `data/` layout).
type Store struct {
	root string

	stateMu sync.Mutex
	logMu   sync.Map // source_id -> *sync.Mutex
}

// New builds a Store rooted at dataDir (typically "data").
func New(dataDir string) *Store {
	return &Store{root: dataDir}
}

func (s *Store) rawArtifactPath(dimension domain.Dimension, group, sourceID string) string {
	if group == "" {
		return filepath.Join(s.root, "raw", string(dimension), sourceID, "latest.json")
	}
	return filepath.Join(s.root, "raw", string(dimension), group, sourceID, "latest.json")
}

func (s *Store) statePath() string {
	return filepath.Join(s.root, "state", "source_state.json")
}

func (s *Store) logPath(sourceID string) string {
	return filepath.Join(s.root, "logs", sourceID, "crawl_logs.json")
}

func (s *Store) snapshotPath(sourceID string) string {
	return filepath.Join(s.root, "state", "snapshots", sourceID+".json")
}

// HasAnyRawArtifacts reports whether data/raw holds any crawl output yet,
// used by the scheduler's first-run priming check (spec §4.9: "if
// data/raw is empty/stale, schedule the full pipeline once").
func (s *Store) HasAnyRawArtifacts() bool {
	root := filepath.Join(s.root, "raw")
	found := false
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || found {
			return filepath.SkipDir
		}
		if !info.IsDir() && filepath.Base(path) == "latest.json" {
			found = true
			return filepath.SkipDir
		}
		return nil
	})
	return found
}

// writeAtomic serializes v to JSON and writes it via temp-file-then-rename
// so a crash mid-write never leaves latest.json truncated or partial
// (spec §4.8 point 3: "on write failure, the prior file is untouched").
func writeAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	return nil
}

// WriteAtomicJSON exposes the temp-file-then-rename write primitive to
// other packages (processors' HashTracker and save_output_json helper)
// that need the same crash-safety outside the Store's own fixed paths.
func WriteAtomicJSON(path string, v interface{}) error {
	return writeAtomic(path, v)
}

// ReadJSONFile exposes the tolerant-of-missing-file JSON read primitive
// to other packages, mirroring WriteAtomicJSON.
func ReadJSONFile(path string, v interface{}) (bool, error) {
	return readJSON(path, v)
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return true, nil
}

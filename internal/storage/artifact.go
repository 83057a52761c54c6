package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// LoadLatestArtifact reads the prior raw artifact for a source, if any.
func (s *Store) LoadLatestArtifact(dimension domain.Dimension, group, sourceID string) (domain.RawArtifact, bool, error) {
	var art domain.RawArtifact
	ok, err := readJSON(s.rawArtifactPath(dimension, group, sourceID), &art)
	if err != nil {
		return domain.RawArtifact{}, false, err
	}
	return art, ok, nil
}

// PrevHashes extracts the set of url_hash values from a previously stored
// artifact, per spec §4.8 step 1 ("read existing latest.json ... extract
// the set prev_hashes").
func PrevHashes(art domain.RawArtifact, hasPrev bool) map[string]bool {
	prev := make(map[string]bool)
	if !hasPrev {
		return prev
	}
	for _, item := range art.Items {
		prev[item.URLHash] = true
	}
	return prev
}

// WriteArtifact computes is_new against the prior artifact, serializes the
// full RawArtifact shape, and performs the atomic write. On success it
// returns the new-item count (for CrawlResult.ItemsNew).
func (s *Store) WriteArtifact(dimension domain.Dimension, group, sourceID, sourceName string, items []domain.CrawledItem) (newCount int, err error) {
	path := s.rawArtifactPath(dimension, group, sourceID)

	prevArt, hasPrev, err := s.LoadLatestArtifact(dimension, group, sourceID)
	if err != nil {
		return 0, fmt.Errorf("load prior artifact: %w", err)
	}
	prevHashes := PrevHashes(prevArt, hasPrev)

	for i := range items {
		if !prevHashes[items[i].URLHash] {
			items[i].IsNew = true
			newCount++
		}
	}

	art := domain.RawArtifact{
		SourceID:     sourceID,
		Dimension:    dimension,
		Group:        group,
		SourceName:   sourceName,
		CrawledAt:    time.Now(),
		ItemCount:    len(items),
		NewItemCount: newCount,
		Items:        items,
	}
	if hasPrev {
		crawledAt := prevArt.CrawledAt
		art.PreviousCrawledAt = &crawledAt
	}

	if err := writeAtomic(path, art); err != nil {
		return 0, fmt.Errorf("write artifact: %w", err)
	}
	return newCount, nil
}

// ListArtifactsByDimension walks data/raw/{dimension} and loads every
// source's latest.json, for processors (C11) that aggregate across every
// source contributing to one dimension rather than one source at a time.
func (s *Store) ListArtifactsByDimension(dimension domain.Dimension) ([]domain.RawArtifact, error) {
	root := filepath.Join(s.root, "raw", string(dimension))
	var out []domain.RawArtifact
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || filepath.Base(path) != "latest.json" {
			return nil
		}
		var art domain.RawArtifact
		if _, rerr := readJSON(path, &art); rerr != nil {
			return fmt.Errorf("read %s: %w", path, rerr)
		}
		out = append(out, art)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

// Package catalog loads the YAML source catalog consumed by the scheduler
// (spec §4.9: "start() loads the catalog"). It is the read-only input side
// of the data model in spec §3 ("SourceDefinitions are read-only, reloaded
// at scheduler start"), grounded on the teacher's migration-backed source
// repository (internal/infra/adapter/persistence/postgres) but swapped for
// a flat-file catalog since this spec keeps no database.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// Catalog is the validated, deduplicated set of source definitions loaded
// from one or more YAML files.
type Catalog struct {
	Sources []domain.SourceDefinition
	byID    map[string]*domain.SourceDefinition
}

type catalogFile struct {
	Sources []domain.SourceDefinition `yaml:"sources"`
}

// Load reads and validates a single YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return build(file.Sources)
}

// LoadAll reads and merges several YAML catalog files (spec allows the
// catalog to be split by dimension on disk), checking global id uniqueness
// across the merged set.
func LoadAll(paths []string) (*Catalog, error) {
	var all []domain.SourceDefinition
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		all = append(all, file.Sources...)
	}
	return build(all)
}

func build(sources []domain.SourceDefinition) (*Catalog, error) {
	byID := make(map[string]*domain.SourceDefinition, len(sources))
	for i := range sources {
		src := &sources[i]
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		if _, dup := byID[src.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		byID[src.ID] = src
	}
	return &Catalog{Sources: sources, byID: byID}, nil
}

// Get looks up one source definition by id.
func (c *Catalog) Get(id string) (domain.SourceDefinition, bool) {
	src, ok := c.byID[id]
	if !ok {
		return domain.SourceDefinition{}, false
	}
	return *src, true
}

// Enabled returns the sources that should be scheduled: config-enabled
// unless state carries an is_enabled_override (spec §3: SourceState's
// is_enabled_override "overrides config enabled").
func (c *Catalog) Enabled(states map[string]domain.SourceState) []domain.SourceDefinition {
	var out []domain.SourceDefinition
	for _, src := range c.Sources {
		enabled := src.Enabled
		if st, ok := states[src.ID]; ok && st.IsEnabledOverride != nil {
			enabled = *st.IsEnabledOverride
		}
		if enabled {
			out = append(out, src)
		}
	}
	return out
}

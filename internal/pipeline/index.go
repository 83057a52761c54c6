package pipeline

import (
	"path/filepath"
	"time"

	"github.com/sentryfeed/sentryfeed/internal/storage"
)

// Index is the data/index.json payload consumed by the read API: one
// entry per processed module, naming when it last generated output and
// how many top-level records it carries (spec §4.10 stage 7).
type Index struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Modules     []ModuleEntry  `json:"modules"`
}

// ModuleEntry summarizes one module's processed/{module}/feed.json.
type ModuleEntry struct {
	Name          string    `json:"name"`
	LastGenerated time.Time `json:"last_generated_at"`
	ItemCount     int       `json:"item_count"`
}

var indexedModules = []string{"policy", "personnel", "university", "techfrontier"}

type feedEnvelope struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Data        []map[string]any `json:"data"`
}

// GenerateIndex builds and persists data/index.json standalone, without a
// full Pipeline, so the admin CLI's generate-index subcommand can refresh
// the read API's index without re-running every stage.
func GenerateIndex(dataDir string) (Index, error) {
	index := buildIndex(dataDir)
	if err := storage.WriteAtomicJSON(filepath.Join(dataDir, "index.json"), index); err != nil {
		return index, err
	}
	return index, nil
}

// buildIndex reads every module's feed.json envelope to report its
// freshness and size; a module that hasn't produced output yet is
// simply omitted.
func buildIndex(dataDir string) Index {
	index := Index{GeneratedAt: time.Now().UTC()}
	for _, mod := range indexedModules {
		var env feedEnvelope
		ok, err := storage.ReadJSONFile(filepath.Join(dataDir, "processed", mod, "feed.json"), &env)
		if err != nil || !ok {
			continue
		}
		index.Modules = append(index.Modules, ModuleEntry{
			Name:          mod,
			LastGenerated: env.GeneratedAt,
			ItemCount:     len(env.Data),
		})
	}
	return index
}

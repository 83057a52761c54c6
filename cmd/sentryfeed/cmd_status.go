package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sentryfeed/sentryfeed/internal/domain"
)

// statusCmd is a supplemented feature beyond the distilled spec: a
// read-only CLI view over source_state.json's per-source health bands
// (spec §7), so an operator can check crawl health without standing up
// the read API.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print per-source crawl health from source_state.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := appv.store.LoadSourceStates()
		if err != nil {
			return fmt.Errorf("load source states: %w", err)
		}

		counts := map[domain.HealthBand]int{}
		ids := make([]string, 0, len(states))
		for id := range states {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			state := states[id]
			band := state.Health()
			counts[band]++
			fmt.Printf("%-30s %-10s consecutive_failures=%d last_success=%s\n",
				id, band, state.ConsecutiveFailures, state.LastSuccessAt.Format("2006-01-02T15:04:05Z07:00"))
		}

		fmt.Printf("\nsummary: healthy=%d warning=%d failing=%d total=%d\n",
			counts[domain.HealthHealthy], counts[domain.HealthWarning], counts[domain.HealthFailing], len(states))
		return nil
	},
}

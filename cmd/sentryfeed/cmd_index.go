package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sentryfeed/sentryfeed/internal/pipeline"
)

// generateIndexCmd runs pipeline stage 7 standalone, letting an operator
// refresh data/index.json without re-running the whole pipeline (spec §6,
// §10's supplemented "generate-index can also be invoked standalone"
// feature).
var generateIndexCmd = &cobra.Command{
	Use:   "generate-index",
	Short: "Regenerate data/index.json from the processed modules' feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := pipeline.GenerateIndex(appv.cfg.DataDir)
		if err != nil {
			return fmt.Errorf("generate-index: %w", err)
		}
		appv.logger.Info("generate-index completed",
			slog.Int("modules", len(index.Modules)),
			slog.String("path", filepath.Join(appv.cfg.DataDir, "index.json")))
		return nil
	},
}

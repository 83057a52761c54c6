package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	processDryRun bool
	processForce  bool
)

func registerProcessFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&processDryRun, "dry-run", false, "score and classify without writing output files or advancing the hash tracker")
	cmd.Flags().BoolVar(&processForce, "force", false, "reprocess every item regardless of the hash tracker's new-or-changed gate")
}

var processPolicyCmd = &cobra.Command{
	Use:   "process-policy",
	Short: "Run the policy processor standalone",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := appv.policyProc.Process(cmd.Context(), processDryRun, processForce)
		if err != nil {
			return fmt.Errorf("process-policy: %w", err)
		}
		appv.logger.Info("process-policy completed",
			slog.Int("items_processed", result.ItemsProcessed),
			slog.Int("opportunity_count", result.OpportunityCount),
			slog.Int("enriched_count", result.EnrichedCount))
		return nil
	},
}

var processPersonnelCmd = &cobra.Command{
	Use:   "process-personnel",
	Short: "Run the personnel processor standalone",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := appv.personnelProc.Process(cmd.Context(), processDryRun, processForce)
		if err != nil {
			return fmt.Errorf("process-personnel: %w", err)
		}
		appv.logger.Info("process-personnel completed",
			slog.Int("articles_processed", result.ArticlesProcessed),
			slog.Int("change_count", result.ChangeCount),
			slog.Int("enriched_count", result.EnrichedCount))
		return nil
	},
}

var processUniversityCmd = &cobra.Command{
	Use:   "process-university",
	Short: "Run the university processor standalone",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := appv.universityProc.Process(cmd.Context(), processDryRun, processForce)
		if err != nil {
			return fmt.Errorf("process-university: %w", err)
		}
		appv.logger.Info("process-university completed", slog.Int("items_processed", result.ItemsProcessed))
		return nil
	},
}

var processTechFrontierCmd = &cobra.Command{
	Use:   "process-techfrontier",
	Short: "Run the tech-frontier processor standalone",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := appv.techProc.Process(cmd.Context(), processDryRun, processForce)
		if err != nil {
			return fmt.Errorf("process-techfrontier: %w", err)
		}
		appv.logger.Info("process-techfrontier completed",
			slog.Int("items_processed", result.ItemsProcessed),
			slog.Int("enriched_count", result.EnrichedCount))
		return nil
	},
}

var processBriefingCmd = &cobra.Command{
	Use:   "process-briefing",
	Short: "Compose the daily briefing from upstream feeds standalone",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := appv.briefingProc.Process(cmd.Context(), processDryRun, processForce)
		if err != nil {
			return fmt.Errorf("process-briefing: %w", err)
		}
		appv.logger.Info("process-briefing completed",
			slog.Int("section_count", result.SectionCount),
			slog.Int("item_count", result.ItemCount))
		return nil
	},
}

func init() {
	registerProcessFlags(processPolicyCmd)
	registerProcessFlags(processPersonnelCmd)
	registerProcessFlags(processUniversityCmd)
	registerProcessFlags(processTechFrontierCmd)
	registerProcessFlags(processBriefingCmd)
}

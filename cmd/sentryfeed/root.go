package main

import (
	"github.com/spf13/cobra"
)

// rootCmd is the sentryfeed admin CLI root, in the idiom of
// theRebelliousNerd-codenerd's package-level *cobra.Command vars wired
// together in init().
var rootCmd = &cobra.Command{
	Use:   "sentryfeed",
	Short: "Operate the sentryfeed monitoring pipeline",
	Long: `sentryfeed crawls configured sources, deduplicates and persists raw
items, and runs the multi-stage analytical pipeline that produces the
policy, personnel, university and tech-frontier feeds plus the daily
briefing.`,
}

func init() {
	rootCmd.AddCommand(runSingleCmd)
	rootCmd.AddCommand(runAllCmd)
	rootCmd.AddCommand(processPolicyCmd)
	rootCmd.AddCommand(processPersonnelCmd)
	rootCmd.AddCommand(processUniversityCmd)
	rootCmd.AddCommand(processTechFrontierCmd)
	rootCmd.AddCommand(processBriefingCmd)
	rootCmd.AddCommand(generateIndexCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

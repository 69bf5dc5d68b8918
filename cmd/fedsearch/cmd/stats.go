package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/offlinekit/fedsearch/internal/config"
	"github.com/offlinekit/fedsearch/internal/search"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-module and aggregate document counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	reg, unload, err := loadModules(cfg)
	if err != nil {
		return err
	}
	defer unload()

	report := search.NewStatsAggregator(reg).Report()

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, m := range report.Modules {
		fmt.Fprintf(out, "%-16s %8d docs  ~%d KB\n", m.Name, m.NumDocs, m.EstimatedSizeBytes/1024)
	}
	fmt.Fprintf(out, "%-16s %8d docs\n", "total", report.TotalDocs)
	return nil
}

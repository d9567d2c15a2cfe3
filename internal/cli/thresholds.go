package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/calibrate"
)

func init() {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the calibrated tier thresholds",
		Long:  "Run the synthetic overlap scenarios for the configured (or given) tag counts and print the derived admission thresholds.",
		Run:   runThresholds,
	}

	cmd.Flags().Int("query-tags", 0, "Typical query size (default from config)")
	cmd.Flags().Int("entry-tags", 0, "Typical entry size (default from config)")

	RootCmd.AddCommand(cmd)
}

func runThresholds(cmd *cobra.Command, args []string) {
	queryTags, _ := cmd.Flags().GetInt("query-tags")
	entryTags, _ := cmd.Flags().GetInt("entry-tags")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open memory", err)
	}
	defer a.close()

	if queryTags <= 0 {
		queryTags = a.cfg.Calibration.QueryTags
	}
	if entryTags <= 0 {
		entryTags = a.cfg.Calibration.EntryTags
	}
	th := calibrate.Compute(queryTags, entryTags)

	b, _ := json.MarshalIndent(th, "", "  ")
	fmt.Println(string(b))
}

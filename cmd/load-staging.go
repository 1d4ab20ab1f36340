package cmd

import (
	"github.com/relloyd/campaignpipe/actions"
	"github.com/spf13/cobra"
)

var loadStagingOutput string

type loadStagingResult struct {
	Table      string `json:"table" yaml:"table"`
	RowsLoaded int    `json:"rowsLoaded" yaml:"rowsLoaded"`
}

var loadStagingCmd = &cobra.Command{
	Use:   "load-staging",
	Short: "Replace the contents of the staging table with the processed dataset",
	Long: `Delete all rows from the staging table and insert the processed dataset in batches.
This happens in a single transaction so a failure leaves the previous contents in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := getInterruptContext()
		defer cancel()
		n, err := actions.RunLoadStaging(ctx, log, &actions.PipeConfig{Config: cfg})
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), loadStagingResult{Table: cfg.Staging.Table, RowsLoaded: n}, loadStagingOutput)
	},
}

func init() {
	rootCmd.AddCommand(loadStagingCmd)
	loadStagingCmd.Flags().SortFlags = false
	loadStagingCmd.SilenceUsage = true
	switches.addFlag(loadStagingCmd, &loadStagingOutput, "output", "json", false, "")
	switches.addConfigFlags(loadStagingCmd, "processed-path", "staging-table", "batch-size", "sql-txt-batch-num-rows")
}

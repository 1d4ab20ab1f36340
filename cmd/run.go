package cmd

import (
	"github.com/relloyd/campaignpipe/actions"
	"github.com/relloyd/campaignpipe/pipeline"
	"github.com/spf13/cobra"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline once",
	Long: `Run the tasks transform, load_staging, load_dimensions, load_fact and refresh_kpis in order.
A failed task is retried before the run gives up; the tasks that depend on it are skipped.
The run report is printed when the run ends and the exit status is 1 if the run failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := getInterruptContext()
		defer cancel()
		_, err = actions.RunPipeline(ctx, log, &actions.PipeConfig{Config: cfg}, cmd.OutOrStdout(), runOutput)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SortFlags = false
	runCmd.SilenceUsage = true
	switches.addFlag(runCmd, &runOutput, "output", pipeline.OutputFormatJson, false, "")
	switches.addConfigFlags(runCmd, "raw-path", "processed-path", "staging-table", "batch-size",
		"sql-txt-batch-num-rows", "max-retries", "retry-delay")
}

package cmd

import (
	"github.com/relloyd/campaignpipe/actions"
	"github.com/spf13/cobra"
)

var transformOutput string

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Clean the raw dataset and write the processed dataset",
	Long: `Read the raw campaign dataset, coerce column types, derive conversions, spend, revenue,
CTR and ROAS, and replace the processed dataset. Values that cannot be converted become empty.
The processed file is only replaced when every row was written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := getInterruptContext()
		defer cancel()
		stats, err := actions.RunTransform(ctx, log, &actions.PipeConfig{Config: cfg})
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), stats, transformOutput)
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().SortFlags = false
	transformCmd.SilenceUsage = true
	switches.addFlag(transformCmd, &transformOutput, "output", "json", false, "")
	switches.addConfigFlags(transformCmd, "raw-path", "processed-path")
}

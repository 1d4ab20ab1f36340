package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2024-01-02T03:04+0000"
	configFile       string
	logLevel         string
	stackDumpOnPanic bool
)

var rootCmd = &cobra.Command{
	Use:   "campaignpipe",
	Short: "Marketing campaign ETL: transform, stage, load the warehouse and refresh KPI views",
	Long: `campaignpipe cleans the raw marketing campaign dataset, loads it into a staging table,
populates the warehouse dimension and fact tables and refreshes the KPI views.
Run the whole pipeline once with "run", or start an HTTP server with "serve" to trigger runs
and follow their progress.`,
}

func init() {
	cobra.EnableCommandSorting = false
	switches.addPersistentFlag(rootCmd, &configFile, "config", "", "")
	switches.addPersistentFlag(rootCmd, &logLevel, "log-level", "", "")
	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump on errors and panics")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Execute() prints the error.
		os.Exit(1)
	}
}

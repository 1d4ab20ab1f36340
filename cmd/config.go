package cmd

import (
	"fmt"

	"github.com/relloyd/campaignpipe/actions"
	"github.com/relloyd/campaignpipe/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
	Long: fmt.Sprintf(`Configuration is built from defaults, then the YAML file given by --config
(or ~/%v/%v if it exists), then environment variables and finally command line flags.`,
		config.MainDir, config.MainFileFullName),
}

var configShowOutput string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with passwords redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return actions.RunConfigShow(cfg, cmd.OutOrStdout(), configShowOutput)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	switches.addFlag(configShowCmd, &configShowOutput, "output", "yaml", false, "")
}

package cmd

import (
	"errors"

	"github.com/relloyd/campaignpipe/actions"
	"github.com/spf13/cobra"
)

const execSqlArgsDefinitionTxt = "<connection> <script>"

var execSqlCfg actions.ExecSqlConfig

var execSqlCmd = &cobra.Command{
	Use:   "exec-sql " + execSqlArgsDefinitionTxt,
	Short: "Run a SQL script against a configured connection in one transaction",
	Long: `Run a SQL script the same way the warehouse tasks do. References of the form ${name}
are replaced by the configured warehouse params plus ${staging_table} and ${run_id}.
The script is rejected before anything runs if a reference has no value.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("requires " + execSqlArgsDefinitionTxt)
		}
		execSqlCfg.Connection = args[0]
		execSqlCfg.ScriptPath = args[1]
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := getInterruptContext()
		defer cancel()
		execSqlCfg.Config = cfg
		return actions.RunExecSql(ctx, log, &execSqlCfg)
	},
}

func init() {
	rootCmd.AddCommand(execSqlCmd)
	execSqlCmd.Flags().SortFlags = false
	execSqlCmd.SilenceUsage = true
	switches.addFlag(execSqlCmd, &execSqlCfg.RunId, "run-id", "", false, "")
	switches.addConfigFlags(execSqlCmd, "staging-table")
}

package cmd

import (
	"github.com/relloyd/campaignpipe/actions"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/spf13/cobra"
)

const queryArgsDefinitionTxt string = "<connection> <SQL-optionally-quoted>"

var queryCmd = &cobra.Command{
	Use:   "query " + queryArgsDefinitionTxt,
	Short: "Run a SQL query against a configured connection",
	Long: `Execute a query by supplying a connection name and the SQL as plain arguments.
It's only necessary to wrap the statement in quotes if it contains special characters
that will be interpreted by your shell. You can use a dry-run to check formatting.
Results are returned as CSV lines. Use it to inspect the staging table or the KPI views.`,
	Args: getQueryFromArgsFunc(&queryCfg.Connection, &queryCfg.Query, ""),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := getInterruptContext()
		defer cancel()
		queryCfg.Factory = rdbms.NewConnectionFactory(log, cfg)
		return actions.RunQuery(ctx, log, &queryCfg, cmd.OutOrStdout())
	},
}

var queryCfg = actions.QueryConfig{}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().SortFlags = false
	queryCmd.SilenceUsage = true // avoid dumping command help when a SQL syntax error occurs.
	switches.addFlag(queryCmd, &queryCfg.DryRun, "dry-run", "false", false, "")
	switches.addFlag(queryCmd, &queryCfg.PrintHeader, "print-header", "false", false, "")
}

package cmd

import (
	"net"

	"github.com/relloyd/campaignpipe/actions"
	"github.com/spf13/cobra"
)

var serveAddr net.IP

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service to trigger pipeline runs and report their status",
	Long: `Start a web service with the routes:

  POST /runs           trigger a run (409 if a run is already in progress)
  GET  /runs           list runs
  GET  /runs/{runId}   report of one run
  GET  /health         health check
  GET  /stop           stop the server`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return actions.RunWebServer(log, &actions.WebServerConfig{
			Pipe: &actions.PipeConfig{Config: cfg},
			Addr: serveAddr,
			Port: cfg.Server.Port,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveAddr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addConfigFlags(serveCmd, "port", "max-retries", "retry-delay")
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strconv"
	"strings"
	"syscall"

	"github.com/relloyd/campaignpipe/config"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"config": cliFlag{name: "config", shortHand: "c",
		desc: fmt.Sprintf("Config `<file>` in YAML (default: ~/%v/%v)", config.MainDir, config.MainFileFullName)},
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug | trace\""},
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Output format: \"json\" or \"yaml\""},
	"raw-path": cliFlag{name: "raw-path", shortHand: "r",
		desc: "Path of the raw campaign dataset, either a local file or s3://<bucket>/<key>"},
	"processed-path": cliFlag{name: "processed-path", shortHand: "p",
		desc: "Path of the processed campaign dataset"},
	"staging-table": cliFlag{name: "staging-table", shortHand: "t",
		desc: "Staging table as [<schema>.]<table>"},
	"batch-size": cliFlag{name: "batch-size", shortHand: "B",
		desc: "Number of rows held in memory before they are sent to the staging table"},
	"sql-txt-batch-num-rows": cliFlag{name: "sql-txt-batch-num-rows", shortHand: "S",
		desc: "Number of rows combined into a single INSERT statement;\n" +
			"must be less than or equal to the batch size"},
	"max-retries": cliFlag{name: "max-retries", shortHand: "R",
		desc: "Number of times a failed task is retried"},
	"retry-delay": cliFlag{name: "retry-delay", shortHand: "D",
		desc: "Number of seconds to wait before retrying a failed task"},
	"run-id": cliFlag{name: "run-id", shortHand: "i",
		desc: "Value substituted for ${run_id} in the script"},
	"dry-run": cliFlag{name: "dry-run", shortHand: "d",
		desc: "Print the SQL query without executing it"},
	"print-header": cliFlag{name: "print-header", shortHand: "x",
		desc: "Print a header for SQL query results"},
	"port": cliFlag{name: "port", shortHand: "P",
		desc: "Port to listen on"},
}

// configFlagSetters apply flags that override values loaded from the config file and environment.
var configFlagSetters = map[string]func(cfg *config.Config, val string) error{
	"log-level": func(cfg *config.Config, val string) error {
		cfg.LogLevel = val
		return nil
	},
	"raw-path": func(cfg *config.Config, val string) error {
		cfg.Transform.RawPath = val
		return nil
	},
	"processed-path": func(cfg *config.Config, val string) error {
		cfg.Transform.ProcessedPath = val
		return nil
	},
	"staging-table": func(cfg *config.Config, val string) error {
		cfg.Staging.Table = val
		return nil
	},
	"batch-size": func(cfg *config.Config, val string) error {
		return setInt(&cfg.Staging.BatchSize, "batch-size", val)
	},
	"sql-txt-batch-num-rows": func(cfg *config.Config, val string) error {
		return setInt(&cfg.Staging.TxtBatchNumRows, "sql-txt-batch-num-rows", val)
	},
	"max-retries": func(cfg *config.Config, val string) error {
		return setInt(&cfg.Retry.MaxRetries, "max-retries", val)
	},
	"retry-delay": func(cfg *config.Config, val string) error {
		return setInt(&cfg.Retry.DelaySecs, "retry-delay", val)
	},
	"port": func(cfg *config.Config, val string) error {
		return setInt(&cfg.Server.Port, "port", val)
	},
}

func setInt(target *int, name string, val string) error {
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("the value for flag %q must be an integer: %v", name, err)
	}
	*target = i
	return nil
}

// addFlag adds a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	f.addFlagToSet(c.Flags(), targetVar, name, defaultValue, desc2)
	if required {
		_ = c.MarkFlagRequired(f.mustGetCliFlag(name).name)
	}
}

// addPersistentFlag adds a flag to c that is inherited by its sub-commands.
func (f cliFlags) addPersistentFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, desc2 string) {
	f.addFlagToSet(c.PersistentFlags(), targetVar, name, defaultValue, desc2)
}

// addConfigFlags adds string flags for each of names that override the loaded config when set.
// The default shown is empty since the effective default comes from the config layers.
func (f cliFlags) addConfigFlags(c *cobra.Command, names ...string) {
	for _, name := range names {
		if _, ok := configFlagSetters[name]; !ok {
			panic(fmt.Sprintf("CLI flag %q does not override config", name))
		}
		sw := f.mustGetCliFlag(name)
		c.Flags().StringP(sw.name, sw.shortHand, "", sw.desc)
	}
}

func (f cliFlags) addFlagToSet(fs *pflag.FlagSet, targetVar interface{}, name string, defaultValue string, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.mustGetCliFlag(name)
	desc := sw.desc + desc2
	switch p := targetVar.(type) {
	case *string:
		fs.StringVarP(p, sw.name, sw.shortHand, defaultValue, desc)
	case *bool:
		fs.BoolVarP(p, sw.name, sw.shortHand, strings.ToLower(defaultValue) == "true", desc)
	case *int:
		defaultInt, err := strconv.Atoi(defaultValue)
		if err != nil {
			fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
			os.Exit(1)
		}
		fs.IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
	default:
		panic("Error: unhandled CLI flag target value type")
	}
}

func (f cliFlags) mustGetCliFlag(name string) cliFlag {
	s, ok := f[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	return s
}

// applyConfigFlags copies the values of flags that were set on the command line into cfg.
func applyConfigFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var errs []string
	fs.Visit(func(fl *pflag.Flag) {
		setter, ok := configFlagSetters[fl.Name]
		if !ok {
			return
		}
		if err := setter(cfg, fl.Value.String()); err != nil {
			errs = append(errs, err.Error())
		}
	})
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// loadConfig builds the effective config for c from defaults, the config file, the environment
// and finally the command line flags. It returns a logger at the configured level.
func loadConfig(c *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err = applyConfigFlags(c.Flags(), cfg); err != nil {
		return nil, nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLogger(constants.ServiceName, cfg.LogLevel, stackDumpOnPanic), nil
}

// getInterruptContext returns a context that is cancelled on SIGINT or SIGTERM.
func getInterruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// getQueryFromArgsFunc concatenates all args after the connection into a string.
// Returns an error if there are no args.
func getQueryFromArgsFunc(connection *string, query *string, customErrMsg string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 { // if we are missing arguments...
			if customErrMsg != "" {
				return errors.New(customErrMsg)
			}
			return errors.New("please supply a connection and a SQL query")
		}
		*connection = args[0]
		*query = strings.Join(args[1:], " ")
		return nil
	}
}

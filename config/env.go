package config

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/rdbms/shared"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envOverrides lists every environment variable that overrides config.
// Unset variables leave their field nil.
// The original variable names are applied before the prefixed ones so CP_* values win.
type envOverrides struct {
	CsvPath    *string `mapstructure:"CSV_PATH"`
	PgDatabase *string `mapstructure:"PGDATABASE"`
	PgUser     *string `mapstructure:"PGUSER"`
	PgPassword *string `mapstructure:"PGPASSWORD"`
	PgHost     *string `mapstructure:"PGHOST"`
	PgPort     *int    `mapstructure:"PGPORT"`
	PgSslMode  *string `mapstructure:"PGSSLMODE"`

	LogLevel            *string `mapstructure:"CP_LOG_LEVEL"`
	RawPath             *string `mapstructure:"CP_RAW_PATH"`
	ProcessedPath       *string `mapstructure:"CP_PROCESSED_PATH"`
	S3Region            *string `mapstructure:"CP_S3_REGION"`
	StagingInputPath    *string `mapstructure:"CP_CSV_PATH"`
	StagingConnection   *string `mapstructure:"CP_STAGING_CONNECTION"`
	StagingTable        *string `mapstructure:"CP_STAGING_TABLE"`
	StagingBatchSize    *int    `mapstructure:"CP_STAGING_BATCH_SIZE"`
	StagingTxtBatchRows *int    `mapstructure:"CP_STAGING_TXT_BATCH_NUM_ROWS"`
	WarehouseConnection *string `mapstructure:"CP_WAREHOUSE_CONNECTION"`
	SqlLoadDimensions   *string `mapstructure:"CP_SQL_LOAD_DIMENSIONS"`
	SqlLoadFact         *string `mapstructure:"CP_SQL_LOAD_FACT"`
	SqlKpiViews         *string `mapstructure:"CP_SQL_KPI_VIEWS"`
	RetryMaxRetries     *int    `mapstructure:"CP_RETRY_MAX_RETRIES"`
	RetryDelaySecs      *int    `mapstructure:"CP_RETRY_DELAY_SECS"`
	ServerPort          *int    `mapstructure:"CP_SERVER_PORT"`
}

// ApplyEnv overrides values in c with environment variables found by lookup.
// Connections may also be supplied as DSNs in variables named CP_<CONNECTION>_DSN.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	// Collect the variables that are set.
	input := make(map[string]interface{})
	t := reflect.TypeOf(envOverrides{})
	for idx := 0; idx < t.NumField(); idx++ {
		name := t.Field(idx).Tag.Get("mapstructure")
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			input[name] = strings.TrimSpace(v)
		}
	}
	o := envOverrides{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &o,
	})
	if err != nil {
		return errors.Wrap(err, "error creating environment decoder")
	}
	if err = dec.Decode(input); err != nil {
		return errors.Wrap(err, "error reading config from environment")
	}
	setString(&c.Staging.InputPath, o.CsvPath)
	setString(&c.Postgres.Database, o.PgDatabase)
	setString(&c.Postgres.User, o.PgUser)
	setString(&c.Postgres.Password, o.PgPassword)
	setString(&c.Postgres.Host, o.PgHost)
	setInt(&c.Postgres.Port, o.PgPort)
	setString(&c.Postgres.SslMode, o.PgSslMode)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.Transform.RawPath, o.RawPath)
	setString(&c.Transform.ProcessedPath, o.ProcessedPath)
	setString(&c.Transform.S3Region, o.S3Region)
	setString(&c.Staging.InputPath, o.StagingInputPath)
	setString(&c.Staging.Connection, o.StagingConnection)
	setString(&c.Staging.Table, o.StagingTable)
	setInt(&c.Staging.BatchSize, o.StagingBatchSize)
	setInt(&c.Staging.TxtBatchNumRows, o.StagingTxtBatchRows)
	setString(&c.Warehouse.Connection, o.WarehouseConnection)
	setString(&c.Warehouse.LoadDimensionsScript, o.SqlLoadDimensions)
	setString(&c.Warehouse.LoadFactScript, o.SqlLoadFact)
	setString(&c.Warehouse.KpiViewsScript, o.SqlKpiViews)
	setInt(&c.Retry.MaxRetries, o.RetryMaxRetries)
	setInt(&c.Retry.DelaySecs, o.RetryDelaySecs)
	setInt(&c.Server.Port, o.ServerPort)
	// Connections supplied as DSNs.
	for _, name := range []string{c.Staging.Connection, c.Warehouse.Connection} {
		if dsn, ok := lookup(helper.GetDsnEnvVarName(name)); ok && dsn != "" {
			d, err := ConnectionFromDsn(name, dsn)
			if err != nil {
				return err
			}
			if c.Connections == nil {
				c.Connections = make(shared.DBConnections)
			}
			c.Connections[name] = d
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

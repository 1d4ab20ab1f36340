package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/campaignpipe/constants"
	"github.com/relloyd/campaignpipe/helper"
	"github.com/relloyd/campaignpipe/rdbms"
	"github.com/relloyd/campaignpipe/rdbms/shared"
	"github.com/sirupsen/logrus"
	"github.com/xo/dburl"
	yamlv2 "gopkg.in/yaml.v2"
)

const (
	MainDir            = ".campaignpipe"
	MainFileNamePrefix = "config"
	MainFileNameExt    = "yaml"
	MainFileFullName   = MainFileNamePrefix + "." + MainFileNameExt
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

// Config is constructed once per process and passed into each component.
type Config struct {
	LogLevel    string               `json:"logLevel" yaml:"logLevel" errorTxt:"log level" mandatory:"yes"`
	Transform   TransformConfig      `json:"transform" yaml:"transform"`
	Staging     StagingConfig        `json:"staging" yaml:"staging"`
	Postgres    PostgresConfig       `json:"postgres" yaml:"postgres"`
	Warehouse   WarehouseConfig      `json:"warehouse" yaml:"warehouse"`
	Retry       RetryConfig          `json:"retry" yaml:"retry"`
	Server      ServerConfig         `json:"server" yaml:"server"`
	Connections shared.DBConnections `json:"connections,omitempty" yaml:"connections,omitempty"`
}

type TransformConfig struct {
	RawPath       string `json:"rawPath" yaml:"rawPath" errorTxt:"raw dataset path" mandatory:"yes"`
	ProcessedPath string `json:"processedPath" yaml:"processedPath" errorTxt:"processed dataset path" mandatory:"yes"`
	S3Region      string `json:"s3Region,omitempty" yaml:"s3Region,omitempty"`
}

type StagingConfig struct {
	// InputPath defaults to Transform.ProcessedPath.
	InputPath       string `json:"inputPath,omitempty" yaml:"inputPath,omitempty"`
	Connection      string `json:"connection" yaml:"connection" errorTxt:"staging connection name" mandatory:"yes"`
	Table           string `json:"table" yaml:"table" errorTxt:"staging table" mandatory:"yes"`
	BatchSize       int    `json:"batchSize" yaml:"batchSize" errorTxt:"staging batch size" mandatory:"yes"`
	TxtBatchNumRows int    `json:"txtBatchNumRows" yaml:"txtBatchNumRows" errorTxt:"rows per INSERT statement" mandatory:"yes"`
}

// PostgresConfig describes the default PostgreSQL connection used when no explicit connection is configured.
type PostgresConfig struct {
	Database string `json:"database" yaml:"database"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	SslMode  string `json:"sslMode" yaml:"sslMode"`
}

type WarehouseConfig struct {
	Connection           string            `json:"connection" yaml:"connection" errorTxt:"warehouse connection name" mandatory:"yes"`
	LoadDimensionsScript string            `json:"loadDimensionsScript" yaml:"loadDimensionsScript" errorTxt:"load dimensions script" mandatory:"yes"`
	LoadFactScript       string            `json:"loadFactScript" yaml:"loadFactScript" errorTxt:"load fact script" mandatory:"yes"`
	KpiViewsScript       string            `json:"kpiViewsScript" yaml:"kpiViewsScript" errorTxt:"KPI views script" mandatory:"yes"`
	Params               map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

type RetryConfig struct {
	MaxRetries int `json:"maxRetries" yaml:"maxRetries"`
	DelaySecs  int `json:"delaySecs" yaml:"delaySecs"`
}

type ServerConfig struct {
	Port int `json:"port" yaml:"port" errorTxt:"server port" mandatory:"yes"`
}

// NewConfig returns a Config populated with built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Transform: TransformConfig{
			RawPath:       constants.RawDataPathDefault,
			ProcessedPath: constants.ProcessedDataPathDefault,
		},
		Staging: StagingConfig{
			Connection:      constants.StagingConnectionName,
			Table:           constants.StagingTableDefault,
			BatchSize:       constants.StagingBatchSizeDefault,
			TxtBatchNumRows: constants.StagingTxtBatchNumRowsDefault,
		},
		Postgres: PostgresConfig{
			Database: constants.PostgresDatabaseDefault,
			User:     constants.PostgresUserDefault,
			Password: constants.PostgresPasswordDefault,
			Host:     constants.PostgresHostDefault,
			Port:     constants.PostgresPortDefault,
			SslMode:  "disable",
		},
		Warehouse: WarehouseConfig{
			Connection:           constants.WarehouseConnectionNameDefault,
			LoadDimensionsScript: constants.SqlLoadDimensionsDefault,
			LoadFactScript:       constants.SqlLoadFactDefault,
			KpiViewsScript:       constants.SqlKpiViewsDefault,
		},
		Retry: RetryConfig{
			MaxRetries: constants.RetryMaxRetriesDefault,
			DelaySecs:  constants.RetryDelaySecsDefault,
		},
		Server: ServerConfig{
			Port: constants.ServerPortDefault,
		},
		Connections: make(shared.DBConnections),
	}
}

// Load builds the effective Config from defaults, then the config file, then the environment.
// If fileName is empty the default file in the config home dir is used when it exists.
func Load(fileName string) (*Config, error) {
	c := NewConfig()
	explicit := fileName != ""
	if !explicit {
		var err error
		if fileName, err = GetDefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	if err := c.LoadFile(fileName); err != nil {
		if _, ok := err.(FileNotFoundError); !ok || explicit {
			return nil, err
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile merges the YAML file fileName over the current values of c.
func (c *Config) LoadFile(fileName string) error {
	b, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return FileNotFoundError{name: fileName}
		}
		return errors.Wrapf(err, "error reading config file %v", fileName)
	}
	if err = yaml.Unmarshal(b, c); err != nil {
		return errors.Wrapf(err, "error parsing config file %v", fileName)
	}
	for k, v := range c.Connections { // for each connection loaded from file...
		if v.LogicalName == "" {
			v.LogicalName = k
			c.Connections[k] = v
		}
	}
	return nil
}

// StagingInputPath returns the file loaded into staging.
func (c *Config) StagingInputPath() string {
	if c.Staging.InputPath != "" {
		return c.Staging.InputPath
	}
	return c.Transform.ProcessedPath
}

// RetryDelay returns the fixed delay between task attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelaySecs) * time.Second
}

// Validate checks mandatory fields and value ranges.
func (c *Config) Validate() error {
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if c.Staging.BatchSize < 1 || c.Staging.TxtBatchNumRows < 1 {
		return fmt.Errorf("staging batch sizes must be positive, got batchSize = %v, txtBatchNumRows = %v", c.Staging.BatchSize, c.Staging.TxtBatchNumRows)
	}
	if _, err := rdbms.ParseSchemaTable(c.Staging.Table); err != nil {
		return errors.Wrap(err, "invalid staging table")
	}
	if c.Retry.MaxRetries < 0 || c.Retry.DelaySecs < 0 {
		return fmt.Errorf("retry settings must not be negative, got maxRetries = %v, delaySecs = %v", c.Retry.MaxRetries, c.Retry.DelaySecs)
	}
	for k, v := range c.Connections {
		if !rdbms.IsSupportedConnection(v.Type) {
			return fmt.Errorf("connection %q has unsupported type %q", k, v.Type)
		}
	}
	return nil
}

// LoadConnection implements shared.ConnectionGetter.
// The staging and warehouse connections fall back to the PostgreSQL settings when they are not configured explicitly.
func (c *Config) LoadConnection(name string) (shared.ConnectionDetails, error) {
	if _, ok := c.Connections[name]; ok {
		return c.Connections.LoadConnection(name)
	}
	if name == c.Staging.Connection || name == c.Warehouse.Connection {
		return c.Postgres.ConnectionDetails(name), nil
	}
	return shared.ConnectionDetails{}, fmt.Errorf("connection %q is not configured", name)
}

// ConnectionDetails returns a postgres connection built from p.
func (p PostgresConfig) ConnectionDetails(logicalName string) shared.ConnectionDetails {
	u := url.URL{
		Scheme: constants.ConnectionTypePostgres,
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
		Path:   "/" + p.Database,
	}
	if p.SslMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{p.SslMode}}.Encode()
	}
	return shared.ConnectionDetails{
		Type:        constants.ConnectionTypePostgres,
		LogicalName: logicalName,
		Data:        map[string]string{shared.DefaultConnectionKeyNames.Dsn: u.String()},
	}
}

// ConnectionFromDsn builds ConnectionDetails from a DSN understood by dburl.
// SQLite DSNs such as sqlite3:/path/to.db are stored as a path.
func ConnectionFromDsn(logicalName string, dsn string) (shared.ConnectionDetails, error) {
	u, err := dburl.Parse(dsn)
	if err != nil {
		return shared.ConnectionDetails{}, errors.Wrapf(err, "error parsing DSN for connection %q", logicalName)
	}
	switch u.Driver {
	case constants.ConnectionTypePostgres:
		return shared.ConnectionDetails{
			Type:        constants.ConnectionTypePostgres,
			LogicalName: logicalName,
			Data:        map[string]string{shared.DefaultConnectionKeyNames.Dsn: dsn},
		}, nil
	case constants.ConnectionTypeSqlite:
		return shared.ConnectionDetails{
			Type:        constants.ConnectionTypeSqlite,
			LogicalName: logicalName,
			Data:        map[string]string{shared.DefaultConnectionKeyNames.Path: u.DSN},
		}, nil
	default:
		return shared.ConnectionDetails{}, fmt.Errorf("unsupported driver %q in DSN for connection %q", u.Driver, logicalName)
	}
}

// Redacted returns a copy of c with passwords removed.
func (c *Config) Redacted() *Config {
	r := *c
	if r.Postgres.Password != "" {
		r.Postgres.Password = "xxxxx"
	}
	r.Connections = make(shared.DBConnections, len(c.Connections))
	for k, v := range c.Connections {
		r.Connections[k] = v.Redacted()
	}
	return &r
}

// ToYaml renders c with secrets redacted.
func (c *Config) ToYaml() ([]byte, error) {
	b, err := yamlv2.Marshal(c.Redacted())
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling config")
	}
	return b, nil
}

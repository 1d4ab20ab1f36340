package constants

// General

const (
	TimeFormatYearSeconds      = "20060102T150405" // used for human readable run ids and file names
	TimeFormatYearSecondsRegex = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	DateFormat                 = "2006-01-02" // calendar dates written to the processed dataset
	EnvVarPrefix               = "CP" // prefix for environment variables that override config
	ServiceName                = "campaignpipe"
)

// Pipeline

const (
	PipelineName           = "marketing_analytics_pipeline"
	TaskTransform          = "transform"
	TaskLoadStaging        = "load_staging"
	TaskLoadDimensions     = "load_dimensions"
	TaskLoadFact           = "load_fact"
	TaskRefreshKpis        = "refresh_kpis"
	RetryMaxRetriesDefault = 2
	RetryDelaySecsDefault  = 120
	RunIdPrefixManual      = "manual"
)

// Files

const (
	RawDataPathDefault       = "data/raw/marketing_campaign_dataset.csv"
	ProcessedDataPathDefault = "data/processed/marketing_cleaned.csv"
	SqlLoadDimensionsDefault = "sql/02_load_dimensions.sql"
	SqlLoadFactDefault       = "sql/03_load_fact.sql"
	SqlKpiViewsDefault       = "sql/04_kpi_views.sql"
)

// Staging

const (
	StagingTableDefault            = "stg_campaign_performance"
	StagingBatchSizeDefault        = 5000
	StagingTxtBatchNumRowsDefault  = 500
	StagingConnectionName          = "staging"
	WarehouseConnectionNameDefault = "analytics_db"
	PostgresDatabaseDefault        = "marketing_analytics"
	PostgresUserDefault            = "etl_user"
	PostgresPasswordDefault        = "etl_pass"
	PostgresHostDefault            = "host.docker.internal"
	PostgresPortDefault            = 5432
	ConnectionTypePostgres         = "postgres"
	ConnectionTypeSqlite           = "sqlite3"
	SqlParamStagingTable           = "staging_table"
	SqlParamRunId                  = "run_id"
)

// Server

const (
	ServerPortDefault = 8080
)

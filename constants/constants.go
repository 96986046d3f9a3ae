package constants

// Job

const (
	TimeFormatYearSeconds      = "20060102T150405" // used for human readable tick arguments
	TimeFormatYearSecondsRegex = "[0-9]{4}[0-9]{2}[0-9]{2}T[0-9]{6}"
	TimeFormatYearSecondsTZ    = "20060102T150405-0700" // a format that includes the time zone and is compatible with Snowflake.
	TimeFormatWarehouseNTZ     = "2006-01-02 15:04:05.000000000"
	ServiceName                = "engagement"
	EnvVarPrefix               = "ENG" // prefixed for environment variables in twelveFactorMode
	EnvVarRunId                = EnvVarPrefix + "_RUN_ID"
	EnvVarTryNumber            = EnvVarPrefix + "_TRY_NUMBER"
	ConnectionTypeSnowflake    = "snowflake"
	WarehouseRoleLoader        = "LOADER"
	WarehouseSchemaAnalytics   = "analytics"
	EmojiBang                  = "\U0001F4A5"
)

// Warehouse secrets injected by the orchestration layer.

const (
	EnvVarSnowflakeAccount       = "SNOWFLAKE_ACCOUNT"
	EnvVarSnowflakeLoadDatabase  = "SNOWFLAKE_LOAD_DATABASE"
	EnvVarSnowflakeLoadWarehouse = "SNOWFLAKE_LOAD_WAREHOUSE"
	EnvVarSnowflakeLoadUser      = "SNOWFLAKE_LOAD_USER"
	EnvVarSnowflakeLoadPassword  = "SNOWFLAKE_LOAD_PASSWORD"
)

// Default tables.

const (
	DefaultSourceTable  = "analytics.source.engagement_events"
	DefaultStagingTable = "analytics.engagement.raw_engagement_metrics"
	DefaultFactTable    = "analytics.engagement.fct_engagement_metrics"
)

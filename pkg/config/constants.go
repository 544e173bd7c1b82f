package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "CONDO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "CONDO_APP_ENV"
	EnvPort     = "CONDO_APP_PORT"
	EnvLogLevel = "CONDO_LOG_LEVEL"

	EnvDBDSN      = "CONDO_DB_DSN"
	EnvDBDriver   = "CONDO_DB_DRIVER"
	EnvDBHost     = "CONDO_DB_HOST"
	EnvDBPort     = "CONDO_DB_PORT"
	EnvDBUser     = "CONDO_DB_USER"
	EnvDBPassword = "CONDO_DB_PASSWORD"
	EnvDBName     = "CONDO_DB_NAME"

	EnvUseSQLite = "CONDO_USE_SQLITE"
	EnvRedisURL  = "CONDO_REDIS_URL"

	EnvGCPProjectID      = "CONDO_GCP_PROJECT_ID"
	EnvPubSubUnitsTopic  = "CONDO_PUBSUB_UNITS_TOPIC"
	EnvUnitsCodeLength   = "CONDO_UNITS_CODE_LENGTH"
	EnvCodeLookupLimit   = "CONDO_RATE_LIMIT_CODE_LOOKUP_LIMIT"
	EnvOutboxMaxAttempts = "CONDO_OUTBOX_MAX_ATTEMPTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Units        UnitsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONDO_APP_ENV" required:"true"`
	Port         string `envconfig:"CONDO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONDO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONDO_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CONDO_LOG_FORMAT"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CONDO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CONDO_DB_DSN"`
	Driver string `envconfig:"CONDO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONDO_DB_HOST"`
	LegacyPort     int    `envconfig:"CONDO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONDO_DB_USER"`
	LegacyPassword string `envconfig:"CONDO_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONDO_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONDO_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CONDO_SQLITE_PATH" default:"condo.db"`

	MaxOpenConns    int           `envconfig:"CONDO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONDO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONDO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONDO_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"CONDO_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONDO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CONDO_REDIS_ADDR"`
	Password     string        `envconfig:"CONDO_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONDO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONDO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONDO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONDO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONDO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONDO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RateLimitConfig bounds how often a single client may look up unit codes.
type RateLimitConfig struct {
	CodeLookupWindow time.Duration `envconfig:"CONDO_RATE_LIMIT_CODE_LOOKUP_WINDOW" default:"1m"`
	CodeLookupLimit  int           `envconfig:"CONDO_RATE_LIMIT_CODE_LOOKUP_LIMIT" default:"10"`
	JoinWindow       time.Duration `envconfig:"CONDO_RATE_LIMIT_JOIN_WINDOW" default:"5m"`
	JoinLimit        int           `envconfig:"CONDO_RATE_LIMIT_JOIN_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CONDO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CONDO_AUTO_MIGRATE" default:"false"`
}

type UnitsConfig struct {
	CodeLength int `envconfig:"CONDO_UNITS_CODE_LENGTH" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CONDO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CONDO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CONDO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	UnitsTopic        string `envconfig:"CONDO_PUBSUB_UNITS_TOPIC" default:"condo-unit-events"`
	UnitsSubscription string `envconfig:"CONDO_PUBSUB_UNITS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CONDO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CONDO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CONDO_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CONDO_OUTBOX_RETENTION_DAYS" default:"30"`

	// MetricsAddr serves /metrics for the publisher process; empty disables it.
	MetricsAddr string `envconfig:"CONDO_OUTBOX_METRICS_ADDR" default:":9091"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"CONDO_CRON_INTERVAL" default:"24h"`
	LockTTL              time.Duration `envconfig:"CONDO_CRON_LOCK_TTL" default:"30m"`
	DeletedCodeGraceDays int           `envconfig:"CONDO_CRON_DELETED_CODE_GRACE_DAYS" default:"7"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite || strings.EqualFold(db.Driver, DriverSQLite) {
		db.DSN = db.SQLitePath
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
	Delivery     DeliveryConfig
	AdminJWT     AdminJWTConfig
	Audit        AuditConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NOTIFLY_APP_ENV" required:"true"`
	Port         string `envconfig:"NOTIFLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NOTIFLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NOTIFLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NOTIFLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NOTIFLY_DB_DSN"`
	Driver string `envconfig:"NOTIFLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NOTIFLY_DB_HOST"`
	LegacyPort     int    `envconfig:"NOTIFLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NOTIFLY_DB_USER"`
	LegacyPassword string `envconfig:"NOTIFLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"NOTIFLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"NOTIFLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NOTIFLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NOTIFLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NOTIFLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOTIFLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOTIFLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NOTIFLY_REDIS_ADDR"`
	Password     string        `envconfig:"NOTIFLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"NOTIFLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NOTIFLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOTIFLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOTIFLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOTIFLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOTIFLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NOTIFLY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"NOTIFLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NOTIFLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	MainTopic        string `envconfig:"NOTIFLY_PUBSUB_MAIN_TOPIC" default:"notifications"`
	MainSubscription string `envconfig:"NOTIFLY_PUBSUB_MAIN_SUBSCRIPTION" default:"notifications-worker"`

	RetryTopic1s        string `envconfig:"NOTIFLY_PUBSUB_RETRY_1S_TOPIC" default:"notifications.retry.1s"`
	RetrySubscription1s string `envconfig:"NOTIFLY_PUBSUB_RETRY_1S_SUBSCRIPTION" default:"notifications-retry-1s-worker"`

	RetryTopic5s        string `envconfig:"NOTIFLY_PUBSUB_RETRY_5S_TOPIC" default:"notifications.retry.5s"`
	RetrySubscription5s string `envconfig:"NOTIFLY_PUBSUB_RETRY_5S_SUBSCRIPTION" default:"notifications-retry-5s-worker"`

	RetryTopic30s        string `envconfig:"NOTIFLY_PUBSUB_RETRY_30S_TOPIC" default:"notifications.retry.30s"`
	RetrySubscription30s string `envconfig:"NOTIFLY_PUBSUB_RETRY_30S_SUBSCRIPTION" default:"notifications-retry-30s-worker"`

	DLQTopic        string `envconfig:"NOTIFLY_PUBSUB_DLQ_TOPIC" default:"notifications.dlq"`
	DLQSubscription string `envconfig:"NOTIFLY_PUBSUB_DLQ_SUBSCRIPTION" default:"notifications-dlq-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NOTIFLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NOTIFLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NOTIFLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type RateLimitConfig struct {
	Window        time.Duration `envconfig:"NOTIFLY_RATE_LIMIT_WINDOW" default:"1m"`
	TenantLimit   int           `envconfig:"NOTIFLY_RATE_LIMIT_TENANT_LIMIT" default:"600"`
	FailOpen      bool          `envconfig:"NOTIFLY_RATE_LIMIT_FAIL_OPEN" default:"true"`
	HeadersOnDeny bool          `envconfig:"NOTIFLY_RATE_LIMIT_HEADERS" default:"true"`
}

type DeliveryConfig struct {
	MaxAttempts        int           `envconfig:"NOTIFLY_DELIVERY_MAX_ATTEMPTS" default:"3"`
	ProviderTimeout    time.Duration `envconfig:"NOTIFLY_DELIVERY_PROVIDER_TIMEOUT" default:"10s"`
	StopOnFirstSuccess bool          `envconfig:"NOTIFLY_DELIVERY_STOP_ON_FIRST_SUCCESS" default:"true"`
	IdempotencyTTL     time.Duration `envconfig:"NOTIFLY_DELIVERY_IDEMPOTENCY_TTL" default:"720h"`
}

type AdminJWTConfig struct {
	Secret            string `envconfig:"NOTIFLY_ADMIN_JWT_SECRET"`
	Issuer            string `envconfig:"NOTIFLY_ADMIN_JWT_ISSUER" default:"notifly"`
	ExpirationMinutes int    `envconfig:"NOTIFLY_ADMIN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the admin token lifetime configured in minutes.
func (j AdminJWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuditConfig struct {
	Enabled    bool          `envconfig:"NOTIFLY_AUDIT_ENABLED" default:"true"`
	BufferSize int           `envconfig:"NOTIFLY_AUDIT_BUFFER_SIZE" default:"256"`
	FlushEvery time.Duration `envconfig:"NOTIFLY_AUDIT_FLUSH_EVERY" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NOTIFLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NOTIFLY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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

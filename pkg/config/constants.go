package config

const EnvPrefix = "NOTIFLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Env var names used by tests and the DSN fallback error message.
const (
	EnvAppEnv   = "NOTIFLY_APP_ENV"
	EnvPort     = "NOTIFLY_APP_PORT"
	EnvDBDSN    = "NOTIFLY_DB_DSN"
	EnvDBHost   = "NOTIFLY_DB_HOST"
	EnvDBUser   = "NOTIFLY_DB_USER"
	EnvDBName   = "NOTIFLY_DB_NAME"
	EnvRedisURL = "NOTIFLY_REDIS_URL"

	EnvAdminJWTSecret = "NOTIFLY_ADMIN_JWT_SECRET"
	EnvAdminJWTIssuer = "NOTIFLY_ADMIN_JWT_ISSUER"

	EnvGCPProjectID = "NOTIFLY_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

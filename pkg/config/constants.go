package config

// EnvPrefix scopes every environment variable read by envconfig.
const EnvPrefix = "DRSIS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DRSIS_APP_ENV"
	EnvPort     = "DRSIS_APP_PORT"
	EnvDBDSN    = "DRSIS_DB_DSN"
	EnvDBHost   = "DRSIS_DB_HOST"
	EnvDBUser   = "DRSIS_DB_USER"
	EnvDBName   = "DRSIS_DB_NAME"
	EnvRedisURL = "DRSIS_REDIS_URL"

	EnvJWTSecret  = "DRSIS_JWT_SECRET"
	EnvJWTIssuer  = "DRSIS_JWT_ISSUER"
	EnvJWTExpMins = "DRSIS_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID            = "DRSIS_GCP_PROJECT_ID"
	EnvPubSubFinanceTopic      = "DRSIS_PUBSUB_FINANCE_TOPIC"
	EnvPubSubNotificationTopic = "DRSIS_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "DRSIS_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

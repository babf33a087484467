package config

const EnvPrefix = "MOROZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultPlatformFeePercent    = 10
	DefaultFreeShippingThreshold = 50
)

const (
	EnvAppEnv   = "MOROZ_APP_ENV"
	EnvPort     = "MOROZ_APP_PORT"
	EnvLogLevel = "MOROZ_LOG_LEVEL"

	EnvDBDSN  = "MOROZ_DB_DSN"
	EnvDBHost = "MOROZ_DB_HOST"
	EnvDBUser = "MOROZ_DB_USER"
	EnvDBName = "MOROZ_DB_NAME"

	EnvRedisURL = "MOROZ_REDIS_URL"

	EnvAuthJWTSecret = "MOROZ_AUTH_JWT_SECRET"
	EnvAuthIssuer    = "MOROZ_AUTH_ISSUER"

	EnvFrontendURL           = "MOROZ_FRONTEND_URL"
	EnvAllowedOrigins        = "MOROZ_ALLOWED_ORIGINS"
	EnvPlatformFeePercent    = "MOROZ_PLATFORM_FEE_PERCENT"
	EnvFreeShippingThreshold = "MOROZ_FREE_SHIPPING_THRESHOLD"

	EnvStripeAPIKey        = "MOROZ_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "MOROZ_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv           = "MOROZ_STRIPE_ENV"

	EnvSendgridAPIKey = "MOROZ_SENDGRID_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

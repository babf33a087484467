package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	FeatureFlags FeatureFlagsConfig
	Storefront   StorefrontConfig
	Stripe       StripeConfig
	Webhooks     WebhookConfig
	Sendgrid     SendgridConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Storefront.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOROZ_APP_ENV" required:"true"`
	Port         string `envconfig:"MOROZ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MOROZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOROZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"MOROZ_DB_DSN"`
	Driver string `envconfig:"MOROZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOROZ_DB_HOST"`
	LegacyPort     int    `envconfig:"MOROZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOROZ_DB_USER"`
	LegacyPassword string `envconfig:"MOROZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOROZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOROZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOROZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOROZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOROZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOROZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOROZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOROZ_REDIS_ADDR"`
	Password     string        `envconfig:"MOROZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOROZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOROZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOROZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOROZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOROZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOROZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig describes how bearer tokens minted by the hosted identity
// provider are verified. Sessions themselves are never issued here.
type AuthConfig struct {
	JWTSecret string `envconfig:"MOROZ_AUTH_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"MOROZ_AUTH_ISSUER"`
	Audience  string `envconfig:"MOROZ_AUTH_AUDIENCE"`
	AdminRole string `envconfig:"MOROZ_AUTH_ADMIN_ROLE" default:"admin"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOROZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MOROZ_AUTO_MIGRATE" default:"false"`
}

type StorefrontConfig struct {
	FrontendURL           string        `envconfig:"MOROZ_FRONTEND_URL" default:"http://localhost:5173"`
	AllowedOrigins        []string      `envconfig:"MOROZ_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	PlatformFeePercent    string        `envconfig:"MOROZ_PLATFORM_FEE_PERCENT" default:"10"`
	FreeShippingThreshold string        `envconfig:"MOROZ_FREE_SHIPPING_THRESHOLD" default:"50.00"`
	Currency              string        `envconfig:"MOROZ_CURRENCY" default:"usd"`
	SellerAccountID       string        `envconfig:"MOROZ_SELLER_ACCOUNT_ID"`
	ProcessedSessionTTL   time.Duration `envconfig:"MOROZ_PROCESSED_SESSION_TTL" default:"30m"`
}

// FeePercent returns the configured platform fee as a decimal percentage (10 = 10%).
func (s StorefrontConfig) FeePercent() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s.PlatformFeePercent))
	if err != nil {
		return decimal.NewFromInt(DefaultPlatformFeePercent)
	}
	return d
}

// ShippingThreshold returns the free-shipping threshold in major currency units.
func (s StorefrontConfig) ShippingThreshold() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s.FreeShippingThreshold))
	if err != nil {
		return decimal.NewFromInt(DefaultFreeShippingThreshold)
	}
	return d
}

// FrontendBase returns the frontend URL without a trailing slash.
func (s StorefrontConfig) FrontendBase() string {
	return strings.TrimRight(strings.TrimSpace(s.FrontendURL), "/")
}

func (s StorefrontConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(s.PlatformFeePercent))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvPlatformFeePercent, err)
	}
	if fee.IsNegative() || fee.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvPlatformFeePercent)
	}
	threshold, err := decimal.NewFromString(strings.TrimSpace(s.FreeShippingThreshold))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvFreeShippingThreshold, err)
	}
	if threshold.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvFreeShippingThreshold)
	}
	if _, err := url.Parse(s.FrontendURL); err != nil {
		return fmt.Errorf("%s is not a valid url: %w", EnvFrontendURL, err)
	}
	return nil
}

type StripeConfig struct {
	APIKey             string `envconfig:"MOROZ_STRIPE_API_KEY"`
	WebhookSecret      string `envconfig:"MOROZ_STRIPE_WEBHOOK_SECRET"`
	Env                string `envconfig:"MOROZ_STRIPE_ENV" default:"test"`
	PlaceholderAccount string `envconfig:"MOROZ_STRIPE_PLACEHOLDER_ACCOUNT" default:"acct_placeholder"`
	ConnectCountry     string `envconfig:"MOROZ_STRIPE_CONNECT_COUNTRY" default:"US"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MOROZ_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	HandlerTimeout time.Duration `envconfig:"MOROZ_WEBHOOK_HANDLER_TIMEOUT" default:"30s"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"MOROZ_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"MOROZ_SENDGRID_FROM_EMAIL" default:"orders@localhost"`
	FromName    string `envconfig:"MOROZ_SENDGRID_FROM_NAME" default:"Ksenia Moroz Watercolors"`
	SellerEmail string `envconfig:"MOROZ_SELLER_EMAIL"`
}

// RateLimitConfig throttles the payment-creating endpoints. A zero limit
// disables that dimension.
type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"MOROZ_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit    int           `envconfig:"MOROZ_RATE_LIMIT_CHECKOUT_IP" default:"20"`
	CheckoutEmailLimit int           `envconfig:"MOROZ_RATE_LIMIT_CHECKOUT_EMAIL" default:"10"`
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

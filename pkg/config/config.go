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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Posting      PostingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DRSIS_APP_ENV" required:"true"`
	Port         string `envconfig:"DRSIS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DRSIS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DRSIS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DRSIS_DB_DSN"`
	Driver string `envconfig:"DRSIS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DRSIS_DB_HOST"`
	LegacyPort     int    `envconfig:"DRSIS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DRSIS_DB_USER"`
	LegacyPassword string `envconfig:"DRSIS_DB_PASSWORD"`
	LegacyName     string `envconfig:"DRSIS_DB_NAME"`
	LegacySSLMode  string `envconfig:"DRSIS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DRSIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DRSIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DRSIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DRSIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DRSIS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DRSIS_REDIS_ADDR"`
	Password     string        `envconfig:"DRSIS_REDIS_PASSWORD"`
	DB           int           `envconfig:"DRSIS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DRSIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DRSIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DRSIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DRSIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DRSIS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DRSIS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DRSIS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DRSIS_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DRSIS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DRSIS_AUTO_MIGRATE" default:"false"`
}

// PostingConfig carries the posting-target codes per ledger-eligible payment
// method, resolved once at startup and injected into the posting bridge. The
// bridge lazily creates accounts for these codes when they do not exist yet.
type PostingConfig struct {
	RefundAccountCode string `envconfig:"DRSIS_POSTING_REFUND_ACCOUNT_CODE" default:"5-9001"`

	CashAccountCode      string `envconfig:"DRSIS_POSTING_CASH_ACCOUNT_CODE" default:"4-1001"`
	CashCashBankCode     string `envconfig:"DRSIS_POSTING_CASH_CASHBANK_CODE" default:"KAS-01"`
	TransferAccountCode  string `envconfig:"DRSIS_POSTING_TRANSFER_ACCOUNT_CODE" default:"4-1002"`
	TransferCashBankCode string `envconfig:"DRSIS_POSTING_TRANSFER_CASHBANK_CODE" default:"BANK-01"`
	GatewayAccountCode   string `envconfig:"DRSIS_POSTING_GATEWAY_ACCOUNT_CODE" default:"4-1003"`
	GatewayCashBankCode  string `envconfig:"DRSIS_POSTING_GATEWAY_CASHBANK_CODE" default:"BANK-02"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DRSIS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DRSIS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DRSIS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	FinanceTopic             string `envconfig:"DRSIS_PUBSUB_FINANCE_TOPIC" required:"true"`
	NotificationTopic        string `envconfig:"DRSIS_PUBSUB_NOTIFICATION_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"DRSIS_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

// RateLimitConfig throttles mutating API calls per actor. A zero limit or
// window disables the limiter.
type RateLimitConfig struct {
	WriteWindow time.Duration `envconfig:"DRSIS_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteLimit  int           `envconfig:"DRSIS_RATE_LIMIT_WRITE_LIMIT" default:"120"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DRSIS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DRSIS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DRSIS_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

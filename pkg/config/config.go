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
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Lessons       LessonsConfig
	Billing       BillingConfig
	Cron          CronConfig
	Stripe        StripeConfig
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
	Env          string `envconfig:"TUTORPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"TUTORPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TUTORPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TUTORPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TUTORPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TUTORPAY_DB_DSN"`
	Driver string `envconfig:"TUTORPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TUTORPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"TUTORPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TUTORPAY_DB_USER"`
	LegacyPassword string `envconfig:"TUTORPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TUTORPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TUTORPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TUTORPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TUTORPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TUTORPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TUTORPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TUTORPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TUTORPAY_REDIS_ADDR"`
	Password     string        `envconfig:"TUTORPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TUTORPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TUTORPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TUTORPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TUTORPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TUTORPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TUTORPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TUTORPAY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TUTORPAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TUTORPAY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TUTORPAY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TUTORPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TUTORPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TUTORPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TUTORPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TUTORPAY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"TUTORPAY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"TUTORPAY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"TUTORPAY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TUTORPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TUTORPAY_AUTO_MIGRATE" default:"false"`
}

// LessonsConfig carries scheduling policy knobs.
type LessonsConfig struct {
	// StrictConflicts rejects double-booked lessons server-side instead of
	// returning an overridable warning.
	StrictConflicts    bool `envconfig:"TUTORPAY_STRICT_CONFLICTS" default:"false"`
	RecurringWeeks     int  `envconfig:"TUTORPAY_RECURRING_WEEKS" default:"52"`
	RecurringCadence   int  `envconfig:"TUTORPAY_RECURRING_CADENCE_WEEKS" default:"1"`
	CancelGraceHours   int  `envconfig:"TUTORPAY_CANCEL_GRACE_HOURS" default:"24"`
	DefaultDurationMin int  `envconfig:"TUTORPAY_DEFAULT_LESSON_MINUTES" default:"60"`
}

type BillingConfig struct {
	Currency   string `envconfig:"TUTORPAY_CURRENCY" default:"gbp"`
	MinDeposit string `envconfig:"TUTORPAY_MIN_DEPOSIT" default:"5"`
}

// MinDepositAmount parses the configured minimum deposit, falling back to 5
// when the value is missing or malformed.
func (b BillingConfig) MinDepositAmount() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(b.MinDeposit))
	if err != nil || d.IsNegative() {
		return decimal.NewFromInt(5)
	}
	return d
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TUTORPAY_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"TUTORPAY_CRON_LOCK_TTL" default:"2h"`
}

type StripeConfig struct {
	APIKey          string        `envconfig:"TUTORPAY_STRIPE_API_KEY"`
	Secret          string        `envconfig:"TUTORPAY_STRIPE_SECRET"`
	Env             string        `envconfig:"TUTORPAY_STRIPE_ENV" default:"test"`
	SuccessURL      string        `envconfig:"TUTORPAY_STRIPE_SUCCESS_URL"`
	CancelURL       string        `envconfig:"TUTORPAY_STRIPE_CANCEL_URL"`
	WebhookEventTTL time.Duration `envconfig:"TUTORPAY_STRIPE_WEBHOOK_EVENT_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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

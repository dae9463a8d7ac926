package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration required by the API process.
// All values come from env (or an env-file loaded by the process runner).
// Load it once in main and pass the pieces down; nothing else reads the environment.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      AuthConfig
	Login    LoginConfig

	BcryptCost int `split_words:"true" default:"10"`
}

type AppConfig struct {
	Env  string
	Port int `default:"3000"`
}

type PostgresConfig struct {
	Host     string
	Port     int `default:"5432"`
	User     string
	Password string
	DB       string

	// SSLMode is kept explicit for production posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Pool sizing for the credential store. Zero keeps the driver defaults
	// chosen in pkg/utils.
	MaxConns        int           `split_words:"true"`
	MaxIdleConns    int           `split_words:"true"`
	ConnMaxLifetime time.Duration `split_words:"true"`
}

// RedisConfig is optional. When Host is empty the login limiter is disabled.
type RedisConfig struct {
	Host string
	Port int `default:"6379"`
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration `default:"168h"`

	// Leeway is the clock-skew tolerance handed to the jwt validator.
	Leeway time.Duration
}

type LoginConfig struct {
	MaxAttempts   int           `split_words:"true" default:"5"`
	AttemptWindow time.Duration `split_words:"true" default:"15m"`
}

const minProductionSecretLen = 32

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config parse: %w", err)
	}
	c.App.Env = strings.TrimSpace(c.App.Env)
	c.Postgres.Host = strings.TrimSpace(c.Postgres.Host)
	c.Postgres.User = strings.TrimSpace(c.Postgres.User)
	c.Postgres.DB = strings.TrimSpace(c.Postgres.DB)
	c.Postgres.SSLMode = strings.TrimSpace(c.Postgres.SSLMode)
	c.Redis.Host = strings.TrimSpace(c.Redis.Host)
	c.JWT.Issuer = strings.TrimSpace(c.JWT.Issuer)
	c.JWT.Audience = strings.TrimSpace(c.JWT.Audience)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadAuth reads only the JWT_* settings. Tools that sign tokens without
// serving requests use it instead of Load.
func LoadAuth() (AuthConfig, error) {
	var a AuthConfig
	if err := envconfig.Process("JWT", &a); err != nil {
		return AuthConfig{}, fmt.Errorf("config parse: %w", err)
	}
	a.Issuer = strings.TrimSpace(a.Issuer)
	a.Audience = strings.TrimSpace(a.Audience)
	if a.Secret == "" {
		return AuthConfig{}, errors.New("JWT_SECRET is required")
	}
	if a.TTL <= 0 {
		a.TTL = 7 * 24 * time.Hour
	}
	return a, nil
}

// Validate reports every problem at once and fills environment-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Postgres.Host == "" {
		errs = append(errs, errors.New("POSTGRES_HOST is required"))
	}
	if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
		errs = append(errs, fmt.Errorf("POSTGRES_PORT must be a valid port, got %d", c.Postgres.Port))
	}
	if c.Postgres.User == "" {
		errs = append(errs, errors.New("POSTGRES_USER is required"))
	}
	if c.Postgres.DB == "" {
		errs = append(errs, errors.New("POSTGRES_DB is required"))
	}
	if c.Postgres.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("POSTGRES_SSLMODE is required in production"))
		} else {
			c.Postgres.SSLMode = "disable"
		}
	}
	if c.Postgres.SSLMode != "" && !isValidSSLMode(c.Postgres.SSLMode) {
		errs = append(errs, fmt.Errorf("POSTGRES_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.Postgres.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	// No fallback secret: a missing signing key stops startup.
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.JWT.Secret) < minProductionSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLen))
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = 7 * 24 * time.Hour
	}
	if c.JWT.Leeway < 0 {
		errs = append(errs, errors.New("JWT_LEEWAY must not be negative"))
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}

	if c.Login.MaxAttempts <= 0 {
		c.Login.MaxAttempts = 5
	}
	if c.Login.AttemptWindow <= 0 {
		c.Login.AttemptWindow = 15 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.DB,
		c.Postgres.SSLMode,
	)
}

// RedisAddr returns "" when Redis is not configured.
func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}

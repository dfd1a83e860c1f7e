package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retention RetentionConfig `yaml:"retention"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Issuer                string `yaml:"issuer"`
	Audience              string `yaml:"audience"`
	Secret                string `yaml:"secret"`
	RefreshSecret         string `yaml:"refresh_secret"`
	ExpirationMinutes     int    `yaml:"expiration_minutes"`
	RefreshExpirationDays int    `yaml:"refresh_expiration_days"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RetentionConfig controls the purge of long-expired, already-revoked
// refresh token records. Active lineage is never touched.
type RetentionConfig struct {
	Schedule        string `yaml:"schedule"` // cron expression
	RefreshTokenAge int    `yaml:"refresh_token_age_days"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j *JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (j *JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshExpirationDays) * 24 * time.Hour
}

var (
	ErrMissingSecret = errors.New("jwt secret and refresh secret must be set")
	ErrSameSecret    = errors.New("jwt refresh secret must differ from the access secret")
)

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := Default()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "invoicemenecer.db",
		},
		JWT: JWTConfig{
			Issuer:                "invoicemenecer-api",
			Audience:              "invoicemenecer-client",
			ExpirationMinutes:     15,
			RefreshExpirationDays: 7,
		},
		Log: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
		Retention: RetentionConfig{
			Schedule:        "0 3 * * *",
			RefreshTokenAge: 30,
		},
	}
}

// Validate rejects configurations that would weaken token isolation: both
// secrets must be present, and signing refresh tokens with the access secret
// would let a holder of either token forge the other.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" || c.JWT.RefreshSecret == "" {
		return ErrMissingSecret
	}
	if c.JWT.Secret == c.JWT.RefreshSecret {
		return ErrSameSecret
	}
	return nil
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		c.JWT.Issuer = issuer
	}
	if audience := os.Getenv("JWT_AUDIENCE"); audience != "" {
		c.JWT.Audience = audience
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if secret := os.Getenv("JWT_REFRESH_SECRET"); secret != "" {
		c.JWT.RefreshSecret = secret
	}
	if minutes := os.Getenv("JWT_EXPIRATION_MINUTES"); minutes != "" {
		if v, err := strconv.Atoi(minutes); err == nil && v > 0 {
			c.JWT.ExpirationMinutes = v
		}
	}
	if days := os.Getenv("JWT_REFRESH_EXPIRATION_DAYS"); days != "" {
		if v, err := strconv.Atoi(days); err == nil && v > 0 {
			c.JWT.RefreshExpirationDays = v
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

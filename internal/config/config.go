package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	sorterr "sortmemo/internal/errors"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

// DefaultJWTSecret is the placeholder signing secret shipped in the defaults.
const DefaultJWTSecret = "change-this-secret"

type Config struct {
	ListenAddr        string
	StoreMode         string
	DatabaseURL       string
	SQLitePath        string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisKeyPrefix    string
	AdminUsername     string
	AdminPassword     string
	AdminUsers        map[string]string
	JWTSecret         string
	SessionTTL        time.Duration
	ResetTokenSecret  string
	ResetTokenTTL     time.Duration
	ListPath          string
	WebhookURL        string
	WebhookTimeout    time.Duration
	WebhookMaxRetries int
	WebhookRetryBase  time.Duration
	WebhookRetryMax   time.Duration
	LogLevel          string
	LogFormat         string
}

// SetDefaults registers the fallback value of every setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("LISTEN_ADDR", ":18080")
	v.SetDefault("STORE_MODE", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "sortmemo.db")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "sortmemo:")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "change-me")
	v.SetDefault("ADMIN_USERS", "")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("RESET_TOKEN_SECRET", "")
	v.SetDefault("RESET_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("LIST_PATH", "/wp-admin/edit.php")
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_TIMEOUT", 5*time.Second)
	v.SetDefault("WEBHOOK_MAX_RETRIES", 3)
	v.SetDefault("WEBHOOK_RETRY_BASE", 500*time.Millisecond)
	v.SetDefault("WEBHOOK_RETRY_MAX", 5*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads configuration from the process environment, falling back to the
// .env-style file at dotenvPath and then to defaults. A missing file is not
// an error. Existing environment variables always win over the file.
func Load(dotenvPath string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			v.SetConfigFile(dotenvPath)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, sorterr.Wrap(err, sorterr.CodeConfigInvalid, "read "+dotenvPath)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, sorterr.Wrap(err, sorterr.CodeConfigInvalid, "stat "+dotenvPath)
		}
	}

	cfg := FromViper(v)
	if errs := cfg.Validate(); len(errs) > 0 {
		return Config{}, sorterr.Wrap(errors.Join(errs...), sorterr.CodeConfigInvalid, "validate config")
	}
	return cfg, nil
}

func FromViper(v *viper.Viper) Config {
	cfg := Config{
		ListenAddr:        v.GetString("LISTEN_ADDR"),
		StoreMode:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_MODE"))),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		SQLitePath:        v.GetString("SQLITE_PATH"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
		RedisKeyPrefix:    v.GetString("REDIS_KEY_PREFIX"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		SessionTTL:        getDuration(v, "SESSION_TTL", 12*time.Hour),
		ResetTokenSecret:  v.GetString("RESET_TOKEN_SECRET"),
		ResetTokenTTL:     getDuration(v, "RESET_TOKEN_TTL", 24*time.Hour),
		ListPath:          v.GetString("LIST_PATH"),
		WebhookURL:        v.GetString("WEBHOOK_URL"),
		WebhookTimeout:    getDuration(v, "WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries: v.GetInt("WEBHOOK_MAX_RETRIES"),
		WebhookRetryBase:  getDuration(v, "WEBHOOK_RETRY_BASE", 500*time.Millisecond),
		WebhookRetryMax:   getDuration(v, "WEBHOOK_RETRY_MAX", 5*time.Second),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
	}
	if cfg.ResetTokenSecret == "" {
		cfg.ResetTokenSecret = cfg.JWTSecret
	}
	cfg.AdminUsers = parseUsers(v.GetString("ADMIN_USERS"))
	if cfg.AdminUsername != "" {
		cfg.AdminUsers[cfg.AdminUsername] = cfg.AdminPassword
	}
	return cfg
}

// InsecureSecrets names the signing secrets still set to the shipped default.
func (c Config) InsecureSecrets() []string {
	var names []string
	if c.JWTSecret == DefaultJWTSecret {
		names = append(names, "JWT_SECRET")
	}
	if c.ResetTokenSecret == DefaultJWTSecret {
		names = append(names, "RESET_TOKEN_SECRET")
	}
	return names
}

// Validate returns every problem found rather than stopping at the first.
func (c Config) Validate() []error {
	var errs []error
	switch c.StoreMode {
	case StoreMemory, StorePostgres, StoreSQLite, StoreRedis:
	default:
		errs = append(errs, sorterr.Errorf(sorterr.CodeConfigInvalid,
			"STORE_MODE must be one of [memory, postgres, sqlite, redis], got %q", c.StoreMode))
	}
	if c.JWTSecret == "" {
		errs = append(errs, sorterr.New(sorterr.CodeConfigInvalid, "JWT_SECRET must not be empty"))
	}
	if c.ListPath == "" {
		errs = append(errs, sorterr.New(sorterr.CodeConfigInvalid, "LIST_PATH must not be empty"))
	}
	if len(c.AdminUsers) == 0 {
		errs = append(errs, sorterr.New(sorterr.CodeConfigInvalid, "at least one admin user is required"))
	}
	return errs
}

func getDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}

// parseUsers reads "name:password" pairs separated by commas.
func parseUsers(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = password
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every process-wide setting. It is loaded once in main and passed by
// reference to the components that need it.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Mail     MailConfig
	Storage  StorageConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Mode           string   `mapstructure:"mode"`
}

// DatabaseConfig holds the PostgreSQL connection. URL wins over the discrete fields.
type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig holds Redis connection settings. Mode is "single", "sentinel" or "cluster".
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	KeyPrefix  string   `mapstructure:"key_prefix"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// Enabled reports whether any Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// JWTConfig holds identity token settings.
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expiration_hrs"`
}

// AuthConfig holds account lifecycle settings.
type AuthConfig struct {
	BcryptCost          int    `mapstructure:"bcrypt_cost"`
	CodeWindowMinutes   int    `mapstructure:"code_window_minutes"`
	CodeCleanupSchedule string `mapstructure:"code_cleanup_schedule"`
	MailTimeoutSec      int    `mapstructure:"mail_timeout_sec"`
}

// MailConfig holds the outbound mail provider credentials.
type MailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	ProductName  string `mapstructure:"product_name"`
}

// Enabled reports whether real mail delivery is configured.
func (m MailConfig) Enabled() bool {
	return m.ResendAPIKey != "" && m.From != ""
}

// StorageConfig holds the S3 compatible object store settings.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// PostgresConnectionString returns the DSN for PostgreSQL.
func (d *DatabaseConfig) PostgresConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// TokenTTL is the identity token validity window.
func (j JWTConfig) TokenTTL() time.Duration {
	return time.Duration(j.ExpirationHrs) * time.Hour
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "4000")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 30)
	vip.SetDefault("server.allowed_origins", []string{"*"})
	vip.SetDefault("server.mode", "debug")

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "file://migrations")

	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.key_prefix", "spots:")

	vip.SetDefault("jwt.expiration_hrs", 30*24)

	vip.SetDefault("auth.bcrypt_cost", 10)
	vip.SetDefault("auth.code_window_minutes", 5)
	vip.SetDefault("auth.code_cleanup_schedule", "@every 10m")
	vip.SetDefault("auth.mail_timeout_sec", 20)

	vip.SetDefault("mail.product_name", "Petra")

	vip.SetDefault("storage.region", "us-east-1")

	vip.SetDefault("log.level", "info")
}

var envBindings = map[string]string{
	"server.port":            "SERVER_PORT",
	"server.mode":            "GIN_MODE",
	"server.allowed_origins": "SERVER_ALLOWED_ORIGINS",

	"database.url":             "DATABASE_URL",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.dbname":          "DATABASE_DBNAME",
	"database.sslmode":         "DATABASE_SSLMODE",
	"database.migrations_path": "DATABASE_MIGRATIONS_PATH",

	"redis.mode":        "REDIS_MODE",
	"redis.addrs":       "REDIS_ADDRS",
	"redis.addr":        "REDIS_ADDR",
	"redis.password":    "REDIS_PASSWORD",
	"redis.db":          "REDIS_DB",
	"redis.master_name": "REDIS_MASTER_NAME",
	"redis.key_prefix":  "REDIS_KEY_PREFIX",

	"jwt.secret":         "JWT_SECRET",
	"jwt.expiration_hrs": "JWT_EXPIRATION_HRS",

	"auth.bcrypt_cost":           "AUTH_BCRYPT_COST",
	"auth.code_window_minutes":   "AUTH_CODE_WINDOW_MINUTES",
	"auth.code_cleanup_schedule": "AUTH_CODE_CLEANUP_SCHEDULE",

	"mail.resend_api_key": "RESEND_API_KEY",
	"mail.from":           "MAIL_FROM",
	"mail.product_name":   "MAIL_PRODUCT_NAME",

	"storage.endpoint":          "STORAGE_ENDPOINT",
	"storage.region":            "STORAGE_REGION",
	"storage.access_key_id":     "STORAGE_ACCESS_KEY_ID",
	"storage.secret_access_key": "STORAGE_SECRET_ACCESS_KEY",
	"storage.bucket":            "STORAGE_BUCKET",
	"storage.public_base_url":   "STORAGE_PUBLIC_BASE_URL",

	"log.level":       "LOG_LEVEL",
	"log.development": "LOG_DEVELOPMENT",
}

// Load reads configuration from the optional file at configPath and from the
// environment; the environment wins.
func Load(configPath string) (*Config, error) {
	vip := viper.New()
	setDefaults(vip)

	for key, env := range envBindings {
		if err := vip.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings without which the process cannot serve requests.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("jwt secret is required (check JWT_SECRET env var)")
	}
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "") {
		return fmt.Errorf("database configuration (url, or host, dbname, user) is incomplete (check DATABASE_URL or DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Auth.CodeWindowMinutes <= 0 {
		return fmt.Errorf("auth code window must be positive, got %d", c.Auth.CodeWindowMinutes)
	}
	return nil
}

// isNotFound treats a missing file as "use env and defaults only".
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// splitList expands comma separated entries coming from a single env var.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

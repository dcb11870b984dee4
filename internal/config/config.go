// Package config handles application configuration and environment loading.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then the process environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	devJWTSecret  = "dev-secret-change-in-production"
	devSessionKey = "dev-session-key-change-in-production"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	BaseURL     string `yaml:"base_url"`     // public URL of this server, used for OAuth callbacks
	FrontendURL string `yaml:"frontend_url"` // where to send the browser after sign-in
	StaticPath  string `yaml:"static_path"`

	StorageDriver string `yaml:"storage_driver"` // sqlite or mongo
	DBPath        string `yaml:"db_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	SessionKey string        `yaml:"session_key"`

	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text or json

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	JoinCodeMaxAttempts int     `yaml:"join_code_max_attempts"`
	JoinRateLimitRPS    float64 `yaml:"join_rate_limit_rps"`
	JoinRateLimitBurst  int     `yaml:"join_rate_limit_burst"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// Default returns the built-in defaults, suitable for local development.
func Default() *Config {
	return &Config{
		ListenAddr:          ":8080",
		BaseURL:             "http://localhost:8080",
		FrontendURL:         "/",
		StaticPath:          "./static",
		StorageDriver:       DriverSQLite,
		DBPath:              "./data/tripsplit.db",
		MongoDatabase:       "tripsplit",
		JWTSecret:           devJWTSecret,
		TokenTTL:            7 * 24 * time.Hour,
		SessionKey:          devSessionKey,
		LogLevel:            "info",
		LogFormat:           "text",
		CORSAllowedOrigins:  []string{"*"},
		JoinCodeMaxAttempts: 20,
		JoinRateLimitRPS:    1,
		JoinRateLimitBurst:  5,
	}
}

// Load builds the configuration. path names an optional YAML file; a .env
// file in the working directory is read when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == devJWTSecret {
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using the development secret")
	}
	if cfg.SessionKey == devSessionKey {
		cfg.Warnings = append(cfg.Warnings, "SESSION_KEY not set, using the development key")
	}
	if !cfg.GoogleEnabled() {
		cfg.Warnings = append(cfg.Warnings, "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google sign-in disabled")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("LISTEN_ADDR", &c.ListenAddr)
	setString("BASE_URL", &c.BaseURL)
	setString("FRONTEND_URL", &c.FrontendURL)
	setString("STATIC_PATH", &c.StaticPath)
	setString("STORAGE_DRIVER", &c.StorageDriver)
	setString("DB_PATH", &c.DBPath)
	setString("MONGO_URI", &c.MongoURI)
	setString("MONGO_DATABASE", &c.MongoDatabase)
	setString("JWT_SECRET", &c.JWTSecret)
	setString("SESSION_KEY", &c.SessionKey)
	setString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	setString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.TokenTTL = d
	}
	if v := os.Getenv("JOIN_CODE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JOIN_CODE_MAX_ATTEMPTS: %w", err)
		}
		c.JoinCodeMaxAttempts = n
	}
	if v := os.Getenv("JOIN_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("JOIN_RATE_LIMIT_RPS: %w", err)
		}
		c.JoinRateLimitRPS = f
	}
	if v := os.Getenv("JOIN_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JOIN_RATE_LIMIT_BURST: %w", err)
		}
		c.JoinRateLimitBurst = n
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		c.CORSAllowedOrigins = origins
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, DriverSQLite, DriverMongo)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if len(c.SessionKey) < 32 {
		return fmt.Errorf("SESSION_KEY must be at least 32 characters")
	}
	if c.JoinCodeMaxAttempts <= 0 {
		return fmt.Errorf("JOIN_CODE_MAX_ATTEMPTS must be positive")
	}
	if c.JoinRateLimitRPS <= 0 || c.JoinRateLimitBurst <= 0 {
		return fmt.Errorf("JOIN_RATE_LIMIT_RPS and JOIN_RATE_LIMIT_BURST must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SecureCookies reports whether the server is reached over HTTPS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

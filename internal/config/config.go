// Package config loads the server configuration.
//
// SOURCES, lowest to highest precedence:
//  1. defaults (setDefaults)
//  2. an optional config.yaml
//  3. environment variables: EDUBLOG_ + the key path with "." → "_",
//     e.g. EDUBLOG_SERVER_PORT or EDUBLOG_AUTH_JWTSECRET
//
// The plain PORT, JWT_SECRET and DB_PATH variables are still honoured so
// existing deployment scripts keep working.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the shortest JWT signing secret Validate accepts.
const MinSecretLength = 16

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig points at the SQLite file. ":memory:" is accepted and
// gives a throwaway database, which is what the tests use.
type DatabaseConfig struct {
	Path string
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	Issuer     string
	BcryptCost int
}

// CORSConfig lists the origins the browser frontend is served from.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the slog level (debug, info, warn, error) and handler
// format (text or json).
type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads the configuration (see Read) and validates it.
func Load(dir string) (*Config, error) {
	cfg, err := Read(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges defaults, an optional config.yaml found in dir (or ".", or
// "./config") and the environment, without validating the result. Tools
// that need only part of the configuration, like cmd/migrate, use it
// directly.
func Read(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("EDUBLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy names. BindEnv checks the variables in order, so the prefixed
	// form wins when both are set.
	legacy := map[string]string{
		"server.port":    "PORT",
		"auth.jwtSecret": "JWT_SECRET",
		"database.path":  "DB_PATH",
	}
	for key, env := range legacy {
		prefixed := "EDUBLOG_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.idleTimeout", "60s")
	v.SetDefault("server.shutdownTimeout", "30s")

	v.SetDefault("database.path", "data/edublog.db")

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", "24h")
	v.SetDefault("auth.issuer", "edublog")
	v.SetDefault("auth.bcryptCost", 12)

	v.SetDefault("cors.allowedOrigins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("config: server.port %d is outside 1-65535", c.Server.Port)
	case c.Database.Path == "":
		return errors.New("config: database.path is required")
	case c.Auth.JWTSecret == "":
		return errors.New("config: auth.jwtSecret is required (set EDUBLOG_AUTH_JWTSECRET or JWT_SECRET)")
	case len(c.Auth.JWTSecret) < MinSecretLength:
		return fmt.Errorf("config: auth.jwtSecret must be at least %d characters", MinSecretLength)
	case c.Auth.TokenTTL <= 0:
		return errors.New("config: auth.tokenTTL must be positive")
	case c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("config: auth.bcryptCost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	case c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/"):
		return errors.New("config: metrics.path must start with /")
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q must be text or json", c.Log.Format)
	}

	return nil
}

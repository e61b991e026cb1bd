// Package settings loads authguard server settings from an optional .env
// file, an optional YAML file and the environment, using Viper.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/authguard"
	"github.com/spf13/viper"
)

// Settings holds process configuration. Keys may come from .env, YAML or
// the environment; the environment wins.
type Settings struct {
	Env      string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	SigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	CipherKey  string `mapstructure:"AUTH_CIPHER_KEY"`
	AccessTTL  string `mapstructure:"AUTH_ACCESS_TTL"`
	RefreshTTL string `mapstructure:"AUTH_REFRESH_TTL"`
	// Users seeds the demo user provider as id:identifier:password entries
	// separated by commas.
	Users string `mapstructure:"AUTH_USERS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"AUTH_REDIS_PREFIX"`

	MaxLoginAttempts int  `mapstructure:"AUTH_MAX_LOGIN_ATTEMPTS"`
	AuditEnabled     bool `mapstructure:"AUTH_AUDIT_ENABLED"`

	LogDir   string `mapstructure:"LOG_DIR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// SeedUser is one entry of AUTH_USERS.
type SeedUser struct {
	ID         string
	Identifier string
	Password   string
}

// Options points Load at its files. Missing files are ignored.
type Options struct {
	EnvFile    string
	ConfigFile string
}

const productionEnv = "production"

// Load reads .env from the working directory plus the YAML file named by
// AUTH_CONFIG_FILE, if any.
func Load() (*Settings, error) {
	return LoadWith(Options{EnvFile: ".env", ConfigFile: os.Getenv("AUTH_CONFIG_FILE")})
}

// LoadWith is Load with explicit file locations.
func LoadWith(opts Options) (*Settings, error) {
	v := viper.New()

	if opts.EnvFile != "" {
		v.SetConfigFile(opts.EnvFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("settings: read %s: %w", opts.ConfigFile, err)
		}
	}

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("AUTH_SIGNING_KEY", "")
	v.SetDefault("AUTH_CIPHER_KEY", "")
	v.SetDefault("AUTH_ACCESS_TTL", "15m")
	v.SetDefault("AUTH_REFRESH_TTL", "720h")
	v.SetDefault("AUTH_USERS", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AUTH_REDIS_PREFIX", "USER")
	v.SetDefault("AUTH_MAX_LOGIN_ATTEMPTS", 5)
	v.SetDefault("AUTH_AUDIT_ENABLED", false)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("LOG_LEVEL", "info")

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}

	if s.HTTPAddr == "" {
		return nil, errors.New("settings: HTTP_ADDR must be set")
	}
	if s.Production() {
		if s.SigningKey == "" {
			return nil, errors.New("settings: AUTH_SIGNING_KEY is required when APP_ENV=production")
		}
		if s.CipherKey == "" {
			return nil, errors.New("settings: AUTH_CIPHER_KEY is required when APP_ENV=production")
		}
		if s.RedisAddr == "" {
			return nil, errors.New("settings: REDIS_ADDR is required when APP_ENV=production")
		}
	}
	if _, err := s.SeedUsers(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Production reports whether APP_ENV is production.
func (s *Settings) Production() bool {
	return strings.EqualFold(s.Env, productionEnv)
}

// AuthConfig builds the engine configuration. Empty keys are left empty
// for the caller to fill in development mode.
func (s *Settings) AuthConfig() (authguard.Config, error) {
	cfg := authguard.DefaultConfig()

	access, err := time.ParseDuration(s.AccessTTL)
	if err != nil {
		return cfg, fmt.Errorf("settings: AUTH_ACCESS_TTL: %w", err)
	}
	refresh, err := time.ParseDuration(s.RefreshTTL)
	if err != nil {
		return cfg, fmt.Errorf("settings: AUTH_REFRESH_TTL: %w", err)
	}

	cfg.JWT.SigningKey = []byte(s.SigningKey)
	cfg.JWT.AccessTTL = access
	cfg.JWT.RefreshTTL = refresh
	cfg.Cipher.Key = s.CipherKey
	cfg.Session.RedisPrefix = s.RedisPrefix
	cfg.Security.MaxLoginAttempts = s.MaxLoginAttempts
	cfg.Audit.Enabled = s.AuditEnabled
	return cfg, nil
}

// SeedUsers parses AUTH_USERS.
func (s *Settings) SeedUsers() ([]SeedUser, error) {
	if strings.TrimSpace(s.Users) == "" {
		return nil, nil
	}

	var out []SeedUser
	for _, entry := range strings.Split(s.Users, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("settings: AUTH_USERS entry %q must be id:identifier:password", entry)
		}
		out = append(out, SeedUser{ID: parts[0], Identifier: parts[1], Password: parts[2]})
	}
	return out, nil
}

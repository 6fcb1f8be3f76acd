// Package config loads linkdash settings from defaults, an optional TOML
// file, LINKDASH_* environment variables and command-line flags.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvProduction enables secure cookies and strict validation.
const EnvProduction = "production"

// CSRFKeyLength is the decoded length of csrf_key.
const CSRFKeyLength = 32

var (
	ErrCSRFKeyRequired      = errors.New("csrf_key is required in production")
	ErrCSRFKeyInvalid       = fmt.Errorf("csrf_key must be %d hex-encoded bytes", CSRFKeyLength)
	ErrInvalidLogLevel      = errors.New("log_level must be one of: debug, info, warn, error")
	ErrAdminRequired        = errors.New("admin.email and admin.password are required")
	ErrPersistentDBRequired = errors.New("db.path must name a file in production")
)

// Config holds application configuration.
type Config struct {
	Env                string        `mapstructure:"env"`
	Addr               string        `mapstructure:"addr"`
	LogLevel           string        `mapstructure:"log_level"`
	CSRFKey            string        `mapstructure:"csrf_key"`
	RateLimitPerSecond int           `mapstructure:"rate_limit_per_second"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	DB                 DBConfig      `mapstructure:"db"`
	Admin              AdminConfig   `mapstructure:"admin"`
	Email              EmailConfig   `mapstructure:"email"`
	Perf               PerfConfig    `mapstructure:"perf"`
	List               ListConfig    `mapstructure:"list"`
}

// MemoryDBPath is the default db.path: a private in-memory database.
const MemoryDBPath = ":memory:"

// DBConfig holds sqlite settings.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// InMemory reports whether the database lives only for the life of the process.
func (d DBConfig) InMemory() bool {
	return d.Path == MemoryDBPath
}

// AdminConfig names the super admin created by the seed command.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// EmailConfig holds Resend settings. An empty ResendKey selects the noop sender.
type EmailConfig struct {
	ResendKey string `mapstructure:"resend_key"`
	From      string `mapstructure:"from"`
	ReplyTo   string `mapstructure:"reply_to"`
}

// PerfConfig holds slow-operation thresholds in milliseconds.
type PerfConfig struct {
	SlowQueryMs   int `mapstructure:"slow_query_ms"`
	SlowRequestMs int `mapstructure:"slow_request_ms"`
	RingSize      int `mapstructure:"ring_size"`
}

// ListConfig tunes admin list views.
type ListConfig struct {
	SearchDebounceMs int `mapstructure:"search_debounce_ms"`
	PerPage          int `mapstructure:"per_page"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"addr":      "addr",
	"db":        "db.path",
	"log-level": "log_level",
	"env":       "env",
}

// Load reads configuration. Env var overrides use prefix LINKDASH_, with dots
// replaced by underscores (LINKDASH_DB_PATH). flags may be nil; set flags win
// over every other source.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("csrf_key", "")
	v.SetDefault("rate_limit_per_second", 10)
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("db.path", MemoryDBPath)
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("email.resend_key", "")
	v.SetDefault("email.from", "Linkdash <payouts@linkdash.test>")
	v.SetDefault("email.reply_to", "")
	v.SetDefault("perf.slow_query_ms", 50)
	v.SetDefault("perf.slow_request_ms", 200)
	v.SetDefault("perf.ring_size", 10000)
	v.SetDefault("list.search_debounce_ms", 300)
	v.SetDefault("list.per_page", 20)

	v.SetConfigType("toml")
	if path := os.Getenv("LINKDASH_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("linkdash")
	}

	v.SetEnvPrefix("LINKDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// IsProduction reports whether Env is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks settings that would otherwise fail at first use.
// PRE: none
// POST: returns nil if the server can start with c
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.IsProduction() && c.CSRFKey == "" {
		return ErrCSRFKeyRequired
	}
	if c.IsProduction() && c.DB.InMemory() {
		return ErrPersistentDBRequired
	}
	if c.CSRFKey != "" {
		if _, err := decodeKey(c.CSRFKey); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAdmin checks the seed credentials are present.
func (c Config) ValidateAdmin() error {
	if c.Admin.Email == "" || c.Admin.Password == "" {
		return ErrAdminRequired
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, ErrInvalidLogLevel
	}
	return l, nil
}

// CSRFKeyBytes decodes CSRFKey. Outside production an empty key yields a
// random one, so sessions and tokens do not survive a restart.
func (c Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey == "" {
		if c.IsProduction() {
			return nil, ErrCSRFKeyRequired
		}
		key := make([]byte, CSRFKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		return key, nil
	}
	return decodeKey(c.CSRFKey)
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != CSRFKeyLength {
		return nil, ErrCSRFKeyInvalid
	}
	return key, nil
}

// SearchDelay returns the list search debounce as a duration.
func (c Config) SearchDelay() time.Duration {
	return time.Duration(c.List.SearchDebounceMs) * time.Millisecond
}

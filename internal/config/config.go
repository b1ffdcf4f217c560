// Package config loads process settings for the gosession binary.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, a .env file and the process environment, then command-line
// flags that were explicitly set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
)

// Config is the flattened process configuration. Keys double as flag names
// and YAML keys.
type Config struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	Dev  bool   `koanf:"dev"`

	RedisAddr     string `koanf:"redis-addr"`
	RedisPassword string `koanf:"redis-password"`
	RedisDB       int    `koanf:"redis-db"`
	DatabaseURL   string `koanf:"database-url"`

	SessionSecret       string        `koanf:"session-secret"`
	SessionLifetime     time.Duration `koanf:"session-lifetime"`
	PendingTTL          time.Duration `koanf:"pending-ttl"`
	RenewOnAuthenticate bool          `koanf:"renew-on-authenticate"`
	CookieName          string        `koanf:"cookie-name"`
	CookieDomain        string        `koanf:"cookie-domain"`
	CookieSecure        bool          `koanf:"cookie-secure"`

	PasswordAlgorithm   string `koanf:"password-algorithm"`
	BcryptCost          int    `koanf:"bcrypt-cost"`
	MaxConcurrentHashes int    `koanf:"max-concurrent-hashes"`

	MetricsEnabled bool `koanf:"metrics-enabled"`

	LogLevel string `koanf:"log-level"`
	LogFile  string `koanf:"log-file"`
}

// Defaults mirrors goSession.DefaultConfig plus the HTTP listener.
func Defaults() Config {
	engine := goSession.DefaultConfig()
	return Config{
		Port:                5000,
		RedisAddr:           "localhost:6379",
		SessionLifetime:     engine.Session.Lifetime,
		PendingTTL:          engine.Session.PendingTTL,
		RenewOnAuthenticate: engine.Session.RenewOnAuthenticate,
		CookieName:          engine.Cookie.Name,
		CookieSecure:        engine.Cookie.Secure,
		PasswordAlgorithm:   engine.Password.Algorithm,
		BcryptCost:          engine.Password.BcryptCost,
		MetricsEnabled:      engine.Metrics.Enabled,
	}
}

// envKeys maps environment variables to config keys. Several names may
// feed one key; the first non-empty one in this list wins.
var envKeys = []struct {
	env string
	key string
}{
	{"PORT", "port"},
	{"HOST", "host"},
	{"GOSESSION_DEV", "dev"},
	{"REDIS_ADDR", "redis-addr"},
	{"REDIS_PASSWORD", "redis-password"},
	{"REDIS_DB", "redis-db"},
	{"DATABASE_URL", "database-url"},
	{"SESSION_SECRET", "session-secret"},
	{"NODE_SESSION_SECRET", "session-secret"},
	{"SESSION_LIFETIME", "session-lifetime"},
	{"SESSION_PENDING_TTL", "pending-ttl"},
	{"SESSION_RENEW", "renew-on-authenticate"},
	{"COOKIE_NAME", "cookie-name"},
	{"COOKIE_DOMAIN", "cookie-domain"},
	{"COOKIE_SECURE", "cookie-secure"},
	{"PASSWORD_ALGORITHM", "password-algorithm"},
	{"BCRYPT_COST", "bcrypt-cost"},
	{"MAX_CONCURRENT_HASHES", "max-concurrent-hashes"},
	{"METRICS_ENABLED", "metrics-enabled"},
	{"LOG_LEVEL", "log-level"},
	{"LOG_FILE", "log-file"},
}

// RegisterFlags defines one flag per config key on flags, defaulted from
// Defaults. Only flags the user sets override other sources.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("config", "", "path to a YAML config file")
	flags.String("env-file", ".env", "path to a .env file, ignored when missing")

	flags.String("host", d.Host, "listen host")
	flags.Int("port", d.Port, "listen port")
	flags.Bool("dev", d.Dev, "development mode: in-memory Redis and credential store, debug logs")
	flags.String("redis-addr", d.RedisAddr, "Redis address")
	flags.String("redis-password", d.RedisPassword, "Redis password")
	flags.Int("redis-db", d.RedisDB, "Redis database number")
	flags.String("database-url", d.DatabaseURL, "PostgreSQL connection URL")
	flags.String("session-secret", d.SessionSecret, "cookie signing secret, at least 32 bytes")
	flags.Duration("session-lifetime", d.SessionLifetime, "authenticated session lifetime")
	flags.Duration("pending-ttl", d.PendingTTL, "anonymous and recovery session lifetime")
	flags.Bool("renew-on-authenticate", d.RenewOnAuthenticate, "issue a fresh session token on login and signup")
	flags.String("cookie-name", d.CookieName, "session cookie name")
	flags.String("cookie-domain", d.CookieDomain, "session cookie domain")
	flags.Bool("cookie-secure", d.CookieSecure, "mark the session cookie Secure")
	flags.String("password-algorithm", d.PasswordAlgorithm, "bcrypt or argon2id")
	flags.Int("bcrypt-cost", d.BcryptCost, "bcrypt cost factor")
	flags.Int("max-concurrent-hashes", d.MaxConcurrentHashes, "bound on concurrent hash operations, 0 for GOMAXPROCS")
	flags.Bool("metrics-enabled", d.MetricsEnabled, "expose /metrics")
	flags.String("log-level", d.LogLevel, "debug, info, warn or error")
	flags.String("log-file", d.LogFile, "also write JSON logs to this rotated file")
}

// Options tells Load where to look.
type Options struct {
	// File is a YAML file. Empty skips it; a named file that does not exist
	// is an error.
	File string
	// EnvFile is a .env file. A missing file is ignored.
	EnvFile string
	Flags   *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load merges every source into a Config.
func Load(opts Options) (Config, error) {
	k := koanf.New(".")

	for key, val := range defaultValues() {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("config: set default %s: %w", key, err)
		}
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", opts.File, err)
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.EnvFile, err)
		}
		getenv = layeredEnv(getenv, dotenv)
	}

	seen := make(map[string]bool, len(envKeys))
	for _, e := range envKeys {
		if seen[e.key] {
			continue
		}
		if v := strings.TrimSpace(getenv(e.env)); v != "" {
			if err := k.Set(e.key, v); err != nil {
				return Config{}, fmt.Errorf("config: set %s from %s: %w", e.key, e.env, err)
			}
			seen[e.key] = true
		}
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.Provider(opts.Flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// layeredEnv prefers the real environment over values from a .env file.
func layeredEnv(getenv func(string) string, dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
}

func defaultValues() map[string]any {
	d := Defaults()
	return map[string]any{
		"host":                  d.Host,
		"port":                  d.Port,
		"dev":                   d.Dev,
		"redis-addr":            d.RedisAddr,
		"redis-password":        d.RedisPassword,
		"redis-db":              d.RedisDB,
		"database-url":          d.DatabaseURL,
		"session-secret":        d.SessionSecret,
		"session-lifetime":      d.SessionLifetime,
		"pending-ttl":           d.PendingTTL,
		"renew-on-authenticate": d.RenewOnAuthenticate,
		"cookie-name":           d.CookieName,
		"cookie-domain":         d.CookieDomain,
		"cookie-secure":         d.CookieSecure,
		"password-algorithm":    d.PasswordAlgorithm,
		"bcrypt-cost":           d.BcryptCost,
		"max-concurrent-hashes": d.MaxConcurrentHashes,
		"metrics-enabled":       d.MetricsEnabled,
		"log-level":             d.LogLevel,
		"log-file":              d.LogFile,
	}
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Engine maps c onto an engine configuration and validates it.
func (c Config) Engine() (goSession.Config, error) {
	out := goSession.DefaultConfig()
	out.Session.Lifetime = c.SessionLifetime
	out.Session.PendingTTL = c.PendingTTL
	out.Session.RenewOnAuthenticate = c.RenewOnAuthenticate
	out.Cookie.Name = c.CookieName
	out.Cookie.Domain = c.CookieDomain
	out.Cookie.Secure = c.CookieSecure
	out.Cookie.Secret = []byte(c.SessionSecret)
	out.Password.Algorithm = c.PasswordAlgorithm
	out.Password.BcryptCost = c.BcryptCost
	out.Password.MaxConcurrentHashes = c.MaxConcurrentHashes
	out.Metrics.Enabled = c.MetricsEnabled

	if err := out.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("config: %w", err)
	}
	return out, nil
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{
		Development: c.Dev,
		Level:       c.LogLevel,
		File:        c.LogFile,
		Compress:    true,
	}
}

package goSession

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/password"
	"golang.org/x/crypto/bcrypt"
)

// Config holds engine settings. Start from DefaultConfig and override.
type Config struct {
	Session  SessionConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetimes.
type SessionConfig struct {
	RedisPrefix string
	// Lifetime is the absolute expiry set on signup and login.
	Lifetime time.Duration
	// PendingTTL bounds how long anonymous and recovery sessions live in
	// the store.
	PendingTTL time.Duration
	// RenewOnAuthenticate mints a fresh token on signup and login. When
	// false the existing token is reused.
	RenewOnAuthenticate bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	// Secret signs the cookie value. PreviousSecrets are still accepted
	// when verifying.
	Secret          []byte
	PreviousSecrets [][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and its cost.
type PasswordConfig struct {
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int

	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	UpgradeOnLogin      bool
	MaxConcurrentHashes int
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Cookie.Secret is empty
// and must be set.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:         "gs",
			Lifetime:            2 * time.Hour,
			PendingTTL:          30 * time.Minute,
			RenewOnAuthenticate: false,
		},
		Cookie: CookieConfig{
			Name:     "gosession.sid",
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
			SameSite: http.SameSiteStrictMode,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmBcrypt,
			BcryptCost:     password.DefaultBcryptCost,
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cookie.Secret = cloneBytes(cfg.Cookie.Secret)
	if len(cfg.Cookie.PreviousSecrets) > 0 {
		out.Cookie.PreviousSecrets = make([][]byte, len(cfg.Cookie.PreviousSecrets))
		for i, s := range cfg.Cookie.PreviousSecrets {
			out.Cookie.PreviousSecrets[i] = cloneBytes(s)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.PendingTTL <= 0 {
		return errors.New("Session PendingTTL must be > 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name must not be empty")
	}
	if len(c.Cookie.Secret) < 32 {
		return errors.New("Cookie Secret must be at least 32 bytes")
	}
	for _, s := range c.Cookie.PreviousSecrets {
		if len(s) < 32 {
			return errors.New("Cookie PreviousSecrets entries must be at least 32 bytes")
		}
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	// Password
	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt:
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			return errors.New("Password BcryptCost out of range")
		}
	case password.AlgorithmArgon2id:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}
	if c.Password.MaxConcurrentHashes < 0 {
		return errors.New("Password MaxConcurrentHashes must be >= 0")
	}

	return nil
}

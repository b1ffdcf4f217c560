package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	users  CredentialStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the session store backend. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets the user store. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.users = store
	return b
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now. Used by tests to drive expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithIDGenerator overrides the user ID source. Defaults to UUIDv4 strings.
func (b *Builder) WithIDGenerator(newID func() string) *Builder {
	b.newID = newID
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can
// only build once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("credential store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = uuid.NewString
	}

	// -------- SECRET HASHING --------
	hasher, err := buildHasher(cfg.Password, logger)
	if err != nil {
		return nil, err
	}

	// -------- COOKIE SIGNING --------
	signer, err := session.NewSigner(cfg.Cookie.Secret, cfg.Cookie.PreviousSecrets...)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		signer:   signer,
		hasher:   password.NewPool(hasher, cfg.Password.MaxConcurrentHashes),
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
	}
	engine.deps = engine.flowDeps(newID)

	b.built = true
	return engine, nil
}

// buildHasher returns a suite that hashes with the configured algorithm and
// still verifies hashes of the other one, so switching algorithms upgrades
// accounts on their next login.
func buildHasher(cfg PasswordConfig, logger *zap.Logger) (password.Hasher, error) {
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil && cfg.Algorithm == password.AlgorithmBcrypt {
		return nil, err
	}

	argon, argonErr := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if argonErr != nil && cfg.Algorithm == password.AlgorithmArgon2id {
		return nil, argonErr
	}

	if cfg.Algorithm == password.AlgorithmArgon2id {
		if err != nil {
			logger.Warn("bcrypt verification disabled", zap.Error(err))
			return password.NewSuite(argon), nil
		}
		return password.NewSuite(argon, bc), nil
	}
	if argonErr != nil {
		logger.Warn("argon2id verification disabled", zap.Error(argonErr))
		return password.NewSuite(bc), nil
	}
	return password.NewSuite(bc, argon), nil
}

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/internal/server"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/store/postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. With --dev the server runs against an in-process
Redis and an in-memory user store, so nothing outside the binary is needed.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "build logger").Wrap(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Dev && cfg.SessionSecret == "" {
		cfg.SessionSecret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("no session secret configured, using a random one; sessions end on restart")
	}
	engineCfg, err := cfg.Engine()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	engine, err := goSession.New().
		WithConfig(engineCfg).
		WithRedis(b.redis).
		WithCredentialStore(b.users).
		WithLogger(logger).
		Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}

	var metrics http.Handler
	if cfg.MetricsEnabled {
		metrics = prometheus.NewExporter(engine).Handler()
	}
	srv, err := server.New(engine, server.Options{Logger: logger, Metrics: metrics})
	if err != nil {
		return oops.Code("SERVER_INIT_FAILED").Wrap(err)
	}
	return srv.ListenAndServe(ctx, cfg.Addr())
}

type backends struct {
	redis   redis.UniversalClient
	users   goSession.CredentialStore
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects the session and credential stores. Dev mode starts
// an in-process Redis and keeps users in memory.
func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Dev {
		mr := miniredis.NewMiniRedis()
		if err := mr.Start(); err != nil {
			return nil, oops.Code("REDIS_START_FAILED").Wrap(err)
		}
		b.closers = append(b.closers, mr.Close)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.redis = rdb
		b.users = goSession.NewMemoryCredentialStore()
		logger.Info("development backends", zap.String("redis", mr.Addr()))
		return b, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("database-url is required outside --dev")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	b.closers = append(b.closers, func() { _ = rdb.Close() })
	b.redis = rdb

	users, closeUsers, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, closeUsers)
	b.users = users
	return b, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SECRET_GENERATION_FAILED").Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

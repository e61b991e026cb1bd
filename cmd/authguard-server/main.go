// Command authguard-server serves login, refresh, logout and a guarded
// profile route over HTTP.
//
// Settings come from .env, AUTH_CONFIG_FILE and the environment. Outside
// production an embedded miniredis and throwaway keys are used when
// REDIS_ADDR or the keys are unset.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authguard"
	"github.com/MrEthical07/authguard/cipher"
	"github.com/MrEthical07/authguard/internal/logging"
	"github.com/MrEthical07/authguard/internal/settings"
	"github.com/MrEthical07/authguard/internal/users"
	promexport "github.com/MrEthical07/authguard/metrics/export/prometheus"
	"github.com/MrEthical07/authguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	st, err := settings.Load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Config{Dir: st.LogDir, Level: logging.ParseLevel(st.LogLevel)})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	if st.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := st.AuthConfig()
	if err != nil {
		return err
	}
	if err := fillDevKeys(&cfg, logger); err != nil {
		return err
	}

	rdb, cleanup, err := connectRedis(ctx, st, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	dir := users.NewDirectory()
	engine, err := authguard.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(dir).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	for _, w := range cfg.Lint() {
		level := slog.LevelInfo
		if w.Severity == authguard.LintWarn {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, w.Message, slog.String("code", w.Code))
	}
	report := engine.SecurityReport()
	logger.Info("security posture",
		slog.Duration("access_ttl", report.AccessTTL),
		slog.Duration("refresh_ttl", report.RefreshTTL),
		slog.Bool("rate_limiting", report.RateLimitingActive),
		slog.Bool("audit", report.AuditEnabled),
	)

	seeds, _ := st.SeedUsers()
	for _, u := range seeds {
		if err := dir.Add(engine, u.ID, u.Identifier, u.Password); err != nil {
			return err
		}
	}
	logger.Info("users seeded", slog.Int("count", dir.Len()))

	exporter, err := promexport.NewExporter(engine)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	srv := &server{engine: engine, metrics: exporter.Handler(), logger: logger}
	httpServer := &http.Server{
		Addr:              st.HTTPAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", st.HTTPAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// connectRedis dials REDIS_ADDR, or starts miniredis outside production.
func connectRedis(ctx context.Context, st *settings.Settings, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if st.RedisAddr != "" {
		client, err := session.NewRedisClient(ctx, session.RedisOptions{
			Addr:     st.RedisAddr,
			Password: st.RedisPassword,
			DB:       st.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis connected", slog.String("addr", st.RedisAddr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("miniredis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger.Warn("REDIS_ADDR unset, using embedded miniredis", slog.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// fillDevKeys generates keys that were left empty. Production settings
// never reach here without both keys.
func fillDevKeys(cfg *authguard.Config, logger *slog.Logger) error {
	if len(cfg.JWT.SigningKey) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		cfg.JWT.SigningKey = []byte(hex.EncodeToString(buf))
		logger.Warn("AUTH_SIGNING_KEY unset, using a throwaway key")
	}
	if cfg.Cipher.Key == "" {
		key, err := cipher.GenerateKey()
		if err != nil {
			return err
		}
		cfg.Cipher.Key = key
		logger.Warn("AUTH_CIPHER_KEY unset, using a throwaway key")
	}
	return nil
}

package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle parameters. MaxLoginAttempts <= 0 disables
// the limiter. OpTimeout bounds every Redis call.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	OpTimeout             time.Duration
}

// Limiter counts failed logins per identifier and, optionally, per IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.LoginCooldownDuration <= 0 {
		cfg.LoginCooldownDuration = 15 * time.Minute
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 2 * time.Second
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) enabled() bool {
	return l != nil && l.redis != nil && l.config.MaxLoginAttempts > 0
}

func (l *Limiter) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.config.OpTimeout)
}

// CheckLogin returns ErrRateLimited when the identifier or IP has already
// used up its attempt budget.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if !l.enabled() {
		return nil
	}
	if err := l.checkCounter(ctx, loginIdentifierKey(identifier)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed attempt. It returns ErrRateLimited when
// this attempt crossed the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if !l.enabled() {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, loginIdentifierKey(identifier))
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, loginIPKey(ip))
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetLogin clears the identifier counter after a successful login. The IP
// counter is left alone so one good account cannot launder a spraying IP.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	if !l.enabled() {
		return nil
	}
	ctx, cancel := l.opContext(ctx)
	defer cancel()

	if err := l.redis.Del(ctx, loginIdentifierKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current failure count for an identifier.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	if !l.enabled() {
		return 0, nil
	}
	ctx, cancel := l.opContext(ctx)
	defer cancel()

	count, err := l.redis.Get(ctx, loginIdentifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	ctx, cancel := l.opContext(ctx)
	defer cancel()

	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	ctx, cancel := l.opContext(ctx)
	defer cancel()

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.LoginCooldownDuration).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func loginIdentifierKey(identifier string) string {
	return "rl:login:id:" + strings.ToLower(strings.TrimSpace(identifier))
}

func loginIPKey(ip string) string {
	return "rl:login:ip:" + ip
}

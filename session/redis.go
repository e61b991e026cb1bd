package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix matches the USER:<id> key layout used by existing deployments.
const DefaultPrefix = "USER"

const defaultOpTimeout = 2 * time.Second

const deleteIfMatchScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
local ok, rec = pcall(cjson.decode, current)
if not ok or type(rec) ~= "table" or rec.refresh_token ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

var deleteIfMatchLua = redis.NewScript(deleteIfMatchScript)

// RedisStore is a Store backed by one Redis string key per identity.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewRedisStore returns a RedisStore. An empty prefix selects DefaultPrefix
// and a non-positive opTimeout selects two seconds.
func NewRedisStore(client redis.UniversalClient, prefix string, opTimeout time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &RedisStore{redis: client, prefix: prefix, opTimeout: opTimeout}
}

func (s *RedisStore) key(identity string) string {
	return s.prefix + ":" + identity
}

func (s *RedisStore) Put(ctx context.Context, identity, encryptedRefresh string, ttl time.Duration) error {
	if identity == "" {
		return errors.New("session identity is required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	data, err := Encode(&Record{RefreshToken: encryptedRefresh})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(identity), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, identity string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.redis.Get(ctx, s.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return "", err
	}
	return rec.RefreshToken, nil
}

// Delete removes the record. A missing record is not an error.
func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteIfMatch compares and deletes in one script so a record written by a
// concurrent login is never removed by a stale observer. The script compares
// the decoded refresh_token, so records written by any JSON encoder match.
func (s *RedisStore) DeleteIfMatch(ctx context.Context, identity, encryptedRefresh string) (bool, error) {
	if encryptedRefresh == "" {
		return false, fmt.Errorf("%w: empty refresh token", ErrCorrupt)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := deleteIfMatchLua.Run(ctx, s.redis, []string{s.key(identity)}, encryptedRefresh).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// NewRedisClient connects to Redis and verifies the connection with a PING
// before returning. The client is closed when the ping fails.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis address is required")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		// Per-call deadlines from the store and limiter bound socket I/O.
		ContextTimeoutEnabled: true,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return client, nil
}

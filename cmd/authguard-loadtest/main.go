// Command authguard-loadtest drives concurrent login, access validation and
// refresh validation against Redis (or an embedded miniredis) and then
// checks that every identity ended with exactly one valid refresh token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authguard"
	"github.com/MrEthical07/authguard/cipher"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type identityState struct {
	id      string
	current authguard.TokenPair
	stale   string
	mu      sync.Mutex
}

type options struct {
	identities  int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func main() {
	var opts options
	flag.IntVar(&opts.identities, "identities", 10000, "number of identities to log in")
	flag.IntVar(&opts.concurrency, "concurrency", 128, "number of concurrent workers")
	flag.IntVar(&opts.ops, "ops", 100000, "operations per phase")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.StringVar(&opts.prefix, "prefix", "LOADTEST", "session key prefix")
	flag.Parse()

	if opts.identities <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var client redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	engine, err := newEngine(client, opts.prefix)
	if err != nil {
		return err
	}
	defer engine.Close()

	states := make([]identityState, opts.identities)
	fmt.Fprintf(out, "logging in %d identities...\n", opts.identities)
	startSeed := time.Now()
	for i := range states {
		states[i].id = fmt.Sprintf("load-%d", i)
		pair, err := engine.Login(ctx, states[i].id, map[string]any{"user_id": states[i].id})
		if err != nil {
			return fmt.Errorf("seed login: %w", err)
		}
		states[i].current = pair
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	access := runPhase(opts.ops, opts.concurrency, 7919, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		token := st.current.AccessToken
		st.mu.Unlock()
		_, err := engine.ValidateAccess(ctx, token, st.id)
		return err
	})

	relogin := runPhase(opts.ops/10+1, opts.concurrency, 104729, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		pair, err := engine.Login(ctx, st.id, map[string]any{"user_id": st.id})
		if err != nil {
			return err
		}
		st.stale = st.current.RefreshToken
		st.current = pair
		return nil
	})

	refresh := runPhase(opts.ops, opts.concurrency, 6151, func(r *rand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		_, err := engine.ValidateRefresh(ctx, st.current.RefreshToken)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate-access", access)
	printStats(out, "relogin", relogin)
	printStats(out, "validate-refresh", refresh)

	violations := verifySingleSession(ctx, engine, states)
	fmt.Fprintf(out, "single-session check: identities=%d violations=%d\n", len(states), violations)
	if violations > 0 {
		return fmt.Errorf("%d identities violated the single-session rule", violations)
	}
	return nil
}

func newEngine(client redis.UniversalClient, prefix string) (*authguard.Engine, error) {
	key, err := cipher.GenerateKey()
	if err != nil {
		return nil, err
	}
	cfg := authguard.DefaultConfig()
	cfg.JWT.SigningKey = []byte("authguard-loadtest-signing-key-0123456789")
	cfg.Cipher.Key = key
	cfg.Session.RedisPrefix = prefix
	cfg.Metrics.EnableLatencyHistograms = true

	return authguard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}

// verifySingleSession checks that the current refresh token validates and
// that a superseded one, where present, is refused and ends the session.
func verifySingleSession(ctx context.Context, engine *authguard.Engine, states []identityState) int {
	violations := 0
	for i := range states {
		st := &states[i]
		if _, err := engine.ValidateRefresh(ctx, st.current.RefreshToken); err != nil {
			violations++
			continue
		}
		if st.stale == "" {
			continue
		}
		if _, err := engine.ValidateRefresh(ctx, st.stale); !errors.Is(err, authguard.ErrSessionMismatch) {
			violations++
			continue
		}
		if _, err := engine.ValidateRefresh(ctx, st.current.RefreshToken); !errors.Is(err, authguard.ErrSessionNotFound) {
			violations++
		}
	}
	return violations
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

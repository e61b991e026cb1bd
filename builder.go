package authguard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authguard/cipher"
	internalaudit "github.com/MrEthical07/authguard/internal/audit"
	internalflows "github.com/MrEthical07/authguard/internal/flows"
	"github.com/MrEthical07/authguard/internal/rate"
	"github.com/MrEthical07/authguard/jwt"
	"github.com/MrEthical07/authguard/password"
	"github.com/MrEthical07/authguard/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. It is single-use: a second Build fails.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	userProvider UserProvider
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session store and the login
// limiter. A store set with WithSessionStore takes precedence for sessions.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore replaces the Redis session store, for example with
// session.NewMemoryStore in tests.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithUserProvider enables [Engine.Authenticate].
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token issue and expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
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

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or session store required")
		}
		store = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.OpTimeout)
	}

	// -------- CRYPTO --------
	c, err := cipher.New(cfg.Cipher.Key)
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	jm, err := jwt.NewManager(jwt.Config{
		SigningKey:   cloneBytes(cfg.JWT.SigningKey),
		Issuer:       cfg.JWT.Issuer,
		Audience:     cfg.JWT.Audience,
		Leeway:       cfg.JWT.Leeway,
		MaxFutureIAT: cfg.JWT.MaxFutureIAT,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := newPasswordHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:       cfg,
		sessionStore: store,
		cipher:       c,
		jwtManager:   jm,
		passwordHash: hasher,
		userProvider: b.userProvider,
		logger:       logger.With(slog.String("component", "authguard")),
		metrics:      NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
			OpTimeout:             cfg.Session.OpTimeout,
		})
	}
	engine.flows = internalflows.New(engine.buildFlowDeps())

	b.built = true

	return engine, nil
}

func newPasswordHasher(cfg PasswordConfig) (*password.Multi, error) {
	primary, err := password.NewArgon2(password.Argon2Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
		MinLength:   cfg.MinLength,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.AcceptBcrypt {
		return password.NewMulti(primary), nil
	}

	legacy, err := password.NewBcrypt(cfg.BcryptCost, cfg.MinLength)
	if err != nil {
		return nil, err
	}
	return password.NewMulti(primary, legacy), nil
}

package authguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/authguard/cipher"
	internalaudit "github.com/MrEthical07/authguard/internal/audit"
	internalflows "github.com/MrEthical07/authguard/internal/flows"
	"github.com/MrEthical07/authguard/internal/rate"
	"github.com/MrEthical07/authguard/jwt"
	"github.com/MrEthical07/authguard/password"
	"github.com/MrEthical07/authguard/session"
)

// Engine issues and validates token pairs. It is safe for concurrent use
// after [Builder.Build] and holds no per-identity locks: the single active
// session guarantee rests on the store's atomic overwrite.
type Engine struct {
	config       Config
	sessionStore session.Store
	cipher       *cipher.Cipher
	jwtManager   *jwt.Manager
	passwordHash *password.Multi
	rateLimiter  *rate.Limiter
	userProvider UserProvider
	flows        internalflows.Service
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger

	dummyHashOnce sync.Once
	dummyHash     string
}

// Close drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// issuanceError wraps ErrIssuanceFailed together with its cause so callers
// can tell a store outage from a codec or cipher fault.
func issuanceError(stage string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrIssuanceFailed, stage)
	}
	return fmt.Errorf("%w: %s: %w", ErrIssuanceFailed, stage, cause)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Login issues a fresh token pair for identity and makes its refresh token
// the identity's only valid one. Any earlier refresh token stops
// validating as soon as this returns. details is embedded in both tokens.
//
// Every failure is reported as ErrIssuanceFailed and no token is returned.
func (e *Engine) Login(ctx context.Context, identity string, details map[string]any) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, identity, details)
	if res.Failure != internalflows.LoginFailureNone {
		e.metricInc(MetricIssuanceFailed)
		e.logger.ErrorContext(ctx, "token issuance failed",
			slog.String("identity", identity),
			slog.String("reason", res.Failure.String()),
			slog.Any("error", res.Err),
		)
		err := issuanceError(res.Failure.String(), res.Err)
		e.emitAudit(ctx, auditEventIssuanceFailure, false, identity, "", err, func() map[string]string {
			return map[string]string{"stage": res.Failure.String()}
		})
		return TokenPair{}, err
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity, "", nil, nil)

	return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
}

// ValidateAccess checks an access token. A non-empty asserted identity
// must equal the token subject, otherwise ErrIdentityMismatch is returned.
// Access validation never reads the session store.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr, asserted string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	defer e.observeValidate(time.Now())

	res := e.flows.ValidateAccess(tokenStr, asserted)
	if res.Failure != internalflows.ValidateFailureNone {
		e.metricInc(MetricAccessRejected)
		return nil, e.rejectValidation(ctx, jwt.TypeAccess, asserted, res)
	}

	e.metricInc(MetricAccessAccepted)
	return buildResult(res.Claims, tokenStr), nil
}

// ValidateRefresh checks a refresh token against the identity's stored
// session. A token that decodes but is not the current session token
// yields ErrSessionMismatch and removes the stored session, so the
// legitimate owner has to log in again.
//
// Store failures yield ErrStoreUnavailable and never accept the token.
func (e *Engine) ValidateRefresh(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	defer e.observeValidate(time.Now())

	res := e.flows.ValidateRefresh(ctx, tokenStr)
	e.recordInvalidation(ctx, res)
	if res.Failure != internalflows.ValidateFailureNone {
		e.metricInc(MetricRefreshRejected)
		return nil, e.rejectValidation(ctx, jwt.TypeRefresh, "", res)
	}

	e.metricInc(MetricRefreshAccepted)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Claims.Identity(), res.Claims.ID, nil, nil)
	return buildResult(res.Claims, tokenStr), nil
}

// ReissueAccessToken mints a new access token from a validated refresh
// result, carrying over its identity and details. The refresh token and
// the stored session are not touched.
func (e *Engine) ReissueAccessToken(ctx context.Context, result *AuthResult) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if result == nil {
		return "", &TokenTypeError{Expected: jwt.TypeRefresh}
	}

	res := e.flows.Reissue(result.Identity, result.UserDetails, result.TokenType)
	switch res.Failure {
	case internalflows.ReissueFailureNone:
	case internalflows.ReissueFailureNotRefresh:
		return "", &TokenTypeError{Expected: jwt.TypeRefresh, Actual: result.TokenType}
	default:
		e.metricInc(MetricIssuanceFailed)
		e.logger.ErrorContext(ctx, "access token reissue failed",
			slog.String("identity", result.Identity),
			slog.Any("error", res.Err),
		)
		return "", fmt.Errorf("%w: access reissue", ErrIssuanceFailed)
	}

	e.metricInc(MetricAccessReissued)
	e.emitAudit(ctx, auditEventAccessReissued, true, result.Identity, result.TokenID, nil, nil)
	return res.AccessToken, nil
}

// Refresh validates a refresh token and reissues an access token from it.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, *AuthResult, error) {
	result, err := e.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return "", nil, err
	}
	access, err := e.ReissueAccessToken(ctx, result)
	if err != nil {
		return "", nil, err
	}
	return access, result, nil
}

// Logout removes the identity's session. Logging out an identity without
// a session succeeds. Access tokens already issued stay valid until they
// expire.
func (e *Engine) Logout(ctx context.Context, identity string) error {
	if err := e.removeSession(ctx, identity); err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, identity, "", nil, nil)
	return nil
}

// InvalidateSession force-removes the identity's session, for example
// after an out-of-band compromise report.
func (e *Engine) InvalidateSession(ctx context.Context, identity string) error {
	if err := e.removeSession(ctx, identity); err != nil {
		return err
	}
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventSessionInvalidated, true, identity, "", nil, func() map[string]string {
		return map[string]string{"trigger": "admin"}
	})
	return nil
}

func (e *Engine) removeSession(ctx context.Context, identity string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" {
		return errors.New("identity is required")
	}
	if err := e.flows.Logout(ctx, identity); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.logger.ErrorContext(ctx, "session delete failed",
			slog.String("identity", identity),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// HashPassword hashes with the configured primary scheme.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}
	return e.passwordHash.Hash(plain)
}

type pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Ping reports session store reachability and round-trip time. Stores
// without a Ping method are assumed reachable.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	p, ok := e.sessionStore.(pinger)
	if !ok {
		return 0, nil
	}
	d, err := p.Ping(ctx)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return d, nil
}

func (e *Engine) observeValidate(start time.Time) {
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
}

func buildResult(claims *jwt.Claims, raw string) *AuthResult {
	res := &AuthResult{
		Identity:    claims.Identity(),
		UserDetails: claims.UserDetails,
		TokenType:   claims.Type,
		TokenID:     claims.ID,
		RawToken:    raw,
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res
}

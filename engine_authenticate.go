package authguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	internalflows "github.com/MrEthical07/authguard/internal/flows"
	"github.com/MrEthical07/authguard/internal/rate"
)

// Authenticate verifies identifier and password through the configured
// [UserProvider] and, on success, performs [Engine.Login] for the user.
//
// Unknown users and wrong passwords both return ErrInvalidCredentials.
// Repeated failures return ErrLoginRateLimited once the budget is spent.
// A legacy password hash is rewritten with the primary scheme after a
// successful check when UpgradeOnLogin is set.
func (e *Engine) Authenticate(ctx context.Context, identifier, plain string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if e.userProvider == nil {
		return TokenPair{}, fmt.Errorf("%w: user provider not configured", ErrEngineNotReady)
	}

	res := e.flows.Authenticate(ctx, identifier, plain)

	if res.UpgradeErr != nil {
		e.logger.WarnContext(ctx, "password hash upgrade failed",
			slog.String("identity", res.Identity),
			slog.Any("error", res.UpgradeErr),
		)
	} else if res.Upgraded {
		e.metricInc(MetricPasswordUpgraded)
		e.emitAudit(ctx, auditEventPasswordUpgraded, true, res.Identity, "", nil, nil)
	}

	switch res.Failure {
	case internalflows.AuthenticateFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.Identity, "", nil, nil)
		return TokenPair{AccessToken: res.Login.AccessToken, RefreshToken: res.Login.RefreshToken}, nil

	case internalflows.AuthenticateFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRedisUnavailable) {
			e.metricInc(MetricStoreUnavailable)
			e.logger.ErrorContext(ctx, "login limiter unavailable", slog.Any("error", res.Err))
			err := fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
			e.emitAudit(ctx, auditEventLoginFailure, false, res.Identity, "", err, nil)
			return TokenPair{}, err
		}
		e.metricInc(MetricLoginRateLimited)
		e.logger.WarnContext(ctx, "login rate limited", slog.String("identity", res.Identity))
		e.emitAudit(ctx, auditEventLoginRateLimited, false, res.Identity, "", ErrLoginRateLimited, nil)
		return TokenPair{}, ErrLoginRateLimited

	case internalflows.AuthenticateFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.logger.InfoContext(ctx, "login rejected",
			slog.String("identity", res.Identity),
			slog.String("reason", res.Reason),
		)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Identity, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"cause": res.Reason}
		})
		return TokenPair{}, ErrInvalidCredentials

	default:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricIssuanceFailed)
		e.logger.ErrorContext(ctx, "token issuance failed",
			slog.String("identity", res.Identity),
			slog.String("reason", res.Reason),
			slog.Any("error", res.Err),
		)
		err := issuanceError(res.Reason, res.Err)
		e.emitAudit(ctx, auditEventIssuanceFailure, false, res.Identity, "", err, nil)
		return TokenPair{}, err
	}
}

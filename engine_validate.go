package authguard

import (
	"context"
	"fmt"
	"log/slog"

	internalflows "github.com/MrEthical07/authguard/internal/flows"
	"github.com/MrEthical07/authguard/jwt"
)

// rejectValidation maps a failed flow result to its public error and
// records it. Raw tokens are never logged.
func (e *Engine) rejectValidation(ctx context.Context, want jwt.TokenType, asserted string, res internalflows.ValidateResult) error {
	var identity, tokenID string
	if res.Claims != nil {
		identity = res.Claims.Identity()
		tokenID = res.Claims.ID
	}
	attrs := []any{
		slog.String("token_type", string(want)),
		slog.String("reason", res.Failure.String()),
	}
	if identity != "" {
		attrs = append(attrs, slog.String("identity", identity))
	}

	eventType := auditEventAccessRejected
	if want == jwt.TypeRefresh {
		eventType = auditEventRefreshRejected
	}

	var err error
	switch res.Failure {
	case internalflows.ValidateFailureMissingToken:
		err = ErrMissingToken
		e.logger.DebugContext(ctx, "token missing", attrs...)

	case internalflows.ValidateFailureExpired:
		err = ErrExpiredToken
		e.metricInc(MetricTokenExpired)
		e.logger.DebugContext(ctx, "token expired", attrs...)

	case internalflows.ValidateFailureInvalidSignature:
		err = ErrInvalidSignature
		e.metricInc(MetricInvalidSignature)
		e.logger.WarnContext(ctx, "token rejected", append(attrs, slog.Any("error", res.Err))...)

	case internalflows.ValidateFailureWrongTokenType:
		var actual jwt.TokenType
		if res.Claims != nil {
			actual = res.Claims.Type
		}
		err = &TokenTypeError{Expected: want, Actual: actual}
		e.metricInc(MetricWrongTokenType)
		e.logger.WarnContext(ctx, "wrong token type presented", append(attrs, slog.String("actual", string(actual)))...)

	case internalflows.ValidateFailureIdentityMismatch:
		err = ErrIdentityMismatch
		eventType = auditEventHijackDetected
		e.metricInc(MetricIdentityMismatch)
		e.logger.ErrorContext(ctx, "token presented for another identity", append(attrs, slog.String("asserted", asserted))...)

	case internalflows.ValidateFailureSessionNotFound:
		err = ErrSessionNotFound
		e.metricInc(MetricSessionNotFound)
		e.logger.WarnContext(ctx, "refresh token has no session", attrs...)

	case internalflows.ValidateFailureSessionMismatch:
		err = ErrSessionMismatch
		eventType = auditEventSessionMismatch
		e.metricInc(MetricSessionMismatch)
		if res.Err != nil {
			attrs = append(attrs, slog.Any("error", res.Err))
		}
		e.logger.ErrorContext(ctx, "refresh token does not match session", attrs...)

	case internalflows.ValidateFailureDecryption:
		err = fmt.Errorf("%w: %w", ErrSessionMismatch, ErrDecryption)
		eventType = auditEventSessionMismatch
		e.metricInc(MetricSessionMismatch)
		e.metricInc(MetricDecryptionFailed)
		e.logger.ErrorContext(ctx, "stored session could not be decrypted", append(attrs, slog.Any("error", res.Err))...)

	case internalflows.ValidateFailureStoreUnavailable:
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
		e.metricInc(MetricStoreUnavailable)
		e.logger.ErrorContext(ctx, "session store unavailable", append(attrs, slog.Any("error", res.Err))...)

	default:
		err = ErrInvalidSignature
		e.logger.ErrorContext(ctx, "unclassified validation failure", attrs...)
	}

	e.emitAudit(ctx, eventType, false, identity, tokenID, err, func() map[string]string {
		m := map[string]string{"token_type": string(want)}
		if asserted != "" {
			m["asserted_identity"] = asserted
		}
		return m
	})
	return err
}

// recordInvalidation reports the session delete triggered by a refresh
// mismatch.
func (e *Engine) recordInvalidation(ctx context.Context, res internalflows.ValidateResult) {
	if res.Claims == nil {
		return
	}
	identity := res.Claims.Identity()

	if res.InvalidateErr != nil {
		e.metricInc(MetricStoreUnavailable)
		e.logger.ErrorContext(ctx, "session invalidation failed",
			slog.String("identity", identity),
			slog.String("reason", res.Failure.String()),
			slog.Any("error", res.InvalidateErr),
		)
		return
	}
	if !res.Invalidated {
		return
	}

	e.metricInc(MetricSessionInvalidated)
	e.logger.WarnContext(ctx, "session invalidated",
		slog.String("identity", identity),
		slog.String("reason", res.Failure.String()),
	)
	e.emitAudit(ctx, auditEventSessionInvalidated, true, identity, res.Claims.ID, nil, func() map[string]string {
		return map[string]string{"trigger": res.Failure.String()}
	})
}

package authguard

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventIssuanceFailure    = "issuance_failure"
	auditEventAccessRejected     = "access_rejected"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshRejected    = "refresh_rejected"
	auditEventHijackDetected     = "hijack_detected"
	auditEventSessionMismatch    = "session_mismatch"
	auditEventSessionInvalidated = "session_invalidated"
	auditEventAccessReissued     = "access_reissued"
	auditEventLogout             = "logout"
	auditEventPasswordUpgraded   = "password_upgraded"
)

// AuditErrorCode is the stable reason string attached to failed events.
type AuditErrorCode string

const (
	auditErrMissingToken       AuditErrorCode = "missing_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrInvalidSignature   AuditErrorCode = "invalid_signature"
	auditErrWrongTokenType     AuditErrorCode = "wrong_token_type"
	auditErrIdentityMismatch   AuditErrorCode = "identity_mismatch"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrDecryption         AuditErrorCode = "decryption_failed"
	auditErrSessionMismatch    AuditErrorCode = "session_mismatch"
	auditErrUnavailable        AuditErrorCode = "store_unavailable"
	auditErrIssuance           AuditErrorCode = "issuance_failed"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		Identity:  identity,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Reason = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	// Decryption is checked before mismatch because it is wrapped by it.
	switch {
	case errors.Is(err, ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, ErrExpiredToken):
		return auditErrExpiredToken
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrWrongTokenType):
		return auditErrWrongTokenType
	case errors.Is(err, ErrIdentityMismatch):
		return auditErrIdentityMismatch
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrDecryption):
		return auditErrDecryption
	case errors.Is(err, ErrSessionMismatch):
		return auditErrSessionMismatch
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrIssuanceFailed):
		return auditErrIssuance
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	default:
		return auditErrInternal
	}
}

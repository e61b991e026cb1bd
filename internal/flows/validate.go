package flows

import (
	"errors"

	"github.com/MrEthical07/authguard/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissingToken
	ValidateFailureExpired
	ValidateFailureInvalidSignature
	ValidateFailureWrongTokenType
	ValidateFailureIdentityMismatch
	ValidateFailureSessionNotFound
	ValidateFailureSessionMismatch
	ValidateFailureDecryption
	ValidateFailureStoreUnavailable
)

// String returns the audit/log reason for k.
func (k ValidateFailureKind) String() string {
	switch k {
	case ValidateFailureNone:
		return "none"
	case ValidateFailureMissingToken:
		return "missing_token"
	case ValidateFailureExpired:
		return "expired_token"
	case ValidateFailureInvalidSignature:
		return "invalid_signature"
	case ValidateFailureWrongTokenType:
		return "wrong_token_type"
	case ValidateFailureIdentityMismatch:
		return "identity_mismatch"
	case ValidateFailureSessionNotFound:
		return "session_not_found"
	case ValidateFailureSessionMismatch:
		return "session_mismatch"
	case ValidateFailureDecryption:
		return "decryption_failed"
	case ValidateFailureStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// ValidateResult returns either decoded claims or a classified failure.
//
// Invalidated reports that the stored session was removed as a side effect
// of a mismatch; InvalidateErr carries the store error when that removal
// itself failed.
type ValidateResult struct {
	Failure       ValidateFailureKind
	Err           error
	Claims        *jwt.Claims
	Invalidated   bool
	InvalidateErr error
}

// ValidateDeps captures access and refresh validation dependencies.
type ValidateDeps struct {
	Decode       func(string) (*jwt.Claims, error)
	Decrypt      func(string) (string, error)
	SessionStore ValidateSessionStore
}

// RunValidateAccess walks PRESENT, DECODE, CHECK_CLASS and CHECK_IDENTITY
// for an access token. asserted is the identity the caller claims to act
// as; an empty value skips the identity check.
func RunValidateAccess(tokenStr, asserted string, deps ValidateDeps) ValidateResult {
	claims, res, ok := decodeAndClassify(tokenStr, jwt.TypeAccess, deps)
	if !ok {
		return res
	}

	if asserted != "" && asserted != claims.Identity() {
		return ValidateResult{Failure: ValidateFailureIdentityMismatch, Claims: claims}
	}

	return ValidateResult{Claims: claims}
}

func decodeAndClassify(tokenStr string, want jwt.TokenType, deps ValidateDeps) (*jwt.Claims, ValidateResult, bool) {
	if tokenStr == "" {
		return nil, ValidateResult{Failure: ValidateFailureMissingToken}, false
	}

	claims, err := deps.Decode(tokenStr)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ValidateResult{Failure: ValidateFailureExpired, Err: err}, false
		}
		return nil, ValidateResult{Failure: ValidateFailureInvalidSignature, Err: err}, false
	}

	if claims.Type != want {
		return nil, ValidateResult{Failure: ValidateFailureWrongTokenType, Claims: claims}, false
	}

	return claims, ValidateResult{}, true
}

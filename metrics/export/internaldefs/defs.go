package internaldefs

import (
	"github.com/MrEthical07/authguard"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   authguard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   authguard.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: authguard.MetricLoginSuccess, Name: "authguard_login_success_total", Help: "Successful credential logins."},
	{ID: authguard.MetricLoginFailure, Name: "authguard_login_failure_total", Help: "Credential checks that failed."},
	{ID: authguard.MetricLoginRateLimited, Name: "authguard_login_rate_limited_total", Help: "Login attempts refused by the rate limiter."},
	{ID: authguard.MetricIssuanceFailed, Name: "authguard_issuance_failed_total", Help: "Logins that could not issue a token pair."},
	{ID: authguard.MetricAccessAccepted, Name: "authguard_access_accepted_total", Help: "Access tokens accepted."},
	{ID: authguard.MetricAccessRejected, Name: "authguard_access_rejected_total", Help: "Access tokens rejected."},
	{ID: authguard.MetricRefreshAccepted, Name: "authguard_refresh_accepted_total", Help: "Refresh tokens accepted."},
	{ID: authguard.MetricRefreshRejected, Name: "authguard_refresh_rejected_total", Help: "Refresh tokens rejected."},
	{ID: authguard.MetricTokenExpired, Name: "authguard_token_expired_total", Help: "Tokens rejected as expired."},
	{ID: authguard.MetricInvalidSignature, Name: "authguard_invalid_signature_total", Help: "Tokens rejected for a bad signature or payload."},
	{ID: authguard.MetricWrongTokenType, Name: "authguard_wrong_token_type_total", Help: "Tokens presented to the wrong guard."},
	{ID: authguard.MetricIdentityMismatch, Name: "authguard_identity_mismatch_total", Help: "Access tokens presented for another identity."},
	{ID: authguard.MetricSessionNotFound, Name: "authguard_session_not_found_total", Help: "Refresh tokens with no live session."},
	{ID: authguard.MetricSessionMismatch, Name: "authguard_session_mismatch_total", Help: "Refresh tokens that were not the current one."},
	{ID: authguard.MetricDecryptionFailed, Name: "authguard_decryption_failed_total", Help: "Session records that failed to decrypt."},
	{ID: authguard.MetricStoreUnavailable, Name: "authguard_store_unavailable_total", Help: "Operations refused because the session store was unreachable."},
	{ID: authguard.MetricSessionCreated, Name: "authguard_session_created_total", Help: "Session records written."},
	{ID: authguard.MetricSessionInvalidated, Name: "authguard_session_invalidated_total", Help: "Session records removed after a failed refresh check."},
	{ID: authguard.MetricLogout, Name: "authguard_logout_total", Help: "Explicit logouts and invalidations."},
	{ID: authguard.MetricAccessReissued, Name: "authguard_access_reissued_total", Help: "Access tokens minted from a refresh token."},
	{ID: authguard.MetricPasswordUpgraded, Name: "authguard_password_upgraded_total", Help: "Stored password hashes upgraded on login."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authguard.MetricValidateLatency, Name: "authguard_validate_latency_seconds", Help: "Token validation latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "authguard_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

package authguard

import (
	"fmt"
	"time"
)

type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
)

func (s LintSeverity) String() string {
	switch s {
	case LintWarn:
		return "warn"
	default:
		return "info"
	}
}

// LintWarning is an advisory finding about a configuration that passes
// Validate but weakens the deployment.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast filters the result to warnings of severity min or higher.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

const (
	lintMaxLeeway      = time.Minute
	lintMaxAccessTTL   = 30 * time.Minute
	lintMaxRefreshTTL  = 30 * 24 * time.Hour
	lintMinArgonMemory = 19 * 1024
)

// Lint returns advisory findings. It never fails; call Validate for hard
// errors.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > lintMaxLeeway {
		add("leeway_large", LintWarn, "JWT leeway %s exceeds %s", c.JWT.Leeway, lintMaxLeeway)
	}
	if c.JWT.AccessTTL > lintMaxAccessTTL {
		add("access_ttl_long", LintWarn, "access tokens live %s and cannot be revoked", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL > lintMaxRefreshTTL {
		add("refresh_ttl_long", LintWarn, "refresh tokens live %s", c.JWT.RefreshTTL)
	}
	if c.Session.TTL > 0 && c.Session.TTL < c.JWT.RefreshTTL {
		add("session_shorter_than_refresh", LintWarn,
			"session records expire after %s, before refresh tokens (%s)", c.Session.TTL, c.JWT.RefreshTTL)
	}

	if c.Security.MaxLoginAttempts <= 0 {
		add("rate_limits_disabled", LintWarn, "failed logins are not throttled")
	} else if !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "failed logins are throttled per identifier only")
	}

	if c.Password.Memory < lintMinArgonMemory {
		add("argon2_memory_low", LintWarn, "argon2id memory %d KiB is below %d KiB", c.Password.Memory, lintMinArgonMemory)
	}
	if c.Password.AcceptBcrypt && !c.Password.UpgradeOnLogin {
		add("bcrypt_not_upgraded", LintInfo, "bcrypt hashes are accepted but never upgraded")
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "authentication decisions are not audited")
	} else if c.Audit.DropIfFull {
		add("audit_drops_events", LintInfo, "audit events are dropped when the buffer of %d is full", c.Audit.BufferSize)
	}

	return ws
}

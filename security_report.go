package authguard

import "time"

// SecurityReport summarizes the effective security posture of a built
// Engine. It never contains key material.
type SecurityReport struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	SessionTTL         time.Duration
	Argon2             PasswordConfigReport
	BcryptAccepted     bool
	UpgradeOnLogin     bool
	RateLimitingActive bool
	IPThrottleActive   bool
	AuditEnabled       bool
	MetricsEnabled     bool
	Warnings           []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.rateLimiter != nil && e.config.Security.MaxLoginAttempts > 0

	return SecurityReport{
		SigningAlgorithm: "HS256",
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		SessionTTL:       e.config.sessionTTL(),
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		BcryptAccepted:     e.config.Password.AcceptBcrypt,
		UpgradeOnLogin:     e.config.Password.AcceptBcrypt && e.config.Password.UpgradeOnLogin,
		RateLimitingActive: rateLimiting,
		IPThrottleActive:   rateLimiting && e.config.Security.EnableIPThrottle,
		AuditEnabled:       e.audit != nil,
		MetricsEnabled:     e.metrics.Enabled(),
		Warnings:           e.config.Lint().AtLeast(LintWarn).Codes(),
	}
}

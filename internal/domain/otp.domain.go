package domain

import (
	"fmt"
	"time"
)

const (
	ChannelEmail = "email"
	ChannelPhone = "phone"

	OTPExpiry       = 5 * time.Minute
	OTPMaxAttempts  = 3
	AttemptResetGap = 24 * time.Hour
)

type OtpRecord struct {
	ID                int64      `json:"id"`
	UserID            *int64     `json:"user_id,omitempty"`
	Contact           string     `json:"contact"`
	Code              string     `json:"otp_code"`
	Channel           string     `json:"otp_type"` // email, phone
	ExpiresAt         time.Time  `json:"expires_at"`
	IsVerified        bool       `json:"is_verified"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	AttemptCount      int        `json:"attempt_count"`
	MaxAttempts       int        `json:"max_attempts"`
	AttemptsStartedAt *time.Time `json:"attempts_started_at,omitempty"`
	IPAddress         string     `json:"ip_address,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (o *OtpRecord) IsMaxAttemptsExceeded() bool {
	return o.AttemptCount >= o.MaxAttempts
}

// IsExpired is inclusive at the boundary: a code presented exactly at
// ExpiresAt still verifies.
func (o *OtpRecord) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// ShouldResetAttempts reports whether the 24h lockout window has elapsed
// since the first failed attempt.
func (o *OtpRecord) ShouldResetAttempts(now time.Time) bool {
	if o.AttemptsStartedAt == nil {
		return false
	}
	return now.Sub(*o.AttemptsStartedAt) >= AttemptResetGap
}

// RecordFailedAttempt bumps the counter and stamps the window start on the
// first failure since creation/reset.
func (o *OtpRecord) RecordFailedAttempt(now time.Time) {
	if o.AttemptCount == 0 && o.AttemptsStartedAt == nil {
		t := now
		o.AttemptsStartedAt = &t
	}
	o.AttemptCount++
}

func (o *OtpRecord) ResetAttempts() {
	o.AttemptCount = 0
	o.AttemptsStartedAt = nil
}

func (o *OtpRecord) AttemptsRemaining() int {
	left := o.MaxAttempts - o.AttemptCount
	if left < 0 {
		return 0
	}
	return left
}

// TimeUntilReset renders the remaining lockout time for users, e.g.
// "45 minutes", "2 hours", "1 hour and 5 minutes", or "now".
func (o *OtpRecord) TimeUntilReset(now time.Time) string {
	if o.AttemptsStartedAt == nil {
		return "24 hours"
	}

	resetAt := o.AttemptsStartedAt.Add(AttemptResetGap)
	if now.After(resetAt) {
		return "now"
	}

	diff := int(resetAt.Sub(now).Minutes())
	if diff < 60 {
		return pluralize(diff, "minute")
	}

	hours := diff / 60
	minutes := diff % 60
	if minutes == 0 {
		return pluralize(hours, "hour")
	}
	return pluralize(hours, "hour") + " and " + pluralize(minutes, "minute")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

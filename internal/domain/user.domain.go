package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID           int64      `json:"user_id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email_id,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	PasswordHash string     `json:"-"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

type LoginAttempt struct {
	ID            int64     `json:"id"`
	Identifier    string    `json:"identifier"`
	IPAddress     string    `json:"ip_address"`
	Success       bool      `json:"success"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizePhone strips formatting and leading country prefixes so the same
// number always maps to the same contact key.
func NormalizePhone(phone string) string {
	p := nonDigits.ReplaceAllString(phone, "")

	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	} else if len(p) == 11 && strings.HasPrefix(p, "0") {
		p = p[1:]
	}
	return p
}

// NormalizeContact canonicalizes a contact for OTP lookup and returns the
// delivery channel it belongs to. Emails are lowercased, phone numbers are
// reduced to their national significant digits.
func NormalizeContact(contact string) (normalized, channel string) {
	c := strings.TrimSpace(contact)
	if strings.Contains(c, "@") {
		return strings.ToLower(c), ChannelEmail
	}
	return NormalizePhone(c), ChannelPhone
}

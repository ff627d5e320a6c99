package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Registration / Login
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrPhoneAlreadyInUse  = errors.New("phone already in use")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrContactRequired    = errors.New("either phone number or email is required")
)

// Verification / OTP
var (
	ErrOTPNotFound        = errors.New("no otp found")
	ErrInvalidOTP         = errors.New("invalid otp code")
	ErrExpiredOTP         = errors.New("expired otp")
	ErrOTPMaxAttempts     = errors.New("maximum verification attempts exceeded")
	ErrOTPRateLimited     = errors.New("otp temporarily blocked")
	ErrOTPDeliveryFailed  = errors.New("failed to deliver otp")
	ErrInvalidChannel     = errors.New("invalid channel")
	ErrContactNotVerified = errors.New("contact not verified")
)

// Circles / invitations
var (
	ErrCircleNotFound     = errors.New("circle not found")
	ErrCircleNameTaken    = errors.New("circle name already taken")
	ErrInvitationNotFound = errors.New("invitation not found or already responded")
	ErrInvitationResolved = errors.New("invitation already resolved")
	ErrNotEnoughMembers   = errors.New("at least 10 members must be invited")
	ErrAlreadyMember      = errors.New("user is already a member of this circle")
)

// Posts
var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotPostOwner = errors.New("you do not own this post")
)

// Business verification
var (
	ErrNoDraftFound = errors.New("no draft data found")
)

// Token / session
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("expired token")
	ErrSessionNotFound = errors.New("session not found")
)

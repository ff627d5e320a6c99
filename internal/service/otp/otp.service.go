package otp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"huddle-api/internal/domain"
	"huddle-api/internal/service/delivery"
	"huddle-api/pkg/id"
	"huddle-api/pkg/xerrors"
)

// Store is the persisted OTP state. Implementations must serialize all
// mutations for one contact behind WithContactLock so concurrent verifies
// cannot under-count failures or double-verify a code. An error returned by
// the locked callback aborts the whole unit of work, so it is reserved for
// storage faults; verification outcomes that must keep their writes (the
// failed-attempt increment) are reported out of band and the callback
// returns nil.
type Store interface {
	WithContactLock(ctx context.Context, contact string, fn func(ctx context.Context, s Store) error) error
	LatestUnverified(ctx context.Context, contact string) (*domain.OtpRecord, error)
	LatestVerified(ctx context.Context, contact string) (*domain.OtpRecord, error)
	DeleteUnverified(ctx context.Context, contact string) (int64, error)
	Create(ctx context.Context, rec *domain.OtpRecord) error
	UpdateAttempts(ctx context.Context, otpID int64, count int, startedAt *time.Time) error
	MarkVerified(ctx context.Context, otpID int64, at time.Time) error
}

// Result is the success payload for send/verify, shaped for the HTTP layer.
type Result struct {
	OtpID     int64
	ExpiresAt time.Time
	DebugCode string
}

// Error is a tagged OTP failure. Err is one of the xerrors sentinels so
// callers can branch with errors.Is; the extra fields feed the response.
type Error struct {
	Err               error
	Message           string
	AttemptsRemaining int // -1 when not applicable
	TimeUntilReset    string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type Service struct {
	store           Store
	gateway         delivery.Gateway
	sf              *id.Snowflake
	ttl             time.Duration
	deliveryTimeout time.Duration
	debug           bool
	now             func() time.Time
}

func NewService(store Store, gateway delivery.Gateway, sf *id.Snowflake, ttl, deliveryTimeout time.Duration, debug bool) *Service {
	return &Service{
		store:           store,
		gateway:         gateway,
		sf:              sf,
		ttl:             ttl,
		deliveryTimeout: deliveryTimeout,
		debug:           debug,
		now:             time.Now,
	}
}

// Send issues a fresh code for contact. An engaged lockout (3 failed
// verifies, less than 24h ago) blocks the send; otherwise all previous
// unverified codes for the contact are purged and a new record is stored
// before dispatch. A dispatch failure is returned to the caller but the
// record is kept: the next send purges it anyway. The purpose labels the
// delivered message ("verification", "password_reset", ...).
func (s *Service) Send(ctx context.Context, contact string, userID *int64, sourceIP, purpose string, isResend bool) (*Result, error) {
	normalized, channel := domain.NormalizeContact(contact)
	if normalized == "" {
		return nil, xerrors.ErrInvalidInput
	}
	if purpose == "" {
		purpose = "verification"
	}

	var (
		rec     *domain.OtpRecord
		sendErr *Error
	)
	err := s.store.WithContactLock(ctx, normalized, func(ctx context.Context, st Store) error {
		existing, err := st.LatestUnverified(ctx, normalized)
		if err != nil && !errors.Is(err, xerrors.ErrOTPNotFound) {
			return err
		}

		if existing != nil && existing.IsMaxAttemptsExceeded() {
			if !existing.ShouldResetAttempts(s.now()) {
				remaining := existing.TimeUntilReset(s.now())
				log.Printf("OTP send blocked, lockout engaged | Contact=%s | Attempts=%d | Reset=%s",
					normalized, existing.AttemptCount, remaining)
				sendErr = &Error{
					Err:               xerrors.ErrOTPRateLimited,
					Message:           fmt.Sprintf("Maximum verification attempts exceeded. You can try again in %s", remaining),
					AttemptsRemaining: 0,
					TimeUntilReset:    remaining,
				}
				return nil
			}
			// 24 hours passed, clear the lockout before issuing a new code
			existing.ResetAttempts()
			if err := st.UpdateAttempts(ctx, existing.ID, 0, nil); err != nil {
				return err
			}
		}

		deleted, err := st.DeleteUnverified(ctx, normalized)
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.Printf("Purged %d old unverified OTPs | Contact=%s", deleted, normalized)
		}

		now := s.now()
		rec = &domain.OtpRecord{
			ID:          s.sf.Generate(),
			UserID:      userID,
			Contact:     normalized,
			Code:        randomCode(6),
			Channel:     channel,
			ExpiresAt:   now.Add(s.ttl),
			MaxAttempts: domain.OTPMaxAttempts,
			IPAddress:   sourceIP,
			CreatedAt:   now,
		}
		return st.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	if sendErr != nil {
		return nil, sendErr
	}

	// Dispatch outside the lock: delivery is the only blocking call and must
	// not hold the per-contact transaction open.
	dctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	switch channel {
	case domain.ChannelEmail:
		err = s.gateway.SendEmail(dctx, normalized, rec.Code, purpose)
	case domain.ChannelPhone:
		err = s.gateway.SendSms(dctx, normalized, rec.Code, purpose)
	default:
		return nil, xerrors.ErrInvalidChannel
	}
	if err != nil {
		log.Printf("OTP delivery failed | Contact=%s | Channel=%s | Err=%v", normalized, channel, err)
		return nil, &Error{
			Err:               xerrors.ErrOTPDeliveryFailed,
			Message:           fmt.Sprintf("Failed to send %s OTP", channel),
			AttemptsRemaining: -1,
		}
	}

	log.Printf("OTP sent | Contact=%s | Channel=%s | OtpID=%d | Resend=%v", normalized, channel, rec.ID, isResend)

	res := &Result{OtpID: rec.ID, ExpiresAt: rec.ExpiresAt}
	if s.debug {
		res.DebugCode = rec.Code
	}
	return res, nil
}

// Verify checks submitted against the latest unverified code for contact.
// Precedence is deliberate: attempt accounting and code correctness are
// evaluated before staleness, so an expired-but-wrong code reports as
// invalid, never as expired. Failure outcomes leave the callback with a nil
// error so the attempt increment commits instead of rolling back with the
// transaction.
func (s *Service) Verify(ctx context.Context, contact, submitted string) (*Result, error) {
	normalized, _ := domain.NormalizeContact(contact)

	var (
		res  *Result
		vErr *Error
	)
	err := s.store.WithContactLock(ctx, normalized, func(ctx context.Context, st Store) error {
		rec, err := st.LatestUnverified(ctx, normalized)
		if errors.Is(err, xerrors.ErrOTPNotFound) {
			vErr = &Error{
				Err:               xerrors.ErrOTPNotFound,
				Message:           "No OTP found. Please request a new one.",
				AttemptsRemaining: -1,
			}
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if rec.ShouldResetAttempts(now) {
			log.Printf("24h elapsed, resetting OTP attempts | Contact=%s | OtpID=%d", normalized, rec.ID)
			rec.ResetAttempts()
			if err := st.UpdateAttempts(ctx, rec.ID, 0, nil); err != nil {
				return err
			}
		}

		if rec.Code != submitted {
			if rec.IsMaxAttemptsExceeded() {
				vErr = &Error{
					Err:               xerrors.ErrOTPMaxAttempts,
					Message:           "Maximum verification attempts exceeded. Please try again after 24 hours.",
					AttemptsRemaining: 0,
					TimeUntilReset:    rec.TimeUntilReset(now),
				}
				return nil
			}

			rec.RecordFailedAttempt(now)
			if err := st.UpdateAttempts(ctx, rec.ID, rec.AttemptCount, rec.AttemptsStartedAt); err != nil {
				return err
			}

			remaining := rec.AttemptsRemaining()
			log.Printf("OTP mismatch | Contact=%s | OtpID=%d | Attempts=%d | Remaining=%d",
				normalized, rec.ID, rec.AttemptCount, remaining)

			if remaining == 0 {
				vErr = &Error{
					Err:               xerrors.ErrOTPMaxAttempts,
					Message:           "Maximum verification attempts exceeded. You can try again after 24 hours.",
					AttemptsRemaining: 0,
					TimeUntilReset:    rec.TimeUntilReset(now),
				}
				return nil
			}
			vErr = &Error{
				Err:               xerrors.ErrInvalidOTP,
				Message:           "Invalid OTP code. Please check and try again.",
				AttemptsRemaining: remaining,
			}
			return nil
		}

		if rec.IsExpired(now) {
			vErr = &Error{
				Err:               xerrors.ErrExpiredOTP,
				Message:           "OTP has expired. Please request a new one.",
				AttemptsRemaining: -1,
			}
			return nil
		}

		if err := st.MarkVerified(ctx, rec.ID, now); err != nil {
			return err
		}
		log.Printf("OTP verified | Contact=%s | OtpID=%d", normalized, rec.ID)
		res = &Result{OtpID: rec.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if vErr != nil {
		return nil, vErr
	}
	return res, nil
}

// HasRecentVerification reports whether contact completed a verify within
// the given window. Password reset uses this as its gate.
func (s *Service) HasRecentVerification(ctx context.Context, contact string, within time.Duration) (bool, error) {
	normalized, _ := domain.NormalizeContact(contact)

	rec, err := s.store.LatestVerified(ctx, normalized)
	if errors.Is(err, xerrors.ErrOTPNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.VerifiedAt == nil {
		return false, nil
	}
	return s.now().Sub(*rec.VerifiedAt) <= within, nil
}

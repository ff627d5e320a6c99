package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/domain"
	"huddle-api/internal/service/otp"
	"huddle-api/pkg/xerrors"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type OTPRepo struct {
	pool *pgxpool.Pool
	q    querier
}

func NewOTPRepo(pool *pgxpool.Pool) *OTPRepo {
	return &OTPRepo{pool: pool, q: pool}
}

// WithContactLock serializes all OTP work for one contact behind a
// transaction-scoped advisory lock, so concurrent verifies see each other's
// attempt increments and a code can only verify once.
func (r *OTPRepo) WithContactLock(ctx context.Context, contact string, fn func(ctx context.Context, s otp.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, contact); err != nil {
		return err
	}

	if err := fn(ctx, &OTPRepo{pool: r.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const otpColumns = `id, user_id, contact, otp_code, otp_type, expires_at, is_verified, verified_at,
	attempt_count, max_attempts, attempts_started_at, ip_address, created_at`

func (r *OTPRepo) scanRecord(row pgx.Row) (*domain.OtpRecord, error) {
	var o domain.OtpRecord
	err := row.Scan(&o.ID, &o.UserID, &o.Contact, &o.Code, &o.Channel, &o.ExpiresAt,
		&o.IsVerified, &o.VerifiedAt, &o.AttemptCount, &o.MaxAttempts,
		&o.AttemptsStartedAt, &o.IPAddress, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrOTPNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OTPRepo) LatestUnverified(ctx context.Context, contact string) (*domain.OtpRecord, error) {
	return r.scanRecord(r.q.QueryRow(ctx, `
		SELECT `+otpColumns+`
		FROM login_otps
		WHERE contact=$1 AND is_verified=FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`, contact))
}

func (r *OTPRepo) LatestVerified(ctx context.Context, contact string) (*domain.OtpRecord, error) {
	return r.scanRecord(r.q.QueryRow(ctx, `
		SELECT `+otpColumns+`
		FROM login_otps
		WHERE contact=$1 AND is_verified=TRUE
		ORDER BY verified_at DESC
		LIMIT 1
	`, contact))
}

func (r *OTPRepo) DeleteUnverified(ctx context.Context, contact string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM login_otps WHERE contact=$1 AND is_verified=FALSE`, contact)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *OTPRepo) Create(ctx context.Context, o *domain.OtpRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO login_otps (id, user_id, contact, otp_code, otp_type, expires_at, is_verified,
			attempt_count, max_attempts, attempts_started_at, ip_address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7,$8,$9,$10,$11)
	`, o.ID, o.UserID, o.Contact, o.Code, o.Channel, o.ExpiresAt,
		o.AttemptCount, o.MaxAttempts, o.AttemptsStartedAt, o.IPAddress, o.CreatedAt)
	return err
}

func (r *OTPRepo) UpdateAttempts(ctx context.Context, otpID int64, count int, startedAt *time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE login_otps SET attempt_count=$2, attempts_started_at=$3 WHERE id=$1
	`, otpID, count, startedAt)
	return err
}

func (r *OTPRepo) MarkVerified(ctx context.Context, otpID int64, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE login_otps SET is_verified=TRUE, verified_at=$2 WHERE id=$1
	`, otpID, at)
	return err
}

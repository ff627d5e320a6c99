package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/domain"
	"huddle-api/pkg/xerrors"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `user_id, name, username, email_id, phone_number, password_hash,
	is_verified, created_at, last_login_at`

func (r *UserRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PhoneNumber,
		&u.PasswordHash, &u.IsVerified, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (user_id, name, username, email_id, phone_number, password_hash, is_verified, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, u.ID, u.Name, u.Username, u.Email, u.PhoneNumber, u.PasswordHash, u.IsVerified, u.CreatedAt)
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE user_id=$1
	`, userID))
}

// GetByContact matches either the email or the phone column. Phone lookups
// also match on the trailing national digits so numbers stored with a
// country prefix still resolve.
func (r *UserRepo) GetByContact(ctx context.Context, contact string) (*domain.User, error) {
	normalizedPhone := domain.NormalizePhone(contact)
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email_id=$1
		   OR phone_number=$1
		   OR phone_number=$2
		   OR ($2 <> '' AND phone_number LIKE '%' || $2)
		LIMIT 1
	`, contact, normalizedPhone))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE username=$1
	`, username))
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email_id=$1)`, email).Scan(&exists)
	return exists, err
}

func (r *UserRepo) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE phone_number=$1)`, phone).Scan(&exists)
	return exists, err
}

func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, username).Scan(&exists)
	return exists, err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash=$2 WHERE user_id=$1`, userID, passwordHash)
	return err
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET is_verified=TRUE WHERE user_id=$1`, userID)
	return err
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at=$2 WHERE user_id=$1`, userID, at)
	return err
}

func (r *UserRepo) LogLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO login_attempts (id, identifier, ip_address, success, failure_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, a.ID, a.Identifier, a.IPAddress, a.Success, a.FailureReason, a.CreatedAt)
	return err
}

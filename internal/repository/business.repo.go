package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/domain"
	"huddle-api/pkg/xerrors"
)

type BusinessRepo struct {
	pool *pgxpool.Pool
}

func NewBusinessRepo(pool *pgxpool.Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

func (r *BusinessRepo) Create(ctx context.Context, b *domain.BusinessVerification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO business_verifications (id, user_id, business_name, business_description,
			business_type, business_country, registration_number, owner_name, owner_email,
			phone_number, website, city, state, postal_code, status, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, b.ID, b.UserID, b.BusinessName, b.BusinessDescription,
		b.BusinessType, b.BusinessCountry, b.RegistrationNumber, b.OwnerName, b.OwnerEmail,
		b.PhoneNumber, b.Website, b.City, b.State, b.PostalCode, b.Status, b.SubmittedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const businessColumns = `id, user_id, business_name, business_description, business_type,
	business_country, registration_number, owner_name, owner_email, phone_number,
	website, city, state, postal_code, status, submitted_at`

func (r *BusinessRepo) scan(row pgx.Row) (*domain.BusinessVerification, error) {
	var b domain.BusinessVerification
	err := row.Scan(&b.ID, &b.UserID, &b.BusinessName, &b.BusinessDescription, &b.BusinessType,
		&b.BusinessCountry, &b.RegistrationNumber, &b.OwnerName, &b.OwnerEmail, &b.PhoneNumber,
		&b.Website, &b.City, &b.State, &b.PostalCode, &b.Status, &b.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepo) GetByID(ctx context.Context, id int64) (*domain.BusinessVerification, error) {
	return r.scan(r.pool.QueryRow(ctx, `
		SELECT `+businessColumns+` FROM business_verifications WHERE id=$1
	`, id))
}

func (r *BusinessRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.BusinessVerification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+businessColumns+` FROM business_verifications
		WHERE user_id=$1 ORDER BY submitted_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BusinessVerification
	for rows.Next() {
		var b domain.BusinessVerification
		if err := rows.Scan(&b.ID, &b.UserID, &b.BusinessName, &b.BusinessDescription, &b.BusinessType,
			&b.BusinessCountry, &b.RegistrationNumber, &b.OwnerName, &b.OwnerEmail, &b.PhoneNumber,
			&b.Website, &b.City, &b.State, &b.PostalCode, &b.Status, &b.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

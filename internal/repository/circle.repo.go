package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/domain"
	"huddle-api/internal/service/circle"
	"huddle-api/pkg/xerrors"
)

type CircleRepo struct {
	pool *pgxpool.Pool
	q    querier
}

func NewCircleRepo(pool *pgxpool.Pool) *CircleRepo {
	return &CircleRepo{pool: pool, q: pool}
}

func (r *CircleRepo) InTx(ctx context.Context, fn func(ctx context.Context, s circle.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &CircleRepo{pool: r.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CircleRepo) CreateCircle(ctx context.Context, c *domain.Circle) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO circles (circle_id, circle_name, description, profile_photo, categories,
			circle_type, only_admin_can_post, allow_join_request, created_by, status,
			invitations_sent, invitations_accepted, invitations_declined, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,0,0,$12)
	`, c.ID, c.Name, c.Description, c.ProfilePhoto, c.Categories,
		c.CircleType, c.OnlyAdminCanPost, c.AllowJoinRequest, c.CreatedBy, c.Status,
		c.InvitationsSent, c.CreatedAt)
	return err
}

func (r *CircleRepo) CreateInvitations(ctx context.Context, invs []*domain.CircleInvitation) error {
	for _, inv := range invs {
		_, err := r.q.Exec(ctx, `
			INSERT INTO circle_invitations (id, circle_id, user_id, status, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, inv.ID, inv.CircleID, inv.UserID, inv.Status, inv.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

const circleColumns = `circle_id, circle_name, description, profile_photo, categories,
	circle_type, only_admin_can_post, allow_join_request, created_by, status,
	invitations_sent, invitations_accepted, invitations_declined, created_at`

func (r *CircleRepo) scanCircle(row pgx.Row) (*domain.Circle, error) {
	var c domain.Circle
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ProfilePhoto, &c.Categories,
		&c.CircleType, &c.OnlyAdminCanPost, &c.AllowJoinRequest, &c.CreatedBy, &c.Status,
		&c.InvitationsSent, &c.InvitationsAccepted, &c.InvitationsDeclined, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrCircleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CircleRepo) GetCircle(ctx context.Context, circleID int64) (*domain.Circle, error) {
	return r.scanCircle(r.q.QueryRow(ctx, `
		SELECT `+circleColumns+` FROM circles WHERE circle_id=$1
	`, circleID))
}

// LockCircle re-reads the circle row FOR UPDATE inside the caller's tx.
func (r *CircleRepo) LockCircle(ctx context.Context, circleID int64) (*domain.Circle, error) {
	return r.scanCircle(r.q.QueryRow(ctx, `
		SELECT `+circleColumns+` FROM circles WHERE circle_id=$1 FOR UPDATE
	`, circleID))
}

const invitationColumns = `id, circle_id, user_id, status, accepted_at, declined_at, created_at`

func (r *CircleRepo) scanInvitation(row pgx.Row) (*domain.CircleInvitation, error) {
	var inv domain.CircleInvitation
	err := row.Scan(&inv.ID, &inv.CircleID, &inv.UserID, &inv.Status,
		&inv.AcceptedAt, &inv.DeclinedAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *CircleRepo) PendingInvitation(ctx context.Context, circleID, userID int64) (*domain.CircleInvitation, error) {
	return r.scanInvitation(r.q.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM circle_invitations
		WHERE circle_id=$1 AND user_id=$2 AND status='pending'
		FOR UPDATE
	`, circleID, userID))
}

func (r *CircleRepo) PendingInvitationByID(ctx context.Context, invitationID int64) (*domain.CircleInvitation, error) {
	return r.scanInvitation(r.q.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM circle_invitations
		WHERE id=$1 AND status='pending'
		FOR UPDATE
	`, invitationID))
}

func (r *CircleRepo) ResolveInvitation(ctx context.Context, invitationID int64, status string, at time.Time) error {
	var err error
	switch status {
	case domain.InvitationAccepted:
		_, err = r.q.Exec(ctx, `
			UPDATE circle_invitations SET status=$2, accepted_at=$3 WHERE id=$1
		`, invitationID, status, at)
	case domain.InvitationDeclined:
		_, err = r.q.Exec(ctx, `
			UPDATE circle_invitations SET status=$2, declined_at=$3 WHERE id=$1
		`, invitationID, status, at)
	default:
		err = xerrors.ErrInvalidInput
	}
	return err
}

func (r *CircleRepo) IncrementSent(ctx context.Context, circleID int64, n int) (int, error) {
	var total int
	err := r.q.QueryRow(ctx, `
		UPDATE circles SET invitations_sent = invitations_sent + $2
		WHERE circle_id=$1
		RETURNING invitations_sent
	`, circleID, n).Scan(&total)
	return total, err
}

func (r *CircleRepo) IncrementAccepted(ctx context.Context, circleID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		UPDATE circles SET invitations_accepted = invitations_accepted + 1
		WHERE circle_id=$1
		RETURNING invitations_accepted
	`, circleID).Scan(&n)
	return n, err
}

func (r *CircleRepo) IncrementDeclined(ctx context.Context, circleID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		UPDATE circles SET invitations_declined = invitations_declined + 1
		WHERE circle_id=$1
		RETURNING invitations_declined
	`, circleID).Scan(&n)
	return n, err
}

func (r *CircleRepo) SetCircleStatus(ctx context.Context, circleID int64, status string) error {
	_, err := r.q.Exec(ctx, `UPDATE circles SET status=$2 WHERE circle_id=$1`, circleID, status)
	return err
}

// AddMember is create-if-absent on (circle_id, user_id).
func (r *CircleRepo) AddMember(ctx context.Context, m *domain.CircleMember) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO circle_members (id, circle_id, user_id, role, joined_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (circle_id, user_id) DO NOTHING
	`, m.ID, m.CircleID, m.UserID, m.Role, m.JoinedAt)
	return err
}

func (r *CircleRepo) ListPendingByCreator(ctx context.Context, creatorID int64) ([]*domain.CircleInvitation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+invitationColumns+`
		FROM circle_invitations
		WHERE status='pending'
		  AND circle_id IN (SELECT circle_id FROM circles WHERE created_by=$1)
		ORDER BY created_at DESC
	`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []*domain.CircleInvitation
	for rows.Next() {
		var inv domain.CircleInvitation
		if err := rows.Scan(&inv.ID, &inv.CircleID, &inv.UserID, &inv.Status,
			&inv.AcceptedAt, &inv.DeclinedAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invs = append(invs, &inv)
	}
	return invs, rows.Err()
}

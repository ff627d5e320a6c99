package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/domain"
	"huddle-api/pkg/xerrors"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `post_id, user_id, circle_id, title, content, media_url, views, created_at, updated_at`

func (r *PostRepo) scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.UserID, &p.CircleID, &p.Title, &p.Content,
		&p.MediaURL, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostRepo) Create(ctx context.Context, p *domain.Post) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (post_id, user_id, circle_id, title, content, media_url, views, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,$7,$7)
	`, p.ID, p.UserID, p.CircleID, p.Title, p.Content, p.MediaURL, p.CreatedAt)
	return err
}

func (r *PostRepo) GetByID(ctx context.Context, postID int64) (*domain.Post, error) {
	return r.scanPost(r.pool.QueryRow(ctx, `
		SELECT `+postColumns+` FROM posts WHERE post_id=$1
	`, postID))
}

func (r *PostRepo) List(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.CircleID, &p.Title, &p.Content,
			&p.MediaURL, &p.Views, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

func (r *PostRepo) Update(ctx context.Context, p *domain.Post) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET title=$2, content=$3, media_url=$4, updated_at=NOW()
		WHERE post_id=$1
	`, p.ID, p.Title, p.Content, p.MediaURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, postID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE post_id=$1`, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrPostNotFound
	}
	return nil
}

// IncrementViews is a single atomic UPDATE, not read-modify-write.
func (r *PostRepo) IncrementViews(ctx context.Context, postID int64) (int64, error) {
	var views int64
	err := r.pool.QueryRow(ctx, `
		UPDATE posts SET views = views + 1 WHERE post_id=$1 RETURNING views
	`, postID).Scan(&views)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, xerrors.ErrPostNotFound
	}
	return views, err
}

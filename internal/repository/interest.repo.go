package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"huddle-api/internal/domain"
)

type InterestRepo struct {
	pool *pgxpool.Pool
}

func NewInterestRepo(pool *pgxpool.Pool) *InterestRepo {
	return &InterestRepo{pool: pool}
}

// List returns the interest catalog, optionally filtered to one category.
func (r *InterestRepo) List(ctx context.Context, category string) ([]*domain.Interest, error) {
	query := `SELECT interest_id, name, category FROM interests ORDER BY category, name`
	args := []interface{}{}
	if category != "" {
		query = `SELECT interest_id, name, category FROM interests WHERE category=$1 ORDER BY name`
		args = append(args, category)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interests []*domain.Interest
	for rows.Next() {
		var in domain.Interest
		if err := rows.Scan(&in.ID, &in.Name, &in.Category); err != nil {
			return nil, err
		}
		interests = append(interests, &in)
	}
	return interests, rows.Err()
}

func (r *InterestRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM interests ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

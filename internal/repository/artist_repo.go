package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fan-vote/internal/domain"
)

type ArtistRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (domain.Artist, error)
	List(ctx context.Context) ([]domain.Artist, error)
}

type PgArtistRepository struct {
	pool *pgxpool.Pool
}

func NewPgArtistRepository(pool *pgxpool.Pool) *PgArtistRepository {
	return &PgArtistRepository{pool: pool}
}

func (r *PgArtistRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM artists WHERE id = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, id).Scan(&exists)
	return exists, err
}

func (r *PgArtistRepository) Get(ctx context.Context, id string) (domain.Artist, error) {
	const query = `
		SELECT id, name, sort_order, created_at
		FROM artists
		WHERE id = $1
	`
	var a domain.Artist
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.SortOrder, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Artist{}, err
	}
	return a, err
}

func (r *PgArtistRepository) List(ctx context.Context) ([]domain.Artist, error) {
	const query = `
		SELECT id, name, sort_order, created_at
		FROM artists
		ORDER BY sort_order, name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []domain.Artist
	for rows.Next() {
		var a domain.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.SortOrder, &a.CreatedAt); err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fan-vote/internal/domain"
)

// TallyRepository expone el incremento atomico primario y las piezas
// sueltas (Get/Put) que usa la ruta degradada de read-modify-write.
type TallyRepository interface {
	// IncrementAtomic suma amount en una sola sentencia; upsert en el primer voto.
	IncrementAtomic(ctx context.Context, artistID string, amount int64) error
	Get(ctx context.Context, artistID string) (domain.ArtistTally, error)
	Put(ctx context.Context, artistID string, points int64) error
}

type PgTallyRepository struct {
	pool *pgxpool.Pool
}

func NewPgTallyRepository(pool *pgxpool.Pool) *PgTallyRepository {
	return &PgTallyRepository{pool: pool}
}

func (r *PgTallyRepository) IncrementAtomic(ctx context.Context, artistID string, amount int64) error {
	const query = `
		INSERT INTO artist_tallies (artist_id, points, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (artist_id)
		DO UPDATE SET points = artist_tallies.points + EXCLUDED.points, updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query, artistID, amount)
	return err
}

func (r *PgTallyRepository) Get(ctx context.Context, artistID string) (domain.ArtistTally, error) {
	const query = `
		SELECT artist_id, points, updated_at
		FROM artist_tallies
		WHERE artist_id = $1
	`
	var t domain.ArtistTally
	err := r.pool.QueryRow(ctx, query, artistID).Scan(&t.ArtistID, &t.Points, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ArtistTally{ArtistID: artistID}, err
	}
	return t, err
}

func (r *PgTallyRepository) Put(ctx context.Context, artistID string, points int64) error {
	const query = `
		INSERT INTO artist_tallies (artist_id, points, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (artist_id)
		DO UPDATE SET points = EXCLUDED.points, updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query, artistID, points)
	return err
}

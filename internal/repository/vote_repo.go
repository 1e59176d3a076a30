package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fan-vote/internal/domain"
)

// VoteRepository persiste votos; la restriccion compuesta
// (voter_identity_key, artist_id, created_on) es la garantia autoritativa
// de un voto por identidad, artista y dia.
type VoteRepository interface {
	Insert(ctx context.Context, vote domain.Vote) error
	// ExistsForDay es la consulta de cortesia previa al submit; es
	// inherentemente carrera y nunca reemplaza a la restriccion.
	ExistsForDay(ctx context.Context, identityKey, artistID, day string) (bool, error)
	CountForArtist(ctx context.Context, artistID string) (int64, error)
}

type PgVoteRepository struct {
	pool *pgxpool.Pool
}

func NewPgVoteRepository(pool *pgxpool.Pool) *PgVoteRepository {
	return &PgVoteRepository{pool: pool}
}

func (r *PgVoteRepository) Insert(ctx context.Context, vote domain.Vote) error {
	const query = `
		INSERT INTO votes (
			id, artist_id, voter_identity_key, subject_id,
			voter_name, message, created_on, is_approved, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		vote.ID,
		vote.ArtistID,
		vote.VoterIdentityKey,
		vote.SubjectID,
		vote.VoterName,
		vote.Message,
		vote.CreatedOn,
		vote.IsApproved,
		vote.CreatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *PgVoteRepository) ExistsForDay(ctx context.Context, identityKey, artistID, day string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM votes
			WHERE voter_identity_key = $1 AND artist_id = $2 AND created_on = $3
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, identityKey, artistID, day).Scan(&exists)
	return exists, err
}

func (r *PgVoteRepository) CountForArtist(ctx context.Context, artistID string) (int64, error) {
	const query = `SELECT count(*) FROM votes WHERE artist_id = $1`
	var n int64
	err := r.pool.QueryRow(ctx, query, artistID).Scan(&n)
	return n, err
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fan-vote/internal/domain"
)

// MemberRepository define el contrato de persistencia para las dos tablas
// de membresia. Las clases son disjuntas: un subject vive a lo sumo en una.
type MemberRepository interface {
	GetIndividualBySubject(ctx context.Context, subjectID string) (domain.IndividualProfile, error)
	GetSponsorBySubject(ctx context.Context, subjectID string) (domain.SponsorProfile, error)
	// ClassByEmail busca el email en ambas tablas; pgx.ErrNoRows si no existe.
	ClassByEmail(ctx context.Context, email string) (domain.MemberClass, error)
	// MaxMemberID devuelve el member_id secuencial mas alto con el prefijo
	// dado, o pgx.ErrNoRows si la tabla aun no tiene ids con ese prefijo.
	// Los ids degradados de timestamp quedan fuera: no son parte de la
	// secuencia y no deben mover su punto de reanudacion.
	MaxMemberID(ctx context.Context, class domain.MemberClass, prefix string) (string, error)
	CreateIndividual(ctx context.Context, profile domain.IndividualProfile) error
	CreateSponsor(ctx context.Context, profile domain.SponsorProfile) error
}

type PgMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgMemberRepository(pool *pgxpool.Pool) *PgMemberRepository {
	return &PgMemberRepository{pool: pool}
}

func (r *PgMemberRepository) GetIndividualBySubject(ctx context.Context, subjectID string) (domain.IndividualProfile, error) {
	const query = `
		SELECT member_id, subject_id, email, last_name, first_name,
		       last_name_kana, first_name_kana, birth_date, gender,
		       phone_number, nickname, created_at
		FROM individual_members
		WHERE subject_id = $1
	`
	var p domain.IndividualProfile
	err := r.pool.QueryRow(ctx, query, subjectID).Scan(
		&p.MemberID,
		&p.SubjectID,
		&p.Email,
		&p.LastName,
		&p.FirstName,
		&p.LastNameKana,
		&p.FirstNameKana,
		&p.BirthDate,
		&p.Gender,
		&p.PhoneNumber,
		&p.Nickname,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IndividualProfile{}, err
	}
	return p, err
}

func (r *PgMemberRepository) GetSponsorBySubject(ctx context.Context, subjectID string) (domain.SponsorProfile, error) {
	const query = `
		SELECT member_id, subject_id, email, last_name, first_name,
		       company_name, company_address, department, position,
		       contact_phone, created_at
		FROM sponsor_members
		WHERE subject_id = $1
	`
	var p domain.SponsorProfile
	err := r.pool.QueryRow(ctx, query, subjectID).Scan(
		&p.MemberID,
		&p.SubjectID,
		&p.Email,
		&p.LastName,
		&p.FirstName,
		&p.CompanyName,
		&p.CompanyAddress,
		&p.Department,
		&p.Position,
		&p.ContactPhone,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SponsorProfile{}, err
	}
	return p, err
}

func (r *PgMemberRepository) ClassByEmail(ctx context.Context, email string) (domain.MemberClass, error) {
	const query = `
		SELECT 'individual' AS class FROM individual_members WHERE lower(email) = lower($1)
		UNION ALL
		SELECT 'sponsor' AS class FROM sponsor_members WHERE lower(email) = lower($1)
		LIMIT 1
	`
	var class string
	err := r.pool.QueryRow(ctx, query, email).Scan(&class)
	if err != nil {
		return "", err
	}
	return domain.MemberClass(class), nil
}

func (r *PgMemberRepository) MaxMemberID(ctx context.Context, class domain.MemberClass, prefix string) (string, error) {
	query := `
		SELECT member_id FROM individual_members
		WHERE member_id ~ ('^' || $1 || '[0-9]{6}$')
		ORDER BY member_id DESC
		LIMIT 1
	`
	if class == domain.ClassSponsor {
		query = `
			SELECT member_id FROM sponsor_members
			WHERE member_id ~ ('^' || $1 || '[0-9]{6}$')
			ORDER BY member_id DESC
			LIMIT 1
		`
	}
	var id string
	err := r.pool.QueryRow(ctx, query, prefix).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgMemberRepository) CreateIndividual(ctx context.Context, profile domain.IndividualProfile) error {
	const query = `
		INSERT INTO individual_members (
			member_id, subject_id, email, last_name, first_name,
			last_name_kana, first_name_kana, birth_date, gender,
			phone_number, nickname, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		profile.MemberID,
		profile.SubjectID,
		profile.Email,
		profile.LastName,
		profile.FirstName,
		profile.LastNameKana,
		profile.FirstNameKana,
		profile.BirthDate,
		profile.Gender,
		profile.PhoneNumber,
		profile.Nickname,
		profile.CreatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *PgMemberRepository) CreateSponsor(ctx context.Context, profile domain.SponsorProfile) error {
	const query = `
		INSERT INTO sponsor_members (
			member_id, subject_id, email, last_name, first_name,
			company_name, company_address, department, position,
			contact_phone, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		profile.MemberID,
		profile.SubjectID,
		profile.Email,
		profile.LastName,
		profile.FirstName,
		profile.CompanyName,
		profile.CompanyAddress,
		profile.Department,
		profile.Position,
		profile.ContactPhone,
		profile.CreatedAt,
	)
	return mapUniqueViolation(err)
}

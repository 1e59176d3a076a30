package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Errores de conflicto mapeados desde violaciones de unicidad (23505).
// No-encontrado se reporta como pgx.ErrNoRows, nunca como error de conflicto.
var (
	ErrDuplicateMemberID = errors.New("duplicate member id")
	ErrDuplicateSubject  = errors.New("subject already has a profile")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateVote     = errors.New("duplicate vote for identity, artist and day")
)

const pgUniqueViolation = "23505"

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	name := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(name, "member_id"):
		return ErrDuplicateMemberID
	case strings.Contains(name, "subject"):
		return ErrDuplicateSubject
	case strings.Contains(name, "email"):
		return ErrDuplicateEmail
	case strings.Contains(name, "vote"):
		return ErrDuplicateVote
	}
	return err
}

// IsConflict indica si el error es una violacion de unicidad ya tipada.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateMemberID) ||
		errors.Is(err, ErrDuplicateSubject) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicateVote)
}

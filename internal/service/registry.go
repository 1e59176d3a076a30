package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fan-vote/internal/domain"
	"fan-vote/internal/metrics"
	"fan-vote/internal/repository"
)

var (
	ErrProfileNotFound        = errors.New("profile not found")
	ErrProfileExists          = errors.New("subject already has a profile")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidProfile         = errors.New("invalid profile fields")
)

// ProfileInput reune los campos de registro; cada clase valida los suyos.
type ProfileInput struct {
	Email         string
	LastName      string
	FirstName     string
	LastNameKana  string
	FirstNameKana string
	BirthDate     string
	Gender        string
	PhoneNumber   string
	Nickname      string

	CompanyName    string
	CompanyAddress string
	Department     string
	Position       string
	ContactPhone   string
}

// RegistryGateway resuelve a que clase de membresia pertenece un subject y
// crea perfiles nuevos en exactamente una clase.
type RegistryGateway struct {
	logger     *zap.Logger
	members    repository.MemberRepository
	allocator  *IDAllocator
	allocRetry RetryPolicy
}

func NewRegistryGateway(logger *zap.Logger, members repository.MemberRepository, allocator *IDAllocator) *RegistryGateway {
	return &RegistryGateway{
		logger:     logger,
		members:    members,
		allocator:  allocator,
		allocRetry: DefaultAllocRetry(),
	}
}

// Lookup busca primero la clase individual y despues sponsor. El orden es un
// desempate fijo, no un requisito de correccion: las clases son disjuntas.
// Devuelve ErrProfileNotFound cuando el subject no tiene perfil en ninguna.
func (g *RegistryGateway) Lookup(ctx context.Context, subjectID string) (domain.MemberProfile, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.MemberProfile{}, ErrProfileNotFound
	}

	individual, err := g.members.GetIndividualBySubject(ctx, subjectID)
	if err == nil {
		return domain.NewIndividualMember(individual), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.MemberProfile{}, fmt.Errorf("lookup individual: %w", err)
	}

	sponsor, err := g.members.GetSponsorBySubject(ctx, subjectID)
	if err == nil {
		return domain.NewSponsorMember(sponsor), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.MemberProfile{}, fmt.Errorf("lookup sponsor: %w", err)
	}

	return domain.MemberProfile{}, ErrProfileNotFound
}

// CompleteProfile crea el perfil del subject en la clase pedida. Idempotente
// bajo reintentos: un segundo intento tras exito devuelve ErrProfileExists o
// ErrEmailAlreadyRegistered, nunca un segundo perfil. Una colision de
// member_id no es evidencia de un perfil existente para este subject; se
// reintenta con un id recien asignado.
func (g *RegistryGateway) CompleteProfile(ctx context.Context, class domain.MemberClass, subject domain.AuthSubject, input ProfileInput) (domain.MemberProfile, error) {
	if err := validateProfileInput(class, subject, input); err != nil {
		return domain.MemberProfile{}, err
	}

	// Re-chequeo previo al create: un create no es reintentable sin
	// verificar que lookup siga siendo "no encontrado".
	if existing, err := g.Lookup(ctx, subject.ID); err == nil {
		// Cualquier clase cuenta: las membresias son disjuntas.
		return existing, ErrProfileExists
	} else if !errors.Is(err, ErrProfileNotFound) {
		return domain.MemberProfile{}, err
	}

	email := profileEmail(subject, input)

	// Chequeo cruzado de email en ambas clases: evita que la misma persona
	// tenga perfil individual y sponsor bajo subjects distintos.
	if _, err := g.members.ClassByEmail(ctx, email); err == nil {
		return domain.MemberProfile{}, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.MemberProfile{}, fmt.Errorf("email check: %w", err)
	}

	var created domain.MemberProfile
	attempt := 0
	err := g.allocRetry.Do(ctx, func() error {
		attempt++
		memberID, err := g.allocator.Next(ctx, class)
		if err != nil {
			return Permanent(err)
		}

		profile, err := g.create(ctx, class, memberID, subject, email, input)
		if err == nil {
			created = profile
			return nil
		}
		if errors.Is(err, repository.ErrDuplicateMemberID) {
			metrics.AllocatorCollisions.Inc()
			if g.logger != nil {
				g.logger.Warn("member id collision, reallocating",
					zap.String("member_id", memberID), zap.Int("attempt", attempt))
			}
			return err
		}
		return Permanent(err)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateMemberID):
			// Agotados los intentos sigue colisionando: error fatal de
			// asignacion, jamas degradado en silencio.
			return domain.MemberProfile{}, ErrAllocatorExhausted
		case errors.Is(err, repository.ErrDuplicateSubject):
			return domain.MemberProfile{}, ErrProfileExists
		case errors.Is(err, repository.ErrDuplicateEmail):
			return domain.MemberProfile{}, ErrEmailAlreadyRegistered
		}
		return domain.MemberProfile{}, err
	}

	if g.logger != nil {
		g.logger.Info("profile created",
			zap.String("class", string(class)),
			zap.String("member_id", created.MemberID()),
			zap.String("subject_id", subject.ID))
	}
	return created, nil
}

func (g *RegistryGateway) create(ctx context.Context, class domain.MemberClass, memberID string, subject domain.AuthSubject, email string, input ProfileInput) (domain.MemberProfile, error) {
	now := time.Now().UTC()
	switch class {
	case domain.ClassIndividual:
		profile := domain.IndividualProfile{
			MemberID:      memberID,
			SubjectID:     subject.ID,
			Email:         email,
			LastName:      strings.TrimSpace(input.LastName),
			FirstName:     strings.TrimSpace(input.FirstName),
			LastNameKana:  strings.TrimSpace(input.LastNameKana),
			FirstNameKana: strings.TrimSpace(input.FirstNameKana),
			BirthDate:     strings.TrimSpace(input.BirthDate),
			Gender:        strings.TrimSpace(input.Gender),
			PhoneNumber:   NormalizePhone(input.PhoneNumber),
			Nickname:      strings.TrimSpace(input.Nickname),
			CreatedAt:     now,
		}
		if err := g.members.CreateIndividual(ctx, profile); err != nil {
			return domain.MemberProfile{}, err
		}
		return domain.NewIndividualMember(profile), nil
	case domain.ClassSponsor:
		profile := domain.SponsorProfile{
			MemberID:       memberID,
			SubjectID:      subject.ID,
			Email:          email,
			LastName:       strings.TrimSpace(input.LastName),
			FirstName:      strings.TrimSpace(input.FirstName),
			CompanyName:    strings.TrimSpace(input.CompanyName),
			CompanyAddress: strings.TrimSpace(input.CompanyAddress),
			Department:     strings.TrimSpace(input.Department),
			Position:       strings.TrimSpace(input.Position),
			ContactPhone:   NormalizePhone(input.ContactPhone),
			CreatedAt:      now,
		}
		if err := g.members.CreateSponsor(ctx, profile); err != nil {
			return domain.MemberProfile{}, err
		}
		return domain.NewSponsorMember(profile), nil
	}
	return domain.MemberProfile{}, ErrUnknownClass
}

func validateProfileInput(class domain.MemberClass, subject domain.AuthSubject, input ProfileInput) error {
	if strings.TrimSpace(subject.ID) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidProfile)
	}
	if profileEmail(subject, input) == "" {
		return fmt.Errorf("%w: missing email", ErrInvalidProfile)
	}
	if strings.TrimSpace(input.LastName) == "" || strings.TrimSpace(input.FirstName) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	switch class {
	case domain.ClassIndividual:
		if strings.TrimSpace(input.BirthDate) == "" {
			return fmt.Errorf("%w: missing birth date", ErrInvalidProfile)
		}
		if NormalizePhone(input.PhoneNumber) == "" {
			return fmt.Errorf("%w: missing phone number", ErrInvalidProfile)
		}
	case domain.ClassSponsor:
		if strings.TrimSpace(input.CompanyName) == "" {
			return fmt.Errorf("%w: missing company name", ErrInvalidProfile)
		}
		if NormalizePhone(input.ContactPhone) == "" {
			return fmt.Errorf("%w: missing contact phone", ErrInvalidProfile)
		}
	default:
		return ErrUnknownClass
	}
	return nil
}

func profileEmail(subject domain.AuthSubject, input ProfileInput) string {
	email := strings.ToLower(strings.TrimSpace(subject.Email))
	if email == "" {
		email = strings.ToLower(strings.TrimSpace(input.Email))
	}
	return email
}

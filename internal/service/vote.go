package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fan-vote/internal/domain"
	"fan-vote/internal/metrics"
	"fan-vote/internal/repository"
)

var (
	ErrAlreadyVotedToday = errors.New("already voted today")
	ErrArtistNotFound    = errors.New("artist not found")
	ErrPhoneMismatch     = errors.New("phone does not match the one on file")
	ErrPhoneNotVerified  = errors.New("phone not verified for this submission")
	ErrInvalidVote       = errors.New("invalid vote")
)

const defaultVoteMessageMax = 500

// VoteService es el ledger de votos: valida la intencion, hace cumplir un
// voto por identidad, artista y dia, y solo tras un insert durable dispara
// la actualizacion del tally.
type VoteService struct {
	logger     *zap.Logger
	votes      repository.VoteRepository
	artists    repository.ArtistRepository
	tally      *TallyUpdater
	otp        *OTPVerifier
	weight     int64
	location   *time.Location
	messageMax int
}

func NewVoteService(logger *zap.Logger, votes repository.VoteRepository, artists repository.ArtistRepository, tally *TallyUpdater, otp *OTPVerifier, weight int64, location *time.Location, messageMax int) *VoteService {
	if weight <= 0 {
		weight = 10
	}
	if location == nil {
		location = time.UTC
	}
	if messageMax <= 0 {
		messageMax = defaultVoteMessageMax
	}
	return &VoteService{
		logger:     logger,
		votes:      votes,
		artists:    artists,
		tally:      tally,
		otp:        otp,
		weight:     weight,
		location:   location,
		messageMax: messageMax,
	}
}

// SubmitInput es la intencion de voto tal como llega de la capa superior.
type SubmitInput struct {
	FlowID    string
	ArtistID  string
	Phone     string
	VoterName string
	Message   string
}

// Today devuelve el dia calendario de votacion en la zona configurada.
func (s *VoteService) Today() string {
	return time.Now().In(s.location).Format("2006-01-02")
}

// AlreadyVotedToday es el pre-chequeo consultivo para la UI. Es carrera por
// naturaleza: la verificacion de telefono entre este chequeo y el insert
// puede tardar segundos y otra pestana puede colarse. La restriccion del
// almacen sigue siendo la unica garantia.
func (s *VoteService) AlreadyVotedToday(ctx context.Context, phone, artistID string) (bool, error) {
	key := NormalizePhone(phone)
	if key == "" || strings.TrimSpace(artistID) == "" {
		return false, ErrInvalidVote
	}
	return s.votes.ExistsForDay(ctx, key, artistID, s.Today())
}

// Submit registra el voto. Miembros autenticados con telefono registrado
// saltan el paso OTP pero el telefono enviado debe coincidir exactamente con
// el registrado; votantes anonimos deben traer una confirmacion OTP vigente,
// que se consume aqui.
func (s *VoteService) Submit(ctx context.Context, identity domain.ResolvedIdentity, in SubmitInput) (domain.Vote, error) {
	artistID := strings.TrimSpace(in.ArtistID)
	phone := NormalizePhone(in.Phone)
	voterName := strings.TrimSpace(in.VoterName)
	message := strings.TrimSpace(in.Message)

	if artistID == "" || phone == "" || voterName == "" {
		metrics.VoteSubmissions.WithLabelValues("rejected").Inc()
		return domain.Vote{}, fmt.Errorf("%w: missing artist, phone or name", ErrInvalidVote)
	}
	if utf8.RuneCountInString(message) > s.messageMax {
		metrics.VoteSubmissions.WithLabelValues("rejected").Inc()
		return domain.Vote{}, fmt.Errorf("%w: message too long", ErrInvalidVote)
	}

	exists, err := s.artists.Exists(ctx, artistID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("artist check: %w", err)
	}
	if !exists {
		metrics.VoteSubmissions.WithLabelValues("rejected").Inc()
		return domain.Vote{}, ErrArtistNotFound
	}

	subjectID := ""
	if identity.State == domain.StateMember {
		onFile := NormalizePhone(identity.OnFilePhone())
		if onFile == "" || onFile != phone {
			// Un telefono distinto al registrado es error de validacion;
			// no se corrige en silencio.
			metrics.VoteSubmissions.WithLabelValues("rejected").Inc()
			return domain.Vote{}, ErrPhoneMismatch
		}
		if identity.Subject != nil {
			subjectID = identity.Subject.ID
		}
	} else {
		if s.otp == nil || !s.otp.Consume(in.FlowID, phone) {
			metrics.VoteSubmissions.WithLabelValues("rejected").Inc()
			return domain.Vote{}, ErrPhoneNotVerified
		}
		if identity.Subject != nil {
			subjectID = identity.Subject.ID
		}
	}

	vote := domain.Vote{
		ID:               uuid.NewString(),
		ArtistID:         artistID,
		VoterIdentityKey: phone,
		SubjectID:        subjectID,
		VoterName:        voterName,
		Message:          message,
		CreatedOn:        s.Today(),
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.votes.Insert(ctx, vote); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			// El perdedor de la carrera recibe esto deterministicamente,
			// sin importar que request llego primero al servidor.
			metrics.VoteSubmissions.WithLabelValues("already_voted").Inc()
			return domain.Vote{}, ErrAlreadyVotedToday
		}
		metrics.VoteSubmissions.WithLabelValues("error").Inc()
		return domain.Vote{}, fmt.Errorf("insert vote: %w", err)
	}

	// El tally solo se toca con el insert ya aceptado. Una falla aqui es
	// advertencia suave: el voto (fuente de verdad) ya es durable y el
	// tally puede reconstruirse desde el ledger.
	if err := s.tally.Increment(ctx, artistID, s.weight); err != nil && s.logger != nil {
		s.logger.Warn("tally update failed after durable vote",
			zap.String("artist_id", artistID),
			zap.String("vote_id", vote.ID),
			zap.Error(err))
	}

	metrics.VoteSubmissions.WithLabelValues("accepted").Inc()
	if s.logger != nil {
		s.logger.Info("vote accepted",
			zap.String("artist_id", artistID),
			zap.String("vote_id", vote.ID),
			zap.String("created_on", vote.CreatedOn))
	}
	return vote, nil
}

// RebuildTally recalcula los puntos de un artista desde el ledger. Util
// tras fallas del incremento; el tally es una proyeccion, no la verdad.
func (s *VoteService) RebuildTally(ctx context.Context, artistID string) (int64, error) {
	count, err := s.votes.CountForArtist(ctx, artistID)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	points := count * s.weight
	if err := s.tally.tallies.Put(ctx, artistID, points); err != nil {
		return 0, fmt.Errorf("rebuild tally: %w", err)
	}
	return points, nil
}

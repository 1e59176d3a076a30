package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fan-vote/internal/domain"
	"fan-vote/internal/metrics"
	"fan-vote/internal/repository"
)

const (
	individualIDPrefix = "FM"
	sponsorIDPrefix    = "SP"
	idSequenceWidth    = 6
)

var (
	ErrAllocatorExhausted = errors.New("member id allocation exhausted")
	ErrUnknownClass       = errors.New("unknown member class")
)

// IDAllocator genera member_ids legibles y crecientes: prefijo de clase +
// secuencia con ceros a la izquierda. La lectura max-id no es atomica frente
// a asignadores concurrentes; la garantia real es la restriccion de unicidad
// en el insert, y el llamador reintenta con un id fresco ante colision.
type IDAllocator struct {
	logger  *zap.Logger
	members repository.MemberRepository
}

func NewIDAllocator(logger *zap.Logger, members repository.MemberRepository) *IDAllocator {
	return &IDAllocator{logger: logger, members: members}
}

func ClassPrefix(class domain.MemberClass) (string, error) {
	switch class {
	case domain.ClassIndividual:
		return individualIDPrefix, nil
	case domain.ClassSponsor:
		return sponsorIDPrefix, nil
	}
	return "", ErrUnknownClass
}

// Next lee el id mas alto del prefijo y devuelve el siguiente de la
// secuencia. Una falla de transporte en la lectura (no una colision) cae al
// id degradado de timestamp + sufijo aleatorio: sacrifica monotonicidad por
// vivacidad, y se cuenta en metricas.
func (a *IDAllocator) Next(ctx context.Context, class domain.MemberClass) (string, error) {
	prefix, err := ClassPrefix(class)
	if err != nil {
		return "", err
	}

	last, err := a.members.MaxMemberID(ctx, class, prefix)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Sprintf("%s%0*d", prefix, idSequenceWidth, 1), nil
	}
	if err != nil {
		metrics.AllocatorFallbackIDs.Inc()
		if a.logger != nil {
			a.logger.Warn("member id read failed, using timestamp fallback",
				zap.String("class", string(class)), zap.Error(err))
		}
		return fallbackMemberID(prefix)
	}

	seq, err := parseSequence(last, prefix)
	if err != nil {
		// El almacen solo devuelve ids con formato secuencial; si aun asi
		// llega algo fuera de formato, no debe frenar la asignacion.
		metrics.AllocatorFallbackIDs.Inc()
		if a.logger != nil {
			a.logger.Warn("unparseable max member id, using timestamp fallback",
				zap.String("member_id", last), zap.Error(err))
		}
		return fallbackMemberID(prefix)
	}
	return fmt.Sprintf("%s%0*d", prefix, idSequenceWidth, seq+1), nil
}

func parseSequence(memberID, prefix string) (int64, error) {
	suffix := strings.TrimPrefix(memberID, prefix)
	if suffix == memberID || suffix == "" {
		return 0, fmt.Errorf("member id %q does not match prefix %q", memberID, prefix)
	}
	seq, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("member id %q has non-numeric suffix: %w", memberID, err)
	}
	return seq, nil
}

func fallbackMemberID(prefix string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d%03d", prefix, time.Now().UTC().Unix(), n.Int64()), nil
}

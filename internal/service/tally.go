package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"fan-vote/internal/metrics"
	"fan-vote/internal/repository"
)

// TallyUpdater avanza el contador desnormalizado de puntos por artista.
// Ruta primaria: un incremento atomico en el almacen. Ruta de respaldo si la
// primitiva atomica falla: read-modify-write, que ES carrera bajo
// concurrencia real; se acepta como degradacion de mejor esfuerzo, no como
// garantia, y su uso queda registrado en metricas y logs.
type TallyUpdater struct {
	logger  *zap.Logger
	tallies repository.TallyRepository
}

func NewTallyUpdater(logger *zap.Logger, tallies repository.TallyRepository) *TallyUpdater {
	return &TallyUpdater{logger: logger, tallies: tallies}
}

func (u *TallyUpdater) Increment(ctx context.Context, artistID string, amount int64) error {
	if amount == 0 {
		return nil
	}

	err := u.tallies.IncrementAtomic(ctx, artistID, amount)
	if err == nil {
		metrics.TallyUpdates.WithLabelValues("atomic").Inc()
		u.verify(ctx, artistID)
		return nil
	}

	metrics.TallyUpdates.WithLabelValues("fallback").Inc()
	if u.logger != nil {
		u.logger.Warn("atomic tally increment failed, using read-modify-write fallback",
			zap.String("artist_id", artistID), zap.Error(err))
	}

	current, err := u.tallies.Get(ctx, artistID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		metrics.TallyUpdateFailures.Inc()
		return fmt.Errorf("tally fallback read: %w", err)
	}
	if err := u.tallies.Put(ctx, artistID, current.Points+amount); err != nil {
		metrics.TallyUpdateFailures.Inc()
		return fmt.Errorf("tally fallback write: %w", err)
	}
	u.verify(ctx, artistID)
	return nil
}

// verify es una lectura consultiva posterior; solo log, nunca condiciona el
// exito del voto.
func (u *TallyUpdater) verify(ctx context.Context, artistID string) {
	if u.logger == nil {
		return
	}
	t, err := u.tallies.Get(ctx, artistID)
	if err != nil {
		u.logger.Debug("tally verification read failed", zap.String("artist_id", artistID), zap.Error(err))
		return
	}
	u.logger.Debug("tally updated", zap.String("artist_id", artistID), zap.Int64("points", t.Points))
}

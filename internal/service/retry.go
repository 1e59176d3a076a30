package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy es el combinador de reintentos acotados compartido por el
// asignador de ids, el probe post-sign-in y las lecturas eventualmente
// consistentes. Intentos maximos, backoff exponencial con jitter y error
// terminal; sin espera activa.
type RetryPolicy struct {
	MaxAttempts uint64
	Initial     time.Duration
	Max         time.Duration
	MaxElapsed  time.Duration
}

// DefaultLookupRetry reintenta una sola vez fallas de transporte en lookups.
func DefaultLookupRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, Initial: 200 * time.Millisecond, Max: time.Second}
}

// DefaultAllocRetry acota las colisiones de asignacion de member_id.
func DefaultAllocRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, Initial: 30 * time.Millisecond, Max: 250 * time.Millisecond}
}

// ProbeRetry acota el probe de sesion tras sign-in al timeout dado.
func ProbeRetry(timeout time.Duration) RetryPolicy {
	return RetryPolicy{Initial: 250 * time.Millisecond, Max: time.Second, MaxElapsed: timeout}
}

// Do ejecuta op bajo la politica; devuelve el ultimo error al agotarse.
// Un error envuelto con Permanent corta los reintentos de inmediato.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}
	b.MaxElapsedTime = p.MaxElapsed
	b.Reset()

	var policy backoff.BackOff = backoff.WithContext(b, ctx)
	if p.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, p.MaxAttempts)
	}
	return backoff.Retry(op, policy)
}

// Permanent marca un error como no reintentable para RetryPolicy.Do.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

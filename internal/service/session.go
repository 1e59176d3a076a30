package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"fan-vote/internal/domain"
	"fan-vote/internal/idp"
	"fan-vote/internal/metrics"
)

var ErrResolutionFailed = errors.New("identity resolution failed")

const suppressTokenTTL = 10 * time.Second

// ProfileLookup es la dependencia del resolutor hacia el registry gateway.
type ProfileLookup interface {
	Lookup(ctx context.Context, subjectID string) (domain.MemberProfile, error)
}

// SessionResolver convierte eventos del ciclo de vida de autenticacion en
// identidades resueltas (Unauthenticated | PendingProfile | Member). El
// estado interno se guarda por subject: la resolucion de una sesion nunca
// se comparte entre requests de usuarios distintos, y un request sin token
// siempre es anonimo.
type SessionResolver struct {
	logger       *zap.Logger
	provider     idp.Provider
	registry     ProfileLookup
	probeTimeout time.Duration
	lookupRetry  RetryPolicy

	mu          sync.Mutex
	sessions    map[string]domain.ResolvedIdentity
	subscribers []func(domain.ResolvedIdentity)
	// Tokens de supresion de eco por subject: un sign-out local registra
	// uno y el proximo SIGNED_OUT del mismo subject lo consume. Acotados
	// por TTL para que no se filtren entre flujos no relacionados.
	suppress map[string]time.Time
}

func NewSessionResolver(logger *zap.Logger, provider idp.Provider, registry ProfileLookup, probeTimeout time.Duration) *SessionResolver {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &SessionResolver{
		logger:       logger,
		provider:     provider,
		registry:     registry,
		probeTimeout: probeTimeout,
		lookupRetry:  DefaultLookupRetry(),
		sessions:     make(map[string]domain.ResolvedIdentity),
		suppress:     make(map[string]time.Time),
	}
}

// Subscribe registra un dependiente; se le notifica sincronicamente con
// cada cambio de identidad resuelta, de cualquier subject.
func (r *SessionResolver) Subscribe(fn func(domain.ResolvedIdentity)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.subscribers = append(r.subscribers, fn)
	r.mu.Unlock()
}

// Resolved devuelve la ultima identidad resuelta del subject, si la hay.
func (r *SessionResolver) Resolved(subjectID string) domain.ResolvedIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if identity, ok := r.sessions[subjectID]; ok {
		return identity
	}
	return domain.Unauthenticated()
}

// ResolveCurrent confirma la sesion del token dado con el proveedor dentro
// del timeout y clasifica al subject. El proveedor puede reportar la sesion
// como establecida un instante antes de que sus lecturas dependientes sean
// consistentes, por eso un primer no-encontrado se reintenta; un segundo es
// definitivo y corta sin agotar la ventana. Al vencer el plazo por otra
// falla se fuerza sign-out y se asienta Unauthenticated en vez de dejar al
// llamador colgado.
func (r *SessionResolver) ResolveCurrent(ctx context.Context, accessToken string) (domain.ResolvedIdentity, error) {
	if accessToken == "" {
		return domain.Unauthenticated(), nil
	}

	var session idp.Session
	notFound := 0
	err := ProbeRetry(r.probeTimeout).Do(ctx, func() error {
		var probeErr error
		session, probeErr = r.provider.GetSession(ctx, accessToken)
		if errors.Is(probeErr, idp.ErrSessionNotFound) {
			notFound++
			if notFound > 1 {
				return Permanent(probeErr)
			}
		}
		return probeErr
	})
	if err != nil {
		if errors.Is(err, idp.ErrSessionNotFound) {
			return domain.Unauthenticated(), nil
		}
		metrics.SessionProbeTimeouts.Inc()
		if r.logger != nil {
			r.logger.Warn("session probe timed out, forcing sign-out", zap.Error(err))
		}
		if signOutErr := r.provider.SignOut(ctx, accessToken); signOutErr != nil && r.logger != nil {
			r.logger.Warn("forced sign-out failed", zap.Error(signOutErr))
		}
		return domain.Unauthenticated(), nil
	}

	return r.resolveSubject(ctx, session.Subject)
}

// HandleEvent procesa un evento del stream del proveedor.
func (r *SessionResolver) HandleEvent(ctx context.Context, event domain.AuthEvent) (domain.ResolvedIdentity, error) {
	switch event.Type {
	case domain.EventSignedIn, domain.EventTokenRefreshed:
		if event.Subject == nil {
			return domain.Unauthenticated(), nil
		}
		return r.resolveSubject(ctx, *event.Subject)
	case domain.EventSignedOut:
		if event.Subject == nil {
			return domain.Unauthenticated(), nil
		}
		if r.consumeSuppressToken(event.Subject.ID) {
			// Eco de un sign-out local ya atendido; el estado del subject
			// ya es Unauthenticated y no se vuelve a notificar.
			return domain.Unauthenticated(), nil
		}
		return r.setIdentity(event.Subject.ID, domain.Unauthenticated()), nil
	}
	// Tipo desconocido: se ignora sin tocar estado.
	if event.Subject != nil {
		return r.Resolved(event.Subject.ID), nil
	}
	return domain.Unauthenticated(), nil
}

// SignOut cierra la sesion del subject por iniciativa local. Registra un
// token de supresion para el eco que el canal de eventos del proveedor
// levantara despues, y asienta Unauthenticated incondicionalmente.
func (r *SessionResolver) SignOut(ctx context.Context, accessToken string, subject domain.AuthSubject) error {
	if subject.ID != "" {
		r.registerSuppressToken(subject.ID)
	}

	err := r.provider.SignOut(ctx, accessToken)
	if err != nil && r.logger != nil {
		r.logger.Warn("provider sign-out failed", zap.Error(err))
	}
	if subject.ID != "" {
		r.setIdentity(subject.ID, domain.Unauthenticated())
	}
	return err
}

// resolveSubject clasifica un subject presente: Member si alguna de las dos
// clases tiene perfil (aunque sea la clase que el flujo no esperaba; el
// llamador redirige), PendingProfile si no hay perfil todavia. Un error de
// transporte del registry se reintenta una vez con backoff y luego se
// reporta como falla de resolucion, nunca como Unauthenticated.
func (r *SessionResolver) resolveSubject(ctx context.Context, subject domain.AuthSubject) (domain.ResolvedIdentity, error) {
	var member domain.MemberProfile
	err := r.lookupRetry.Do(ctx, func() error {
		var lookupErr error
		member, lookupErr = r.registry.Lookup(ctx, subject.ID)
		if errors.Is(lookupErr, ErrProfileNotFound) {
			return Permanent(lookupErr)
		}
		return lookupErr
	})
	if err == nil {
		return r.setIdentity(subject.ID, domain.ResolvedMember(subject, member)), nil
	}
	if errors.Is(err, ErrProfileNotFound) {
		// Cubre tanto OAuth recien llegado como cuentas de password que
		// verificaron credenciales pero nunca terminaron el registro.
		return r.setIdentity(subject.ID, domain.PendingProfile(subject)), nil
	}
	if r.logger != nil {
		r.logger.Error("registry lookup failed", zap.String("subject_id", subject.ID), zap.Error(err))
	}
	return r.Resolved(subject.ID), errors.Join(ErrResolutionFailed, err)
}

func (r *SessionResolver) setIdentity(subjectID string, identity domain.ResolvedIdentity) domain.ResolvedIdentity {
	r.mu.Lock()
	previous, had := r.sessions[subjectID]
	var changed bool
	if identity.State == domain.StateUnauthenticated {
		changed = had
		delete(r.sessions, subjectID)
	} else {
		changed = !had || previous.State != identity.State
		r.sessions[subjectID] = identity
	}
	subscribers := make([]func(domain.ResolvedIdentity), len(r.subscribers))
	copy(subscribers, r.subscribers)
	r.mu.Unlock()

	if changed {
		for _, fn := range subscribers {
			fn(identity)
		}
	}
	return identity
}

func (r *SessionResolver) registerSuppressToken(subjectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, exp := range r.suppress {
		if now.After(exp) {
			delete(r.suppress, id)
		}
	}
	r.suppress[subjectID] = now.Add(suppressTokenTTL)
}

// consumeSuppressToken descarta el token vivo del subject, si lo hay.
func (r *SessionResolver) consumeSuppressToken(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.suppress[subjectID]
	if !ok {
		return false
	}
	delete(r.suppress, subjectID)
	return !time.Now().After(exp)
}

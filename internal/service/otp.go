package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fan-vote/internal/idp"
	"fan-vote/internal/metrics"
)

var (
	ErrOTPNotRequested = errors.New("otp not requested")
	ErrOTPOutstanding  = errors.New("otp already outstanding for this flow")
	ErrOTPInvalid      = errors.New("otp invalid")
	ErrOTPExpired      = errors.New("otp expired")
	ErrRateLimited     = errors.New("rate limited")
)

const defaultOTPTTL = 10 * time.Minute

type otpFlowState int

const (
	flowIssuing otpFlowState = iota
	flowAwaitingCode
	flowConfirmed
)

type otpFlow struct {
	phone     string
	state     otpFlowState
	expiresAt time.Time
}

// OTPVerifier secuencia la emision y verificacion de codigos de telefono.
// La emision real la hace el canal SMS del proveedor; aqui solo se garantiza
// el orden: nada de verify antes de que issue complete, y un solo codigo
// pendiente por instancia de flujo. Una confirmacion vale para una unica
// submission de voto; no persiste mas alla de ella.
type OTPVerifier struct {
	logger   *zap.Logger
	provider idp.Provider
	limiter  OTPRateLimiter
	ttl      time.Duration

	mu    sync.Mutex
	flows map[string]*otpFlow
}

func NewOTPVerifier(logger *zap.Logger, provider idp.Provider, limiter OTPRateLimiter, ttl time.Duration) *OTPVerifier {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	if limiter == nil {
		limiter = NewOTPRateLimiter(ttl, 3)
	}
	return &OTPVerifier{
		logger:   logger,
		provider: provider,
		limiter:  limiter,
		ttl:      ttl,
		flows:    make(map[string]*otpFlow),
	}
}

// Issue emite un codigo para el flujo dado. Rechaza una segunda emision
// mientras el flujo todavia espera el primer codigo.
func (v *OTPVerifier) Issue(ctx context.Context, flowID, phone string) error {
	phone = NormalizePhone(phone)
	if flowID == "" || phone == "" {
		return fmt.Errorf("%w: missing flow or phone", ErrOTPInvalid)
	}

	v.mu.Lock()
	v.evictExpiredLocked()
	if flow, ok := v.flows[flowID]; ok && flow.state != flowConfirmed {
		v.mu.Unlock()
		metrics.OTPIssues.WithLabelValues("outstanding").Inc()
		return ErrOTPOutstanding
	}
	if !v.limiter.Allow(phone) {
		v.mu.Unlock()
		metrics.OTPIssues.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}
	v.flows[flowID] = &otpFlow{phone: phone, state: flowIssuing, expiresAt: time.Now().UTC().Add(v.ttl)}
	v.mu.Unlock()

	if err := v.provider.SendPhoneOTP(ctx, phone); err != nil {
		v.mu.Lock()
		delete(v.flows, flowID)
		v.mu.Unlock()
		metrics.OTPIssues.WithLabelValues("error").Inc()
		if v.logger != nil {
			v.logger.Warn("send phone otp failed", zap.Error(err))
		}
		return fmt.Errorf("send phone otp: %w", err)
	}

	v.mu.Lock()
	if flow, ok := v.flows[flowID]; ok {
		flow.state = flowAwaitingCode
	}
	v.mu.Unlock()
	metrics.OTPIssues.WithLabelValues("sent").Inc()
	return nil
}

// Verify valida el codigo contra el proveedor. La expiracion se reporta como
// ErrOTPExpired, nunca colapsada en ErrOTPInvalid.
func (v *OTPVerifier) Verify(ctx context.Context, flowID, phone, code string) error {
	phone = NormalizePhone(phone)

	v.mu.Lock()
	flow, ok := v.flows[flowID]
	switch {
	case !ok, flow != nil && flow.phone != phone:
		v.mu.Unlock()
		return ErrOTPNotRequested
	case flow.state == flowIssuing:
		// El issue aun no completo; verify todavia no esta permitido.
		v.mu.Unlock()
		return ErrOTPNotRequested
	case flow.state == flowConfirmed:
		v.mu.Unlock()
		return nil
	case time.Now().UTC().After(flow.expiresAt):
		delete(v.flows, flowID)
		v.mu.Unlock()
		return ErrOTPExpired
	}
	v.mu.Unlock()

	result, err := v.provider.VerifyPhoneOTP(ctx, phone, code)
	if err != nil {
		return fmt.Errorf("verify phone otp: %w", err)
	}
	switch result {
	case idp.OTPOk:
	case idp.OTPExpired:
		v.mu.Lock()
		delete(v.flows, flowID)
		v.mu.Unlock()
		return ErrOTPExpired
	default:
		return ErrOTPInvalid
	}

	v.mu.Lock()
	if flow, ok := v.flows[flowID]; ok {
		flow.state = flowConfirmed
	}
	v.mu.Unlock()
	return nil
}

// Consume gasta la confirmacion del flujo: devuelve true exactamente una vez
// por codigo verificado, para que una confirmacion no sirva a dos votos.
func (v *OTPVerifier) Consume(flowID, phone string) bool {
	phone = NormalizePhone(phone)
	v.mu.Lock()
	defer v.mu.Unlock()
	flow, ok := v.flows[flowID]
	if !ok || flow.state != flowConfirmed || flow.phone != phone {
		return false
	}
	delete(v.flows, flowID)
	return true
}

func (v *OTPVerifier) evictExpiredLocked() {
	now := time.Now().UTC()
	for id, flow := range v.flows {
		if now.After(flow.expiresAt) {
			delete(v.flows, id)
		}
	}
}

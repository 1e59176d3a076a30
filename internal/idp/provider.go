package idp

import (
	"context"
	"errors"
	"time"

	"fan-vote/internal/domain"
)

// Session es la sesion vigente reportada por el proveedor de identidad.
type Session struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	ExpiresAt    time.Time          `json:"expires_at"`
	Subject      domain.AuthSubject `json:"subject"`
}

// OTPResult es el resultado tipado de verificar un codigo de telefono.
type OTPResult int

const (
	OTPOk OTPResult = iota
	OTPInvalid
	OTPExpired
)

var (
	ErrInvalidCredentials = errors.New("idp: invalid credentials")
	ErrSessionNotFound    = errors.New("idp: session not found")
	ErrUserExists         = errors.New("idp: user already exists")
)

// Provider define la interfaz con el proveedor externo de autenticacion.
// Este subsistema nunca guarda contrasenas ni emite tokens propios.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string) (Session, error)
	// SignInWithOAuth devuelve la URL de autorizacion del proveedor federado.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	GetSession(ctx context.Context, accessToken string) (Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// SendPhoneOTP delega la emision del codigo al canal SMS del proveedor.
	SendPhoneOTP(ctx context.Context, phone string) error
	VerifyPhoneOTP(ctx context.Context, phone, code string) (OTPResult, error)
}

type disabledProvider struct {
	reason string
}

func NewDisabledProvider(reason string) Provider {
	return &disabledProvider{reason: reason}
}

func (p *disabledProvider) err() error {
	if p.reason == "" {
		return errors.New("idp disabled")
	}
	return errors.New(p.reason)
}

func (p *disabledProvider) SignInWithPassword(context.Context, string, string) (Session, error) {
	return Session{}, p.err()
}

func (p *disabledProvider) SignUp(context.Context, string, string) (Session, error) {
	return Session{}, p.err()
}

func (p *disabledProvider) SignInWithOAuth(context.Context, string, string) (string, error) {
	return "", p.err()
}

func (p *disabledProvider) GetSession(context.Context, string) (Session, error) {
	return Session{}, p.err()
}

func (p *disabledProvider) RefreshSession(context.Context, string) (Session, error) {
	return Session{}, p.err()
}

func (p *disabledProvider) SignOut(context.Context, string) error {
	return p.err()
}

func (p *disabledProvider) SendPhoneOTP(context.Context, string) error {
	return p.err()
}

func (p *disabledProvider) VerifyPhoneOTP(context.Context, string, string) (OTPResult, error) {
	return OTPInvalid, p.err()
}

package domain

// AuthSubject es la identidad emitida por el proveedor externo de
// autenticacion; solo lectura para este sistema.
type AuthSubject struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// IsOAuth indica si el subject llego por un proveedor federado.
func (s AuthSubject) IsOAuth() bool {
	switch s.Provider {
	case "", "email", "password", "phone":
		return false
	}
	return true
}

type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent es un evento del stream de ciclo de vida de autenticacion.
type AuthEvent struct {
	Type    AuthEventType
	Subject *AuthSubject
}

type IdentityState string

const (
	StateUnauthenticated IdentityState = "unauthenticated"
	StatePendingProfile  IdentityState = "pending_profile"
	StateMember          IdentityState = "member"
)

// ResolvedIdentity es el estado derivado de una sesion: no se persiste,
// se recalcula en cada cambio de estado de autenticacion.
type ResolvedIdentity struct {
	State   IdentityState  `json:"state"`
	Subject *AuthSubject   `json:"subject,omitempty"`
	Member  *MemberProfile `json:"member,omitempty"`
}

func Unauthenticated() ResolvedIdentity {
	return ResolvedIdentity{State: StateUnauthenticated}
}

func PendingProfile(subject AuthSubject) ResolvedIdentity {
	return ResolvedIdentity{State: StatePendingProfile, Subject: &subject}
}

func ResolvedMember(subject AuthSubject, member MemberProfile) ResolvedIdentity {
	return ResolvedIdentity{State: StateMember, Subject: &subject, Member: &member}
}

// OnFilePhone devuelve el telefono registrado si la identidad es un miembro.
func (r ResolvedIdentity) OnFilePhone() string {
	if r.State == StateMember && r.Member != nil {
		return r.Member.Phone()
	}
	return ""
}

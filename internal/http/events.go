package http

import (
	"fan-vote/internal/domain"
	"fan-vote/internal/idp"
)

func signedInEvent(session idp.Session) domain.AuthEvent {
	subject := session.Subject
	return domain.AuthEvent{Type: domain.EventSignedIn, Subject: &subject}
}

func refreshedEvent(session idp.Session) domain.AuthEvent {
	subject := session.Subject
	return domain.AuthEvent{Type: domain.EventTokenRefreshed, Subject: &subject}
}

// domainEvent traduce el tipo crudo del relay; un tipo desconocido pasa tal
// cual y el resolutor lo ignora.
func domainEvent(eventType string) domain.AuthEvent {
	return domain.AuthEvent{Type: domain.AuthEventType(eventType)}
}

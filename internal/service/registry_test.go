package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"fan-vote/internal/domain"
)

func newTestRegistry(repo *mockMemberRepo) *RegistryGateway {
	g := NewRegistryGateway(zap.NewNop(), repo, NewIDAllocator(zap.NewNop(), repo))
	g.allocRetry = RetryPolicy{MaxAttempts: 4, Initial: time.Millisecond, Max: 5 * time.Millisecond}
	return g
}

func individualInput(email string) ProfileInput {
	return ProfileInput{
		Email:       email,
		LastName:    "Sato",
		FirstName:   "Hana",
		BirthDate:   "1995-04-01",
		PhoneNumber: "090-1111-2222",
	}
}

func TestRegistryCompleteProfile_NewIndividual(t *testing.T) {
	repo := newMockMemberRepo()
	g := newTestRegistry(repo)
	subject := domain.AuthSubject{ID: "sub-1", Email: "hana@example.com", Provider: "google"}

	member, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, subject, individualInput(""))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if member.Class != domain.ClassIndividual || member.Individual == nil {
		t.Fatalf("expected individual member, got %+v", member)
	}
	if !regexp.MustCompile(`^FM\d{6}$`).MatchString(member.MemberID()) {
		t.Fatalf("expected FM-prefixed sequential id, got %q", member.MemberID())
	}
	if member.MemberID() != "FM000001" {
		t.Fatalf("expected first id FM000001, got %q", member.MemberID())
	}
	if member.Individual.PhoneNumber != "09011112222" {
		t.Fatalf("expected normalized phone, got %q", member.Individual.PhoneNumber)
	}
}

func TestRegistryCompleteProfile_SecondCallDoesNotDuplicate(t *testing.T) {
	repo := newMockMemberRepo()
	g := newTestRegistry(repo)
	subject := domain.AuthSubject{ID: "sub-1", Email: "hana@example.com"}

	if _, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, subject, individualInput("")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, subject, individualInput(""))
	if !errors.Is(err, ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if len(repo.individuals) != 1 {
		t.Fatalf("expected single profile, got %d", len(repo.individuals))
	}
}

func TestRegistryCompleteProfile_EmailAcrossClasses(t *testing.T) {
	repo := newMockMemberRepo()
	g := newTestRegistry(repo)

	individual := domain.AuthSubject{ID: "sub-1", Email: "shared@example.com"}
	if _, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, individual, individualInput("")); err != nil {
		t.Fatalf("individual create failed: %v", err)
	}

	// Mismo email, subject distinto, otra clase: no debe crear cuenta sombra.
	sponsor := domain.AuthSubject{ID: "sub-2", Email: "shared@example.com"}
	_, err := g.CompleteProfile(context.Background(), domain.ClassSponsor, sponsor, ProfileInput{
		LastName:     "Sato",
		FirstName:    "Taro",
		CompanyName:  "Acme",
		ContactPhone: "03-0000-0000",
	})
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
	if len(repo.sponsors) != 0 {
		t.Fatalf("expected no sponsor profile, got %d", len(repo.sponsors))
	}
}

func TestRegistryCompleteProfile_RetriesOnMemberIDCollision(t *testing.T) {
	repo := newMockMemberRepo()
	repo.forceCollide = 2
	g := newTestRegistry(repo)
	subject := domain.AuthSubject{ID: "sub-1", Email: "hana@example.com"}

	member, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, subject, individualInput(""))
	if err != nil {
		t.Fatalf("expected success after collisions, got %v", err)
	}
	if member.MemberID() == "" {
		t.Fatalf("expected allocated id")
	}
	if repo.createIndCalls != 3 {
		t.Fatalf("expected 3 create attempts, got %d", repo.createIndCalls)
	}
}

func TestRegistryCompleteProfile_AllocatorExhausted(t *testing.T) {
	repo := newMockMemberRepo()
	repo.forceCollide = 100
	g := newTestRegistry(repo)
	subject := domain.AuthSubject{ID: "sub-1", Email: "hana@example.com"}

	_, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, subject, individualInput(""))
	if !errors.Is(err, ErrAllocatorExhausted) {
		t.Fatalf("expected ErrAllocatorExhausted, got %v", err)
	}
}

func TestRegistryLookup_DisjointClasses(t *testing.T) {
	repo := newMockMemberRepo()
	g := newTestRegistry(repo)
	ctx := context.Background()

	if _, err := g.CompleteProfile(ctx, domain.ClassIndividual, domain.AuthSubject{ID: "sub-i", Email: "i@example.com"}, individualInput("")); err != nil {
		t.Fatalf("individual create failed: %v", err)
	}
	if _, err := g.CompleteProfile(ctx, domain.ClassSponsor, domain.AuthSubject{ID: "sub-s", Email: "s@example.com"}, ProfileInput{
		LastName:     "Ito",
		FirstName:    "Ken",
		CompanyName:  "Acme",
		ContactPhone: "03-1234-5678",
	}); err != nil {
		t.Fatalf("sponsor create failed: %v", err)
	}

	member, err := g.Lookup(ctx, "sub-i")
	if err != nil || member.Class != domain.ClassIndividual {
		t.Fatalf("expected individual, got %+v err=%v", member, err)
	}
	member, err = g.Lookup(ctx, "sub-s")
	if err != nil || member.Class != domain.ClassSponsor {
		t.Fatalf("expected sponsor, got %+v err=%v", member, err)
	}
	if _, err := g.Lookup(ctx, "sub-none"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRegistryCompleteProfile_ConcurrentAllocationsUnique(t *testing.T) {
	repo := newMockMemberRepo()
	g := newTestRegistry(repo)
	// Colisiones seran frecuentes: todos leen el mismo max. El combinador
	// de reintentos con jitter debe desincronizarlos hasta completar.
	g.allocRetry = RetryPolicy{MaxAttempts: 60, Initial: time.Millisecond, Max: 10 * time.Millisecond}

	const k = 25
	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := domain.AuthSubject{
				ID:    fmt.Sprintf("sub-%d", i),
				Email: fmt.Sprintf("user%d@example.com", i),
			}
			if _, err := g.CompleteProfile(context.Background(), domain.ClassIndividual, subject, individualInput("")); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent create failed: %v", err)
	}

	if len(repo.individualIDs) != k {
		t.Fatalf("expected %d unique member ids, got %d", k, len(repo.individualIDs))
	}
	if len(repo.individuals) != k {
		t.Fatalf("expected %d profiles, got %d", k, len(repo.individuals))
	}
}

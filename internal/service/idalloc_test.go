package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"fan-vote/internal/domain"
)

func TestIDAllocatorNext_FirstOfClass(t *testing.T) {
	repo := newMockMemberRepo()
	a := NewIDAllocator(zap.NewNop(), repo)

	id, err := a.Next(context.Background(), domain.ClassIndividual)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "FM000001" {
		t.Fatalf("expected FM000001, got %q", id)
	}

	id, err = a.Next(context.Background(), domain.ClassSponsor)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "SP000001" {
		t.Fatalf("expected SP000001, got %q", id)
	}
}

func TestIDAllocatorNext_IncrementsSequence(t *testing.T) {
	repo := newMockMemberRepo()
	repo.individualIDs["FM000041"] = true
	repo.individualIDs["FM000007"] = true
	a := NewIDAllocator(zap.NewNop(), repo)

	id, err := a.Next(context.Background(), domain.ClassIndividual)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "FM000042" {
		t.Fatalf("expected FM000042, got %q", id)
	}
}

func TestIDAllocatorNext_TransportFailureFallsBack(t *testing.T) {
	repo := newMockMemberRepo()
	repo.maxReadErr = errors.New("connection refused")
	a := NewIDAllocator(zap.NewNop(), repo)

	id, err := a.Next(context.Background(), domain.ClassIndividual)
	if err != nil {
		t.Fatalf("expected degraded id, got %v", err)
	}
	if !strings.HasPrefix(id, "FM") || len(id) <= len("FM")+10 {
		t.Fatalf("expected timestamp fallback id, got %q", id)
	}
}

func TestIDAllocatorNext_SequenceResumesAfterFallbackID(t *testing.T) {
	repo := newMockMemberRepo()
	// Una caida previa dejo un id degradado de timestamp; ordena por encima
	// de toda la secuencia pero no debe moverla.
	repo.individualIDs["FM1756500000123"] = true
	repo.individualIDs["FM000041"] = true
	a := NewIDAllocator(zap.NewNop(), repo)

	id, err := a.Next(context.Background(), domain.ClassIndividual)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "FM000042" {
		t.Fatalf("expected sequence to resume at FM000042, got %q", id)
	}
}

func TestIDAllocatorNext_OnlyFallbackIDsPresent(t *testing.T) {
	repo := newMockMemberRepo()
	repo.individualIDs["FM1756500000123"] = true
	a := NewIDAllocator(zap.NewNop(), repo)

	id, err := a.Next(context.Background(), domain.ClassIndividual)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "FM000001" {
		t.Fatalf("expected sequence to start fresh, got %q", id)
	}
}

func TestIDAllocatorNext_UnknownClass(t *testing.T) {
	a := NewIDAllocator(zap.NewNop(), newMockMemberRepo())
	if _, err := a.Next(context.Background(), domain.MemberClass("staff")); !errors.Is(err, ErrUnknownClass) {
		t.Fatalf("expected ErrUnknownClass, got %v", err)
	}
}

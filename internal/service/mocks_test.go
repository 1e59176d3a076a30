package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"fan-vote/internal/domain"
	"fan-vote/internal/repository"
)

type mockMemberRepo struct {
	mu             sync.Mutex
	individuals    map[string]domain.IndividualProfile
	sponsors       map[string]domain.SponsorProfile
	individualIDs  map[string]bool
	sponsorIDs     map[string]bool
	maxReadErr     error
	forceCollide   int
	createIndCalls int
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{
		individuals:   make(map[string]domain.IndividualProfile),
		sponsors:      make(map[string]domain.SponsorProfile),
		individualIDs: make(map[string]bool),
		sponsorIDs:    make(map[string]bool),
	}
}

func (m *mockMemberRepo) GetIndividualBySubject(_ context.Context, subjectID string) (domain.IndividualProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.individuals[subjectID]
	if !ok {
		return domain.IndividualProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockMemberRepo) GetSponsorBySubject(_ context.Context, subjectID string) (domain.SponsorProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sponsors[subjectID]
	if !ok {
		return domain.SponsorProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockMemberRepo) ClassByEmail(_ context.Context, email string) (domain.MemberClass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.individuals {
		if p.Email == email {
			return domain.ClassIndividual, nil
		}
	}
	for _, p := range m.sponsors {
		if p.Email == email {
			return domain.ClassSponsor, nil
		}
	}
	return "", pgx.ErrNoRows
}

func (m *mockMemberRepo) MaxMemberID(_ context.Context, class domain.MemberClass, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxReadErr != nil {
		return "", m.maxReadErr
	}
	ids := m.individualIDs
	if class == domain.ClassSponsor {
		ids = m.sponsorIDs
	}
	max := ""
	for id := range ids {
		if isSequentialID(id, prefix) && id > max {
			max = id
		}
	}
	if max == "" {
		return "", pgx.ErrNoRows
	}
	return max, nil
}

// isSequentialID replica el filtro del almacen: prefijo + exactamente
// idSequenceWidth digitos; los ids degradados de timestamp no califican.
func isSequentialID(id, prefix string) bool {
	if len(id) != len(prefix)+idSequenceWidth || id[:len(prefix)] != prefix {
		return false
	}
	for _, r := range id[len(prefix):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (m *mockMemberRepo) CreateIndividual(_ context.Context, profile domain.IndividualProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createIndCalls++
	if m.forceCollide > 0 {
		m.forceCollide--
		return repository.ErrDuplicateMemberID
	}
	if m.individualIDs[profile.MemberID] {
		return repository.ErrDuplicateMemberID
	}
	if _, ok := m.individuals[profile.SubjectID]; ok {
		return repository.ErrDuplicateSubject
	}
	for _, p := range m.individuals {
		if p.Email == profile.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.individuals[profile.SubjectID] = profile
	m.individualIDs[profile.MemberID] = true
	return nil
}

func (m *mockMemberRepo) CreateSponsor(_ context.Context, profile domain.SponsorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sponsorIDs[profile.MemberID] {
		return repository.ErrDuplicateMemberID
	}
	if _, ok := m.sponsors[profile.SubjectID]; ok {
		return repository.ErrDuplicateSubject
	}
	for _, p := range m.sponsors {
		if p.Email == profile.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.sponsors[profile.SubjectID] = profile
	m.sponsorIDs[profile.MemberID] = true
	return nil
}

type mockVoteRepo struct {
	mu        sync.Mutex
	votes     map[string]domain.Vote
	insertErr error
}

func newMockVoteRepo() *mockVoteRepo {
	return &mockVoteRepo{votes: make(map[string]domain.Vote)}
}

func voteKey(identityKey, artistID, day string) string {
	return fmt.Sprintf("%s|%s|%s", identityKey, artistID, day)
}

func (m *mockVoteRepo) Insert(_ context.Context, vote domain.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	key := voteKey(vote.VoterIdentityKey, vote.ArtistID, vote.CreatedOn)
	if _, ok := m.votes[key]; ok {
		return repository.ErrDuplicateVote
	}
	m.votes[key] = vote
	return nil
}

func (m *mockVoteRepo) ExistsForDay(_ context.Context, identityKey, artistID, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.votes[voteKey(identityKey, artistID, day)]
	return ok, nil
}

func (m *mockVoteRepo) CountForArtist(_ context.Context, artistID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.votes {
		if v.ArtistID == artistID {
			n++
		}
	}
	return n, nil
}

type mockTallyRepo struct {
	mu        sync.Mutex
	points    map[string]int64
	atomicErr error
	getErr    error
	putErr    error
	atomics   int
	puts      int
}

func newMockTallyRepo() *mockTallyRepo {
	return &mockTallyRepo{points: make(map[string]int64)}
}

func (m *mockTallyRepo) IncrementAtomic(_ context.Context, artistID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.atomicErr != nil {
		return m.atomicErr
	}
	m.atomics++
	m.points[artistID] += amount
	return nil
}

func (m *mockTallyRepo) Get(_ context.Context, artistID string) (domain.ArtistTally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.ArtistTally{}, m.getErr
	}
	points, ok := m.points[artistID]
	if !ok {
		return domain.ArtistTally{ArtistID: artistID}, pgx.ErrNoRows
	}
	return domain.ArtistTally{ArtistID: artistID, Points: points}, nil
}

func (m *mockTallyRepo) Put(_ context.Context, artistID string, points int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.points[artistID] = points
	return nil
}

func (m *mockTallyRepo) pointsFor(artistID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[artistID]
}

type mockArtistRepo struct {
	ids map[string]bool
}

func newMockArtistRepo(ids ...string) *mockArtistRepo {
	m := &mockArtistRepo{ids: make(map[string]bool)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func (m *mockArtistRepo) Exists(_ context.Context, id string) (bool, error) {
	return m.ids[id], nil
}

func (m *mockArtistRepo) Get(_ context.Context, id string) (domain.Artist, error) {
	if !m.ids[id] {
		return domain.Artist{}, pgx.ErrNoRows
	}
	return domain.Artist{ID: id, Name: id}, nil
}

func (m *mockArtistRepo) List(_ context.Context) ([]domain.Artist, error) {
	var artists []domain.Artist
	for id := range m.ids {
		artists = append(artists, domain.Artist{ID: id, Name: id})
	}
	return artists, nil
}

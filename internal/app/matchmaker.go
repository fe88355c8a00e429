package app

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/domain"
)

var (
	ErrAlreadyWaiting = errors.New("participant already waiting")
	ErrAlreadyPaired  = errors.New("participant already in a session")
	ErrNotWaiting     = errors.New("participant is not waiting")
)

// Matchmaker owns the waiting set and the session map. Both live behind one
// mutex so a disconnect racing a pairing can never leave a half-updated
// session: one side paired, the other not.
type Matchmaker struct {
	mu       sync.Mutex
	waiting  map[domain.ParticipantID]struct{}
	sessions map[domain.ParticipantID]domain.Session
}

func NewMatchmaker() *Matchmaker {
	return &Matchmaker{
		waiting:  make(map[domain.ParticipantID]struct{}),
		sessions: make(map[domain.ParticipantID]domain.Session),
	}
}

// Join adds a participant to the waiting set. A participant that is already
// waiting or already paired is rejected, never silently re-queued.
func (m *Matchmaker) Join(p domain.ParticipantID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[p]; ok {
		return ErrAlreadyPaired
	}
	if _, ok := m.waiting[p]; ok {
		return ErrAlreadyWaiting
	}
	m.waiting[p] = struct{}{}
	log.Debug().Str("module", "app.matchmaker").Str("pid", string(p)).Msg("joined pool")
	return nil
}

// FindPartner picks a uniformly random waiting participant other than p.
// Random selection avoids starvation bias toward earliest arrivals, at the
// cost of nondeterministic pairing order.
func (m *Matchmaker) FindPartner(p domain.ParticipantID) (domain.ParticipantID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidates := make([]domain.ParticipantID, 0, len(m.waiting))
	for id := range m.waiting {
		if id != p {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.Intn(len(candidates))], true
}

// Leave removes a participant from the waiting set; no-op when absent.
func (m *Matchmaker) Leave(p domain.ParticipantID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waiting, p)
}

// Waiting reports whether p is currently in the pool.
func (m *Matchmaker) Waiting(p domain.ParticipantID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.waiting[p]
	return ok
}

// CreateSession records the symmetric pairing of a and b and removes both
// from the waiting set in the same critical section. Both sides must still be
// in the waiting set: a candidate that disconnected between FindPartner and
// here vanished from the pool, and pairing with it would orphan the session.
// A participant already in a session means a matchmaking race; the existing
// session is never overwritten.
func (m *Matchmaker) CreateSession(a, b domain.ParticipantID) (domain.Session, error) {
	sess, err := domain.NewSession(a, b)
	if err != nil {
		return domain.Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[a]; ok {
		return domain.Session{}, ErrAlreadyPaired
	}
	if _, ok := m.sessions[b]; ok {
		return domain.Session{}, ErrAlreadyPaired
	}
	if _, ok := m.waiting[a]; !ok {
		return domain.Session{}, ErrNotWaiting
	}
	if _, ok := m.waiting[b]; !ok {
		return domain.Session{}, ErrNotWaiting
	}
	m.sessions[a] = sess
	m.sessions[b] = sess
	delete(m.waiting, a)
	delete(m.waiting, b)
	log.Info().Str("module", "app.matchmaker").
		Str("a", string(a)).Str("b", string(b)).Str("session", string(sess.ID)).
		Msg("session created")
	return sess, nil
}

// LookupPartner returns the paired participant and the session identifier.
func (m *Matchmaker) LookupPartner(p domain.ParticipantID) (domain.ParticipantID, domain.SessionID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[p]
	if !ok {
		return "", "", false
	}
	partner, _ := sess.PartnerOf(p)
	return partner, sess.ID, true
}

// Dissolve removes the session for p and its partner symmetrically and
// returns the now-former partner so the caller can notify them. Dissolving a
// participant with no session is a no-op.
func (m *Matchmaker) Dissolve(p domain.ParticipantID) (domain.ParticipantID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[p]
	if !ok {
		return "", false
	}
	partner, _ := sess.PartnerOf(p)
	delete(m.sessions, p)
	delete(m.sessions, partner)
	log.Info().Str("module", "app.matchmaker").
		Str("pid", string(p)).Str("partner", string(partner)).Str("session", string(sess.ID)).
		Msg("session dissolved")
	return partner, true
}

package domain

import "errors"

var ErrSelfPair = errors.New("session needs two distinct participants")

type SessionID string

func (s SessionID) String() string { return string(s) }

// DeriveSessionID computes the session identifier for an unordered pair.
// Either side can compute it locally from the two participant IDs without
// a round trip, so the ordering of arguments must not matter.
func DeriveSessionID(a, b ParticipantID) SessionID {
	x, y := string(a), string(b)
	if x > y {
		x, y = y, x
	}
	return SessionID(x + ":" + y)
}

// Session is a confirmed pairing of exactly two participants.
type Session struct {
	ID SessionID
	A  ParticipantID
	B  ParticipantID
}

func NewSession(a, b ParticipantID) (Session, error) {
	if a == b {
		return Session{}, ErrSelfPair
	}
	return Session{ID: DeriveSessionID(a, b), A: a, B: b}, nil
}

// PartnerOf returns the other member of the session.
func (s Session) PartnerOf(p ParticipantID) (ParticipantID, bool) {
	switch p {
	case s.A:
		return s.B, true
	case s.B:
		return s.A, true
	}
	return "", false
}

func (s Session) Has(p ParticipantID) bool {
	return p == s.A || p == s.B
}

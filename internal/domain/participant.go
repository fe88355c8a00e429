// Package domain contains entity without logic, just meta-data.
package domain

import "github.com/google/uuid"

// ParticipantID identifies one live client connection eligible for pairing.
// It is assigned by the transport layer on connect and dies with the connection.
type ParticipantID string

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

func (p ParticipantID) String() string { return string(p) }

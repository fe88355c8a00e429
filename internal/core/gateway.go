package core

import (
	"errors"

	"github.com/dkeye/Roulette/internal/domain"
)

// ErrUnknownDestination reports a relay target whose connection is gone.
var ErrUnknownDestination = errors.New("no connection for destination participant")

// Gateway pushes server-originated events to a participant's live connection.
// The websocket adapter implements it; the orchestrator stays transport-blind.
type Gateway interface {
	// SendMatched tells a participant who it was paired with. Exactly one side
	// of a pairing receives initiator=true.
	SendMatched(to, partner domain.ParticipantID, sid domain.SessionID, initiator bool) error

	// SendSignal forwards an envelope verbatim to its destination.
	SendSignal(to domain.ParticipantID, env domain.Envelope) error

	// SendChat forwards a transcript line to the partner.
	SendChat(to domain.ParticipantID, msg domain.ChatMessage) error

	// SendPartnerDisconnected notifies a participant its session is gone.
	SendPartnerDisconnected(to domain.ParticipantID) error
}

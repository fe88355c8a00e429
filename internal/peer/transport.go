package peer

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Roulette/internal/domain"
)

var (
	// ErrInvalidTransition rejects a signal the current state cannot accept.
	ErrInvalidTransition = errors.New("signal not legal in current negotiation state")
	// ErrMediaFailed is fatal to this negotiation attempt; the caller decides
	// whether to re-enter matchmaking.
	ErrMediaFailed = errors.New("local media acquisition failed")
	// ErrNegotiationTimeout fires when ICE never completes after an
	// offer/answer round started.
	ErrNegotiationTimeout = errors.New("negotiation timed out")
	// ErrClosed reports an operation on a finished machine.
	ErrClosed = errors.New("negotiation closed")
)

// MediaTransport is the underlying real-time transport for one negotiation.
// The pion implementation backs the demo client; tests use a fake.
type MediaTransport interface {
	// AddTrack attaches a local track; must happen before the offer or answer
	// is constructed, since the remote side derives track layout from the SDP.
	AddTrack(track webrtc.TrackLocal) error
	// CreateOffer builds and installs the local description.
	CreateOffer() (domain.Signal, error)
	// Answer applies the remote offer and builds the local answer.
	Answer(offer domain.Signal) (domain.Signal, error)
	// AcceptAnswer applies the remote answer on the offering side.
	AcceptAnswer(answer domain.Signal) error
	// AddCandidate applies a remote ICE candidate. Requires a remote
	// description; the machine buffers until then.
	AddCandidate(c domain.Candidate) error
	// OnCandidate sets the callback for locally gathered candidates.
	OnCandidate(func(domain.Candidate))
	// OnConnected sets the callback for a usable ICE path.
	OnConnected(func())
	Close() error
}

// MediaSource yields the local tracks. Acquisition is asynchronous and
// fallible, which is why the machine models it as an explicit state.
type MediaSource interface {
	Acquire(ctx context.Context) ([]webrtc.TrackLocal, error)
	Release()
}

// SendFunc pushes an envelope to the signaling relay.
type SendFunc func(env domain.Envelope) error

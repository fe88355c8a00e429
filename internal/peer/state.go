package peer

// State tracks a negotiation's progress from pairing to a usable media path.
type State int

const (
	StateIdle State = iota
	StateAwaitingLocalMedia
	StateOffering
	StateAnswering
	StateConnecting
	StateConnected
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLocalMedia:
		return "awaiting_local_media"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	}
	return "unknown"
}

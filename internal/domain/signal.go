package domain

import "encoding/json"

type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// Candidate mirrors the browser's RTCIceCandidateInit wire shape.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Signal is one step of the offer/answer/candidate exchange. The server never
// looks inside it; clients do.
type Signal struct {
	Type      SignalKind `json:"type"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

// Envelope is a directed signaling message relayed from one participant to
// another. The payload stays raw bytes on the server so the relay forwards it
// verbatim.
type Envelope struct {
	From   ParticipantID   `json:"from"`
	To     ParticipantID   `json:"to"`
	Signal json.RawMessage `json:"signal"`
}

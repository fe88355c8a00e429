package peer

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/domain"
)

func DefaultRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// PionTransport is the MediaTransport backed by a pion PeerConnection.
// It uses trickle ICE: local candidates go out through OnCandidate as they
// are gathered, never batched into the descriptions.
type PionTransport struct {
	pc     *webrtc.PeerConnection
	cancel context.CancelFunc

	onCandidate func(domain.Candidate)
	onConnected func()

	onTrack func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
}

func NewPionTransport(cfg webrtc.Configuration) (*PionTransport, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &PionTransport{pc: pc}, nil
}

func (t *PionTransport) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("ice_state", s.String()).Msg("ICE state")
		switch s {
		case webrtc.ICEConnectionStateConnected:
			if t.onConnected != nil {
				t.onConnected()
			}
		case webrtc.ICEConnectionStateDisconnected,
			webrtc.ICEConnectionStateFailed,
			webrtc.ICEConnectionStateClosed:
			cancel()
		}
	})

	t.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil || t.onCandidate == nil {
			return
		}
		init := cand.ToJSON()
		t.onCandidate(domain.Candidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})

	t.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		if t.onTrack != nil {
			t.onTrack(ctx, track, receiver)
		}
	})
}

func (t *PionTransport) AddTrack(track webrtc.TrackLocal) error {
	_, err := t.pc.AddTrack(track)
	return err
}

func (t *PionTransport) CreateOffer() (domain.Signal, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return domain.Signal{}, err
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return domain.Signal{}, err
	}
	return domain.Signal{Type: domain.SignalOffer, SDP: offer.SDP}, nil
}

func (t *PionTransport) Answer(offer domain.Signal) (domain.Signal, error) {
	err := t.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	})
	if err != nil {
		return domain.Signal{}, err
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return domain.Signal{}, err
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return domain.Signal{}, err
	}
	return domain.Signal{Type: domain.SignalAnswer, SDP: answer.SDP}, nil
}

func (t *PionTransport) AcceptAnswer(answer domain.Signal) error {
	return t.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.SDP,
	})
}

func (t *PionTransport) AddCandidate(c domain.Candidate) error {
	return t.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	})
}

func (t *PionTransport) OnCandidate(fn func(domain.Candidate)) { t.onCandidate = fn }

func (t *PionTransport) OnConnected(fn func()) { t.onConnected = fn }

// OnTrack sets the application-level callback for remote tracks.
func (t *PionTransport) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	t.onTrack = fn
}

func (t *PionTransport) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	if err := t.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Msg("close error")
		return err
	}
	log.Info().Str("module", "webrtc").Msg("closed")
	return nil
}

package peer

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// StaticSource provides one audio and one video track backed by static
// sample writers. The demo client feeds them from whatever it has on hand;
// a headless run ships silence, which is enough to exercise negotiation.
type StaticSource struct {
	StreamID string

	tracks []webrtc.TrackLocal
}

func (s *StaticSource) Acquire(ctx context.Context) ([]webrtc.TrackLocal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	streamID := s.StreamID
	if streamID == "" {
		streamID = "roulette"
	}
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", streamID,
	)
	if err != nil {
		return nil, err
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", streamID,
	)
	if err != nil {
		return nil, err
	}
	s.tracks = []webrtc.TrackLocal{audio, video}
	log.Debug().Str("module", "media").Str("stream_id", streamID).Msg("local tracks ready")
	return s.tracks, nil
}

func (s *StaticSource) Release() {
	// Static sample tracks hold no device handles; dropping the references
	// is all the cleanup there is.
	s.tracks = nil
}

package signal

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
)

// Controller implements core.Gateway. Each push resolves the destination's
// live connection through the registry and queues one frame; a missing
// connection is ErrUnknownDestination, a full send channel is backpressure.

func (ctl *Controller) push(to domain.ParticipantID, v any) error {
	conn, ok := ctl.Orch.Registry.Get(to)
	if !ok {
		return core.ErrUnknownDestination
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.TrySend(b)
}

func (ctl *Controller) SendMatched(to, partner domain.ParticipantID, sid domain.SessionID, initiator bool) error {
	return ctl.push(to, struct {
		Type      string               `json:"type"`
		Partner   domain.ParticipantID `json:"partner"`
		Session   domain.SessionID     `json:"session"`
		Initiator bool                 `json:"initiator"`
	}{
		Type:      "matched",
		Partner:   partner,
		Session:   sid,
		Initiator: initiator,
	})
}

func (ctl *Controller) SendSignal(to domain.ParticipantID, env domain.Envelope) error {
	return ctl.push(to, struct {
		Type   string               `json:"type"`
		From   domain.ParticipantID `json:"from"`
		Signal json.RawMessage      `json:"signal"`
	}{
		Type:   "signal",
		From:   env.From,
		Signal: env.Signal,
	})
}

func (ctl *Controller) SendChat(to domain.ParticipantID, msg domain.ChatMessage) error {
	return ctl.push(to, struct {
		Type      string               `json:"type"`
		From      domain.ParticipantID `json:"from"`
		Session   domain.SessionID     `json:"session"`
		Text      string               `json:"text"`
		Timestamp time.Time            `json:"timestamp"`
	}{
		Type:      "chat",
		From:      msg.SenderID,
		Session:   msg.SessionID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
}

func (ctl *Controller) SendPartnerDisconnected(to domain.ParticipantID) error {
	return ctl.push(to, struct {
		Type string `json:"type"`
	}{Type: "partnerDisconnected"})
}

package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/app/orch"
	"github.com/dkeye/Roulette/internal/domain"
)

func (ctl *Controller) handleRelay(pid domain.ParticipantID, conn *WsSignalConn, data []byte) {
	type relayPayload struct {
		Type   string               `json:"type"`
		To     domain.ParticipantID `json:"to"`
		Signal json.RawMessage      `json:"signal"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.To == "" || len(p.Signal) == 0 {
		ctl.sendError(conn, "bad_payload")
		return
	}

	env := domain.Envelope{From: pid, To: p.To, Signal: p.Signal}
	switch err := ctl.Orch.Relay(env); {
	case errors.Is(err, orch.ErrNotInSession):
		ctl.sendError(conn, "not_in_session")
	case errors.Is(err, orch.ErrNotYourPartner):
		ctl.sendError(conn, "not_your_partner")
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("relay failed")
		ctl.sendError(conn, "relay_failed")
	}
}

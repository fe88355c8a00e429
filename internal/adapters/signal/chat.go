package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/app/orch"
	"github.com/dkeye/Roulette/internal/domain"
)

func (ctl *Controller) handleChat(pid domain.ParticipantID, conn *WsSignalConn, data []byte) {
	if ctl.chatLimit != nil && !ctl.chatLimit.Allow(pid) {
		ctl.sendError(conn, "too_fast")
		return
	}

	type chatPayload struct {
		Type    string           `json:"type"`
		Session domain.SessionID `json:"session"`
		Text    string           `json:"text"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	switch err := ctl.Orch.Chat(pid, p.Session, p.Text); {
	case errors.Is(err, orch.ErrNotInSession):
		ctl.sendError(conn, "not_in_session")
	case errors.Is(err, domain.ErrEmptyMessage):
		ctl.sendError(conn, "empty_message")
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("chat failed")
		ctl.sendError(conn, "chat_failed")
	}
}

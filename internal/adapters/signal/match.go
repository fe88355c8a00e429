package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/app"
	"github.com/dkeye/Roulette/internal/domain"
)

func (ctl *Controller) handleJoin(pid domain.ParticipantID, conn *WsSignalConn) {
	matched, err := ctl.Orch.Join(pid)
	switch {
	case errors.Is(err, app.ErrAlreadyPaired):
		ctl.sendError(conn, "already_paired")
		return
	case errors.Is(err, app.ErrAlreadyWaiting):
		ctl.sendError(conn, "already_waiting")
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("join failed")
		ctl.sendError(conn, "join_failed")
		return
	}

	// No partner yet is benign: the participant simply stays in the pool.
	if !matched {
		ctl.sendJSON(conn, struct {
			Type string `json:"type"`
		}{Type: "waiting"})
	}
}

// handleLeave takes the participant out of the pool or session without
// tearing the websocket, so it can join again on the same connection.
func (ctl *Controller) handleLeave(pid domain.ParticipantID, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("leave")
	ctl.Orch.Leave(pid)
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
	}{Type: "left"})
}

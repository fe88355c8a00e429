package orch

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/app"
	"github.com/dkeye/Roulette/internal/domain"
)

// Join puts pid into the pool and tries to pair it with a waiting
// participant. Returns true when a session was created (both sides are
// notified; pid, whose join completed the pairing, is the initiator) and
// false when pid stays waiting.
func (o *Orchestrator) Join(pid domain.ParticipantID) (bool, error) {
	if err := o.Match.Join(pid); err != nil {
		return false, err
	}
	for {
		partner, ok := o.Match.FindPartner(pid)
		if !ok {
			return false, nil
		}
		sess, err := o.Match.CreateSession(pid, partner)
		if errors.Is(err, app.ErrAlreadyPaired) || errors.Is(err, app.ErrNotWaiting) {
			// Matchmaking race. If pid itself got paired by a concurrent join,
			// that flow already notified both sides. If pid left the pool (its
			// own disconnect ran in parallel), stop. Otherwise the candidate
			// was taken or disconnected, so pick another.
			if _, _, paired := o.Match.LookupPartner(pid); paired {
				return true, nil
			}
			if !o.Match.Waiting(pid) {
				return false, nil
			}
			continue
		}
		if err != nil {
			o.Match.Leave(pid)
			return false, err
		}
		if err := o.Gateway.SendMatched(partner, pid, sess.ID, false); err != nil {
			log.Warn().Err(err).Str("module", "orch").
				Str("pid", string(partner)).Msg("matched notification dropped")
		}
		if err := o.Gateway.SendMatched(pid, partner, sess.ID, true); err != nil {
			log.Warn().Err(err).Str("module", "orch").
				Str("pid", string(pid)).Msg("matched notification dropped")
		}
		return true, nil
	}
}

// Leave takes pid out of the pool and dissolves its session, if any, without
// tearing the connection. The former partner is notified so it can re-enter
// matchmaking on its own.
func (o *Orchestrator) Leave(pid domain.ParticipantID) {
	o.Match.Leave(pid)
	if partner, ok := o.Match.Dissolve(pid); ok {
		if err := o.Gateway.SendPartnerDisconnected(partner); err != nil {
			log.Warn().Err(err).Str("module", "orch").
				Str("pid", string(partner)).Msg("partner notification dropped")
		}
	}
}

// Disconnect handles a transport-level close: unbind the connection, then
// tear down exactly like Leave.
func (o *Orchestrator) Disconnect(pid domain.ParticipantID) {
	o.Registry.Unbind(pid)
	o.Leave(pid)
	log.Info().Str("module", "orch").Str("pid", string(pid)).Msg("participant disconnected")
}

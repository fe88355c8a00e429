package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/domain"
)

const persistTimeout = 5 * time.Second

// Chat forwards a transcript line to the sender's partner and hands it to the
// history collaborator in the background. Delivery never waits on
// persistence, so the two may land in either order.
func (o *Orchestrator) Chat(from domain.ParticipantID, sid domain.SessionID, text string) error {
	partner, gotSID, ok := o.Match.LookupPartner(from)
	if !ok || gotSID != sid {
		return ErrNotInSession
	}
	msg, err := domain.NewChatMessage(sid, from, text)
	if err != nil {
		return err
	}

	if o.History != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := o.History.Append(ctx, msg); err != nil {
				log.Error().Err(err).Str("module", "orch").
					Str("session", string(sid)).Msg("chat persistence failed")
			}
		}()
	}

	if err := o.Gateway.SendChat(partner, msg); err != nil {
		log.Warn().Err(err).Str("module", "orch").
			Str("pid", string(partner)).Msg("chat delivery dropped")
	}
	return nil
}

package orch

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/app"
	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
)

var (
	// ErrNotInSession rejects relay/chat requests from an unpaired participant.
	ErrNotInSession = errors.New("participant is not in a session")
	// ErrNotYourPartner rejects envelopes addressed outside the sender's session.
	ErrNotYourPartner = errors.New("destination is not the sender's partner")
)

// Orchestrator sequences matchmaking, relay and chat flows over the shared
// state. Constructed once in main and passed to connection handlers.
type Orchestrator struct {
	Registry *app.Registry
	Match    *app.Matchmaker
	Gateway  core.Gateway
	History  core.ChatHistory
}

// Relay forwards an envelope verbatim to its destination after checking that
// the destination really is the sender's current partner. A destination whose
// connection is already gone is dropped and logged; the sender is not told.
// The disconnect path is the recovery mechanism, not an ack protocol.
func (o *Orchestrator) Relay(env domain.Envelope) error {
	partner, _, ok := o.Match.LookupPartner(env.From)
	if !ok {
		return ErrNotInSession
	}
	if env.To != partner {
		log.Warn().Str("module", "orch").
			Str("from", string(env.From)).Str("to", string(env.To)).
			Msg("envelope addressed outside the sender's session")
		return ErrNotYourPartner
	}
	if err := o.Gateway.SendSignal(env.To, env); err != nil {
		log.Warn().Err(err).Str("module", "orch").
			Str("to", string(env.To)).Msg("dropping undeliverable envelope")
	}
	return nil
}

package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/domain"
)

// DefaultNegotiationTimeout bounds the time from entering Offering/Answering
// to Connected, so a half-open session cannot leak when ICE never completes.
const DefaultNegotiationTimeout = 30 * time.Second

type Config struct {
	Self      domain.ParticipantID
	Transport MediaTransport
	Media     MediaSource
	Send      SendFunc

	// Timeout defaults to DefaultNegotiationTimeout when zero.
	Timeout time.Duration

	// OnStateChange and OnError are optional observers, invoked with the
	// machine lock held; they must not call back into the machine.
	OnStateChange func(State)
	OnError       func(error)
}

// Machine drives one session's offer/answer/candidate exchange to a
// connected or failed state. The signaling relay is its only path to the
// partner; the server never sees any of this state.
type Machine struct {
	cfg Config

	mu        sync.Mutex
	state     State
	partner   domain.ParticipantID
	sessionID domain.SessionID
	err       error

	// Candidates that arrived before the remote description. Applied exactly
	// once, in arrival order, when the description lands; discarded on close.
	pending   []domain.Candidate
	remoteSet bool

	timer *time.Timer
}

func NewMachine(cfg Config) *Machine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultNegotiationTimeout
	}
	m := &Machine{cfg: cfg, state: StateIdle}
	cfg.Transport.OnCandidate(m.onLocalCandidate)
	cfg.Transport.OnConnected(m.onICEConnected)
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Machine) Partner() domain.ParticipantID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.partner
}

func (m *Machine) SessionID() domain.SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Initiate runs the initiator path: acquire local media, then construct and
// send the offer. Called when the server designates this side the initiator.
func (m *Machine) Initiate(ctx context.Context, partner domain.ParticipantID) error {
	m.mu.Lock()
	if m.state != StateIdle {
		defer m.mu.Unlock()
		return fmt.Errorf("%w: initiate in %s", ErrInvalidTransition, m.state)
	}
	m.partner = partner
	m.sessionID = domain.DeriveSessionID(m.cfg.Self, partner)
	m.setStateLocked(StateAwaitingLocalMedia)
	m.mu.Unlock()

	tracks, err := m.cfg.Media.Acquire(ctx)
	if err != nil {
		return m.fail(fmt.Errorf("%w: %v", ErrMediaFailed, err))
	}

	m.mu.Lock()
	if m.state != StateAwaitingLocalMedia {
		m.mu.Unlock()
		m.cfg.Media.Release()
		return ErrClosed
	}
	for _, t := range tracks {
		if err := m.cfg.Transport.AddTrack(t); err != nil {
			m.mu.Unlock()
			return m.fail(fmt.Errorf("attach local track: %w", err))
		}
	}
	offer, err := m.cfg.Transport.CreateOffer()
	if err != nil {
		m.mu.Unlock()
		return m.fail(fmt.Errorf("create offer: %w", err))
	}
	m.setStateLocked(StateOffering)
	m.startTimerLocked()
	m.mu.Unlock()

	return m.sendSignal(partner, offer)
}

// HandleSignal feeds one relayed signal into the machine.
func (m *Machine) HandleSignal(ctx context.Context, from domain.ParticipantID, sig domain.Signal) error {
	switch sig.Type {
	case domain.SignalOffer:
		return m.handleOffer(ctx, from, sig)
	case domain.SignalAnswer:
		return m.handleAnswer(sig)
	case domain.SignalCandidate:
		return m.handleCandidate(sig)
	}
	return fmt.Errorf("%w: unknown signal kind %q", ErrInvalidTransition, sig.Type)
}

// handleOffer runs the answering path: acquire media, apply the remote
// offer, send the answer back to its sender.
func (m *Machine) handleOffer(ctx context.Context, from domain.ParticipantID, offer domain.Signal) error {
	m.mu.Lock()
	if m.state != StateIdle {
		defer m.mu.Unlock()
		return fmt.Errorf("%w: offer in %s", ErrInvalidTransition, m.state)
	}
	m.partner = from
	m.sessionID = domain.DeriveSessionID(m.cfg.Self, from)
	m.setStateLocked(StateAwaitingLocalMedia)
	m.mu.Unlock()

	tracks, err := m.cfg.Media.Acquire(ctx)
	if err != nil {
		return m.fail(fmt.Errorf("%w: %v", ErrMediaFailed, err))
	}

	m.mu.Lock()
	if m.state != StateAwaitingLocalMedia {
		m.mu.Unlock()
		m.cfg.Media.Release()
		return ErrClosed
	}
	m.setStateLocked(StateAnswering)
	m.startTimerLocked()
	for _, t := range tracks {
		if err := m.cfg.Transport.AddTrack(t); err != nil {
			m.mu.Unlock()
			return m.fail(fmt.Errorf("attach local track: %w", err))
		}
	}
	answer, err := m.cfg.Transport.Answer(offer)
	if err != nil {
		m.mu.Unlock()
		return m.fail(fmt.Errorf("apply offer: %w", err))
	}
	m.remoteSet = true
	m.flushPendingLocked()
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	return m.sendSignal(from, answer)
}

func (m *Machine) handleAnswer(answer domain.Signal) error {
	m.mu.Lock()
	if m.state != StateOffering {
		defer m.mu.Unlock()
		return fmt.Errorf("%w: answer in %s", ErrInvalidTransition, m.state)
	}
	if err := m.cfg.Transport.AcceptAnswer(answer); err != nil {
		m.mu.Unlock()
		return m.fail(fmt.Errorf("apply answer: %w", err))
	}
	m.remoteSet = true
	m.flushPendingLocked()
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	return nil
}

// handleCandidate applies or buffers an inbound candidate. Candidates for an
// already-finished negotiation are expected under churn and ignored.
func (m *Machine) handleCandidate(sig domain.Signal) error {
	if sig.Candidate == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed || m.state == StateError {
		log.Debug().Str("module", "peer").Str("state", m.state.String()).Msg("ignoring stale candidate")
		return nil
	}
	if !m.remoteSet {
		m.pending = append(m.pending, *sig.Candidate)
		return nil
	}
	if err := m.cfg.Transport.AddCandidate(*sig.Candidate); err != nil {
		// Non-fatal: a candidate for a superseded round dies here, anything
		// else is reported but does not end the negotiation.
		log.Warn().Err(err).Str("module", "peer").Msg("candidate apply failed")
		return fmt.Errorf("apply candidate: %w", err)
	}
	return nil
}

// PartnerDisconnected tears the negotiation down; the caller may re-enter
// matchmaking on a fresh machine.
func (m *Machine) PartnerDisconnected() {
	m.Close()
}

// Close releases local media and the transport session. Safe from any state
// and idempotent; buffered candidates are discarded.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.state == StateClosed || m.state == StateError {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.pending = nil
	m.setStateLocked(StateClosed)
	m.mu.Unlock()

	m.cfg.Media.Release()
	if err := m.cfg.Transport.Close(); err != nil {
		log.Warn().Err(err).Str("module", "peer").Msg("transport close")
	}
}

func (m *Machine) onLocalCandidate(c domain.Candidate) {
	m.mu.Lock()
	partner := m.partner
	state := m.state
	m.mu.Unlock()
	if partner == "" || state == StateClosed || state == StateError {
		return
	}
	sig := domain.Signal{Type: domain.SignalCandidate, Candidate: &c}
	if err := m.sendSignal(partner, sig); err != nil {
		log.Warn().Err(err).Str("module", "peer").Msg("candidate send failed")
	}
}

func (m *Machine) onICEConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnecting {
		return
	}
	m.stopTimerLocked()
	m.setStateLocked(StateConnected)
}

func (m *Machine) onTimeout() {
	m.mu.Lock()
	switch m.state {
	case StateOffering, StateAnswering, StateConnecting:
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	_ = m.fail(ErrNegotiationTimeout)
}

// fail drives the machine to ErrorState, releases resources and surfaces the
// error. No automatic retry: the surrounding application decides whether to
// re-enter matchmaking.
func (m *Machine) fail(err error) error {
	m.mu.Lock()
	if m.state == StateClosed || m.state == StateError {
		m.mu.Unlock()
		return err
	}
	m.stopTimerLocked()
	m.pending = nil
	m.err = err
	m.setStateLocked(StateError)
	onError := m.cfg.OnError
	if onError != nil {
		onError(err)
	}
	m.mu.Unlock()

	m.cfg.Media.Release()
	if cerr := m.cfg.Transport.Close(); cerr != nil {
		log.Warn().Err(cerr).Str("module", "peer").Msg("transport close after failure")
	}
	log.Error().Err(err).Str("module", "peer").Msg("negotiation failed")
	return err
}

func (m *Machine) flushPendingLocked() {
	for _, c := range m.pending {
		if err := m.cfg.Transport.AddCandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "peer").Msg("buffered candidate apply failed")
		}
	}
	m.pending = nil
}

func (m *Machine) sendSignal(to domain.ParticipantID, sig domain.Signal) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return m.cfg.Send(domain.Envelope{From: m.cfg.Self, To: to, Signal: raw})
}

func (m *Machine) setStateLocked(s State) {
	m.state = s
	log.Debug().Str("module", "peer").Str("state", s.String()).Msg("negotiation state")
	if m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(s)
	}
}

func (m *Machine) startTimerLocked() {
	m.stopTimerLocked()
	m.timer = time.AfterFunc(m.cfg.Timeout, m.onTimeout)
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

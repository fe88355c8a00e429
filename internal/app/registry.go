package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
)

type connEntry struct {
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry maps live participants to their signaling connections. It is the
// relay's routing table; session semantics live in the Matchmaker.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ParticipantID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ParticipantID]*connEntry),
	}
}

func (r *Registry) Bind(pid domain.ParticipantID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[pid] = &connEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("bound connection")
}

func (r *Registry) Get(pid domain.ParticipantID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[pid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Unbind drops the entry and fires its bound cancel, so the connection's
// child context does not outlive the connection.
func (r *Registry) Unbind(pid domain.ParticipantID) {
	r.mu.Lock()
	e, ok := r.conns[pid]
	delete(r.conns, pid)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("unbound connection")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

package app

import (
	"testing"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func TestRegistry_BindGetUnbind(t *testing.T) {
	r := NewRegistry()
	pid := domain.NewParticipantID()

	if _, ok := r.Get(pid); ok {
		t.Fatalf("fresh registry must not know %s", pid)
	}

	r.Bind(pid, nopConn{}, nil)
	if _, ok := r.Get(pid); !ok {
		t.Fatalf("bound connection must be retrievable")
	}
	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1", r.Count())
	}

	r.Unbind(pid)
	if _, ok := r.Get(pid); ok {
		t.Fatalf("unbound connection must be gone")
	}
	if r.Count() != 0 {
		t.Fatalf("count = %d, want 0", r.Count())
	}
}

func TestRegistry_UnbindFiresCancel(t *testing.T) {
	r := NewRegistry()
	pid := domain.NewParticipantID()

	fired := false
	r.Bind(pid, nopConn{}, func() { fired = true })

	r.Unbind(pid)
	if !fired {
		t.Fatalf("unbind must cancel the connection's context")
	}

	// Absent entries and nil cancels are tolerated.
	r.Unbind(pid)
	other := domain.NewParticipantID()
	r.Bind(other, nopConn{}, nil)
	r.Unbind(other)
}

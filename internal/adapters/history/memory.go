// Package history provides the in-memory chat history adapter. Any document
// store can replace it behind core.ChatHistory.
package history

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Roulette/internal/domain"
)

type MemoryStore struct {
	mu        sync.RWMutex
	bySession map[domain.SessionID][]domain.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySession: make(map[domain.SessionID][]domain.ChatMessage),
	}
}

func (s *MemoryStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySession[msg.SessionID] = append(s.bySession[msg.SessionID], msg)
	return nil
}

func (s *MemoryStore) ListBySession(ctx context.Context, sid domain.SessionID) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.bySession[sid]
	out := make([]domain.ChatMessage, len(stored))
	copy(out, stored)
	// Appends may land out of order relative to delivery; readers get
	// timestamp-ascending regardless.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

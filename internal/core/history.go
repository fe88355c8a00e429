package core

import (
	"context"

	"github.com/dkeye/Roulette/internal/domain"
)

// ChatHistory is the external persistence collaborator for transcripts.
// Delivery never blocks on it; any document store can sit behind it.
type ChatHistory interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
	// ListBySession returns messages ordered by timestamp ascending.
	ListBySession(ctx context.Context, sid domain.SessionID) ([]domain.ChatMessage, error)
}

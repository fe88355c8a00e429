package domain

import (
	"errors"
	"time"
	"unicode/utf8"
)

var ErrEmptyMessage = errors.New("message text cannot be empty")

const MaxMessageLen = 2048

// ChatMessage is one transcript line scoped to a session.
type ChatMessage struct {
	SessionID SessionID     `json:"session_id"`
	SenderID  ParticipantID `json:"sender_id"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewChatMessage(sid SessionID, sender ParticipantID, text string) (ChatMessage, error) {
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if len(text) > MaxMessageLen {
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := MaxMessageLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return ChatMessage{
		SessionID: sid,
		SenderID:  sender,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}, nil
}

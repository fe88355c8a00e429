package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDeriveSessionID_OrderIndependent(t *testing.T) {
	a, b := ParticipantID("alice"), ParticipantID("bob")
	if DeriveSessionID(a, b) != DeriveSessionID(b, a) {
		t.Fatalf("session id must not depend on argument order")
	}
	if DeriveSessionID(a, b) != SessionID("alice:bob") {
		t.Fatalf("unexpected session id: %s", DeriveSessionID(a, b))
	}
}

func TestNewSession_RejectsSelfPair(t *testing.T) {
	p := NewParticipantID()
	if _, err := NewSession(p, p); err != ErrSelfPair {
		t.Fatalf("expected ErrSelfPair, got %v", err)
	}
}

func TestSession_PartnerOf(t *testing.T) {
	a, b := NewParticipantID(), NewParticipantID()
	sess, err := NewSession(a, b)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if got, ok := sess.PartnerOf(a); !ok || got != b {
		t.Fatalf("PartnerOf(a) = %s, %v; want %s", got, ok, b)
	}
	if got, ok := sess.PartnerOf(b); !ok || got != a {
		t.Fatalf("PartnerOf(b) = %s, %v; want %s", got, ok, a)
	}
	if _, ok := sess.PartnerOf(NewParticipantID()); ok {
		t.Fatalf("PartnerOf(stranger) must report false")
	}
	if !sess.Has(a) || !sess.Has(b) {
		t.Fatalf("session must report both members")
	}
}

func TestNewChatMessage(t *testing.T) {
	sid := SessionID("a:b")
	sender := ParticipantID("a")

	if _, err := NewChatMessage(sid, sender, ""); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	msg, err := NewChatMessage(sid, sender, "hello")
	if err != nil {
		t.Fatalf("NewChatMessage: %v", err)
	}
	if msg.Text != "hello" || msg.SessionID != sid || msg.SenderID != sender {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Fatalf("timestamp must be set")
	}

	long := strings.Repeat("x", MaxMessageLen+100)
	msg, err = NewChatMessage(sid, sender, long)
	if err != nil {
		t.Fatalf("NewChatMessage long: %v", err)
	}
	if len(msg.Text) != MaxMessageLen {
		t.Fatalf("oversize text must be truncated to %d, got %d", MaxMessageLen, len(msg.Text))
	}
}

func TestNewChatMessage_TruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes; placed so the byte-level cut point lands inside it.
	text := strings.Repeat("a", MaxMessageLen-1) + "é"
	msg, err := NewChatMessage("a:b", "a", text)
	if err != nil {
		t.Fatalf("NewChatMessage: %v", err)
	}
	if len(msg.Text) > MaxMessageLen {
		t.Fatalf("truncated text is %d bytes, limit is %d", len(msg.Text), MaxMessageLen)
	}
	if !utf8.ValidString(msg.Text) {
		t.Fatalf("truncation split a rune: %q", msg.Text[len(msg.Text)-4:])
	}
	if len(msg.Text) != MaxMessageLen-1 {
		t.Fatalf("expected the partial rune to be dropped, got %d bytes", len(msg.Text))
	}
}

package signal_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Roulette/internal/adapters/history"
	adapterhttp "github.com/dkeye/Roulette/internal/adapters/http"
	"github.com/dkeye/Roulette/internal/adapters/signal"
	"github.com/dkeye/Roulette/internal/app"
	"github.com/dkeye/Roulette/internal/app/orch"
	"github.com/dkeye/Roulette/internal/config"
	"github.com/dkeye/Roulette/internal/domain"
)

type frame map[string]any

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func startServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	cfg := &config.Config{
		Mode:       "release",
		StaticPath: t.TempDir(),
		ReadLimit:  32768,
		ChatBurst:  100,
		Secret:     "test-secret",
	}
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Match:    app.NewMatchmaker(),
		History:  history.NewMemoryStore(),
	}
	ctl := signal.NewController(o, cfg)
	o.Gateway = ctl

	router := adapterhttp.SetupRouter(context.Background(), cfg, o, ctl)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, o
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &wsClient{t: t, conn: conn}
	welcome := c.expect("welcome")
	id, _ := welcome["id"].(string)
	if id == "" {
		t.Fatalf("welcome frame without id: %v", welcome)
	}
	c.id = id
	return c
}

func (c *wsClient) send(v any) {
	c.t.Helper()
	if err := c.conn.WriteJSON(v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *wsClient) read() frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := c.conn.ReadJSON(&f); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return f
}

// expect reads the next frame and requires its type.
func (c *wsClient) expect(kind string) frame {
	c.t.Helper()
	f := c.read()
	if f["type"] != kind {
		c.t.Fatalf("got frame %v, want type %q", f, kind)
	}
	return f
}

func pair(t *testing.T, srv *httptest.Server) (*wsClient, *wsClient, string) {
	t.Helper()
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(frame{"type": "join"})
	a.expect("waiting")
	b.send(frame{"type": "join"})

	ma := a.expect("matched")
	mb := b.expect("matched")

	if ma["partner"] != b.id || mb["partner"] != a.id {
		t.Fatalf("asymmetric pairing: %v / %v", ma, mb)
	}
	if ma["session"] != mb["session"] {
		t.Fatalf("session ids differ: %v / %v", ma["session"], mb["session"])
	}
	// The join that completed the pairing carries the initiator role.
	if ma["initiator"] == true || mb["initiator"] != true {
		t.Fatalf("initiator must be the completing side: %v / %v", ma, mb)
	}
	sid, _ := ma["session"].(string)
	return a, b, sid
}

func TestSignalServer_MatchAndInitiator(t *testing.T) {
	srv, _ := startServer(t)
	pair(t, srv)
}

func TestSignalServer_RelayReachesPartnerVerbatim(t *testing.T) {
	srv, _ := startServer(t)
	a, b, _ := pair(t, srv)

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0 fake"}`)
	a.send(frame{"type": "signal", "to": b.id, "signal": payload})

	sig := b.expect("signal")
	if sig["from"] != a.id {
		t.Fatalf("from = %v, want %s", sig["from"], a.id)
	}
	raw, _ := json.Marshal(sig["signal"])
	var got, want map[string]any
	json.Unmarshal(raw, &got)
	json.Unmarshal(payload, &want)
	if got["sdp"] != want["sdp"] || got["type"] != want["type"] {
		t.Fatalf("payload altered in transit: %v", sig["signal"])
	}
}

func TestSignalServer_RelayIsScopedToTheSession(t *testing.T) {
	srv, _ := startServer(t)
	a, b, _ := pair(t, srv)
	c := dial(t, srv)

	// A stranger cannot inject into anyone's session.
	c.send(frame{"type": "signal", "to": a.id, "signal": json.RawMessage(`{"x":1}`)})
	errFrame := c.expect("error")
	if errFrame["error"] != "not_in_session" {
		t.Fatalf("error = %v, want not_in_session", errFrame["error"])
	}

	// A paired participant cannot address anyone but its partner.
	a.send(frame{"type": "signal", "to": c.id, "signal": json.RawMessage(`{"x":1}`)})
	errFrame = a.expect("error")
	if errFrame["error"] != "not_your_partner" {
		t.Fatalf("error = %v, want not_your_partner", errFrame["error"])
	}

	// Per-connection frames are FIFO, so the next frame each victim sees
	// proves the rejected envelopes were never delivered.
	b.send(frame{"type": "signal", "to": a.id, "signal": json.RawMessage(`{"marker":true}`)})
	sig := a.expect("signal")
	if sig["from"] != b.id {
		t.Fatalf("a's next frame must be b's signal, got %v", sig)
	}
	c.send(frame{"type": "ping"})
	c.expect("pong")
}

func TestSignalServer_ConcurrentSessionsStayIsolated(t *testing.T) {
	srv, _ := startServer(t)
	a, b, _ := pair(t, srv)
	c, d, _ := pair(t, srv)

	a.send(frame{"type": "signal", "to": b.id, "signal": json.RawMessage(`{"pair":"ab"}`)})
	c.send(frame{"type": "signal", "to": d.id, "signal": json.RawMessage(`{"pair":"cd"}`)})

	sb := b.expect("signal")
	sd := d.expect("signal")
	if sb["from"] != a.id || sd["from"] != c.id {
		t.Fatalf("cross-session delivery: %v / %v", sb, sd)
	}
	if inner, _ := sb["signal"].(map[string]any); inner["pair"] != "ab" {
		t.Fatalf("b got %v", sb)
	}
	if inner, _ := sd["signal"].(map[string]any); inner["pair"] != "cd" {
		t.Fatalf("d got %v", sd)
	}

	// Crossing the streams is rejected.
	a.send(frame{"type": "signal", "to": d.id, "signal": json.RawMessage(`{"x":1}`)})
	errFrame := a.expect("error")
	if errFrame["error"] != "not_your_partner" {
		t.Fatalf("error = %v, want not_your_partner", errFrame["error"])
	}
}

func TestSignalServer_RelayKeepsOrder(t *testing.T) {
	srv, _ := startServer(t)
	a, b, _ := pair(t, srv)

	const n = 20
	for i := 0; i < n; i++ {
		a.send(frame{"type": "signal", "to": b.id,
			"signal": json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i))})
	}
	for i := 0; i < n; i++ {
		sig := b.expect("signal")
		inner, _ := sig["signal"].(map[string]any)
		if int(inner["seq"].(float64)) != i {
			t.Fatalf("frame %d arrived out of order: %v", i, sig)
		}
	}
}

func TestSignalServer_ChatDeliveryAndHistory(t *testing.T) {
	srv, o := startServer(t)
	a, b, sid := pair(t, srv)

	a.send(frame{"type": "chat", "session": sid, "text": "hello there"})

	msg := b.expect("chat")
	if msg["from"] != a.id || msg["text"] != "hello there" || msg["session"] != sid {
		t.Fatalf("unexpected chat frame: %v", msg)
	}

	// Persistence is async; poll the store.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, err := o.History.ListBySession(context.Background(), domain.SessionID(sid))
		if err != nil {
			t.Fatalf("ListBySession: %v", err)
		}
		if len(msgs) == 1 && msgs[0].Text == "hello there" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chat never reached history: %v", msgs)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The transcript is also served over HTTP.
	resp, err := http.Get(srv.URL + "/api/history/" + sid)
	if err != nil {
		t.Fatalf("history request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}
	var body struct {
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(body.Messages) != 1 || body.Messages[0].Text != "hello there" {
		t.Fatalf("unexpected history payload: %+v", body)
	}
}

func TestSignalServer_ChatOutsideSessionRejected(t *testing.T) {
	srv, _ := startServer(t)
	c := dial(t, srv)

	c.send(frame{"type": "chat", "session": "nope", "text": "hi"})
	errFrame := c.expect("error")
	if errFrame["error"] != "not_in_session" {
		t.Fatalf("error = %v, want not_in_session", errFrame["error"])
	}
}

func TestSignalServer_LeaveNotifiesPartner(t *testing.T) {
	srv, _ := startServer(t)
	a, b, _ := pair(t, srv)

	a.send(frame{"type": "leave"})
	a.expect("left")
	b.expect("partnerDisconnected")

	// Both sides can requeue; the server pairs them again.
	a.send(frame{"type": "join"})
	a.expect("waiting")
	b.send(frame{"type": "join"})
	a.expect("matched")
	b.expect("matched")
}

func TestSignalServer_DisconnectNotifiesPartner(t *testing.T) {
	srv, _ := startServer(t)
	a, b, _ := pair(t, srv)

	a.conn.Close()
	b.expect("partnerDisconnected")
}

func TestSignalServer_DisconnectWhileWaitingLeavesPoolClean(t *testing.T) {
	srv, o := startServer(t)
	a := dial(t, srv)
	a.send(frame{"type": "join"})
	a.expect("waiting")

	a.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for o.Registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection never unbound")
		}
		time.Sleep(10 * time.Millisecond)
	}
	// The ghost is gone from the pool: a fresh pair must match each other.
	b := dial(t, srv)
	c := dial(t, srv)
	b.send(frame{"type": "join"})
	b.expect("waiting")
	c.send(frame{"type": "join"})
	mb := b.expect("matched")
	if mb["partner"] != c.id {
		t.Fatalf("matched with %v, want %s", mb["partner"], c.id)
	}
}

func TestSignalServer_DoubleJoinRejected(t *testing.T) {
	srv, _ := startServer(t)
	a := dial(t, srv)

	a.send(frame{"type": "join"})
	a.expect("waiting")
	a.send(frame{"type": "join"})
	errFrame := a.expect("error")
	if errFrame["error"] != "already_waiting" {
		t.Fatalf("error = %v, want already_waiting", errFrame["error"])
	}
}

func TestSignalServer_PingPongAndUnknownType(t *testing.T) {
	srv, _ := startServer(t)
	a := dial(t, srv)

	a.send(frame{"type": "ping"})
	a.expect("pong")

	a.send(frame{"type": "bogus"})
	errFrame := a.expect("error")
	if errFrame["error"] != "unknown_type" {
		t.Fatalf("error = %v, want unknown_type", errFrame["error"])
	}
}

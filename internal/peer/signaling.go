package peer

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Roulette/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ServerMessage is one frame from the signaling server. A single struct
// covers every frame type; absent fields stay zero.
type ServerMessage struct {
	Type      string               `json:"type"`
	ID        domain.ParticipantID `json:"id,omitempty"`
	Partner   domain.ParticipantID `json:"partner,omitempty"`
	Session   domain.SessionID     `json:"session,omitempty"`
	Initiator bool                 `json:"initiator,omitempty"`
	From      domain.ParticipantID `json:"from,omitempty"`
	Signal    json.RawMessage      `json:"signal,omitempty"`
	Text      string               `json:"text,omitempty"`
	Timestamp time.Time            `json:"timestamp,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// SignalingClient manages the WebSocket connection to the matchmaking server.
type SignalingClient struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *ServerMessage
	outgoing  chan any
	done      chan struct{}
	closed    bool
}

func NewSignalingClient(serverURL string) *SignalingClient {
	return &SignalingClient{
		serverURL: serverURL,
		incoming:  make(chan *ServerMessage, 8),
		outgoing:  make(chan any, 8),
		done:      make(chan struct{}),
	}
}

// Connect dials the server and starts the pumps. The first frame the server
// sends is welcome, carrying this client's participant id.
func (c *SignalingClient) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *SignalingClient) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- &msg
	}
}

func (c *SignalingClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Join enters the matchmaking pool.
func (c *SignalingClient) Join() {
	c.outgoing <- map[string]string{"type": "join"}
}

// Leave exits the pool or dissolves the current session.
func (c *SignalingClient) Leave() {
	c.outgoing <- map[string]string{"type": "leave"}
}

// SendEnvelope relays one negotiation signal to the session partner. It is
// the SendFunc the negotiation machine is wired with.
func (c *SignalingClient) SendEnvelope(env domain.Envelope) error {
	c.outgoing <- struct {
		Type   string               `json:"type"`
		To     domain.ParticipantID `json:"to"`
		Signal json.RawMessage      `json:"signal"`
	}{Type: "signal", To: env.To, Signal: env.Signal}
	return nil
}

// SendChat sends one text message into the current session.
func (c *SignalingClient) SendChat(session domain.SessionID, text string) {
	c.outgoing <- struct {
		Type    string           `json:"type"`
		Session domain.SessionID `json:"session"`
		Text    string           `json:"text"`
	}{Type: "chat", Session: session, Text: text}
}

// Incoming returns the channel of server frames. Closed when the connection
// drops.
func (c *SignalingClient) Incoming() <-chan *ServerMessage {
	return c.incoming
}

func (c *SignalingClient) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

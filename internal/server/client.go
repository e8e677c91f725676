// Package server manages individual WebSocket clients, handling read/write
// pumps, event decoding, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection and the rooms it is bound to.
// rooms is owned by the hub.
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	rooms       map[string]struct{}
	rateLimiter *rateLimiter
	log         *slog.Logger
}

// NewClient creates a Client for conn using the hub's configuration. conn may
// be nil for a client that is only ever fed through its send channel.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	if conn != nil && hub.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(hub.cfg.MaxMessageSize)
	}

	return &Client{
		conn:        conn,
		send:        make(chan []byte, hub.cfg.SendBufferSize),
		hub:         hub,
		addr:        addr,
		rooms:       make(map[string]struct{}),
		rateLimiter: newRateLimiter(hub.cfg.RateLimit),
		log:         hub.log.With("addr", addr),
	}
}

// GetSendChan returns the client's outbound queue. It is closed when the hub
// tears the client down.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// Addr returns the remote address the client connected from.
func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// logReadError records why the read loop is ending.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", "limit", c.hub.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Debug("Client closed connection", "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug("Connection closed", "error", err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseAbnormalClosure):
		c.log.Warn("Unexpected WebSocket close", "error", err)
	default:
		c.log.Debug("WebSocket read ended", "error", err)
	}
}

// processMessage decodes one inbound frame and hands it to the hub. Frames
// that cannot be decoded or have an unknown type are dropped.
func (c *Client) processMessage(rawMessage []byte) bool {
	var evt InboundEvent
	if err := json.Unmarshal(rawMessage, &evt); err != nil {
		c.log.Warn("Invalid event", "error", err)
		return false
	}

	switch evt.Type {
	case EventJoinRoom:
		return c.hub.Join(c, evt.MeetingID, evt.Username)

	case EventSendMessage:
		payload, err := encodeMessageReceived(evt.Message)
		if err != nil {
			c.log.Warn("Invalid message payload", "meeting_id", evt.MeetingID, "error", err)
			return false
		}
		return c.hub.Broadcast(BroadcastMessage{Sender: c, MeetingID: evt.MeetingID, Payload: payload})

	default:
		c.log.Warn("Unknown event type", "type", evt.Type)
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.rateLimiter.allow() {
			c.log.Warn("Rate limit exceeded; discarding event",
				"burst", c.hub.cfg.RateLimit.Burst,
				"interval", c.hub.cfg.RateLimit.RefillInterval)
			continue
		}

		c.processMessage(rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error closing connection", "error", err)
	}
}

// handleMessage writes one event per frame and returns false if the
// connection should be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("Error writing close message", "error", err)
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.log.Warn("Error writing message", "error", err)
		return false
	}
	return true
}

func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("Error writing ping", "error", err)
		return false
	}
	return true
}

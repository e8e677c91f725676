// Package server coordinates room membership and room-scoped broadcast for
// the TalkNow websocket relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

type joinRequest struct {
	client    *Client
	meetingID string
	username  string
}

// Hub owns the mapping from meeting id to the clients currently bound to that
// room. All membership changes and deliveries happen on the Run goroutine, so
// events addressed to one room reach its members in the order the hub
// accepted them.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan BroadcastMessage
	policy     BroadcastPolicy
	cfg        Config
	log        *slog.Logger
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub ready to be started with Run. A nil policy lets every
// client broadcast into every room.
func NewHub(log *slog.Logger, cfg Config, policy BroadcastPolicy) *Hub {
	if policy == nil {
		policy = AllowAll{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan BroadcastMessage),
		policy:     policy,
		cfg:        cfg,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register queues a client for registration. It returns false once the hub
// is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister queues the teardown of a client: it leaves every room it joined
// and its send channel is closed. Unknown clients are ignored.
func (h *Hub) Unregister(client *Client) bool {
	select {
	case h.unregister <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Join binds client to the meeting's room and announces username to the room,
// the joining client included.
func (h *Hub) Join(client *Client, meetingID, username string) bool {
	select {
	case h.join <- joinRequest{client: client, meetingID: meetingID, username: username}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Broadcast queues a payload for every current member of msg.MeetingID.
func (h *Hub) Broadcast(msg BroadcastMessage) bool {
	select {
	case h.broadcast <- msg:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Attach registers a client backed by a live connection and starts its
// read and write pumps.
func (h *Hub) Attach(client *Client) {
	if !h.Register(client) {
		client.closeConnection()
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "disconnected")

		case req := <-h.join:
			h.handleJoin(req)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// RoomSize reports how many clients are currently bound to a room.
func (h *Hub) RoomSize(meetingID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[meetingID])
}

// ClientCount reports how many clients are registered.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = struct{}{}
	clientCount := len(h.clients)
	h.mutex.Unlock()
	h.log.Info("Client connected", "addr", client.addr, "clients", clientCount)
}

// removeClient is the teardown hook: it walks the client's own membership set
// and removes it from each of those rooms. Nothing is sent to the remaining
// members.
func (h *Hub) removeClient(client *Client, reason string) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	for meetingID := range client.rooms {
		members := h.rooms[meetingID]
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, meetingID)
		}
	}
	roomCount := len(client.rooms)
	client.rooms = nil
	clientCount := len(h.clients)
	h.mutex.Unlock()

	close(client.send)
	h.log.Info("Client disconnected",
		"addr", client.addr,
		"reason", reason,
		"rooms_left", roomCount,
		"clients", clientCount)
}

func (h *Hub) handleJoin(req joinRequest) {
	h.mutex.Lock()
	if _, ok := h.clients[req.client]; !ok {
		h.mutex.Unlock()
		h.log.Debug("Ignoring room join from unregistered client", "meeting_id", req.meetingID)
		return
	}
	members, ok := h.rooms[req.meetingID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[req.meetingID] = members
	}
	members[req.client] = struct{}{}
	if req.client.rooms == nil {
		req.client.rooms = make(map[string]struct{})
	}
	req.client.rooms[req.meetingID] = struct{}{}
	h.mutex.Unlock()

	h.log.Info("Client joined room",
		"addr", req.client.addr,
		"meeting_id", req.meetingID,
		"username", req.username)

	payload, err := encodeParticipantJoined(req.username)
	if err != nil {
		h.log.Error("Encoding participant event failed", "error", err)
		return
	}
	h.deliver(req.meetingID, payload)
}

func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	if !h.policy.AllowBroadcast(msg.Sender, msg.MeetingID) {
		h.log.Info("Broadcast rejected by policy", "meeting_id", msg.MeetingID)
		return
	}
	h.deliver(msg.MeetingID, msg.Payload)
}

// deliver fans a payload out to the room's members as they are right now.
// Every send is non-blocking; members whose buffer is full are dropped so
// they cannot hold up the rest of the room.
func (h *Hub) deliver(meetingID string, payload []byte) {
	members := h.roomSnapshot(meetingID)
	h.log.Debug("Broadcasting to room", "meeting_id", meetingID, "members", len(members))

	var failed []*Client
	for _, client := range members {
		select {
		case client.send <- payload:
		default:
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		h.removeClient(client, "send buffer full")
	}
}

func (h *Hub) roomSnapshot(meetingID string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return lo.Keys(h.rooms[meetingID])
}

// shutdownClients tears down every client and closes its connection.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.RLock()
	clients := lo.Keys(h.clients)
	h.mutex.RUnlock()

	for _, client := range clients {
		h.removeClient(client, "server shutdown")
		client.closeConnection()
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for all client goroutines to complete.
// It returns context.DeadlineExceeded when they are still running after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// Package server exposes the meeting REST handlers, the WebSocket upgrade,
// health checks, and the built-in test page.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/talknow/internal/meeting"
)

//go:generate mockgen -destination=mocks/mock_registry.go -package=mocks . MeetingRegistry

// MeetingRegistry is the part of the meeting registry the HTTP layer uses.
type MeetingRegistry interface {
	Create() string
	Join(meetingID, username string) error
}

// CreateMeetingResponse is returned by POST /create-meeting.
type CreateMeetingResponse struct {
	MeetingID string `json:"meetingId"`
}

// JoinMeetingRequest is the body of POST /join-meeting.
type JoinMeetingRequest struct {
	MeetingID string `json:"meetingId"`
	Username  string `json:"username"`
}

// JoinMeetingResponse is returned by a successful POST /join-meeting.
type JoinMeetingResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse carries a human-readable failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// API serves the HTTP and websocket endpoints over an injected registry and hub.
type API struct {
	registry MeetingRegistry
	hub      *Hub
	origins  *originPolicy
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewAPI wires the handlers to their collaborators.
func NewAPI(log *slog.Logger, cfg Config, registry MeetingRegistry, hub *Hub) *API {
	origins := newOriginPolicy(log, cfg.AllowedOrigins)
	return &API{
		registry: registry,
		hub:      hub,
		origins:  origins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		log: log,
	}
}

// CreateMeetingHandler creates a meeting and returns its id.
func (a *API) CreateMeetingHandler(w http.ResponseWriter, _ *http.Request) {
	id := a.registry.Create()
	a.writeJSON(w, http.StatusOK, CreateMeetingResponse{MeetingID: id})
}

// JoinMeetingHandler records a participant name against an existing meeting.
// An empty body is treated like an empty JSON object.
func (a *API) JoinMeetingHandler(w http.ResponseWriter, r *http.Request) {
	var req JoinMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.log.Debug("Invalid join request body", "error", err)
		a.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := a.registry.Join(req.MeetingID, req.Username); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, JoinMeetingResponse{Success: true})
}

// WebSocketHandler upgrades GET requests and attaches the connection to the hub.
func (a *API) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	a.hub.Attach(NewClient(conn, a.hub, r.RemoteAddr))
}

// writeError maps domain errors to HTTP statuses.
func (a *API) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, meeting.ErrNotFound) {
		a.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Meeting not found"})
		return
	}
	a.log.Error("Request failed", "error", err)
	a.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Warn("Error writing JSON response", "error", err)
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "TalkNow server is running!")
}

// TestPageHandler serves an HTML page that creates or joins a meeting and
// chats over the websocket endpoint.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>TalkNow Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 260px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
    </style>
</head>
<body>
    <h1>TalkNow</h1>

    <div>
        <input type="text" id="meetingInput" placeholder="Meeting id">
        <button onclick="createMeeting()">Create</button>
    </div>
    <div>
        <input type="text" id="nameInput" placeholder="Your name">
        <button onclick="joinMeeting()">Join</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const meetingInput = document.getElementById('meetingInput');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '5px 0';
            line.style.color = color || 'gray';
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        async function post(path, body) {
            const resp = await fetch(path, {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify(body || {})
            });
            return { status: resp.status, body: await resp.json() };
        }

        async function createMeeting() {
            const resp = await post('/create-meeting');
            meetingInput.value = resp.body.meetingId;
            addLine('Created meeting ' + resp.body.meetingId);
        }

        async function joinMeeting() {
            const meetingId = meetingInput.value.trim();
            const username = nameInput.value.trim();
            const resp = await post('/join-meeting', { meetingId: meetingId, username: username });
            if (resp.status !== 200) {
                addLine('Join failed: ' + resp.body.error, 'red');
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                ws.send(JSON.stringify({ type: 'joinRoom', meetingId: meetingId, username: username }));
                messageInput.disabled = false;
                sendButton.disabled = false;
            };
            ws.onmessage = function(event) {
                const evt = JSON.parse(event.data);
                if (evt.type === 'newParticipant') {
                    addLine(evt.username + ' joined');
                } else if (evt.type === 'receiveMessage') {
                    addLine(typeof evt.message === 'string' ? evt.message : JSON.stringify(evt.message), 'green');
                }
            };
            ws.onclose = function() {
                addLine('Connection closed');
                messageInput.disabled = true;
                sendButton.disabled = true;
                ws = null;
            };
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ type: 'sendMessage', meetingId: meetingInput.value.trim(), message: message }));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`

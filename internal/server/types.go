// Package server defines the websocket event envelopes exchanged with clients
// and small helpers shared by client and hub logic.
package server

import (
	"encoding/json"
	"strings"
)

// Event types carried in the "type" field of every websocket frame.
const (
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventNewParticipant = "newParticipant"
	EventReceiveMessage = "receiveMessage"
)

// InboundEvent is a client-to-server frame. Username is used by joinRoom,
// Message by sendMessage.
type InboundEvent struct {
	Type      string          `json:"type"`
	MeetingID string          `json:"meetingId"`
	Username  string          `json:"username,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
}

// ParticipantJoined is sent to a whole room when a connection issues joinRoom.
type ParticipantJoined struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// MessageReceived relays a sendMessage payload to a whole room. The message is
// an arbitrary JSON value passed through untouched.
type MessageReceived struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// BroadcastMessage is a room-scoped delivery request queued on the hub.
type BroadcastMessage struct {
	Sender    *Client
	MeetingID string
	Payload   []byte
}

func encodeParticipantJoined(username string) ([]byte, error) {
	return json.Marshal(ParticipantJoined{Type: EventNewParticipant, Username: username})
}

func encodeMessageReceived(message json.RawMessage) ([]byte, error) {
	if len(message) == 0 {
		message = json.RawMessage("null")
	}
	return json.Marshal(MessageReceived{Type: EventReceiveMessage, Message: message})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// Package testhelpers provides common utilities shared by the TalkNow tests.
//
// It covers making JSON requests against the meeting endpoints and driving
// websocket connections through the room events, so test files do not repeat
// the wire format.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:5000"

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// PostJSON sends body (marshalled unless it is a string) to url and returns
// the response. It fails the test if the request cannot be made.
func PostJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		if payload, err = json.Marshal(b); err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DecodeJSON reads the response body into a generic map.
func DecodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

// WebSocketURL turns an httptest server URL into its /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket opens a websocket connection with TestOrigin as Origin.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// JoinRoom sends a joinRoom event.
func JoinRoom(conn *websocket.Conn, meetingID, username string) error {
	return conn.WriteJSON(map[string]any{
		"type":      "joinRoom",
		"meetingId": meetingID,
		"username":  username,
	})
}

// SendRoomMessage sends a sendMessage event carrying message.
func SendRoomMessage(conn *websocket.Conn, meetingID string, message any) error {
	return conn.WriteJSON(map[string]any{
		"type":      "sendMessage",
		"meetingId": meetingID,
		"message":   message,
	})
}

// ReceiveEvent reads one event, failing after timeout.
func ReceiveEvent(conn *websocket.Conn, timeout time.Duration) (map[string]any, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	var event map[string]any
	err := conn.ReadJSON(&event)
	return event, err
}

// ExpectEvent reads one event and checks its type and the given field.
func ExpectEvent(t *testing.T, conn *websocket.Conn, eventType, field string, want any) {
	t.Helper()
	event, err := ReceiveEvent(conn, 2*time.Second)
	if err != nil {
		t.Fatalf("Expected %s event, got error: %v", eventType, err)
	}
	if event["type"] != eventType {
		t.Fatalf("Expected event type %q, got %v", eventType, event)
	}
	if got := event[field]; !jsonEqual(got, want) {
		t.Fatalf("Expected %s %v, got %v", field, want, got)
	}
}

// ExpectNoEvent fails if an event arrives within timeout. A timed-out read
// leaves the connection unusable, so this must be the last read on conn.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if event, err := ReceiveEvent(conn, timeout); err == nil {
		t.Fatalf("Expected no event, got %v", event)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

func jsonEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

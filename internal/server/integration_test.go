package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/talknow/internal/meeting"
	"github.com/Tyrowin/talknow/internal/server"
	"github.com/Tyrowin/talknow/internal/testhelpers"
)

type testServer struct {
	srv  *server.Server
	http *httptest.Server
}

func startServer(t *testing.T, cfg server.Config, ids ...string) *testServer {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	opts := meeting.Options{}
	if len(ids) > 0 {
		next := 0
		opts.NewID = func() string {
			id := ids[next%len(ids)]
			next++
			return id
		}
	}

	srv := server.New(log, cfg, server.WithRegistry(meeting.NewRegistry(log, opts)))
	go srv.Hub().Run()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Hub().Shutdown(time.Second)
	})
	return &testServer{srv: srv, http: ts}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts.http.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (ts *testServer) join(t *testing.T, meetingID, username string) *http.Response {
	t.Helper()
	return testhelpers.PostJSON(t, ts.http.URL+"/join-meeting", map[string]string{
		"meetingId": meetingID,
		"username":  username,
	})
}

func TestMeetingRoomScenario(t *testing.T) {
	req := require.New(t)
	ts := startServer(t, server.NewConfig(), "m1")

	// Given a meeting created over HTTP
	resp := testhelpers.PostJSON(t, ts.http.URL+"/create-meeting", nil)
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	req.Equal(map[string]any{"meetingId": "m1"}, testhelpers.DecodeJSON(t, resp))

	// When alice and bob join it
	for _, name := range []string{"alice", "bob"} {
		resp = ts.join(t, "m1", name)
		testhelpers.AssertStatusCode(t, resp, http.StatusOK)
		req.Equal(map[string]any{"success": true}, testhelpers.DecodeJSON(t, resp))
	}
	participants, err := ts.srv.Registry().Participants("m1")
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, participants)

	// And someone tries an unknown meeting
	resp = ts.join(t, "doesnotexist", "carol")
	testhelpers.AssertStatusCode(t, resp, http.StatusNotFound)
	req.Equal(map[string]any{"error": "Meeting not found"}, testhelpers.DecodeJSON(t, resp))

	// Then both live connections see the room events in order
	alice := ts.dial(t)
	bob := ts.dial(t)

	req.NoError(testhelpers.JoinRoom(alice, "m1", "alice"))
	testhelpers.ExpectEvent(t, alice, server.EventNewParticipant, "username", "alice")

	req.NoError(testhelpers.JoinRoom(bob, "m1", "bob"))
	testhelpers.ExpectEvent(t, alice, server.EventNewParticipant, "username", "bob")
	testhelpers.ExpectEvent(t, bob, server.EventNewParticipant, "username", "bob")

	req.NoError(testhelpers.SendRoomMessage(alice, "m1", "hi"))
	testhelpers.ExpectEvent(t, alice, server.EventReceiveMessage, "message", "hi")
	testhelpers.ExpectEvent(t, bob, server.EventReceiveMessage, "message", "hi")

	structured := map[string]any{"text": "hello", "at": float64(3)}
	req.NoError(testhelpers.SendRoomMessage(bob, "m1", structured))
	testhelpers.ExpectEvent(t, alice, server.EventReceiveMessage, "message", structured)
	testhelpers.ExpectEvent(t, bob, server.EventReceiveMessage, "message", structured)

	// When bob disconnects
	req.NoError(testhelpers.CloseWebSocket(bob))
	req.Eventually(func() bool { return ts.srv.Hub().RoomSize("m1") == 1 }, 2*time.Second, 10*time.Millisecond)

	// Then alice keeps talking alone and nobody announces the departure
	req.NoError(testhelpers.SendRoomMessage(alice, "m1", "still here"))
	testhelpers.ExpectEvent(t, alice, server.EventReceiveMessage, "message", "still here")
	testhelpers.ExpectNoEvent(t, alice, 200*time.Millisecond)
}

func TestRoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	ts := startServer(t, server.NewConfig())

	inA := ts.dial(t)
	inB := ts.dial(t)

	req.NoError(testhelpers.JoinRoom(inA, "room-a", "ann"))
	testhelpers.ExpectEvent(t, inA, server.EventNewParticipant, "username", "ann")
	req.NoError(testhelpers.JoinRoom(inB, "room-b", "ben"))
	testhelpers.ExpectEvent(t, inB, server.EventNewParticipant, "username", "ben")

	req.NoError(testhelpers.SendRoomMessage(inA, "room-a", "only for a"))
	testhelpers.ExpectEvent(t, inA, server.EventReceiveMessage, "message", "only for a")
	testhelpers.ExpectNoEvent(t, inB, 200*time.Millisecond)
}

func TestRoomJoinDoesNotRequireRegisteredMeeting(t *testing.T) {
	req := require.New(t)
	ts := startServer(t, server.NewConfig())

	conn := ts.dial(t)
	req.NoError(testhelpers.JoinRoom(conn, "never-created", "dave"))
	testhelpers.ExpectEvent(t, conn, server.EventNewParticipant, "username", "dave")

	req.Zero(ts.srv.Registry().Count())
	req.Equal(1, ts.srv.Hub().RoomSize("never-created"))
}

func TestInvalidFramesAreIgnored(t *testing.T) {
	req := require.New(t)
	ts := startServer(t, server.NewConfig())

	conn := ts.dial(t)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance","meetingId":"m1"}`)))

	// The connection survives and still works
	req.NoError(testhelpers.JoinRoom(conn, "m1", "erin"))
	testhelpers.ExpectEvent(t, conn, server.EventNewParticipant, "username", "erin")
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	req := require.New(t)
	cfg := server.NewConfig()
	cfg.MaxMessageSize = 128
	ts := startServer(t, cfg)

	conn := ts.dial(t)
	req.NoError(testhelpers.JoinRoom(conn, "m1", "frank"))
	testhelpers.ExpectEvent(t, conn, server.EventNewParticipant, "username", "frank")

	req.NoError(testhelpers.SendRoomMessage(conn, "m1", strings.Repeat("x", 1024)))

	_, err := testhelpers.ReceiveEvent(conn, 2*time.Second)
	req.Error(err)
	req.Eventually(func() bool { return ts.srv.Hub().ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRateLimitDiscardsExcessEvents(t *testing.T) {
	req := require.New(t)
	cfg := server.NewConfig()
	cfg.RateLimit = server.RateLimitConfig{Burst: 2, RefillInterval: time.Minute}
	ts := startServer(t, cfg)

	conn := ts.dial(t)
	req.NoError(testhelpers.JoinRoom(conn, "m1", "gina"))
	testhelpers.ExpectEvent(t, conn, server.EventNewParticipant, "username", "gina")

	req.NoError(testhelpers.SendRoomMessage(conn, "m1", "first"))
	req.NoError(testhelpers.SendRoomMessage(conn, "m1", "second"))
	testhelpers.ExpectEvent(t, conn, server.EventReceiveMessage, "message", "first")
	testhelpers.ExpectNoEvent(t, conn, 200*time.Millisecond)
}

func TestShutdownClosesLiveConnections(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	srv := server.New(log, server.NewConfig())
	go srv.Hub().Run()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts.URL))
	req.NoError(err)
	defer conn.Close()
	req.NoError(testhelpers.JoinRoom(conn, "m1", "hank"))
	testhelpers.ExpectEvent(t, conn, server.EventNewParticipant, "username", "hank")

	req.NoError(srv.Hub().Shutdown(2 * time.Second))

	_, err = testhelpers.ReceiveEvent(conn, 2*time.Second)
	req.Error(err)
	req.Zero(srv.Hub().ClientCount())
	req.Zero(srv.Hub().RoomSize("m1"))
}

func TestServerRunStopsOnContextCancel(t *testing.T) {
	req := require.New(t)
	cfg := server.NewConfig()
	cfg.Port = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	srv := server.New(logs.GetLoggerFromLevel(slog.LevelDebug), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		req.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWebSocketOriginValidation(t *testing.T) {
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testhelpers.TestOrigin}
	ts := startServer(t, cfg)
	url := testhelpers.WebSocketURL(ts.http.URL)

	t.Run("allowed origin connects", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(url)
		require.NoError(t, err)
		_ = conn.Close()
	})

	t.Run("other origin is refused", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Origin", "http://evil.example")
		conn, resp, err := websocket.DefaultDialer.Dial(url, headers)
		if conn != nil {
			_ = conn.Close()
		}
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

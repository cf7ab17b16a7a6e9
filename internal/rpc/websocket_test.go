package rpc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicode/internal/config"
)

func newTestWebSocketServer(t *testing.T) *WebSocketServer {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Executor.WorkingDir = t.TempDir()
	cfg.Debug.Enabled = false
	return NewWebSocketServer(cfg, nil)
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := newTestWebSocketServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","id":7,"method":"is_dangerous","params":{"command":"chmod -R 777 ."}}`)))

	var reply rpcReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "7", string(reply.ID))
	assert.JSONEq(t, `{"dangerous":true,"rule":"recursive world-writable chmod"}`, string(reply.Result))

	assert.Eventually(t, func() bool { return srv.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": 8, "method": "shutdown"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.JSONEq(t, `{"success":true}`, string(reply.Result))

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	srv := newTestWebSocketServer(t)
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, float64(0), status["active_sessions"])
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newTestWebSocketServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return srv.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

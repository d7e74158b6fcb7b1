package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penlabhq/penlab/internal/infrastructure/config"
	"github.com/penlabhq/penlab/internal/infrastructure/logging"
	"github.com/penlabhq/penlab/internal/preview"
	"github.com/penlabhq/penlab/internal/preview/relay"
)

type wsMessage struct {
	Type       string          `json:"type"`
	Message    string          `json:"message,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
	Generation uint64          `json:"generation,omitempty"`
	LogCount   int             `json:"log_count"`
	CanUndo    bool            `json:"can_undo"`
	CanRedo    bool            `json:"can_redo"`
}

func dialTest(t *testing.T) (*websocket.Conn, *relay.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := relay.NewStore(1000)
	pm := preview.NewManager(config.PreviewConfig{
		Timeout:      2 * time.Second,
		MaxCallStack: 1024,
	}, store, logging.NewNop())
	h := NewHandler(pm, nil, logging.NewNop(), nil, time.Minute)

	r := gin.New()
	r.GET("/stream", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// First frame is the welcome message.
	var welcome wsMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "system", welcome.Type)

	return conn, store
}

// readUntil drains frames until one of the wanted type arrives, failing the
// test if the connection produces ten unrelated frames first.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) wsMessage {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == wanted {
			return msg
		}
	}
	t.Fatalf("no %q frame received", wanted)
	return wsMessage{}
}

// collectCycle reads frames until a render_complete arrives and every live
// console frame of that cycle has been seen. The pump goroutine races the
// completion frame, so the synchronous log_count is the source of truth for
// how many console frames to wait for.
func collectCycle(t *testing.T, conn *websocket.Conn) (wsMessage, []string) {
	t.Helper()
	var (
		complete wsMessage
		done     bool
		messages []string
	)
	for i := 0; i < 20; i++ {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		switch msg.Type {
		case "console":
			var record map[string]interface{}
			require.NoError(t, json.Unmarshal(msg.Record, &record))
			messages = append(messages, record["message"].(string))
		case "render_complete":
			complete = msg
			done = true
		}
		if done && len(messages) >= complete.LogCount {
			return complete, messages
		}
	}
	t.Fatal("render cycle did not complete")
	return wsMessage{}, nil
}

func render(t *testing.T, conn *websocket.Conn, bundle map[string]string) (wsMessage, []string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "render",
		"bundle": bundle,
	}))
	return collectCycle(t, conn)
}

func TestRenderStreamsConsole(t *testing.T) {
	conn, _ := dialTest(t)

	complete, messages := render(t, conn, map[string]string{
		"html":       "<p>hi</p>",
		"javascript": `console.log("streamed");`,
	})
	assert.Equal(t, uint64(1), complete.Generation)
	assert.False(t, complete.CanUndo)
	assert.Equal(t, []string{"streamed"}, messages)
}

func TestRenderWithoutBundleRejected(t *testing.T) {
	conn, _ := dialTest(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "render"}))
	errFrame := readUntil(t, conn, "error")
	assert.Contains(t, errFrame.Message, "bundle")
}

func TestUndoRedoReplaysBundles(t *testing.T) {
	conn, _ := dialTest(t)

	render(t, conn, map[string]string{"javascript": `console.log("first");`})
	render(t, conn, map[string]string{"javascript": `console.log("second");`})

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "undo"}))
	complete, messages := collectCycle(t, conn)
	assert.True(t, complete.CanRedo)
	assert.Equal(t, []string{"first"}, messages)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "redo"}))
	complete, messages = collectCycle(t, conn)
	assert.False(t, complete.CanRedo)
	assert.Equal(t, []string{"second"}, messages)

	// Redo past the end is a no-op reported through a history frame.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "redo"}))
	history := readUntil(t, conn, "history")
	assert.True(t, history.CanUndo)
	assert.False(t, history.CanRedo)
}

func TestForwardedConsolePayload(t *testing.T) {
	conn, store := dialTest(t)

	render(t, conn, map[string]string{"html": "<div></div>"})

	// A well-shaped payload tagged with the current generation is ingested.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "console",
		"payload": map[string]interface{}{
			"channel":    "console",
			"level":      "warn",
			"message":    "from the iframe",
			"timestamp":  "2026-01-01T00:00:00Z",
			"generation": store.Generation(),
		},
	}))
	console := readUntil(t, conn, "console")
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(console.Record, &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "from the iframe", record["message"])

	// Wrong channel is dropped without an error frame; a ping proves the
	// connection is still serving.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "console",
		"payload": map[string]interface{}{"channel": "telemetry", "level": "log", "message": "x"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, conn, "pong")
	assert.Equal(t, 1, store.Len())
}

func TestStaleForwardedPayloadDropped(t *testing.T) {
	conn, store := dialTest(t)

	render(t, conn, map[string]string{"html": "<div></div>"})
	stale := store.Generation()
	render(t, conn, map[string]string{"html": "<span></span>"})

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "console",
		"payload": map[string]interface{}{
			"channel":    "console",
			"level":      "log",
			"message":    "straggler",
			"generation": stale,
		},
	}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, conn, "pong")
	assert.Equal(t, 0, store.Len())
}

func TestChatWithoutProvider(t *testing.T) {
	conn, _ := dialTest(t)

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    "chat",
		"message": "center a div",
	}))
	errFrame := readUntil(t, conn, "error")
	assert.Contains(t, errFrame.Message, "not configured")
}

func TestUnknownTypeRejected(t *testing.T) {
	conn, _ := dialTest(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "teleport"}))
	errFrame := readUntil(t, conn, "error")
	assert.Contains(t, errFrame.Message, "unknown message type")
}

func TestClearLogs(t *testing.T) {
	conn, store := dialTest(t)

	render(t, conn, map[string]string{"javascript": `console.log("x");`})
	require.Equal(t, 1, store.Len())

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "clear_logs"}))
	readUntil(t, conn, "logs_cleared")
	assert.Equal(t, 0, store.Len())
}

// Package ws serves the editor's streaming connection: live console relay,
// render requests, undo/redo, and AI chat on one socket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/penlabhq/penlab/internal/ai"
	"github.com/penlabhq/penlab/internal/domain/history"
	"github.com/penlabhq/penlab/internal/infrastructure/logging"
	"github.com/penlabhq/penlab/internal/infrastructure/monitoring"
	"github.com/penlabhq/penlab/internal/preview"
	"github.com/penlabhq/penlab/internal/preview/relay"
	"github.com/penlabhq/penlab/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer upstream
	},
}

// Inbound is the tagged union of messages a client may send. Type selects
// the variant; unused fields stay zero.
type Inbound struct {
	Type    string              `json:"type"`
	Bundle  *types.SourceBundle `json:"bundle,omitempty"`
	Message string              `json:"message,omitempty"`

	// Payload carries a raw console event forwarded from a client-side
	// iframe preview, untrusted until shape-checked.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler manages WebSocket connections.
type Handler struct {
	preview     *preview.Manager
	aiClient    ai.Provider
	logger      *logging.Logger
	metrics     *monitoring.Metrics
	chatTimeout time.Duration
}

// NewHandler creates a WebSocket handler. aiClient may be nil when no API
// key is configured; chat requests then fail politely.
func NewHandler(pm *preview.Manager, aiClient ai.Provider, logger *logging.Logger, metrics *monitoring.Metrics, chatTimeout time.Duration) *Handler {
	return &Handler{
		preview:     pm,
		aiClient:    aiClient,
		logger:      logger,
		metrics:     metrics,
		chatTimeout: chatTimeout,
	}
}

// conn wraps a websocket connection with a write lock, since the console
// pump and the request handler write concurrently.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// HandleConnection upgrades the request and serves messages until the client
// disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer socket.Close()

	connID := uuid.NewString()
	cn := &conn{ws: socket}
	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}
	h.logger.Info("websocket connected", zap.String("conn_id", connID))

	// Live console relay: every record appended to the store is pushed to
	// this client for as long as the connection lives.
	store := h.preview.Store()
	token, records := store.Subscribe()
	defer store.Unsubscribe(token)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for record := range records {
			if err := cn.send(gin.H{"type": "console", "record": record}); err != nil {
				return
			}
			if h.metrics != nil {
				h.metrics.WSMessages.WithLabelValues("console", "out").Inc()
			}
		}
	}()

	cn.send(gin.H{"type": "system", "message": "connected to penlab"})

	// Per-connection edit history backing undo/redo.
	edits := history.NewStack(0)
	reqCtx := c.Request.Context()

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			break
		}

		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(cn, "malformed message")
			continue
		}
		if h.metrics != nil {
			h.metrics.WSMessages.WithLabelValues(msg.Type, "in").Inc()
		}

		switch msg.Type {
		case "render":
			h.handleRender(reqCtx, cn, msg, edits)
		case "undo":
			h.handleStep(reqCtx, cn, edits, true)
		case "redo":
			h.handleStep(reqCtx, cn, edits, false)
		case "chat":
			h.handleChat(reqCtx, cn, msg)
		case "console":
			h.handleForwardedConsole(store, msg)
		case "clear_logs":
			store.Clear()
			cn.send(gin.H{"type": "logs_cleared"})
		case "ping":
			cn.send(gin.H{"type": "pong"})
		default:
			h.sendError(cn, "unknown message type: "+msg.Type)
		}
	}

	h.logger.Info("websocket disconnected", zap.String("conn_id", connID))
}

func (h *Handler) handleRender(ctx context.Context, cn *conn, msg Inbound, edits *history.Stack) {
	if msg.Bundle == nil {
		h.sendError(cn, "render requires a bundle")
		return
	}

	edits.Push(*msg.Bundle)
	h.renderAndReport(ctx, cn, *msg.Bundle, edits)
}

func (h *Handler) handleStep(ctx context.Context, cn *conn, edits *history.Stack, back bool) {
	var (
		bundle types.SourceBundle
		ok     bool
	)
	if back {
		bundle, ok = edits.Undo()
	} else {
		bundle, ok = edits.Redo()
	}
	if !ok {
		cn.send(gin.H{"type": "history", "can_undo": edits.CanUndo(), "can_redo": edits.CanRedo()})
		return
	}
	h.renderAndReport(ctx, cn, bundle, edits)
}

func (h *Handler) renderAndReport(ctx context.Context, cn *conn, bundle types.SourceBundle, edits *history.Stack) {
	result, err := h.preview.Render(ctx, bundle)
	if err != nil {
		h.sendError(cn, err.Error())
		return
	}

	// Individual records already reached the client through the console
	// pump; this closes the cycle.
	cn.send(gin.H{
		"type":        "render_complete",
		"generation":  result.Generation,
		"duration_ms": result.DurationMS,
		"log_count":   len(result.Logs),
		"bundle":      bundle,
		"can_undo":    edits.CanUndo(),
		"can_redo":    edits.CanRedo(),
	})
}

// handleForwardedConsole ingests a console event the browser host captured
// from its own iframe rendering of the composed document. The payload is the
// raw postMessage data plus the generation the host learned from
// render_complete; anything not matching the console shape is dropped before
// any field is trusted, and stale generations are discarded by the store.
func (h *Handler) handleForwardedConsole(store *relay.Store, msg Inbound) {
	console, err := relay.Decode(msg.Payload)
	if err != nil {
		return
	}
	if _, ok := store.Relay(console); !ok {
		if h.metrics != nil {
			h.metrics.StaleMessages.Inc()
		}
		return
	}
	if h.metrics != nil {
		h.metrics.ConsoleMessages.WithLabelValues(string(console.Level)).Inc()
	}
}

func (h *Handler) handleChat(ctx context.Context, cn *conn, msg Inbound) {
	if h.aiClient == nil {
		h.sendError(cn, "AI assistant is not configured")
		return
	}
	if msg.Message == "" {
		h.sendError(cn, "chat requires a message")
		return
	}

	// Bound the upstream call so a stalled model cannot pin the connection.
	ctx, cancel := context.WithTimeout(ctx, h.chatTimeout)
	defer cancel()

	var messages []ai.Message
	if msg.Bundle != nil && !msg.Bundle.IsEmpty() {
		messages = ai.SuggestionPrompt(msg.Bundle.HTML, msg.Bundle.CSS, msg.Bundle.JavaScript, msg.Message)
	} else {
		messages = []ai.Message{{Role: "user", Content: msg.Message}}
	}

	start := time.Now()
	err := h.aiClient.StreamChat(ctx, messages, func(token string) error {
		return cn.send(gin.H{"type": "token", "content": token})
	})
	if h.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		h.metrics.AIRequests.WithLabelValues("chat", status).Inc()
		h.metrics.AIDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.sendError(cn, err.Error())
		return
	}

	cn.send(gin.H{"type": "complete", "timestamp": time.Now().Unix()})
}

func (h *Handler) sendError(cn *conn, msg string) {
	cn.send(gin.H{"type": "error", "message": msg})
}

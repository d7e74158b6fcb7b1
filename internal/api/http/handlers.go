// Package http exposes the editor's REST surface: render, export, logs,
// snippets, sessions, and AI completion.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/penlabhq/penlab/internal/ai"
	"github.com/penlabhq/penlab/internal/domain/session"
	"github.com/penlabhq/penlab/internal/domain/snippet"
	"github.com/penlabhq/penlab/internal/infrastructure/logging"
	"github.com/penlabhq/penlab/internal/infrastructure/monitoring"
	"github.com/penlabhq/penlab/internal/preview"
	"github.com/penlabhq/penlab/internal/preview/compose"
	"github.com/penlabhq/penlab/internal/shared/types"
)

// Handler serves the REST API.
type Handler struct {
	preview  *preview.Manager
	snippets *snippet.Store
	sessions *session.Manager
	aiClient ai.Provider
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	started  time.Time
}

// NewHandler creates the REST handler. aiClient may be nil when the AI
// assistant is not configured.
func NewHandler(pm *preview.Manager, snippets *snippet.Store, sessions *session.Manager, aiClient ai.Provider, logger *logging.Logger) *Handler {
	return &Handler{
		preview:  pm,
		snippets: snippets,
		sessions: sessions,
		aiClient: aiClient,
		logger:   logger,
		started:  time.Now(),
	}
}

// WithMetrics attaches a metrics collector.
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

func (h *Handler) countSnippetOp(op string, err error) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.metrics.SnippetOps.WithLabelValues(op, status).Inc()
}

func (h *Handler) countSessionOp(op string, err error) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.metrics.SessionOps.WithLabelValues(op, status).Inc()
}

// Root reports service identity.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "penlab",
		"status":  "running",
	})
}

// Health reports component status for readiness probes.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"preview": gin.H{
			"state":      h.preview.State(),
			"generation": h.preview.Store().Generation(),
			"log_count":  h.preview.Store().Len(),
		},
		"sessions":      h.sessions.Stats(),
		"ai_configured": h.aiClient != nil,
	})
}

type renderRequest struct {
	HTML       string `json:"html"`
	CSS        string `json:"css"`
	JavaScript string `json:"javascript"`
}

func (r renderRequest) bundle() types.SourceBundle {
	return types.SourceBundle{HTML: r.HTML, CSS: r.CSS, JavaScript: r.JavaScript}
}

// Render runs one full render cycle and returns the composed document plus
// the console records the script produced.
func (h *Handler) Render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.preview.Render(c.Request.Context(), req.bundle())
	if err != nil {
		h.logger.Error("render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"generation":  result.Generation,
		"document":    result.Document,
		"logs":        result.Logs,
		"duration_ms": result.DurationMS,
		// The client must put exactly this on the iframe embedding the
		// document.
		"sandbox": compose.SandboxAttributes,
	})
}

// Export composes the current bundle into a standalone HTML document and
// offers it as a download.
func (h *Handler) Export(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	doc := h.preview.OpenStandalone(req.bundle())
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// Logs returns every retained console record in arrival order.
func (h *Handler) Logs(c *gin.Context) {
	records := h.preview.Store().List()
	c.JSON(http.StatusOK, gin.H{
		"logs":  records,
		"count": len(records),
	})
}

// ClearLogs empties the console log. Clearing an empty log succeeds.
func (h *Handler) ClearLogs(c *gin.Context) {
	h.preview.Store().Clear()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

type completeRequest struct {
	HTML       string `json:"html"`
	CSS        string `json:"css"`
	JavaScript string `json:"javascript"`
	Request    string `json:"request" binding:"required"`
}

// AIComplete performs a non-streaming suggestion request. The streaming path
// lives on the WebSocket.
func (h *Handler) AIComplete(c *gin.Context) {
	if h.aiClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant is not configured"})
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	start := time.Now()
	reply, err := h.aiClient.Complete(c.Request.Context(),
		ai.SuggestionPrompt(req.HTML, req.CSS, req.JavaScript, req.Request))
	if h.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		h.metrics.AIRequests.WithLabelValues("complete", status).Inc()
		h.metrics.AIDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.logger.Warn("ai completion failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// AIModels lists the models the configured backend offers.
func (h *Handler) AIModels(c *gin.Context) {
	if h.aiClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assistant is not configured"})
		return
	}

	models, err := h.aiClient.Models(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

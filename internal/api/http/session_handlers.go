package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/penlabhq/penlab/internal/domain/session"
	"github.com/penlabhq/penlab/internal/shared/id"
	"github.com/penlabhq/penlab/internal/shared/types"
)

type sessionRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Bundle      types.SourceBundle  `json:"bundle"`
	SnippetID   *string             `json:"snippet_id"`
	Preferences session.Preferences `json:"preferences"`
}

// SaveSession captures the current workspace.
func (h *Handler) SaveSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	opts := session.SaveOptions{
		Name:        req.Name,
		Description: req.Description,
		Bundle:      req.Bundle,
		Preferences: req.Preferences,
	}
	if req.SnippetID != nil {
		snippetID := id.SnippetID(*req.SnippetID)
		opts.SnippetID = &snippetID
	}

	sess, err := h.sessions.Save(opts)
	h.countSessionOp("save", err)
	if err != nil {
		h.logger.Error("session save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// ListSessions returns all saved sessions, most recently updated first.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List()
	h.countSessionOp("list", err)
	if err != nil {
		h.logger.Error("session list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession loads one session by ID.
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.sessions.Get(id.SessionID(c.Param("id")))
	h.countSessionOp("get", err)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("session read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// RestoreSession loads a session and marks it as the active restore point.
func (h *Handler) RestoreSession(c *gin.Context) {
	sess, err := h.sessions.Restore(id.SessionID(c.Param("id")))
	h.countSessionOp("restore", err)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("session restore failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restore session"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession removes a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	err := h.sessions.Delete(id.SessionID(c.Param("id")))
	h.countSessionOp("delete", err)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("session delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

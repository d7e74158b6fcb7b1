package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/penlabhq/penlab/internal/domain/snippet"
	"github.com/penlabhq/penlab/internal/shared/id"
	"github.com/penlabhq/penlab/internal/shared/types"
)

type snippetRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Bundle      types.SourceBundle `json:"bundle"`
}

// CreateSnippet saves a new snippet.
func (h *Handler) CreateSnippet(c *gin.Context) {
	var req snippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	snip, err := h.snippets.Save(req.Name, req.Description, req.Bundle)
	h.countSnippetOp("save", err)
	if err != nil {
		if errors.Is(err, snippet.ErrEmptyName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("snippet save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save snippet"})
		return
	}
	c.JSON(http.StatusCreated, snip)
}

// ListSnippets returns all saved snippets, most recently updated first.
func (h *Handler) ListSnippets(c *gin.Context) {
	snippets, err := h.snippets.List()
	h.countSnippetOp("list", err)
	if err != nil {
		h.logger.Error("snippet list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list snippets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snippets": snippets,
		"count":    len(snippets),
	})
}

// GetSnippet loads one snippet by ID.
func (h *Handler) GetSnippet(c *gin.Context) {
	snip, err := h.snippets.Get(id.SnippetID(c.Param("id")))
	h.countSnippetOp("get", err)
	if err != nil {
		if errors.Is(err, snippet.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
			return
		}
		h.logger.Error("snippet read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snippet"})
		return
	}
	c.JSON(http.StatusOK, snip)
}

// UpdateSnippet replaces an existing snippet's content and metadata.
func (h *Handler) UpdateSnippet(c *gin.Context) {
	var req snippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	snip, err := h.snippets.Update(id.SnippetID(c.Param("id")), req.Name, req.Description, req.Bundle)
	h.countSnippetOp("update", err)
	if err != nil {
		switch {
		case errors.Is(err, snippet.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
		case errors.Is(err, snippet.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("snippet update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update snippet"})
		}
		return
	}
	c.JSON(http.StatusOK, snip)
}

// DeleteSnippet removes a snippet.
func (h *Handler) DeleteSnippet(c *gin.Context) {
	err := h.snippets.Delete(id.SnippetID(c.Param("id")))
	h.countSnippetOp("delete", err)
	if err != nil {
		if errors.Is(err, snippet.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "snippet not found"})
			return
		}
		h.logger.Error("snippet delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete snippet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

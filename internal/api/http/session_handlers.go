package http

import (
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/nebula/internal/shared/id"
	"github.com/gin-gonic/gin"
)

// ListHistory returns history newest first
func (h *Handlers) ListHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.session.History()})
}

// ClearHistory removes all history
func (h *Handlers) ClearHistory(c *gin.Context) {
	if err := h.session.ClearHistory(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteHistory removes one history entry
func (h *Handlers) DeleteHistory(c *gin.Context) {
	raw, ok := idParam(c, id.HistoryPrefix)
	if !ok {
		return
	}
	if err := h.session.DeleteHistory(c.Request.Context(), id.HistoryID(raw)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": raw})
}

// ListShortcuts returns the speed-dial shortcuts
func (h *Handlers) ListShortcuts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"shortcuts": h.session.Shortcuts()})
}

// AddShortcut appends a shortcut
func (h *Handlers) AddShortcut(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if !bindJSON(c, &req, h.limits.JSONBytes) {
		return
	}

	s, err := h.session.AddShortcut(c.Request.Context(), req.Title, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// RemoveShortcut deletes a shortcut
func (h *Handlers) RemoveShortcut(c *gin.Context) {
	raw, ok := idParam(c, id.ShortcutPrefix)
	if !ok {
		return
	}
	if err := h.session.RemoveShortcut(c.Request.Context(), id.ShortcutID(raw)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": raw})
}

// ListDownloads returns saved documents
func (h *Handlers) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"downloads": h.session.Downloads()})
}

// ClearDownloads empties the download list
func (h *Handlers) ClearDownloads(c *gin.Context) {
	if err := h.session.ClearDownloads(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetNotes returns the scratchpad
func (h *Handlers) GetNotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notes": h.session.Notes()})
}

// SetNotes replaces the scratchpad
func (h *Handlers) SetNotes(c *gin.Context) {
	var req struct {
		Notes *string `json:"notes" binding:"required"`
	}
	if !bindJSON(c, &req, int64(h.limits.NotesBytes)+h.limits.JSONBytes) {
		return
	}
	if len(*req.Notes) > h.limits.NotesBytes {
		respondError(c, fmt.Errorf("%w: notes exceed %d bytes", errBodyTooLarge, h.limits.NotesBytes))
		return
	}

	if err := h.session.SetNotes(c.Request.Context(), *req.Notes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

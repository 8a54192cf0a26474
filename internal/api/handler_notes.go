package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitbot/internal/model"
	"habitbot/internal/service"
)

type NoteHandler struct {
	notebook      *service.Notebook
	retentionDays int
	logger        *zap.Logger
}

func NewNoteHandler(notebook *service.Notebook, retentionDays int, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{notebook: notebook, retentionDays: retentionDays, logger: logger}
}

// List handles GET /api/notes
func (h *NoteHandler) List(c *gin.Context) {
	notes, err := h.notebook.ListNotes(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "list notes", err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// Create handles POST /api/notes
func (h *NoteHandler) Create(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id, err := h.notebook.AddNote(c.Request.Context(), req.Content)
	if err != nil {
		writeError(c, h.logger, "add note", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Delete handles DELETE /api/notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	deleted, err := h.notebook.DeleteNote(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "delete note", err)
		return
	}
	if !deleted {
		writeError(c, h.logger, "delete note", model.NotFound("note", id))
		return
	}
	c.Status(http.StatusNoContent)
}

// Cleanup handles POST /api/notes/cleanup with an optional {"days": n} body.
func (h *NoteHandler) Cleanup(c *gin.Context) {
	req := struct {
		Days *int `json:"days"`
	}{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	days := h.retentionDays
	if req.Days != nil {
		days = *req.Days
	}

	removed, err := h.notebook.CleanupOldNotes(c.Request.Context(), days)
	if err != nil {
		writeError(c, h.logger, "cleanup notes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "days": days})
}

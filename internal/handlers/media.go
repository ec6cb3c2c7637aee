package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/services"
)

// MediaHandler exposes record attachments: upload, listing, removal.
type MediaHandler struct {
	log   *logger.Logger
	media services.MediaService
}

func NewMediaHandler(log *logger.Logger, media services.MediaService) *MediaHandler {
	return &MediaHandler{
		log:   log.With("handler", "MediaHandler"),
		media: media,
	}
}

// POST /api/media/:id
// Attach a file to the record identified by :id.
func (h *MediaHandler) Attach(c *gin.Context) {
	var body struct {
		Filename string `json:"filename" binding:"required"`
		MimeType string `json:"mime_type"`
		Content  string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_content", err)
		return
	}
	saved, err := h.media.Attach(c.Request.Context(), c.Param("id"), body.Filename, body.MimeType, data)
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// GET /api/media/:id
func (h *MediaHandler) List(c *gin.Context) {
	rows, err := h.media.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondUpstreamError(c, err)
		return
	}
	RespondOK(c, rows)
}

// DELETE /api/media/item/:uuid
func (h *MediaHandler) Remove(c *gin.Context) {
	if err := h.media.Remove(c.Request.Context(), c.Param("uuid")); err != nil {
		RespondUpstreamError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

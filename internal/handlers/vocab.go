package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/services"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

// VocabHandler serves the controlled vocabularies form fields select from.
type VocabHandler struct {
	log   *logger.Logger
	vocab services.VocabService
	store *store.Store
}

func NewVocabHandler(log *logger.Logger, vocab services.VocabService, st *store.Store) *VocabHandler {
	return &VocabHandler{
		log:   log.With("handler", "VocabHandler"),
		vocab: vocab,
		store: st,
	}
}

// GET /api/vocab/:list
func (h *VocabHandler) List(c *gin.Context) {
	opts := h.store.Vocab(c.Param("list"))
	if opts == nil {
		c.Status(http.StatusNoContent)
		return
	}
	RespondOK(c, opts)
}

// POST /api/vocab/:list/reload
func (h *VocabHandler) Reload(c *gin.Context) {
	list := c.Param("list")
	if err := h.vocab.Reload(c.Request.Context(), list); err != nil {
		RespondUpstreamError(c, err)
		return
	}
	RespondOK(c, h.store.Vocab(list))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/services"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

type SessionHandler struct {
	log     *logger.Logger
	session services.SessionService
	store   *store.Store
}

func NewSessionHandler(log *logger.Logger, session services.SessionService, st *store.Store) *SessionHandler {
	return &SessionHandler{
		log:     log.With("handler", "SessionHandler"),
		session: session,
		store:   st,
	}
}

// POST /api/session
// Install the identity provider's token pair and bootstrap reference data.
func (h *SessionHandler) Begin(c *gin.Context) {
	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.AccessToken == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.session.Begin(c.Request.Context(), body.AccessToken, body.RefreshToken); err != nil {
		RespondUpstreamError(c, err)
		return
	}
	actorID, actorName := h.store.Actor()
	RespondOK(c, gin.H{
		"actor_id":   actorID,
		"actor_name": actorName,
		"role":       h.store.Role(),
	})
}

// GET /api/session
// Current actor, role, and the last notification.
func (h *SessionHandler) Current(c *gin.Context) {
	actorID, actorName := h.store.Actor()
	RespondOK(c, gin.H{
		"actor_id":     actorID,
		"actor_name":   actorName,
		"role":         h.store.Role(),
		"notification": h.store.Notification(),
	})
}

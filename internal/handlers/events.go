package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
	"github.com/openexcavate/fieldbook-backend/internal/store"
)

var errNoChannels = errors.New("at least one channel is required")

// EventsHandler streams store-change messages to the browser over SSE.
type EventsHandler struct {
	log *logger.Logger
	hub *store.Hub
}

func NewEventsHandler(log *logger.Logger, hub *store.Hub) *EventsHandler {
	return &EventsHandler{
		log: log.With("handler", "EventsHandler"),
		hub: hub,
	}
}

// GET /api/events?channels=trench,find,ui
func (h *EventsHandler) Stream(c *gin.Context) {
	raw := c.Query("channels")
	if strings.TrimSpace(raw) == "" {
		RespondError(c, http.StatusBadRequest, "bad_request", errNoChannels)
		return
	}
	client := h.hub.NewClient()
	for _, ch := range strings.Split(raw, ",") {
		h.hub.Subscribe(client, ch)
	}
	defer h.hub.RemoveClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

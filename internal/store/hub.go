package store

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

// Event names published by the store. UI panels subscribe to keep a table
// and the map showing the same rows and the same selection.
type Event string

const (
	EventRecordChanged    Event = "RecordChanged"
	EventRecordCleared    Event = "RecordCleared"
	EventRowsFiltered     Event = "RowsFiltered"
	EventSelectionChanged Event = "SelectionChanged"
	EventNotification     Event = "Notification"
	EventVocabLoaded      Event = "VocabLoaded"
	EventActionRequested  Event = "ActionRequested"
)

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type HubClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan Message
	done     chan struct{}
}

// Hub fans store-change messages out to subscribed clients per channel.
// Channels are entity names ("trench", "find", ...) plus the shared "ui"
// channel for notifications.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*HubClient]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "StoreHub"),
		subscriptions: make(map[string]map[*HubClient]bool),
	}
}

func (h *Hub) NewClient() *HubClient {
	return &HubClient{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan Message, 16),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Subscribe(client *HubClient, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	client.Channels[channel] = true

	clients, ok := h.subscriptions[channel]
	if !ok {
		clients = make(map[*HubClient]bool)
		h.subscriptions[channel] = clients
	}
	clients[client] = true
	h.log.Debug("store client subscribed", "clientID", client.ID, "channel", channel)
}

func (h *Hub) Unsubscribe(client *HubClient, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Channels, channel)
	if clients, ok := h.subscriptions[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, channel)
		}
	}
}

func (h *Hub) RemoveClient(client *HubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range client.Channels {
		if clients, ok := h.subscriptions[ch]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Publish delivers to every subscriber of the message's channel. Slow
// consumers drop messages rather than block a setter.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	for c := range h.subscriptions[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("dropping store message; outbound buffer full", "clientID", c.ID, "event", msg.Event)
		}
	}
}

func (h *Hub) CloseClient(client *HubClient) {
	close(client.done)
	h.RemoveClient(client)
	close(client.Outbound)
}

// ServeHTTP streams a client's messages as server-sent events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *HubClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("failed to marshal store message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

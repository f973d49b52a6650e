package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	storyservice "github.com/coauthor/backend/internal/service/story"
)

const (
	subscriberBuffer = 16
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// Hub fans story events out to websocket subscribers keyed by story id.
// It satisfies the orchestrator's event sink; Publish never blocks, slow
// subscribers drop events.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan storyservice.Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan storyservice.Event]struct{})}
}

// Publish delivers the event to every subscriber of its story.
func (h *Hub) Publish(ev storyservice.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.StoryID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) subscribe(storyID string) (chan storyservice.Event, func()) {
	ch := make(chan storyservice.Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[storyID]
	if !ok {
		set = make(map[chan storyservice.Event]struct{})
		h.subs[storyID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[storyID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, storyID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Handler serves the live event feed over websockets.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates the feed handler over the given hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log.With().Str("component", "events").Logger(),
	}
}

// RegisterRoutes registers the websocket feed route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/stories/{storyID}", h.handleFeed)
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	StoryID   string      `json:"storyId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	if storyID == "" {
		http.Error(w, "storyID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.subscribe(storyID)
	defer cancel()

	// Drain the read side so close frames and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev := <-events:
			envelope := outgoingMessage{
				Type:      string(ev.Type),
				StoryID:   ev.StoryID,
				Data:      ev,
				Timestamp: ev.Timestamp,
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(envelope); err != nil {
				h.logger.Debug().Err(err).Str("story", storyID).Msg("subscriber write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Envelope is the wire format for pushed events.
type Envelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub fans events out to connected websocket clients. It satisfies the
// EventSink interfaces of the services that publish.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	log         zerolog.Logger
}

// subscriber buffers outbound messages; slow clients drop messages rather
// than blocking publishers.
type subscriber struct {
	msgs chan []byte
}

// NewEventHub creates a new event hub.
func NewEventHub(log zerolog.Logger) *EventHub {
	return &EventHub{
		subscribers: make(map[*subscriber]struct{}),
		log:         log.With().Str("component", "event_hub").Logger(),
	}
}

// Publish sends an event to every connected client.
func (h *EventHub) Publish(event string, payload any) {
	msg, err := json.Marshal(Envelope{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.msgs <- msg:
		default:
			// Client is not keeping up; drop this message for it.
		}
	}
}

// SubscriberCount returns the number of connected clients.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades GET /api/events to a websocket and streams events until
// the client disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // single-user app, CORS handled upstream
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	sub := &subscriber{msgs: make(chan []byte, 16)}
	h.addSubscriber(sub)
	defer h.removeSubscriber(sub)

	h.log.Debug().Msg("Websocket client connected")

	// The dashboard never sends messages; CloseRead cancels the context
	// as soon as the client disconnects.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-sub.msgs:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, dropping client")
				return
			}
		}
	}
}

func (h *EventHub) addSubscriber(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *EventHub) removeSubscriber(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, sub)
}

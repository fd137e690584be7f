// Package spectate streams live match events to websocket subscribers so a
// browser view can watch a headless tournament as it runs.
package spectate

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/spncrlkt/ballgame/internal/game"
)

// wireEvent is the JSON shape sent to subscribers.
type wireEvent struct {
	MatchID string `json:"match_id"`
	Tick    int64  `json:"tick"`
	Seq     int64  `json:"seq"`
	Code    string `json:"code"`
	Player  string `json:"player"`
	Payload string `json:"payload"`
}

// Hub fans match events out to websocket subscribers. Subscribers that fall
// behind are dropped rather than allowed to stall the broadcast.
type Hub struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan wireEvent
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades a request to a websocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("spectate: upgrade failed: %v", err)
		return
	}
	sub := &subscriber{conn: conn, send: make(chan wireEvent, 256)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Broadcast queues an event for every subscriber. A full send buffer drops
// the subscriber.
func (h *Hub) Broadcast(e game.Event) {
	msg := wireEvent{
		MatchID: e.MatchID,
		Tick:    e.Tick,
		Seq:     e.Seq,
		Code:    string(e.Code),
		Player:  e.Player.String(),
		Payload: e.Payload,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			delete(h.subs, sub)
			close(sub.send)
		}
	}
}

// BroadcastAll queues a batch in order.
func (h *Hub) BroadcastAll(events []game.Event) {
	for _, e := range events {
		h.Broadcast(e)
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.send {
		if err := sub.conn.WriteJSON(msg); err != nil {
			h.drop(sub)
			return
		}
	}
}

// readLoop discards inbound frames; its job is noticing disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub)
			sub.conn.Close()
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

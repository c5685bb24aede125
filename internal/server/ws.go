package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dudecon/SpaceWheat-sub021/internal/batch"
)

// TickEvent is one websocket frame: the tick counter plus a summary of
// every subsystem after that tick.
type TickEvent struct {
	Tick       uint64             `json:"tick"`
	Subsystems []subsystemSummary `json:"subsystems"`
}

// Hub fans simulation ticks out to websocket clients. Broadcast runs on the
// simulation thread, so it does nothing unless clients are connected and
// never blocks on a slow client: frames a client cannot keep up with are
// dropped.
type Hub struct {
	batcher *batch.Batcher
	log     zerolog.Logger

	mu      sync.Mutex
	clients map[chan TickEvent]struct{}
	closed  bool
}

// NewHub creates the broadcast hub.
func NewHub(batcher *batch.Batcher, log zerolog.Logger) *Hub {
	return &Hub{
		batcher: batcher,
		log:     log.With().Str("component", "ws_hub").Logger(),
		clients: make(map[chan TickEvent]struct{}),
	}
}

// Broadcast publishes the state after a tick. Registered as a tick listener.
func (h *Hub) Broadcast(tick uint64) {
	h.mu.Lock()
	if len(h.clients) == 0 || h.closed {
		h.mu.Unlock()
		return
	}

	subs := h.batcher.Subsystems()
	ev := TickEvent{Tick: tick, Subsystems: make([]subsystemSummary, len(subs))}
	for i, sub := range subs {
		ev.Subsystems[i] = summarize(sub)
	}

	for ch := range h.clients {
		select {
		case ch <- ev:
		default: // slow client, drop the frame
		}
	}
	h.mu.Unlock()
}

// HandleWebSocket upgrades the connection and streams tick events until the
// client disconnects or the hub shuts down.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := make(chan TickEvent, 8)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	h.log.Info().Msg("Websocket client connected")
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, dropping client")
				return
			}
		}
	}
}

// CloseAll stops accepting clients and unblocks pending broadcasts.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

package relay

import (
	"log"
	"net/http"
	"sync"
	"time"

	"tank-duel/internal/config"
	"tank-duel/internal/game"
	"tank-duel/internal/protocol"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// writeWait bounds a single frame write
	writeWait = 10 * time.Second

	// closeGrace lets the close frame reach a rejected client
	closeGrace = time.Second
)

// Metrics receives relay counters. Reasons and kinds must be bounded values.
type Metrics interface {
	RecordConnection(outcome string) // "accepted", "full", "upgrade_error"
	RecordForwarded()
	RecordDropped(reason string) // "rate_limit", "no_peer", "type", "buffer_full", "invalid"
	UpdateOccupancy(count int)
}

type nopMetrics struct{}

func (nopMetrics) RecordConnection(string) {}
func (nopMetrics) RecordForwarded()        {}
func (nopMetrics) RecordDropped(string)    {}
func (nopMetrics) UpdateOccupancy(int)     {}

// Hub accepts WebSocket connections into the two slots
type Hub struct {
	cfg      config.RelayConfig
	slots    *SlotTable
	metrics  Metrics
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*conn]struct{}
	wg    sync.WaitGroup
}

// NewHub creates a hub. metrics may be nil.
func NewHub(cfg config.RelayConfig, metrics Metrics) *Hub {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}

	h := &Hub{
		cfg:     cfg,
		slots:   NewSlotTable(),
		metrics: metrics,
		conns:   make(map[*conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Slots exposes the slot table for status endpoints
func (h *Hub) Slots() *SlotTable {
	return h.slots
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Native clients send no Origin
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
	return false
}

// HandleWebSocket upgrades the request and runs the connection until it closes
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.metrics.RecordConnection("upgrade_error")
		return
	}

	c := newConn(ws, h.cfg)
	slot, other, err := h.slots.Assign(c)
	if err != nil {
		// A third participant is closed without any payload
		log.Printf("🚫 Relay full, closing connection from %s", r.RemoteAddr)
		h.metrics.RecordConnection("full")
		deadline := time.Now().Add(closeGrace)
		ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		ws.Close()
		return
	}
	c.slot = slot

	h.track(c)
	defer h.untrack(c)

	h.metrics.RecordConnection("accepted")
	h.metrics.UpdateOccupancy(h.slots.Count())
	log.Printf("🎫 Player %d connected from %s", slot, r.RemoteAddr)

	go c.writePump()

	c.Send(protocol.MustEncode(protocol.SlotAssignment{PlayerNo: slot}))
	if other != nil {
		online := protocol.MustEncode(protocol.OpponentOnline{})
		other.Send(online)
		c.Send(online)
		log.Println("⚔️ Both slots filled, duel on")
	}

	h.readPump(c)

	released, remaining := h.slots.Release(slot, c)
	c.close()
	if released {
		log.Printf("👋 Player %d disconnected", slot)
		h.metrics.UpdateOccupancy(h.slots.Count())
		if remaining != nil {
			remaining.Send(protocol.MustEncode(protocol.OpponentOffline{}))
		}
	}
}

// readPump forwards state patches to the other slot until the socket fails
func (h *Hub) readPump(c *conn) {
	c.ws.SetReadLimit(protocol.MaxMessageSize)

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("⚠️ Player %d read error: %v", c.slot, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			h.metrics.RecordDropped("type")
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			h.metrics.RecordDropped("rate_limit")
			continue
		}

		t, err := protocol.PeekType(data)
		if err != nil {
			h.metrics.RecordDropped("invalid")
			continue
		}
		if t != protocol.TypeStatePatch {
			h.metrics.RecordDropped("type")
			continue
		}

		other := h.slots.Peer(game.Opponent(c.slot))
		if other == nil {
			h.metrics.RecordDropped("no_peer")
			continue
		}
		// Forward the bytes untouched
		if !other.Send(data) {
			h.metrics.RecordDropped("buffer_full")
			continue
		}
		h.metrics.RecordForwarded()
	}
}

func (h *Hub) track(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
}

func (h *Hub) untrack(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	h.wg.Done()
}

// Close disconnects every participant and waits for their handlers to exit
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.conns {
		c.ws.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// conn is one participant's socket with its outbound queue
type conn struct {
	ws      *websocket.Conn
	slot    int
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func newConn(ws *websocket.Conn, cfg config.RelayConfig) *conn {
	c := &conn{
		ws:   ws,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
	if cfg.FramesPerSec > 0 {
		burst := cfg.FrameBurst
		if burst <= 0 {
			burst = int(cfg.FramesPerSec)
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.FramesPerSec), burst)
	}
	return c
}

// Send implements Peer
func (c *conn) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// writePump is the only writer of data frames on the socket
func (c *conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		}
	}
}

// Package telemetry streams per-tick physics metrics and engine events to
// websocket clients for debugging and dashboards.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/voxphys/internal/core/events/bus"
	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/systems/physics"
)

const (
	FrameTick  = "tick"
	FrameEvent = "event"
)

// Frame is one JSON message sent to every client.
type Frame struct {
	Kind  string               `json:"kind"`
	Tick  *physics.TickMetrics `json:"tick,omitempty"`
	Event *EventFrame          `json:"event,omitempty"`
}

type EventFrame struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// HubMetrics counts broadcast activity.
type HubMetrics struct {
	Clients int
	Frames  uint64
	Dropped uint64
}

// Hub fans frames out to connected websocket clients. A client whose queue
// is full is disconnected rather than slowing the tick loop down.
type Hub struct {
	cfg      Config
	logger   log.Log
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	frames  atomic.Uint64
	dropped atomic.Uint64
}

var (
	_ http.Handler         = (*Hub)(nil)
	_ bus.EventBusObserver = (*Hub)(nil)
)

func NewHub(cfg Config, logger log.Log) *Hub {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Hub{
		cfg:    cfg,
		logger: logger.Named("telemetry"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection until the client
// goes away or the hub is closed. Incoming messages are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, max(h.cfg.ClientBuffer, 1))}
	if !h.add(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	h.logger.Debug("client connected", log.String("remote_addr", conn.RemoteAddr().String()))

	go h.writeLoop(c)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// remove drops c and closes its queue, which ends its write loop.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()
	for data := range c.send {
		if h.cfg.WriteTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("client write failed", log.Error(err))
			h.remove(c)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Broadcast encodes f once and queues it for every client.
func (h *Hub) Broadcast(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
			h.removeLocked(c)
			h.logger.Warn("dropping slow telemetry client", log.String("remote_addr", c.conn.RemoteAddr().String()))
		}
	}
	h.frames.Add(1)
	return nil
}

// PublishTick broadcasts the metrics of one tick, thinned to every
// Config.Every ticks.
func (h *Hub) PublishTick(m physics.TickMetrics) {
	if h.cfg.Every > 1 && m.Tick%uint64(h.cfg.Every) != 0 {
		return
	}
	if err := h.Broadcast(Frame{Kind: FrameTick, Tick: &m}); err != nil {
		h.logger.Error("encode tick frame", log.Uint64("tick", m.Tick), log.Error(err))
	}
}

// OnPublish forwards every published bus event to clients.
func (h *Hub) OnPublish(eventType string, event bus.Event) {
	f := Frame{Kind: FrameEvent, Event: &EventFrame{
		Type:      eventType,
		Source:    event.Source(),
		Timestamp: event.Timestamp(),
		Data:      event.Data(),
	}}
	if err := h.Broadcast(f); err != nil {
		h.logger.Error("encode event frame", log.String("event", eventType), log.Error(err))
	}
}

func (h *Hub) OnDelivered(string, int, error, time.Duration) {}

func (h *Hub) Metrics() HubMetrics {
	h.mu.Lock()
	n := len(h.clients)
	h.mu.Unlock()
	return HubMetrics{Clients: n, Frames: h.frames.Load(), Dropped: h.dropped.Load()}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

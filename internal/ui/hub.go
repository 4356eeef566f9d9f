package ui

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wootrat/internal/motion"
)

// tickEvery caps the diagnostics stream at 20 messages per second.
const tickEvery = 50 * time.Millisecond

const (
	typeTick   = "tick"
	typeStatus = "status"
)

// message is the envelope for every frame on /ws.
type message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// hub fans diagnostics out to every connected page.
type hub struct {
	log    *zerolog.Logger
	hello  func() message
	active atomic.Int32
	last   atomic.Int64

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	closeOnce  sync.Once
}

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
	addr string
}

func newHub(log *zerolog.Logger, hello func() message) *hub {
	return &hub{
		log:        log,
		hello:      hello,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.active.Store(int32(len(h.clients)))
			h.log.Debug().Str("remote", c.addr).Int("clients", len(h.clients)).Msg("diagnostics client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.active.Store(int32(len(h.clients)))
				h.log.Debug().Str("remote", c.addr).Int("clients", len(h.clients)).Msg("diagnostics client gone")
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Too slow to keep up; drop the client rather than stall.
					close(c.send)
					delete(h.clients, c)
					h.active.Store(int32(len(h.clients)))
				}
			}

		case <-h.shutdown:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.active.Store(0)
			return
		}
	}
}

func (h *hub) close() {
	h.closeOnce.Do(func() { close(h.shutdown) })
}

// due reports whether a tick at now may be streamed and, if so, claims the
// slot.
func (h *hub) due(now time.Time) bool {
	last := h.last.Load()
	if now.UnixNano()-last < int64(tickEvery) {
		return false
	}
	return h.last.CompareAndSwap(last, now.UnixNano())
}

func (h *hub) publishTick(t motion.Tick) {
	if h.active.Load() == 0 || !h.due(time.Now()) {
		return
	}
	data, err := json.Marshal(message{Type: typeTick, Payload: t})
	if err != nil {
		h.log.Debug().Err(err).Msg("encode tick")
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 64), addr: r.RemoteAddr}
	if data, err := json.Marshal(h.hello()); err == nil {
		c.send <- data
	}

	select {
	case h.register <- c:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only services control frames; pages never send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

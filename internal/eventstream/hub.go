package eventstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeDeadline bounds a single frame write; a client that cannot
	// accept a small JSON frame in this time is treated as dead.
	writeDeadline = 5 * time.Second
	// readDeadline allows about three missed pings before disconnecting.
	readDeadline = 90 * time.Second
	pingInterval = 30 * time.Second

	maxReadMessageSize = 4 * 1024
	// sendQueueSize is the number of frames a client may lag behind
	// before it is dropped.
	sendQueueSize = 64

	streamPath = "/events"
)

// nowFn is a test seam for frame timestamps.
var nowFn = time.Now

var wsUpgrader = websocket.Upgrader{
	// The listener is bound to loopback; origin checks would only break
	// non-browser clients.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// HubOptions configures the stream server.
type HubOptions struct {
	// Addr is the listen address. Empty means "127.0.0.1:0".
	Addr string
}

// client is one connected consumer. Frames are written only by its
// writePump goroutine, which satisfies gorilla/websocket's single-writer rule.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			slog.Debug("[DEBUG-WS] connection close", "error", err)
		}
	})
}

// Hub fans application events out to any number of WebSocket clients.
type Hub struct {
	opts HubOptions

	mu      sync.RWMutex
	clients map[*client]struct{}

	seq atomic.Uint64

	listener net.Listener
	server   *http.Server
	url      string

	started   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewHub creates a hub. Call Start to begin serving.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
}

// Start listens on the configured address. ctx becomes the base context of
// request handlers; Stop must still be called to release the port.
func (h *Hub) Start(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return errors.New("eventstream: already started")
	}
	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("eventstream: listen: %w", err)
	}
	h.listener = ln
	h.url = fmt.Sprintf("ws://127.0.0.1:%d%s", ln.Addr().(*net.TCPAddr).Port, streamPath)

	mux := http.NewServeMux()
	mux.HandleFunc(streamPath, h.handleWS)
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()
	slog.Info("[DEBUG-WS] event stream started", "url", h.url)
	return nil
}

// Stop shuts the server down and disconnects every client. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[*client]struct{})
		h.mu.Unlock()
		for c := range clients {
			c.close()
		}

		if h.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(ctx); err != nil {
				stopErr = fmt.Errorf("eventstream: shutdown: %w", err)
			}
		}
		h.wg.Wait()
		slog.Info("[DEBUG-WS] event stream stopped")
	})
	return stopErr
}

// URL returns the stream URL, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event frame for every client. It never blocks: a
// client whose queue is full is disconnected.
func (h *Hub) Broadcast(name string) {
	frame, err := EncodeMessage(Message{
		Type: TypeEvent,
		Name: name,
		Seq:  h.seq.Add(1),
		TS:   nowFn().UnixMilli(),
	})
	if err != nil {
		slog.Warn("[DEBUG-WS] failed to encode event", "name", name, "error", err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("[DEBUG-WS] client too slow, dropping", "remoteAddr", c.conn.RemoteAddr())
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		_ = conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	c := &client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	hello, _ := EncodeMessage(Message{Type: TypeHello, Seq: h.seq.Load(), TS: nowFn().UnixMilli()})
	c.send <- hello

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr(), "clients", h.ClientCount())

	h.wg.Go(func() { h.writePump(c) })
	h.readPump(c)
}

// readPump discards client frames and exists to process pongs and notice
// disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] eventstream readPump recovered",
				"panic", rec, "stack", string(debug.Stack()))
		}
		h.remove(c)
		slog.Info("[DEBUG-WS] client disconnected", "remoteAddr", c.conn.RemoteAddr())
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("[DEBUG-WS] read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] eventstream writePump recovered",
				"panic", rec, "stack", string(debug.Stack()))
		}
		h.remove(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := h.write(c, websocket.TextMessage, frame); err != nil {
				slog.Debug("[DEBUG-WS] write failed, dropping client", "error", err)
				return
			}
		case <-ticker.C:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				slog.Debug("[DEBUG-WS] ping failed, connection likely dead", "error", err)
				return
			}
		}
	}
}

func (h *Hub) write(c *client, messageType int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, payload)
}

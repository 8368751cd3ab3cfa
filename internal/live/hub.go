// Package live pushes standings to websocket viewers whenever an item changes.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/housepoints/internal/access"
	"github.com/geocoder89/housepoints/internal/actorctx"
	"github.com/geocoder89/housepoints/internal/board"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
	refreshTimeout = 5 * time.Second
)

// StandingsSource is the read side of the board service.
type StandingsSource interface {
	Standings(ctx context.Context, viewer *user.User) (board.Standings, error)
}

// Message is the frame written to every viewer.
type Message struct {
	Type      string          `json:"type"`
	Standings board.Standings `json:"standings"`
	Change    *board.Change   `json:"change,omitempty"`
}

const MessageStandings = "standings"

type client struct {
	conn   *websocket.Conn
	viewer *user.User
	send   chan []byte

	// generation of the last snapshot queued on send; guarded by Hub.mu
	gen uint64
}

type Hub struct {
	source   StandingsSource
	log      *slog.Logger
	prom     *observability.Prom
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	trigger chan *board.Change

	// gen orders snapshots by when their read started, so a slow read never overwrites a newer one
	gen atomic.Uint64
}

// NewHub builds a hub. allowedOrigins empty means same-origin and non-browser clients only.
func NewHub(source StandingsSource, log *slog.Logger, prom *observability.Prom, allowedOrigins []string) *Hub {
	if log == nil {
		log = slog.Default()
	}

	h := &Hub{
		source:  source,
		log:     log,
		prom:    prom,
		clients: make(map[*client]struct{}),
		trigger: make(chan *board.Change, 1),
	}

	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}

	return h
}

// Publish records that the board changed. Bursts of changes coalesce into one refresh.
// It satisfies board.ChangeNotifier for single-instance deployments.
func (h *Hub) Publish(_ context.Context, c board.Change) error {
	cc := c
	select {
	case h.trigger <- &cc:
	default:
		// a refresh is already pending; it will read the newest state anyway
	}
	return nil
}

// Run refreshes viewers after each published change until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case c := <-h.trigger:
			rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
			if err := h.Refresh(rctx, c); err != nil {
				h.log.WarnContext(ctx, "live_refresh_failed", "err", err)
			}
			cancel()
		}
	}
}

// Refresh recomputes standings once and sends every viewer its own copy with canEdit
// evaluated against that viewer's session.
func (h *Hub) Refresh(ctx context.Context, change *board.Change) error {
	gen := h.gen.Add(1)

	base, err := h.source.Standings(ctx, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	var failed int
	for _, cl := range targets {
		payload, err := encode(forViewer(base, cl.viewer), change)
		if err != nil {
			failed++
			h.log.ErrorContext(ctx, "live_encode_failed", "remote", cl.conn.RemoteAddr().String(), "err", err)
			continue
		}
		h.deliver(cl, gen, payload)
	}

	h.prom.IncLiveBroadcast()

	if failed > 0 {
		return fmt.Errorf("encode standings for %d of %d viewers failed", failed, len(targets))
	}
	return nil
}

func forViewer(s board.Standings, viewer *user.User) board.Standings {
	entries := make([]board.Entry, len(s.Entries))
	copy(entries, s.Entries)

	for i := range entries {
		entries[i].CanEdit = access.CanEdit(viewer, entries[i].Page.Index)
	}

	return board.Standings{Entries: entries}
}

func encode(s board.Standings, change *board.Change) ([]byte, error) {
	return json.Marshal(Message{Type: MessageStandings, Standings: s, Change: change})
}

// deliver queues a snapshot unless the viewer already has a newer one. Viewers whose buffer
// is full are dropped instead of blocking the broadcast.
func (h *Hub) deliver(cl *client, gen uint64, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// gone already; its send channel may be closed
	if _, ok := h.clients[cl]; !ok {
		return
	}
	if gen <= cl.gen {
		return
	}

	select {
	case cl.send <- payload:
		cl.gen = gen
	default:
		h.log.Warn("live_client_too_slow", "remote", cl.conn.RemoteAddr().String())
		delete(h.clients, cl)
		close(cl.send)
		h.prom.SetLiveClients(len(h.clients))
	}
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients[cl] = struct{}{}
	h.prom.SetLiveClients(len(h.clients))
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[cl]; !ok {
		return
	}

	delete(h.clients, cl)
	close(cl.send)
	h.prom.SetLiveClients(len(h.clients))
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for cl := range clients {
		close(cl.send)
	}
	h.prom.SetLiveClients(0)
}

// ServeWS upgrades the request and streams standings. The viewer is whoever the optional
// auth middleware put on the request; anonymous viewers get canEdit=false everywhere.
func (h *Hub) ServeWS(c *gin.Context) {
	viewer, _ := actorctx.UserFrom(c.Request.Context())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the error response
		h.log.WarnContext(c.Request.Context(), "live_upgrade_failed", "err", err)
		return
	}

	cl := &client{conn: conn, viewer: viewer, send: make(chan []byte, sendBuffer)}

	// registered before the first read so no refresh can slip past this viewer
	if !h.register(cl) {
		_ = conn.Close()
		return
	}

	gen := h.gen.Add(1)
	snapshot, err := h.source.Standings(c.Request.Context(), viewer)
	if err == nil {
		var payload []byte
		payload, err = encode(snapshot, nil)
		if err == nil {
			h.deliver(cl, gen, payload)
		}
	}
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "live_snapshot_failed", "err", err)
		h.unregister(cl)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "standings unavailable"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.writePump(cl)
	go h.readPump(cl)
}

// readPump only exists to process control frames and notice disconnects.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.unregister(cl)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sathyapriyan07/metamovies-sub001/internal/metrics"
	"github.com/sathyapriyan07/metamovies-sub001/internal/search"
)

const (
	liveSendBuffer   = 32
	liveReadLimit    = 4096
	livePingInterval = 30 * time.Second
	livePongWait     = 60 * time.Second
	liveWriteWait    = 10 * time.Second
)

// liveRequest is a client frame on /search/live.
//
//	{"type":"input","query":"bat"}
//	{"type":"platform","platform":"netflix","contentType":"series"}
type liveRequest struct {
	Type        string `json:"type"`
	Query       string `json:"query,omitempty"`
	Platform    string `json:"platform,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type liveError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// liveClient couples one websocket connection with one search session.
type liveClient struct {
	hub     *liveHub
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	session *search.Session
	logger  *slog.Logger
}

func (c *liveClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// deliver queues a frame for the write pump. Frames are dropped once the
// client has stopped or when it cannot keep up.
func (c *liveClient) deliver(payload []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- payload:
	case <-c.done:
	default:
		c.logger.Warn("live client too slow, frame dropped")
	}
}

func (c *liveClient) deliverJSON(value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("live marshal failed", slog.String("error", err.Error()))
		return
	}
	c.deliver(payload)
}

type liveHub struct {
	clients    map[*liveClient]struct{}
	register   chan *liveClient
	unregister chan *liveClient
	done       chan struct{}
	closeOnce  sync.Once
	count      atomic.Int64
	logger     *slog.Logger
}

func newLiveHub(logger *slog.Logger) *liveHub {
	return &liveHub{
		clients:    make(map[*liveClient]struct{}),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *liveHub) run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				_ = client.conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(2*time.Second),
				)
				h.drop(client)
			}
			h.logger.Debug("live hub stopped, all clients disconnected")
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Add(1)
			metrics.LiveSessions.Inc()
			h.logger.Debug("live client connected", slog.Int("total", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("live client disconnected", slog.Int("total", len(h.clients)))
			}
		}
	}
}

func (h *liveHub) drop(client *liveClient) {
	delete(h.clients, client)
	h.count.Add(-1)
	metrics.LiveSessions.Dec()
	client.stop()
}

// Close stops the hub and disconnects all clients.
func (h *liveHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *liveHub) clientCount() int {
	return int(h.count.Load())
}

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleSearchLive upgrades to a websocket and runs one incremental search
// session for the lifetime of the connection. Query parameters categories
// and limit configure the session.
func (s *Server) handleSearchLive(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/live" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	categories, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	limit, err := parsePositiveInt(r, "limit", search.SuggestLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("live upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &liveClient{
		hub:    s.live,
		conn:   conn,
		send:   make(chan []byte, liveSendBuffer),
		done:   make(chan struct{}),
		logger: s.logger.With(slog.String("clientIP", clientIP(r))),
	}
	opts := []search.SessionOption{
		search.WithDisplayLimit(limit),
		search.WithSessionLogger(client.logger),
		search.WithUpdateHandler(func(update search.Update) {
			client.deliverJSON(update)
		}),
	}
	if len(categories) > 0 {
		opts = append(opts, search.WithSessionCategories(categories...))
	}
	client.session = s.search.NewSession(opts...)

	select {
	case s.live.register <- client:
	case <-s.live.done:
		client.session.Close()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(2*time.Second),
		)
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(livePingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

func (c *liveClient) readPump() {
	defer func() {
		c.session.Close()
		c.session.Wait()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.stop()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(liveReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("live read failed", slog.String("error", err.Error()))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(livePongWait))
		c.handleFrame(payload)
	}
}

func (c *liveClient) handleFrame(payload []byte) {
	var request liveRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		c.deliverJSON(liveError{Type: "error", Message: "invalid json frame"})
		return
	}
	switch strings.ToLower(strings.TrimSpace(request.Type)) {
	case "input":
		if queryTooLong(request.Query) {
			c.deliverJSON(liveError{Type: "error", Message: queryTooLongMessage})
			return
		}
		c.session.Input(request.Query)
	case "platform":
		contentType, err := parseContentType(request.ContentType)
		if err != nil {
			c.deliverJSON(liveError{Type: "error", Message: err.Error()})
			return
		}
		platform := request.Platform
		if strings.EqualFold(strings.TrimSpace(platform), "all") {
			platform = ""
		}
		c.session.SelectPlatform(platform, contentType)
	default:
		c.deliverJSON(liveError{Type: "error", Message: "unknown frame type"})
	}
}

package api

import (
	"net/http"
	"sync"
	"time"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/usecase"
	xlogger "ForecastDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// TransitionSnapshot is sent once to every new connection.
const TransitionSnapshot models.Transition = "snapshot"

const (
	clientBuffer = 32
	writeWait    = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	out  chan models.DashboardEvent
	done chan struct{}
}

// Hub pushes every dashboard transition to connected browsers.
type Hub struct {
	logger       *xlogger.Logger
	dashboard    *usecase.Dashboard
	pingInterval time.Duration

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	cancel  func()
}

// NewHub subscribes to d; Close unsubscribes.
func NewHub(logger *xlogger.Logger, d *usecase.Dashboard, pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	h := &Hub{
		logger:       logger,
		dashboard:    d,
		pingInterval: pingInterval,
		clients:      make(map[*wsClient]struct{}),
	}
	h.cancel = d.Subscribe(h.Broadcast)
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Broadcast queues ev for every client. A client whose buffer is full misses
// the event; the next one carries the full view anyway.
func (h *Hub) Broadcast(ev models.DashboardEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- ev:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the dashboard and drops every open connection.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
}

func (h *Hub) Serve(c echo.Context) error {
	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	cl := h.attach(conn)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(cl)
	}()

	h.readLoop(cl)

	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	close(cl.done)
	wg.Wait()
	return nil
}

// attach registers a client with its snapshot already queued. Both happen under
// the hub lock, so a transition is either reflected in the snapshot or queued
// after it; none falls in between.
func (h *Hub) attach(conn *websocket.Conn) *wsClient {
	cl := &wsClient{conn: conn, out: make(chan models.DashboardEvent, clientBuffer), done: make(chan struct{})}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[cl] = struct{}{}
	cl.out <- models.DashboardEvent{Type: TransitionSnapshot, View: h.dashboard.View()}
	return cl
}

func (h *Hub) writeLoop(cl *wsClient) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()
	for {
		select {
		case ev := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(ev); err != nil {
				h.logger.Debug("websocket write failed", xlogger.Error(err))
				_ = cl.conn.Close()
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

// readLoop only drains control frames; the dashboard is driven through the JSON API.
func (h *Hub) readLoop(cl *wsClient) {
	deadline := 3 * h.pingInterval
	_ = cl.conn.SetReadDeadline(time.Now().Add(deadline))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/station"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsReadLimit  = 512
	wsSendBuffer = 16
)

// WebSocket upgrader. Remotes connect from anywhere on the LAN, so all
// origins are accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub pushes station snapshots to connected websocket clients. Remotes get
// the full snapshot on every push and reconcile locally, so a dropped frame
// is recovered by the next one.
type Hub struct {
	station *station.Station

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// wsClient is one connected remote
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan station.Snapshot
}

// NewHub creates a hub serving the given station
func NewHub(st *station.Station) *Hub {
	return &Hub{
		station: st,
		clients: make(map[*wsClient]struct{}),
	}
}

// Serve handles GET /ws, upgrading the connection and streaming snapshots
// until the client disconnects.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan station.Snapshot, wsSendBuffer),
	}
	h.register(client)

	logger.Log.Info().
		Str("remote_addr", c.Request.RemoteAddr).
		Msg("Websocket client connected")

	go client.writePump()
	go client.readPump()

	// New clients get the authoritative state immediately
	h.deliver(client, h.station.CurrentState())
}

// Broadcast pushes a snapshot to every connected client. Slow clients have
// the frame dropped rather than stalling the station.
func (h *Hub) Broadcast(snap station.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- snap:
		default:
			logger.Log.Warn().Msg("Dropping snapshot for slow websocket client")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes all client connections. The read pumps observe the close
// and unregister their clients.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.conn.Close()
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// unregister removes the client and closes its send channel. The channel is
// only ever closed here, under the write lock, so broadcasts holding the
// read lock can never send on a closed channel.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// deliver sends a snapshot to one client if it is still registered
func (h *Hub) deliver(c *wsClient, snap station.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- snap:
	default:
		logger.Log.Warn().Msg("Dropping snapshot for slow websocket client")
	}
}

// writePump sends queued snapshots and keepalive pings to the client.
// Snapshots older than the last one written are skipped, so a burst of
// commands collapses into the newest state.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logger.Log.Debug().Msg("Websocket write pump stopped")
	}()

	var lastVersion uint64
	sentAny := false

	for {
		select {
		case snap, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))

			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if sentAny && snap.Version <= lastVersion {
				continue
			}

			if err := c.conn.WriteJSON(snap); err != nil {
				logger.Log.Debug().Err(err).Msg("Websocket write error")
				return
			}
			lastVersion = snap.Version
			sentAny = true

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection and keeps it alive via pong handling.
// Remotes send commands over the REST API, so inbound messages are ignored.
func (c *wsClient) readPump() {
	defer func() {
		c.conn.Close()
		c.hub.unregister(c)
		logger.Log.Debug().Msg("Websocket read pump stopped")
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Log.Debug().Err(err).Msg("Websocket read error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// SetupWebsocketRoutes registers the snapshot stream and wires the hub to
// station updates.
func SetupWebsocketRoutes(router *gin.Engine, hub *Hub, st *station.Station) {
	st.OnUpdate(hub.Broadcast)
	router.GET("/ws", hub.Serve)
}

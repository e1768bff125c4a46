// Package ws serves the live room feed: one websocket per player per room,
// pushing a full room snapshot on every change. The connection doubles as the
// player's presence: opening it flips presence on, and the store's disconnect
// hook flips it off when the socket drops.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/coordinator"
	"github.com/dkeye/parlor/internal/domain"
	"github.com/dkeye/parlor/internal/store"
)

type Controller struct {
	coord *coordinator.Coordinator
	store store.Store
}

func NewController(coord *coordinator.Coordinator, st store.Store) *Controller {
	return &Controller{coord: coord, store: st}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// roomFrame is the one server-to-client message: a full snapshot, nil when
// the room has been deleted.
type roomFrame struct {
	Type string       `json:"type"`
	Room *domain.Room `json:"room"`
}

type clientMessage struct {
	Type string `json:"type"` // "leave"
}

type feedConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend queues a frame, replacing the oldest queued one under backpressure.
// Every frame is a full snapshot, so dropping intermediates is safe as long
// as the newest always gets through.
func (c *feedConn) trySend(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.send <- b:
			return
		default:
			select {
			case <-c.send:
			default:
			}
		}
	}
}

func (c *feedConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (ctl *Controller) HandleFeed(c *gin.Context) {
	uid := domain.UserID(c.GetString("uid"))
	code := domain.RoomCode(c.Param("code"))
	ctx := c.Request.Context()

	if _, err := ctl.coord.GetRoom(ctx, code); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "adapters.ws").Str("code", string(code)).Str("user", string(uid)).Msg("feed connected")

	fc := &feedConn{conn: sock, send: make(chan []byte, 8)}

	sconn := ctl.store.Connect()
	if err := ctl.coord.SetupPresence(ctx, sconn, code, uid); err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Str("code", string(code)).Msg("setup presence")
		sconn.Close()
		fc.close()
		return
	}

	cancel := ctl.coord.WatchRoom(code, func(room *domain.Room) {
		b, err := json.Marshal(roomFrame{Type: "room", Room: room})
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.ws").Msg("encode room frame")
			return
		}
		fc.trySend(b)
	})

	go fc.writePump()
	fc.readPump(ctx, ctl, uid, code)

	// Socket gone: stop the watch and let the store fire the presence hook.
	cancel()
	sconn.Close()
	fc.close()
	log.Info().Str("module", "adapters.ws").Str("code", string(code)).Str("user", string(uid)).Msg("feed disconnected")
}

func (c *feedConn) writePump() {
	for b := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (c *feedConn) readPump(ctx context.Context, ctl *Controller, uid domain.UserID, code domain.RoomCode) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "leave":
			if err := ctl.coord.LeaveRoom(ctx, uid, code); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Str("code", string(code)).Msg("leave over feed")
			}
		default:
			// ignore unknown types
		}
	}
}

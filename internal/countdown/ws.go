package countdown

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the websocket envelope.
type Message struct {
	Event string   `json:"event"`
	Data  Snapshot `json:"data"`
}

// ServeWs handles GET /ws/countdown: one "tick" per second until the target, then a "done"
// message and a normal close.
func (h *Handler) ServeWs(tick time.Duration) gin.HandlerFunc {
	if tick <= 0 {
		tick = time.Second
	}
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		closed := make(chan struct{})
		go h.readPump(conn, closed)
		h.writePump(conn, tick, closed)
	}
}

// readPump discards client frames and keeps the read deadline alive through pongs.
func (h *Handler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, tick time.Duration, closed <-chan struct{}) {
	ticker := time.NewTicker(tick)
	ping := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		ping.Stop()
		_ = conn.Close()
	}()

	send := func() bool {
		snap := h.snapshot()
		event := "tick"
		if snap.Done {
			event = "done"
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(Message{Event: event, Data: snap}); err != nil {
			h.logger.Debug("countdown write failed", zap.Error(err))
			return false
		}
		if snap.Done {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if !send() {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

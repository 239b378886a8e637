package handlers

import (
	"github.com/anjiri1684/teacher_review/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// ServeWs registers a notification subscriber. The channel is broadcast-only:
// inbound frames are drained and ignored, and the read loop doubles as the
// disconnect detector.
func ServeWs(c *websocketcontrib.Conn) {
	client := &websocket.Client{ID: uuid.New(), Conn: c}
	websocket.Register <- client
	defer func() {
		websocket.Unregister <- client
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

package controllers

import (
	"net/http"

	"github.com/vamshi726/food-scan-ai/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers it for scan.completed
// events until the client disconnects.
func ServeWS(hub *services.RealtimeHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := &services.WSClient{UserID: userID, Conn: conn}
		hub.Register(client)
		defer hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

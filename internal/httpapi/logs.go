package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/routecodex/routecodex/internal/logging"
)

var logsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TailLogs upgrades to a WebSocket and streams the process's structured
// logs as they're emitted, via the logrus hook logging.InstallWebSocketLogging
// installs at startup.
func (a *API) TailLogs(c *gin.Context) {
	conn, err := logsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	wsLogger := logging.GetWSLogger()
	if err := wsLogger.AddClient(conn); err != nil {
		conn.Close()
		return
	}
	defer wsLogger.RemoveClient(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

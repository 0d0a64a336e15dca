package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/ltcs"
	"github.com/mk-obs/telops/internal/site"
)

const (
	wsPushInterval = 1 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the API is summit-internal; browsers on other hosts may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is one status push to a websocket client.
type wsFrame struct {
	Collisions ltcs.Snapshot `json:"collisions"`
	Site       site.Status   `json:"site"`
}

// handleWebsocket streams the collision snapshot and telescope status to
// the client once per second until the client goes away.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.logger.Info("Websocket client connected",
		zap.String("remote", conn.RemoteAddr().String()))

	// drain reads so pings and close frames are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.logger.Info("Websocket client disconnected",
				zap.String("remote", conn.RemoteAddr().String()))
			return
		case <-s.stopCh:
			deadline := time.Now().Add(wsWriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				deadline)
			return
		case <-ticker.C:
			frame := wsFrame{
				Collisions: s.monitor.GetStatus(),
				Site:       s.site.Status(),
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				s.logger.Debug("Websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

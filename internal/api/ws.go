package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/scout/internal/scan"
	"github.com/wonny/scout/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// queueStreamHandler upgrades the connection and pushes queue status
// snapshots every two seconds until the client disconnects.
func queueStreamHandler(q *scan.Queue, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("WebSocket upgrade failed")
			return
		}
		defer conn.Close()

		// Drain incoming frames so close messages are processed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		if err := conn.WriteJSON(q.Status()); err != nil {
			return
		}

		for {
			select {
			case <-done:
				return
			case <-r.Context().Done():
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(q.Status()); err != nil {
					return
				}
			}
		}
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/session"
	"github.com/linesmerrill/change-order-api/models"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket serves the live session endpoint
type WebSocket struct {
	Hub *session.Hub
}

// ServeWebSocketHandler upgrades the connection and runs a session on it until
// the client goes away. The credential is verified after the upgrade so a
// rejection reaches the client as a close frame.
func (ws WebSocket) ServeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get("Authorization")
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	err = ws.Hub.Serve(r.Context(), conn, credential)
	if err != nil && !errors.Is(err, models.ErrAuthRejected) {
		zap.S().Warnw("websocket session ended with error", "error", err)
	}
}

package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trashtalk/internal/app"
)

// Handler handles WebSocket connections
type Handler struct {
	gateway  *app.Gateway
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(gateway *app.Gateway, logger *slog.Logger) *Handler {
	return &Handler{
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Phones join from whatever address the host screen shows
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes. Rooms are
// created, joined and rejoined over the socket itself.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	h.logger.Info("websocket connected", "connID", id, "remote", r.RemoteAddr)

	client := NewClient(id, conn, h.gateway, h.logger)
	client.Run()

	h.logger.Info("websocket disconnected", "connID", id)
}

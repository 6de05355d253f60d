package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forgelabs/appforge/internal/logs"
)

// EventsHandler bridges the internal event broker onto websocket
// connections. Every build, run and workflow event reaches every
// connected client.
type EventsHandler struct {
	broker *logs.Broker
	logger *slog.Logger
}

// NewEventsHandler creates a websocket events handler.
func NewEventsHandler(broker *logs.Broker, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{broker: broker, logger: logger}
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// Serve upgrades the connection and pumps broker events to the client
// until the client disconnects. Slow clients miss events rather than
// stall the services producing them.
func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := h.broker.Subscribe()
	defer h.broker.Unsubscribe(sub)

	h.logger.Debug("websocket client connected", "remote_addr", r.RemoteAddr)

	// Reader goroutine: drains client frames and surfaces disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

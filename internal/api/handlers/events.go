package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"facelive-go/internal/logging"
	"facelive-go/internal/services/events"
)

const (
	writeTimeout = 5 * time.Second
	pongWait     = 30 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

type EventsHandler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// @Summary Live events
// @Description WebSocket feed of fps reports, notifications, configuration changes and detector state
// @Tags events
// @Success 101
// @Router /ws/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c).Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	feed, cancel := h.hub.Subscribe()
	defer cancel()

	logging.Info(c).Int("subscribers", h.hub.Subscribers()).Msg("Event subscriber connected")

	// the read side only handles control frames and notices the close
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			logging.Debug(c).Msg("Event subscriber disconnected")
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/coppice-chat/coppice/internal/broadcast"
	"github.com/coppice-chat/coppice/internal/logging"
	"github.com/coppice-chat/coppice/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Desktop clients connect from app origins, not the server's own;
	// the session token is the access control, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleChannelStream upgrades to a WebSocket and relays channel events
// until the client disconnects or the subscription is torn down.
func (s *Server) handleChannelStream(c echo.Context) error {
	channelID := c.Param("channelID")

	// Authenticate and subscribe before upgrading so auth failures
	// surface as regular HTTP errors.
	events, cancel, err := s.state.SubscribeChannelEvents(c.Request().Context(), bearerToken(c), channelID)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		cancel()
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		// Upgrade already wrote its own response
		return nil
	}

	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()
	metrics.WebSocketConnectionsCurrent.Inc()
	defer metrics.WebSocketConnectionsCurrent.Dec()

	log := logging.WithChannel(channelID)
	log.Debug("Stream connected")

	writer := broadcast.NewClientWriter(conn, s.clock)
	writer.Send([]byte(`{"type":"ready"}`))

	// Read pump: we expect no client frames, but reading drives pong
	// handling and surfaces disconnects.
	readClosed := make(chan struct{})
	go func() {
		defer close(readClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer cancel()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				// Subscription torn down (shutdown)
				writer.StopGraceful("server shutting down")
				log.Debug("Stream closed by server")
				return nil
			}
			frame, err := json.Marshal(event)
			if err != nil {
				log.Error("Failed to marshal channel event", "error", err)
				continue
			}
			if !writer.Send(frame) {
				log.Warn("Dropping event frame for slow stream client")
			}
		case <-readClosed:
			writer.Stop()
			log.Debug("Stream disconnected")
			return nil
		}
	}
}

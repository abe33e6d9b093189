package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/coppice-chat/coppice/internal/metrics"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
)

// ClientWriter owns the write side of one WebSocket connection. Frames
// are queued on Send and written by a dedicated goroutine, which also
// keeps the connection alive with pings.
type ClientWriter struct {
	connection *websocket.Conn
	clock      clockwork.Clock
	sendCh     chan []byte
	doneCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewClientWriter(connection *websocket.Conn, clock clockwork.Clock) *ClientWriter {
	cw := &ClientWriter{
		connection: connection,
		clock:      clock,
		sendCh:     make(chan []byte, DefaultEventBuffer),
		doneCh:     make(chan struct{}),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// Send queues a frame without blocking. Returns false if the client's
// queue is full and the frame was dropped.
func (cw *ClientWriter) Send(frame []byte) bool {
	select {
	case cw.sendCh <- frame:
		return true
	default:
		return false
	}
}

func (cw *ClientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case frame := <-cw.sendCh:
			start := cw.clock.Now()
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			metrics.WebSocketSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				return
			}
		case <-cw.doneCh:
			return
		}
	}
}

// Stop tears the connection down immediately.
func (cw *ClientWriter) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// StopGraceful writes a close frame with the given reason before
// closing the connection.
func (cw *ClientWriter) StopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneCh)

		// The write goroutine must be gone before we touch the
		// connection again.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

func (cw *ClientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *ClientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *ClientWriter) updateReadDeadline() {
	_ = cw.connection.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}

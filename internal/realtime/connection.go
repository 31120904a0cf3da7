package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// connection runs one token's transport lifecycle: dial, pump, and
// redial forever until closed. Transport errors never escape this
// layer; upper layers only see the connected flag flip.
type connection struct {
	m     *Manager
	token string
	send  chan []byte
	stop  chan struct{}
}

func (m *Manager) startConnection(token string) *connection {
	c := &connection{
		m:     m,
		token: token,
		send:  make(chan []byte, 256),
		stop:  make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *connection) close() {
	close(c.stop)
}

func (c *connection) run() {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.m.opts.ReconnectMin
	bo.MaxInterval = c.m.opts.ReconnectMax

	dialer := websocket.Dialer{HandshakeTimeout: c.m.opts.HandshakeTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		ws, _, err := dialer.Dial(c.m.opts.URL, header)
		if err != nil {
			c.m.logger.Debug("Realtime dial failed", zap.Error(err))
			if !c.wait(bo.NextBackOff()) {
				return
			}
			continue
		}

		bo.Reset()
		c.m.setConnected(c, true)
		c.pump(ws)
		c.m.setConnected(c, false)

		select {
		case <-c.stop:
			return
		default:
		}
		if !c.wait(bo.NextBackOff()) {
			return
		}
	}
}

// wait sleeps for d unless the connection is closed first.
func (c *connection) wait(d time.Duration) bool {
	select {
	case <-c.stop:
		return false
	case <-time.After(d):
		return true
	}
}

// pump runs the writer goroutine and the read loop over one dialed
// socket, returning once either side fails or the connection closes.
func (c *connection) pump(ws *websocket.Conn) {
	readDone := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case <-c.stop:
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				ws.Close()
				return
			case <-readDone:
				return
			case frame := <-c.send:
				if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
					ws.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.m.logger.Debug("Realtime read failed", zap.Error(err))
			}
			break
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.m.logger.Warn("Dropping malformed realtime frame", zap.Error(err))
			continue
		}
		c.m.dispatch(c, ev)
	}

	close(readDone)
	ws.Close()
	<-writerDone
}

package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/courier/internal/core/messaging"
	"github.com/zeusync/courier/internal/core/observability/log"
)

const (
	clientBuffer  = 64
	readLimit     = 512
	closeDeadline = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	kinds map[messaging.EventKind]struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// newClient parses a comma separated kind filter, e.g. "report,delivered".
// An empty filter accepts every kind.
func newClient(filter string, buffer int) *client {
	c := &client{
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
	for _, kind := range strings.Split(filter, ",") {
		kind = strings.TrimSpace(kind)
		if kind == "" {
			continue
		}
		if c.kinds == nil {
			c.kinds = make(map[messaging.EventKind]struct{})
		}
		c.kinds[messaging.EventKind(kind)] = struct{}{}
	}
	return c
}

func (c *client) accepts(kind messaging.EventKind) bool {
	if c.kinds == nil {
		return true
	}
	_, ok := c.kinds[kind]
	return ok
}

func (c *client) disconnect() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (m *Monitor) handleEvents(w http.ResponseWriter, r *http.Request) {
	c := newClient(r.URL.Query().Get("kind"), m.config.Backlog+clientBuffer)
	if err := m.reserve(c); err != nil {
		m.logger.Warn("monitor client rejected", log.String("remote", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.release(c)
		m.logger.Warn("websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}
	c.conn = conn
	m.logger.Debug("monitor client connected", log.String("remote", conn.RemoteAddr().String()))

	go m.writePump(c)
	m.readPump(c)
	m.release(c)
	m.logger.Debug("monitor client disconnected", log.String("remote", conn.RemoteAddr().String()))
}

// readPump drains the connection so control frames are processed. Clients
// are not expected to send anything.
func (m *Monitor) readPump(c *client) {
	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && !errors.Is(err, websocket.ErrCloseSent) {
				m.logger.Debug("monitor client read failed", log.Error(err))
			}
			return
		}
	}
}

func (m *Monitor) writePump(c *client) {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				writeClose(c.conn, websocket.CloseNormalClosure, "")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				m.logger.Debug("monitor client write failed", log.Error(err))
				return
			}
		case <-c.done:
			writeClose(c.conn, websocket.CloseGoingAway, "monitor closed")
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeDeadline))
}

package live

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/decoaromas/decoaromas-admin/internal/reports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 128
)

// Frame is one server to browser message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is one browser to server message. Only the fields of its type are set.
type Inbound struct {
	Type    string           `json:"type"`
	Field   string           `json:"field,omitempty"`
	Value   string           `json:"value,omitempty"`
	Payload json.RawMessage  `json:"payload,omitempty"`
	View    string           `json:"view,omitempty"`
	Filters *reports.Filters `json:"filters,omitempty"`
	Table   string           `json:"table,omitempty"`
	Page    int              `json:"page,omitempty"`
	Size    int              `json:"size,omitempty"`
}

var errSlowClient = errors.New("live: client too slow")

// conn owns one websocket. Only writeLoop writes to ws and closes it.
type conn struct {
	id     string
	ws     *websocket.Conn
	send   chan Frame
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *conn {
	id := uuid.NewString()
	return &conn{
		id:     id,
		ws:     ws,
		send:   make(chan Frame, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("session", id)),
	}
}

// push enqueues a frame without blocking. A full buffer closes the connection.
func (c *conn) push(typ string, data any) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- Frame{Type: typ, Data: data}:
	case <-c.done:
	default:
		c.logger.Warn("live session dropped", slog.Any("error", errSlowClient))
		c.close()
	}
}

func (c *conn) pushError(err error) {
	c.pushMessage(err.Error())
}

func (c *conn) pushMessage(text string) {
	c.push("error", map[string]string{"message": text})
}

func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				c.logger.Debug("live write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop decodes inbound messages until the peer goes away.
func (c *conn) readLoop(handle func(Inbound)) {
	defer c.close()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg Inbound
		if err := c.ws.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
				c.pushError(errors.New("mensaje inválido"))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("live read failed", slog.Any("error", err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		handle(msg)
	}
}

// serve runs the writer and blocks in the read loop until the session ends.
func (c *conn) serve(handle func(Inbound)) {
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.writeLoop()
	}()
	c.readLoop(handle)
	<-written
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gdugdh24/geopresence/internal/usecase/session"
	"github.com/gdugdh24/geopresence/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	sessionUseCase *session.SessionUseCase

	// Sessions are hijacked connections that http.Server.Shutdown does not
	// wait for; they hang off ctx and are counted in wg instead.
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewWSHandler(sessionUseCase *session.SessionUseCase) *WSHandler {
	ctx, cancel := context.WithCancel(context.Background())
	return &WSHandler{
		sessionUseCase: sessionUseCase,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Shutdown ends every open session and waits until their teardown writes
// have finished or ctx is done. New connections are refused from then on.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All websocket sessions closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("websocket sessions still open: %w", ctx.Err())
	}
}

func (h *WSHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// Connect handles GET /ws and serves one engine session over the socket.
func (h *WSHandler) Connect(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	if !h.track() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "shutting down"})
		return
	}
	defer h.wg.Done()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade for %s: %v", identity.ID, err)
		return
	}

	client := newWSClient(conn)
	inbound := make(chan session.ClientMessage)
	go client.writePump()
	go client.readPump(inbound)

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	go func() {
		select {
		case <-client.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := h.sessionUseCase.Run(ctx, identity, c.ClientIP(), inbound, client.send); err != nil {
		client.send(session.ServerMessage{Type: session.TypeError, Error: err.Error()})
	}
	client.close()
}

type wsClient struct {
	conn *websocket.Conn
	out  chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		out:  make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// send queues msg for the write pump. Messages to a closed or backed-up
// client are dropped.
func (c *wsClient) send(msg session.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("encode %s message: %v", msg.Type, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- data:
	default:
		logger.Warn("websocket send buffer full, dropping %s message", msg.Type)
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

func (c *wsClient) readPump(inbound chan<- session.ClientMessage) {
	defer func() {
		close(c.done)
		close(inbound)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg session.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read: %v", err)
			}
			return
		}

		select {
		case inbound <- msg:
		case <-time.After(writeWait):
			logger.Warn("session not reading, dropping %s message", msg.Type)
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

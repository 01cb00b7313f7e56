package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("send queue full")
)

type ConnOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	ReadLimit    int64
	// OriginPatterns lists cross-origin hosts allowed to connect, in
	// path.Match syntax. Same-host requests are always accepted.
	OriginPatterns []string
}

func (o ConnOptions) withDefaults() ConnOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	return o
}

// WSConn is a Conn backed by a WebSocket. Sends are queued and written by a
// single goroutine; a failed write closes the connection.
type WSConn struct {
	conn         *websocket.Conn
	out          chan []byte
	writeTimeout time.Duration
	logger       *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, opts ConnOptions, logger *slog.Logger) *WSConn {
	conn.SetReadLimit(opts.ReadLimit)
	ctx, cancel := context.WithCancel(context.Background())
	c := &WSConn{
		conn:         conn,
		out:          make(chan []byte, opts.SendBuffer),
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
	go c.writeLoop()
	return c
}

// Accept upgrades the request to a WebSocket and registers it for
// identity. A connection it supersedes is closed in the background.
func (r *Registry) Accept(w http.ResponseWriter, req *http.Request, identity string) (*WSConn, error) {
	ws, err := websocket.Accept(w, req, r.accept)
	if err != nil {
		return nil, fmt.Errorf("accepting websocket: %w", err)
	}

	c := newWSConn(ws, r.opts, r.logger.With("user", identity))
	if prev := r.Register(identity, c); prev != nil {
		if old, ok := prev.(*WSConn); ok {
			go old.Close("superseded by a new connection")
		}
	}
	return c, nil
}

func (c *WSConn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			ctx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.cancel()
				c.conn.CloseNow()
				return
			}
		}
	}
}

// Send queues msg without waiting for the network.
func (c *WSConn) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s message: %w", msg.Type, err)
	}

	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}

	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// Read blocks until the next text frame arrives.
func (c *WSConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ == websocket.MessageText {
			return data, nil
		}
	}
}

// Done is closed once the connection stops accepting sends.
func (c *WSConn) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *WSConn) Close(reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close(websocket.StatusNormalClosure, reason)
	})
	return err
}

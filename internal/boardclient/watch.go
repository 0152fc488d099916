package boardclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/chessboard-demo/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ErrSessionClosed is returned by Watch when the server deleted the session.
var ErrSessionClosed = errors.New("session closed by server")

// Watcher follows one session's websocket and reconnects on dropped
// connections until the context ends or the session goes away.
type Watcher struct {
	url          string
	headers      HeaderProvider
	logger       *zap.Logger
	maxReconnect int
	reconnectGap time.Duration
	pingInterval time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

type WatchOption func(*Watcher)

func WithWatchLogger(l *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReconnect sets the attempt cap and the base delay between attempts.
func WithReconnect(max int, delay time.Duration) WatchOption {
	return func(w *Watcher) {
		w.maxReconnect = max
		w.reconnectGap = delay
	}
}

func WithPingInterval(d time.Duration) WatchOption {
	return func(w *Watcher) { w.pingInterval = d }
}

// Watcher builds a watcher for the session's update stream on the same host.
func (c *Client) Watcher(id string, opts ...WatchOption) *Watcher {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	w := &Watcher{
		url:          base + sessionPath(id, "/ws"),
		headers:      c.headers,
		logger:       zap.NewNop(),
		maxReconnect: 5,
		reconnectGap: 500 * time.Millisecond,
		pingInterval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch calls onUpdate for every frame until ctx ends or the server closes the
// session. Each reconnect starts with a fresh snapshot frame.
func (w *Watcher) Watch(ctx context.Context, onUpdate func(boarddto.Update)) error {
	attempts := 0
	for {
		received, err := w.session(ctx, onUpdate)
		switch {
		case err == nil, ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrSessionClosed), websocket.CloseStatus(err) == websocket.StatusGoingAway:
			return ErrSessionClosed
		case websocket.CloseStatus(err) == websocket.StatusPolicyViolation:
			return fmt.Errorf("watch rejected: %w", err)
		}
		if received {
			attempts = 0
		}
		attempts++
		if attempts > w.maxReconnect {
			return fmt.Errorf("watch: giving up after %d attempts: %w", attempts-1, err)
		}
		delay := w.reconnectGap * time.Duration(attempts)
		w.logger.Warn("watch disconnected, reconnecting",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Send writes an event frame on the live connection.
func (w *Watcher) Send(ctx context.Context, ev boarddto.EventRequest) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return errors.New("watch not connected")
	}
	return wsjson.Write(ctx, conn, ev)
}

func (w *Watcher) session(ctx context.Context, onUpdate func(boarddto.Update)) (bool, error) {
	hdr := http.Header{}
	if w.headers != nil {
		for k, v := range w.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				hdr.Set(k, v)
			}
		}
	}
	conn, resp, err := websocket.Dial(ctx, w.url, &websocket.DialOptions{
		HTTPHeader:      hdr,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, ErrSessionClosed
		}
		return false, err
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
		conn.CloseNow()
	}()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.pingLoop(connCtx, conn)

	received := false
	for {
		var upd boarddto.Update
		if err := wsjson.Read(connCtx, conn, &upd); err != nil {
			if ctx.Err() != nil {
				return received, nil
			}
			return received, err
		}
		received = true
		onUpdate(upd)
	}
}

func (w *Watcher) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if w.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				w.logger.Debug("watch ping failed", zap.Error(err))
				return
			}
		}
	}
}

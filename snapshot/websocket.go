package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jettison/panopticon/format"
)

// WebSocket is a Source reading one document per websocket message.
// Dropped connections are redialed after a fixed delay.
type WebSocket struct {
	url    string
	header http.Header
	f      format.Format
	seq    *sequencer
	delay  time.Duration
	dialer *websocket.Dialer
	log    *slog.Logger

	conn *websocket.Conn
	stop func() bool
}

type WebSocketOption func(*WebSocket)

// WithReconnectDelay sets the wait between connection attempts.
func WithReconnectDelay(d time.Duration) WebSocketOption {
	return func(w *WebSocket) { w.delay = d }
}

func WithHeader(h http.Header) WebSocketOption {
	return func(w *WebSocket) { w.header = h }
}

func WithWebSocketLogger(l *slog.Logger) WebSocketOption {
	return func(w *WebSocket) { w.log = l }
}

func NewWebSocket(url string, f format.Format, env Envelope, opts ...WebSocketOption) *WebSocket {
	w := &WebSocket{
		url:    url,
		f:      f,
		seq:    newSequencer(env),
		delay:  time.Second,
		dialer: websocket.DefaultDialer,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WebSocket) Next(ctx context.Context) (*Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			w.Close()
			return nil, err
		}
		if w.conn == nil {
			if err := w.dial(ctx); err != nil {
				w.log.Warn("websocket dial failed", "url", w.url, "error", err)
				if err := sleep(ctx, w.delay); err != nil {
					return nil, err
				}
				continue
			}
		}
		mt, d, err := w.conn.ReadMessage()
		if err != nil {
			w.Close()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.log.Warn("websocket read failed, reconnecting", "url", w.url, "error", err)
			if err := sleep(ctx, w.delay); err != nil {
				return nil, err
			}
			continue
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		doc, err := ParseDocument(d, w.f)
		if err != nil {
			return nil, fmt.Errorf("%w: websocket %s: %w", ErrDocument, w.url, err)
		}
		return w.seq.Unwrap(doc)
	}
}

func (w *WebSocket) dial(ctx context.Context) error {
	conn, resp, err := w.dialer.DialContext(ctx, w.url, w.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w (status %s)", err, resp.Status)
		}
		return err
	}
	w.conn = conn
	w.stop = context.AfterFunc(ctx, func() { conn.Close() })
	w.log.Info("websocket connected", "url", w.url)
	return nil
}

// Close closes the current connection, if any.
func (w *WebSocket) Close() error {
	if w.conn == nil {
		return nil
	}
	w.stop()
	err := w.conn.Close()
	w.conn = nil
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package transport provides the websocket reply channel: a persistent
// connection to the remote resolution service carrying JSON envelopes out
// and server messages in.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/veform/veform/internal/models"
)

// DialTimeout bounds the websocket handshake. A service that cannot be
// reached within this window is treated as down.
const DialTimeout = 10 * time.Second

// WSChannel is a genreply.Channel over a websocket connection.
type WSChannel struct {
	url string

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	messages chan models.ServerMessage
}

// NewWSChannel creates a channel that will dial the given websocket URL.
func NewWSChannel(url string) *WSChannel {
	return &WSChannel{
		url:      url,
		messages: make(chan models.ServerMessage, 16),
	}
}

// Start dials the service and begins the read loop. The dial failing is
// fatal for the channel; callers decide whether to fall back.
func (w *WSChannel) Start(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()
	slog.Info("transport.WSChannel.Start: dialing", "url", w.url)
	conn, _, err := websocket.Dial(dialCtx, w.url, &websocket.DialOptions{})
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}

	readCtx, readCancel := context.WithCancel(context.Background())
	w.mu.Lock()
	w.conn = conn
	w.cancel = readCancel
	w.mu.Unlock()

	go w.readLoop(readCtx, conn)
	return nil
}

// Stop closes the connection and the inbound stream.
func (w *WSChannel) Stop() error {
	w.mu.Lock()
	conn := w.conn
	cancel := w.cancel
	w.conn = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}

// Send writes one envelope as a JSON text frame.
func (w *WSChannel) Send(ctx context.Context, env models.Envelope) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket channel not started")
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, body); err != nil {
		return fmt.Errorf("write %s: %w", env.Type, err)
	}
	return nil
}

// Messages returns the inbound message stream. Closed when the read loop
// exits.
func (w *WSChannel) Messages() <-chan models.ServerMessage {
	return w.messages
}

// readLoop decodes inbound frames until the connection ends. Frames that do
// not decode are logged and skipped; the stream stays up.
func (w *WSChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(w.messages)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("transport.WSChannel: read failed, closing", "error", err)
			}
			return
		}
		var msg models.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("transport.WSChannel: undecodable frame skipped", "error", err)
			continue
		}
		select {
		case w.messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

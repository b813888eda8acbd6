// Package genreply manages the remote natural-language reply channel: the
// session handshake, outbound request envelopes, and assembly of streamed
// reply chunks into speakable sentences.
package genreply

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/veform/veform/internal/models"
)

// Channel is a pluggable bidirectional message transport for the remote
// conversation protocol. Implementations: the websocket transport and the
// in-process GenAI resolver.
type Channel interface {
	// Start opens the channel and begins delivering inbound messages.
	Start(ctx context.Context) error

	// Stop closes the channel and releases resources.
	Stop() error

	// Send writes one request envelope.
	Send(ctx context.Context, env models.Envelope) error

	// Messages returns the inbound message stream. The channel closes it
	// when the connection ends.
	Messages() <-chan models.ServerMessage
}

// sentence-terminal punctuation for chunk assembly
const punctuation = ".!?;"

// Client wraps a Channel with session state. Inbound reply-chunk messages
// are buffered until terminal punctuation and forwarded as whole sentences;
// everything else is forwarded as-is.
type Client struct {
	ch Channel

	mu        sync.Mutex
	sessionID string
	ready     bool
	sentence  strings.Builder

	onMessage func(models.ServerMessage)
	onReady   func()
}

// NewClient creates a reply client over the given channel. onMessage receives
// every forwarded inbound message; onReady fires once, after the session-id
// handshake completes.
func NewClient(ch Channel, onMessage func(models.ServerMessage), onReady func()) *Client {
	return &Client{ch: ch, onMessage: onMessage, onReady: onReady}
}

// Start opens the channel and begins pumping inbound messages. Returns an
// error if the channel fails to open; message handling runs in a background
// goroutine until the channel's message stream closes.
func (c *Client) Start(ctx context.Context) error {
	slog.Debug("genreply.Client.Start: opening channel")
	if err := c.ch.Start(ctx); err != nil {
		return fmt.Errorf("open reply channel: %w", err)
	}
	go func() {
		for msg := range c.ch.Messages() {
			c.handle(msg)
		}
		slog.Debug("genreply.Client: inbound stream closed")
	}()
	return nil
}

// Stop closes the underlying channel.
func (c *Client) Stop() error {
	return c.ch.Stop()
}

// SessionID returns the session identifier assigned by the remote side, or
// "" before the handshake completes.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetupForm transfers the form definition to the remote side.
func (c *Client) SetupForm(ctx context.Context, form *models.Form) error {
	return c.send(ctx, models.ClientSetupForm, form)
}

// RequestValidation asks the remote side to validate free-form input.
func (c *Client) RequestValidation(ctx context.Context, req models.ValidationRequest) error {
	return c.send(ctx, models.ClientValidationRequest, req)
}

// RequestIntent asks the remote side to detect navigation intents.
func (c *Client) RequestIntent(ctx context.Context, req models.IntentRequest) error {
	return c.send(ctx, models.ClientIntentRequest, req)
}

func (c *Client) send(ctx context.Context, typ models.ClientMessageType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", typ, err)
	}
	env := models.Envelope{Type: typ, SessionID: c.SessionID(), Data: raw}
	slog.Debug("genreply.Client.send", "type", typ, "sessionId", env.SessionID)
	return c.ch.Send(ctx, env)
}

func (c *Client) handle(msg models.ServerMessage) {
	switch msg.Type {
	case models.ServerSessionID:
		c.mu.Lock()
		c.sessionID = msg.Data
		alreadyReady := c.ready
		c.ready = true
		c.mu.Unlock()
		slog.Debug("genreply.Client: session established", "sessionId", msg.Data)
		if !alreadyReady && c.onReady != nil {
			c.onReady()
		}
	case models.ServerReplyStart:
		c.mu.Lock()
		c.sentence.Reset()
		c.mu.Unlock()
		c.forward(msg)
	case models.ServerReplyChunk:
		if full, ok := c.assemble(msg.Data); ok {
			msg.Data = full
			c.forward(msg)
		}
	default:
		c.forward(msg)
	}
}

// assemble buffers chunk text until it ends in terminal punctuation, then
// returns the accumulated sentence.
func (c *Client) assemble(chunk string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentence.WriteString(chunk)
	trimmed := strings.TrimRight(chunk, " ")
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	if trimmed == "" || !strings.ContainsRune(punctuation, last) {
		return "", false
	}
	full := c.sentence.String()
	c.sentence.Reset()
	return full, true
}

func (c *Client) forward(msg models.ServerMessage) {
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

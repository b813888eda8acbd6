package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/veform/veform/internal/models"
)

// ResolverChannel is an in-process reply channel backed by the OpenAI API.
// It speaks the same message protocol as the remote resolution service, so
// hosts without a service deployment run against it unchanged.
type ResolverChannel struct {
	client *Client

	mu        sync.Mutex
	form      *models.Form
	sessionID string

	stopOnce sync.Once
	done     chan struct{}
	inflight sync.WaitGroup
	messages chan models.ServerMessage
}

// NewResolverChannel wraps a GenAI client as a reply channel.
func NewResolverChannel(client *Client) *ResolverChannel {
	return &ResolverChannel{
		client:   client,
		done:     make(chan struct{}),
		messages: make(chan models.ServerMessage, 16),
	}
}

// Start assigns a session and emits the session-id handshake.
func (r *ResolverChannel) Start(ctx context.Context) error {
	r.mu.Lock()
	r.sessionID = uuid.NewString()
	id := r.sessionID
	r.mu.Unlock()
	slog.Info("genai.ResolverChannel.Start: session assigned", "sessionId", id)
	r.emit(models.ServerMessage{Type: models.ServerSessionID, Data: id})
	return nil
}

// Stop signals shutdown. In-flight resolutions abandon their pending emits;
// the message stream closes once the last one returns.
func (r *ResolverChannel) Stop() error {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		close(r.done)
		r.mu.Unlock()
		go func() {
			r.inflight.Wait()
			close(r.messages)
		}()
	})
	return nil
}

// Messages returns the inbound message stream.
func (r *ResolverChannel) Messages() <-chan models.ServerMessage {
	return r.messages
}

// Send accepts one request envelope. Resolution runs in the background;
// verdict messages arrive on the message stream as they complete.
func (r *ResolverChannel) Send(ctx context.Context, env models.Envelope) error {
	switch env.Type {
	case models.ClientSetupForm:
		var form models.Form
		if err := json.Unmarshal(env.Data, &form); err != nil {
			return fmt.Errorf("decode setup-form: %w", err)
		}
		r.mu.Lock()
		r.form = &form
		r.mu.Unlock()
		return nil
	case models.ClientIntentRequest:
		var req models.IntentRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fmt.Errorf("decode intent-request: %w", err)
		}
		if !r.track() {
			return fmt.Errorf("channel stopped")
		}
		go func() {
			defer r.inflight.Done()
			r.resolveIntent(ctx, req)
		}()
		return nil
	case models.ClientValidationRequest:
		var req models.ValidationRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return fmt.Errorf("decode validation-request: %w", err)
		}
		if !r.track() {
			return fmt.Errorf("channel stopped")
		}
		go func() {
			defer r.inflight.Done()
			r.resolveValidation(ctx, req)
		}()
		return nil
	default:
		return fmt.Errorf("unknown request type %q", env.Type)
	}
}

// resolveIntent produces the four intent verdict messages for one input.
// A model failure resolves every intent negative so the conversation is
// never left waiting.
func (r *ResolverChannel) resolveIntent(ctx context.Context, req models.IntentRequest) {
	verdict, err := r.client.DetectIntent(ctx, req.Question, req.Input)
	if err != nil {
		slog.Warn("genai.ResolverChannel: intent detection failed, resolving negative", "field", req.FieldName, "error", err)
		verdict = IntentVerdict{}
	}
	f := false
	t := true
	boolFor := func(v bool) *bool {
		if v {
			return &t
		}
		return &f
	}
	r.emit(models.ServerMessage{Type: models.ServerIntentSkip, FieldName: req.FieldName, Skip: boolFor(verdict.Skip)})
	r.emit(models.ServerMessage{Type: models.ServerIntentLast, FieldName: req.FieldName, Last: boolFor(verdict.Last)})
	r.emit(models.ServerMessage{Type: models.ServerIntentEnd, FieldName: req.FieldName, End: boolFor(verdict.End)})
	r.emit(models.ServerMessage{Type: models.ServerIntentMoveTo, FieldName: req.FieldName, MoveToName: verdict.MoveToName})
}

// resolveValidation streams a reply-start, the reply sentences, and the
// terminal verdict for one input.
func (r *ResolverChannel) resolveValidation(ctx context.Context, req models.ValidationRequest) {
	r.emit(models.ServerMessage{Type: models.ServerReplyStart, FieldName: req.FieldName})

	var history []string
	for _, e := range req.History {
		if e.Answer != "" {
			history = append(history, fmt.Sprintf("user: %s", e.Answer))
		}
		if e.Reply != "" {
			history = append(history, fmt.Sprintf("assistant: %s", e.Reply))
		}
	}
	verdict, err := r.client.ValidateAnswer(ctx, req.Question, req.Input, history, r.optionValues(req.FieldName))
	if err != nil {
		slog.Warn("genai.ResolverChannel: validation failed, resolving invalid", "field", req.FieldName, "error", err)
		f := false
		r.emit(models.ServerMessage{Type: models.ServerReplyEnd, FieldName: req.FieldName, Valid: &f})
		return
	}
	for _, sentence := range splitSentences(verdict.Reply) {
		r.emit(models.ServerMessage{Type: models.ServerReplyChunk, FieldName: req.FieldName, Data: sentence})
	}
	end := models.ServerMessage{
		Type:          models.ServerReplyEnd,
		FieldName:     req.FieldName,
		Valid:         &verdict.Valid,
		Number:        verdict.Number,
		SelectOption:  verdict.SelectOption,
		SelectOptions: verdict.SelectOptions,
		Data:          verdict.Reply,
	}
	if verdict.ValidYes {
		end.ValidYes = &verdict.ValidYes
	}
	if verdict.ValidNo {
		end.ValidNo = &verdict.ValidNo
	}
	r.emit(end)
}

func (r *ResolverChannel) optionValues(fieldName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.form == nil {
		return nil
	}
	field, ok := r.form.FieldByName(fieldName)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(field.Validation.SelectOptions))
	for _, opt := range field.Validation.SelectOptions {
		values = append(values, opt.Value)
	}
	return values
}

// track registers one in-flight resolution. It fails after Stop so no
// resolution starts once shutdown began.
func (r *ResolverChannel) track() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return false
	default:
	}
	r.inflight.Add(1)
	return true
}

func (r *ResolverChannel) emit(msg models.ServerMessage) {
	select {
	case r.messages <- msg:
	case <-r.done:
	}
}

// splitSentences breaks reply text on terminal punctuation, keeping the
// punctuation with each sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if strings.ContainsRune(".!?;", r) {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s+" ")
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

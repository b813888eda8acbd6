package flow

import (
	"log/slog"
	"strings"

	"github.com/veform/veform/internal/models"
)

// HandleServerMessage enqueues one inbound remote message. Messages drain
// strictly one at a time in arrival order; a message enqueued while another
// is processing waits its turn.
func (c *Conversation) HandleServerMessage(msg models.ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, msg)
	c.drainLocked()
}

func (c *Conversation) drainLocked() {
	if c.draining {
		return
	}
	c.draining = true
	defer func() { c.draining = false }()
	for len(c.queue) > 0 {
		msg := c.queue[0]
		c.queue = c.queue[1:]
		c.processLocked(msg)
	}
}

func (c *Conversation) processLocked(msg models.ServerMessage) {
	switch msg.Type {
	case models.ServerSessionID:
		// handled by the reply client during the handshake
		return
	case models.ServerInterrupt:
		c.out.Interrupt()
		return
	case models.ServerSessionNotFound:
		slog.Error("flow.Conversation: remote session lost")
		if c.handlers != nil {
			c.handlers.Error("remote session not found")
		}
		return
	case models.ServerError:
		slog.Error("flow.Conversation: remote error", "detail", msg.Data)
		if c.handlers != nil {
			c.handlers.Error(msg.Data)
		}
		return
	}

	idx, ok := c.arena.indexOf(msg.FieldName)
	if !ok {
		slog.Warn("flow.Conversation: message for unknown field dropped", "type", msg.Type, "field", msg.FieldName)
		return
	}
	if idx != c.current {
		slog.Debug("flow.Conversation: stale message dropped", "type", msg.Type, "field", msg.FieldName,
			"current", c.form.Fields[c.current].Name)
		return
	}
	if c.state != StateResolvingRemotely {
		// a verdict with no resolution in flight is stale by time, not by
		// field; it must not mutate an answered state
		slog.Debug("flow.Conversation: late message dropped", "type", msg.Type, "field", msg.FieldName)
		return
	}
	field := &c.form.Fields[idx]
	st := c.arena.at(idx)

	switch msg.Type {
	case models.ServerReplyStart:
		st.ReplyRunning = true
		return
	case models.ServerReplyChunk:
		// streamed sentence, spoken as-is with no state change
		c.out.Speak(msg.Data)
		return
	case models.ServerIntentSkip:
		st.IntentSkipResolved = true
		if boolVal(msg.Skip) {
			st.Skip = true
		}
	case models.ServerIntentLast:
		st.IntentLastResolved = true
		if boolVal(msg.Last) {
			st.Last = true
		}
	case models.ServerIntentEnd:
		st.IntentEndResolved = true
		if boolVal(msg.End) {
			st.End = true
		}
	case models.ServerIntentMoveTo:
		st.IntentMoveToResolved = true
		if msg.MoveToName != "" {
			if _, ok := c.arena.indexOf(msg.MoveToName); ok {
				st.MoveToName = msg.MoveToName
			} else {
				slog.Warn("flow.Conversation: move-to verdict targets unknown field, dropped",
					"field", field.Name, "target", msg.MoveToName)
			}
		}
	case models.ServerReplyEnd:
		mergeVerdict(st, field, msg)
		st.ReplyRunning = false
		if msg.Data != "" {
			c.fieldHistory = append(c.fieldHistory, models.FieldHistoryEntry{
				Name:  field.Name,
				Kind:  field.Kind,
				Valid: st.Valid,
				Reply: msg.Data,
			})
		}
	default:
		slog.Warn("flow.Conversation: unknown message type dropped", "type", msg.Type)
		return
	}
	c.maybeResolveRemoteLocked(field, st)
}

// mergeVerdict folds a reply-end verdict into the field state. Option values
// that do not exist in the field's declared set invalidate the verdict.
func mergeVerdict(st *FieldState, field *models.Field, msg models.ServerMessage) {
	st.Valid = boolVal(msg.Valid)
	st.ValidYes = boolVal(msg.ValidYes)
	st.ValidNo = boolVal(msg.ValidNo)
	if msg.Number != nil {
		n := *msg.Number
		st.Number = &n
	} else {
		st.Number = nil
	}
	if msg.SelectOption != "" {
		if opt, ok := field.Validation.OptionByValue(msg.SelectOption); ok {
			st.SelectOption = &opt
		} else {
			st.Valid = false
		}
	}
	if len(msg.SelectOptions) > 0 {
		var matched []models.SelectOption
		for _, value := range msg.SelectOptions {
			if opt, ok := field.Validation.OptionByValue(strings.TrimSpace(value)); ok {
				matched = append(matched, opt)
			}
		}
		if len(matched) > 0 {
			st.SelectOptions = matched
		} else {
			st.Valid = false
		}
	}
}

// maybeResolveRemoteLocked checks whether the in-flight remote resolution
// finished, and if so either transitions or hands the turn back to the user.
func (c *Conversation) maybeResolveRemoteLocked(field *models.Field, st *FieldState) {
	if c.state != StateResolvingRemotely {
		return
	}
	if !st.intentsResolved() || st.ReplyRunning {
		return
	}
	if st.navigationRequested() || st.Valid {
		c.out.Speak(responseOutput(field, st, len(c.visitHistory)))
		c.resumeCapture()
		c.advanceLocked(false, false)
		return
	}
	// neither local rules nor the remote service could resolve the input;
	// stay on the field and listen again
	slog.Debug("flow.Conversation: input unresolved after remote pass", "field", field.Name)
	c.state = StateAwaitingInput
	c.resumeCapture()
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/veform/veform/internal/models"
	"github.com/veform/veform/internal/rules"
)

// State is the conversation lifecycle phase.
type State string

const (
	// StateStarting waits for the reply channel and capture readiness signals.
	StateStarting State = "starting"
	// StateAwaitingInput means the current field's question has been asked.
	StateAwaitingInput State = "awaiting-input"
	// StateResolvingRemotely means an input was inconclusive locally and
	// remote verdicts are pending.
	StateResolvingRemotely State = "resolving-remotely"
	// StateTransitioning means the traversal resolver is walking the field
	// graph to the next question.
	StateTransitioning State = "transitioning"
	// StateComplete is terminal.
	StateComplete State = "complete"
)

// maxTraversalSteps bounds a single advance pass. Only a behavior cycle can
// approach this.
const maxTraversalSteps = 1024

// Conversation drives one form through the field graph: it validates inputs
// with the deterministic rules, falls back to remote resolution when those
// are inconclusive, and walks fields via the traversal resolver until every
// required field resolves.
//
// All entry points are safe for concurrent use. Event handlers and the
// output collaborator are invoked while the engine lock is held.
type Conversation struct {
	mu       sync.Mutex
	form     *models.Form
	arena    *stateArena
	res      *resolver
	client   ReplyClient
	handlers EventHandlers
	out      Output
	capture  Capture
	extract  rules.Extractor

	state        State
	current      int
	visitHistory []FieldState
	fieldHistory []models.FieldHistoryEntry

	// inbound remote message queue, drained strictly one message at a time
	queue    []models.ServerMessage
	draining bool

	channelReady bool
	captureReady bool
	begun        bool
}

// Options carries the optional collaborators for a Conversation.
type Options struct {
	Handlers  EventHandlers
	Capture   Capture
	Extractor rules.Extractor
}

// NewConversation validates the form and builds an engine positioned at the
// first field. The conversation does not speak until both readiness signals
// arrive.
func NewConversation(form *models.Form, client ReplyClient, out Output, opts Options) (*Conversation, error) {
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("validate form: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("output collaborator is required")
	}
	extract := opts.Extractor
	if extract == nil {
		extract = rules.SimpleExtractor{}
	}
	arena := newStateArena(form)
	return &Conversation{
		form:     form,
		arena:    arena,
		res:      &resolver{form: form, arena: arena},
		client:   client,
		handlers: opts.Handlers,
		out:      out,
		capture:  opts.Capture,
		extract:  extract,
		state:    StateStarting,
	}, nil
}

// State returns the current lifecycle phase.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentField returns the name of the field awaiting an answer.
func (c *Conversation) CurrentField() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Fields[c.current].Name
}

// ChannelReady signals that the reply channel completed its session
// handshake. The conversation begins once capture is also ready.
func (c *Conversation) ChannelReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelReady = true
	c.maybeBeginLocked()
}

// CaptureReady signals that input capture is running.
func (c *Conversation) CaptureReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captureReady = true
	c.maybeBeginLocked()
}

// maybeBeginLocked starts the conversation once both readiness sources have
// signaled. Idempotent: later duplicate signals are no-ops.
func (c *Conversation) maybeBeginLocked() {
	if c.begun || !c.channelReady || !c.captureReady {
		return
	}
	c.begun = true
	if c.client != nil {
		if err := c.client.SetupForm(context.Background(), c.form); err != nil {
			slog.Warn("flow.Conversation: setup-form send failed", "error", err)
		}
	}
	c.state = StateAwaitingInput
	field := &c.form.Fields[c.current]
	st := c.arena.at(c.current)
	slog.Info("flow.Conversation: starting", "formId", c.form.ID, "field", field.Name)
	c.out.Speak(fieldQuestion(field, st) + questionAppend(field))
	if field.Kind == models.FieldKindInfo {
		st.Valid = true
		c.advanceLocked(false, false)
	}
}

// HandleInput processes one finalized user utterance against the current
// field. Inputs arriving outside the awaiting-input phase are dropped.
func (c *Conversation) HandleInput(input string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingInput {
		slog.Debug("flow.Conversation.HandleInput: dropping input", "state", c.state)
		return
	}
	idx := c.current
	field := &c.form.Fields[idx]
	st := c.arena.at(idx)

	ex := c.extract.Extract(input)
	v := rules.NewValidator(input, field, ex)
	hot := v.HotPhrases()
	st.Skip = hot.Skip
	st.Last = hot.Last
	st.End = hot.End
	st.MoveToName = hot.MoveToName

	if hot.Detected() {
		// a navigation request is not an answer; the field's validity and
		// any earlier answer stay as they were
		c.fieldHistory = append(c.fieldHistory, models.FieldHistoryEntry{
			Name: field.Name, Kind: field.Kind, Valid: st.Valid, Answer: input,
		})
		c.out.Speak(responseOutput(field, st, len(c.visitHistory)))
		c.advanceLocked(false, false)
		return
	}

	st.Valid = false
	switch field.Kind {
	case models.FieldKindYesNo:
		r := v.YesNo()
		st.Valid = r.Valid
		st.ValidYes = r.Valid && r.Answer == rules.AnswerYes
		st.ValidNo = r.Valid && r.Answer == rules.AnswerNo
	case models.FieldKindSelect:
		r := v.Select()
		st.Valid = r.Valid
		st.SelectOption = r.Option
	case models.FieldKindMultiselect:
		r := v.Multiselect()
		st.Valid = r.Valid
		st.SelectOptions = r.Options
	case models.FieldKindNumber:
		r := v.Number()
		st.Valid = r.Valid
		if r.Valid {
			n := r.Number
			st.Number = &n
		}
	case models.FieldKindText, models.FieldKindDate:
		st.Text = input
		if !remoteValidated(field) {
			st.Valid = withinCharacterBounds(input, field)
		}
	default:
		slog.Warn("flow.Conversation.HandleInput: field kind takes no input", "field", field.Name, "kind", field.Kind)
	}

	c.fieldHistory = append(c.fieldHistory, models.FieldHistoryEntry{
		Name:   field.Name,
		Kind:   field.Kind,
		Valid:  st.Valid,
		Answer: input,
	})

	if st.Valid {
		c.out.Speak(responseOutput(field, st, len(c.visitHistory)))
		c.advanceLocked(false, false)
		return
	}
	c.resolveRemotelyLocked(field, st, input)
}

// resolveRemotelyLocked hands an inconclusive input to the remote service:
// always an intent request, plus a validation request unless the field opted
// out. Capture pauses until the verdicts arrive.
func (c *Conversation) resolveRemotelyLocked(field *models.Field, st *FieldState, input string) {
	if c.client == nil {
		slog.Debug("flow.Conversation: no reply client, input stays unresolved", "field", field.Name)
		return
	}
	c.state = StateResolvingRemotely
	c.pauseCapture()
	c.out.Speak(pickPhrase(field.Prompts.Thinking, thinkingPool))
	st.resetIntentResolution()

	question := ""
	if len(field.Prompts.Question) > 0 {
		question = field.Prompts.Question[0]
	}
	ctx := context.Background()
	if err := c.client.RequestIntent(ctx, models.IntentRequest{
		FieldName: field.Name,
		Question:  question,
		Input:     input,
	}); err != nil {
		slog.Warn("flow.Conversation: intent request failed", "field", field.Name, "error", err)
	}
	if !remoteValidated(field) {
		return
	}
	st.ReplyRunning = true
	if err := c.client.RequestValidation(ctx, models.ValidationRequest{
		FieldName: field.Name,
		Question:  question,
		Input:     input,
		History:   c.historyForLocked(field.Name),
	}); err != nil {
		slog.Warn("flow.Conversation: validation request failed", "field", field.Name, "error", err)
		st.ReplyRunning = false
	}
}

// remoteValidated reports whether a field's answers go to the remote service
// when local rules cannot resolve them. Free text only does so when the form
// explicitly asks for it.
func remoteValidated(field *models.Field) bool {
	if field.Kind != models.FieldKindText {
		return true
	}
	return field.Validation.Validate != nil && *field.Validation.Validate
}

// withinCharacterBounds checks free text against the field's character
// limits. Character counts, not byte counts.
func withinCharacterBounds(input string, field *models.Field) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(input))
	if n == 0 {
		return false
	}
	if min := field.Validation.MinCharacters; min != nil && n < *min {
		return false
	}
	if max := field.Validation.MaxCharacters; max != nil && n > *max {
		return false
	}
	return true
}

// historyForLocked returns the prior exchanges for one field, the context
// sent with validation requests.
func (c *Conversation) historyForLocked(name string) []models.FieldHistoryEntry {
	var entries []models.FieldHistoryEntry
	for _, e := range c.fieldHistory {
		if e.Name == name {
			entries = append(entries, e)
		}
	}
	return entries
}

// advanceLocked walks the field graph away from the current field until it
// reaches a field that needs input, iteratively with a per-pass visited set
// so behavior cycles terminate.
//
// noVisit skips the visit bookkeeping for the departing field; traversing
// passes over already-valid fields, the backfill revisit mode.
func (c *Conversation) advanceLocked(noVisit, traversing bool) {
	c.state = StateTransitioning
	visited := make(map[int]bool)
	for steps := 0; steps < maxTraversalSteps; steps++ {
		idx := c.current
		st := c.arena.at(idx)
		next := c.res.nextField(st, c.visitHistory)
		if !noVisit {
			c.visitHistory = append(c.visitHistory, *st)
			st.VisitCount++
		}
		st.clearTransient()
		if next == nil {
			c.endFormLocked()
			return
		}
		nextIdx, ok := c.arena.indexOf(next.Name)
		if !ok {
			c.endFormLocked()
			return
		}
		if visited[nextIdx] {
			slog.Warn("flow.Conversation: traversal cycle detected, ending form", "field", next.Name)
			c.endFormLocked()
			return
		}
		visited[nextIdx] = true
		prevIdx := idx
		c.current = nextIdx
		nst := c.arena.at(nextIdx)
		if traversing && nst.Valid {
			noVisit = true
			continue
		}
		c.state = StateAwaitingInput
		slog.Debug("flow.Conversation: field transition", "from", c.form.Fields[prevIdx].Name, "to", next.Name)
		if c.handlers != nil {
			prevEntry := entryFromState(c.arena.at(prevIdx), &c.form.Fields[prevIdx])
			nextEntry := entryFromState(nst, next)
			if c.handlers.FieldChanged(prevEntry, nextEntry) {
				return
			}
		}
		c.out.Speak(fieldQuestion(next, nst) + questionAppend(next))
		if next.Kind == models.FieldKindInfo {
			nst.Valid = true
			noVisit = false
			traversing = false
			continue
		}
		return
	}
	slog.Warn("flow.Conversation: traversal step limit reached, ending form")
	c.endFormLocked()
}

// endFormLocked finishes the conversation, first backfilling to any required
// field still unresolved.
func (c *Conversation) endFormLocked() {
	if c.backfillLocked() {
		return
	}
	c.state = StateComplete
	state := c.completedStateLocked()
	slog.Info("flow.Conversation: complete", "formId", c.form.ID, "answers", len(state))
	if c.handlers != nil {
		c.handlers.Complete(state)
	}
}

// backfillLocked walks the graph from the first field looking for a required
// field whose state is still invalid. When found, the conversation is
// repositioned just before it and advanced in traversing mode so the invalid
// field becomes current again. Returns false when every required field
// resolved.
func (c *Conversation) backfillLocked() bool {
	visited := make(map[int]bool)
	idx, prev := 0, 0
	for !visited[idx] {
		visited[idx] = true
		field := &c.form.Fields[idx]
		st := c.arena.at(idx)
		if !st.Valid && field.Kind != models.FieldKindInfo && fieldRequired(field) {
			c.out.Speak(backfillNotice)
			if idx == 0 {
				// the form root cannot be approached from before itself
				c.state = StateAwaitingInput
				c.current = 0
				c.out.Speak(fieldQuestion(field, st) + questionAppend(field))
				return true
			}
			c.current = prev
			c.advanceLocked(true, true)
			return true
		}
		next := c.res.nextField(st, c.visitHistory)
		if next == nil {
			return false
		}
		nextIdx, ok := c.arena.indexOf(next.Name)
		if !ok {
			return false
		}
		prev, idx = idx, nextIdx
	}
	return false
}

// completedStateLocked assembles the final answer set by walking the graph
// from the first field, skipping informational fields.
func (c *Conversation) completedStateLocked() models.ConversationState {
	var state models.ConversationState
	visited := make(map[int]bool)
	idx := 0
	for !visited[idx] {
		visited[idx] = true
		field := &c.form.Fields[idx]
		st := c.arena.at(idx)
		if field.Kind != models.FieldKindInfo {
			state = append(state, entryFromState(st, field))
		}
		next := c.res.nextField(st, c.visitHistory)
		if next == nil {
			break
		}
		nextIdx, ok := c.arena.indexOf(next.Name)
		if !ok {
			break
		}
		idx = nextIdx
	}
	return state
}

// Snapshot returns every field's state in declaration order, informational
// fields included.
func (c *Conversation) Snapshot() models.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := make(models.ConversationState, 0, len(c.form.Fields))
	for i := range c.form.Fields {
		state = append(state, entryFromState(c.arena.at(i), &c.form.Fields[i]))
	}
	return state
}

// SetCurrentField jumps the conversation to a named field, as if the user
// had asked to move there.
func (c *Conversation) SetCurrentField(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.arena.indexOf(name); !ok {
		return fmt.Errorf("field %q not in form %s", name, c.form.ID)
	}
	c.arena.at(c.current).MoveToName = name
	c.advanceLocked(false, false)
	return nil
}

// SetFieldState overwrites a field's answer from an external entry. The
// visit count is preserved.
func (c *Conversation) SetFieldState(entry models.ConversationStateEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.arena.indexOf(entry.Name)
	if !ok {
		return fmt.Errorf("field %q not in form %s", entry.Name, c.form.ID)
	}
	visits := c.arena.at(idx).VisitCount
	*c.arena.at(idx) = stateFromEntry(&c.form.Fields[idx], entry, visits)
	return nil
}

// FieldState returns the external projection of one field's state.
func (c *Conversation) FieldState(name string) (models.ConversationStateEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.arena.indexOf(name)
	if !ok {
		return models.ConversationStateEntry{}, fmt.Errorf("field %q not in form %s", name, c.form.ID)
	}
	return entryFromState(c.arena.at(idx), &c.form.Fields[idx]), nil
}

// Fail surfaces an unrecoverable error to the host and ends the conversation.
func (c *Conversation) Fail(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateComplete {
		return
	}
	c.state = StateComplete
	slog.Error("flow.Conversation: failed", "formId", c.form.ID, "reason", reason)
	if c.handlers != nil {
		c.handlers.Error(reason)
	}
}

func (c *Conversation) pauseCapture() {
	if c.capture != nil {
		c.capture.Pause()
	}
}

func (c *Conversation) resumeCapture() {
	if c.capture != nil {
		c.capture.Resume()
	}
}

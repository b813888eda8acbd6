package flow

import (
	"context"

	"github.com/veform/veform/internal/models"
)

// EventHandlers receives host-facing conversation events. Handlers are
// invoked synchronously from the engine and must not call back into the
// Conversation.
type EventHandlers interface {
	// FieldChanged fires on every field transition, before the next field's
	// question is spoken. Returning true suppresses the default question so
	// the host can take over the transition.
	FieldChanged(previous, next models.ConversationStateEntry) bool

	// Complete delivers the final answer set once, when the conversation ends.
	Complete(state models.ConversationState)

	// Error reports a conversation error the engine cannot recover from.
	Error(reason string)
}

// Capture is the input collaborator: a speech recognizer or text reader that
// turns user activity into utterances.
type Capture interface {
	Start(ctx context.Context) error
	Stop() error

	// Utterances streams finalized user inputs.
	Utterances() <-chan string

	// Pause suppresses capture while remote resolution is in flight, so the
	// engine's own speech is not re-captured as input.
	Pause()
	Resume()
}

// Output is the playback collaborator: text-to-speech or console output.
type Output interface {
	// Speak renders one utterance. Calls are ordered; implementations queue.
	Speak(text string)

	// Interrupt cancels in-progress playback.
	Interrupt()
}

// ReplyClient issues requests to the remote resolution service.
type ReplyClient interface {
	SetupForm(ctx context.Context, form *models.Form) error
	RequestValidation(ctx context.Context, req models.ValidationRequest) error
	RequestIntent(ctx context.Context, req models.IntentRequest) error
}

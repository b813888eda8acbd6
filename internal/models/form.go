// Package models defines the core data structures for veform.
//
// It includes the form model (fields, prompts, validation constraints,
// event behaviors) and the wire envelope types shared across modules.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FieldKind defines how a field's answer is captured and validated.
type FieldKind string

const (
	// FieldKindText captures free text; deterministic rules cannot validate it.
	FieldKindText FieldKind = "textarea"
	// FieldKindSelect captures exactly one option from a declared set.
	FieldKindSelect FieldKind = "select"
	// FieldKindMultiselect captures one or more options within selection bounds.
	FieldKindMultiselect FieldKind = "multiselect"
	// FieldKindYesNo captures an affirmative or negative answer.
	FieldKindYesNo FieldKind = "yesNo"
	// FieldKindNumber captures a numeric value within optional bounds.
	FieldKindNumber FieldKind = "number"
	// FieldKindDate captures a calendar date within optional bounds.
	FieldKindDate FieldKind = "date"
	// FieldKindInfo is informational only; it is read out and never answered.
	FieldKindInfo FieldKind = "info"
)

// IsValidFieldKind checks if the given field kind is supported.
func IsValidFieldKind(k FieldKind) bool {
	switch k {
	case FieldKindText, FieldKindSelect, FieldKindMultiselect, FieldKindYesNo,
		FieldKindNumber, FieldKindDate, FieldKindInfo:
		return true
	default:
		return false
	}
}

// FieldEvent identifies a moment in a field's lifecycle that behaviors can
// attach to.
type FieldEvent string

const (
	EventInitialQuestion        FieldEvent = "eventInitialQuestion"
	EventValidAnswer            FieldEvent = "eventValidAnswer"
	EventInvalidAnswer          FieldEvent = "eventInvalidAnswer"
	EventValidYesAnswer         FieldEvent = "eventValidYesAnswer"
	EventValidNoAnswer          FieldEvent = "eventValidNoAnswer"
	EventSkipRequested          FieldEvent = "eventSkipRequested"
	EventLastRequested          FieldEvent = "eventLastRequested"
	EventEndRequested           FieldEvent = "eventEndRequested"
	EventRevisitAfterResolved   FieldEvent = "eventRevisitAfterResolved"
	EventRevisitAfterUnresolved FieldEvent = "eventRevisitAfterUnresolved"
)

// IsValidFieldEvent checks if the given event is part of the closed event set.
func IsValidFieldEvent(ev FieldEvent) bool {
	switch ev {
	case EventInitialQuestion, EventValidAnswer, EventInvalidAnswer,
		EventValidYesAnswer, EventValidNoAnswer, EventSkipRequested,
		EventLastRequested, EventEndRequested, EventRevisitAfterResolved,
		EventRevisitAfterUnresolved:
		return true
	default:
		return false
	}
}

// BehaviorKind tags the action a FieldBehavior performs.
type BehaviorKind string

const (
	// BehaviorMoveTo navigates to a named field.
	BehaviorMoveTo BehaviorKind = "behaviorMoveTo"
	// BehaviorOutput emits the attached output text.
	BehaviorOutput BehaviorKind = "behaviorOutput"
	// BehaviorEnd ends the entire conversation.
	BehaviorEnd BehaviorKind = "behaviorEnd"
	// BehaviorMoveToFirstUnresolved navigates to the first field whose state
	// is still invalid.
	BehaviorMoveToFirstUnresolved BehaviorKind = "behaviorMoveToFirstUnresolved"
)

// EventModifier is an optional condition on a behavior. A behavior whose
// modifier currently evaluates true takes priority over the first-declared
// behavior in the same list.
type EventModifier string

const (
	// ModifierFieldsUnresolved is true while some field other than the
	// current one is still invalid.
	ModifierFieldsUnresolved EventModifier = "modifierFieldsUnresolved"
)

// FieldBehavior is a tagged action attached to a field event.
type FieldBehavior struct {
	Kind          BehaviorKind  `json:"type"`
	MoveToFields  []string      `json:"moveToFields,omitempty"` // target field names for BehaviorMoveTo
	ResolvesField *bool         `json:"resolvesField,omitempty"`
	Output        string        `json:"output,omitempty"`
	Modifier      EventModifier `json:"modifier,omitempty"`
}

// EventConfig maps field events to ordered behavior lists. Evaluation order
// within a list is declaration order unless a behavior's modifier evaluates
// true, which takes priority.
type EventConfig map[FieldEvent][]FieldBehavior

// Behaviors returns the behavior list declared for an event, or nil.
func (ec EventConfig) Behaviors(ev FieldEvent) []FieldBehavior {
	if ec == nil {
		return nil
	}
	return ec[ev]
}

// UnmarshalJSON decodes the event map, dropping keys outside the closed
// event enum so stale form definitions do not fail to load.
func (ec *EventConfig) UnmarshalJSON(data []byte) error {
	raw := make(map[string][]FieldBehavior)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(EventConfig, len(raw))
	for key, behaviors := range raw {
		ev := FieldEvent(key)
		if !IsValidFieldEvent(ev) {
			continue
		}
		out[ev] = behaviors
	}
	*ec = out
	return nil
}

// SelectOption is one selectable choice for select and multiselect fields.
// Picking an option can itself trigger navigation through attached behaviors.
type SelectOption struct {
	Label     string          `json:"label"` // matched against user input
	Value     string          `json:"value"` // canonical identifier
	Behaviors []FieldBehavior `json:"behaviors,omitempty"`
	ReadAloud bool            `json:"readAloud,omitempty"` // include in option enumeration
}

// FieldPrompts holds the phrase pools a field draws output from. Any empty
// pool falls back to the engine's default phrase pools.
type FieldPrompts struct {
	Question           []string `json:"question"`                     // asked on first visit
	QuestionMoveTo     []string `json:"questionMoveTo,omitempty"`     // asked when revisited
	Thinking           []string `json:"thinking,omitempty"`           // filler while remote resolution runs
	AcknowledgeSuccess []string `json:"acknowledgeSuccess,omitempty"` // valid answer accepted
	AcknowledgeSkip    []string `json:"acknowledgeSkip,omitempty"`    // skip intent accepted
	AcknowledgeLast    []string `json:"acknowledgeLast,omitempty"`    // go-back intent accepted
	AcknowledgeEnd     []string `json:"acknowledgeEnd,omitempty"`     // end intent accepted
}

// FieldValidation is the constraint set applied by the rule validators.
type FieldValidation struct {
	Required      *bool          `json:"required,omitempty"`
	Validate      *bool          `json:"validate,omitempty"` // request remote validation for free text
	SelectOptions []SelectOption `json:"selectOptions,omitempty"`
	SelectSubject string         `json:"selectSubject,omitempty"`
	MinCharacters *int           `json:"minCharacters,omitempty"`
	MaxCharacters *int           `json:"maxCharacters,omitempty"`
	MinValue      *float64       `json:"minValue,omitempty"`
	MaxValue      *float64       `json:"maxValue,omitempty"`
	MinSelections *int           `json:"minSelections,omitempty"`
	MaxSelections *int           `json:"maxSelections,omitempty"`
	MinDate       *time.Time     `json:"minDate,omitempty"`
	MaxDate       *time.Time     `json:"maxDate,omitempty"`
}

// OptionByValue returns the declared option with the given canonical value.
func (v FieldValidation) OptionByValue(value string) (SelectOption, bool) {
	for _, opt := range v.SelectOptions {
		if opt.Value == value {
			return opt, true
		}
	}
	return SelectOption{}, false
}

// Field is one question in the form graph. Immutable once the conversation
// starts.
type Field struct {
	Name       string          `json:"name"` // stable identifier, unique within a form
	Kind       FieldKind       `json:"type"`
	Prompts    FieldPrompts    `json:"prompts"`
	Validation FieldValidation `json:"validation"`
	Events     EventConfig     `json:"eventConfig,omitempty"`
}

// Form is an identifier plus an ordered field list. Declaration order defines
// the default traversal fallback.
type Form struct {
	ID     string  `json:"id"`
	Fields []Field `json:"fields"`
}

// Error variables for form validation.
var (
	ErrNoFields           = errors.New("form must declare at least one field")
	ErrEmptyFieldName     = errors.New("field name cannot be empty")
	ErrDuplicateFieldName = errors.New("field names must be unique within a form")
	ErrInvalidFieldKind   = errors.New("invalid field kind")
	ErrMissingQuestion    = errors.New("question prompt is required")
	ErrNoSelectOptions    = errors.New("select fields require at least one option")
	ErrSelectionBounds    = errors.New("minSelections cannot exceed maxSelections")
)

// Validate performs structural validation on a Form. Behavior targets that
// reference unknown fields are not rejected here; the traversal resolver
// treats them as behavior-absent at runtime.
func (f *Form) Validate() error {
	if len(f.Fields) == 0 {
		return ErrNoFields
	}
	seen := make(map[string]bool, len(f.Fields))
	for i := range f.Fields {
		field := &f.Fields[i]
		if field.Name == "" {
			return ErrEmptyFieldName
		}
		if seen[field.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateFieldName, field.Name)
		}
		seen[field.Name] = true
		if !IsValidFieldKind(field.Kind) {
			return fmt.Errorf("%w: %s (field %s)", ErrInvalidFieldKind, field.Kind, field.Name)
		}
		if len(field.Prompts.Question) == 0 {
			return fmt.Errorf("%w: field %s", ErrMissingQuestion, field.Name)
		}
		if err := field.validateKind(); err != nil {
			return err
		}
	}
	return nil
}

// validateKind validates kind-specific constraint requirements.
func (f *Field) validateKind() error {
	switch f.Kind {
	case FieldKindSelect, FieldKindMultiselect:
		if len(f.Validation.SelectOptions) == 0 {
			return fmt.Errorf("%w: field %s", ErrNoSelectOptions, f.Name)
		}
		min, max := f.Validation.MinSelections, f.Validation.MaxSelections
		if min != nil && max != nil && *min > *max {
			return fmt.Errorf("%w: field %s", ErrSelectionBounds, f.Name)
		}
	}
	return nil
}

// FieldByName returns the field with the given name.
func (f *Form) FieldByName(name string) (*Field, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// FieldIndex returns the declaration index of the named field.
func (f *Form) FieldIndex(name string) (int, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

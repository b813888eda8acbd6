// Package flow implements the conversation engine: per-field state, the
// traversal resolver, and the orchestrator that merges local rule verdicts
// with remote resolution into field transitions.
package flow

import (
	"strings"

	"github.com/veform/veform/internal/models"
)

// FieldState is the mutable runtime record for one field. Validity, visit
// count, and the typed answer survive across visits; the navigation flags
// are transient and cleared on every field transition.
type FieldState struct {
	Name       string
	Valid      bool
	VisitCount int

	// typed answer, one of these populated depending on field kind
	Text          string
	ValidYes      bool
	ValidNo       bool
	Number        *float64
	SelectOption  *models.SelectOption
	SelectOptions []models.SelectOption

	// transient navigation flags from the latest input
	Skip       bool
	Last       bool
	End        bool
	MoveToName string

	// remote resolution bookkeeping for the in-flight input
	IntentSkipResolved   bool
	IntentLastResolved   bool
	IntentEndResolved    bool
	IntentMoveToResolved bool
	ReplyRunning         bool
}

// clearTransient resets the navigation flags. Called when leaving a field so
// a stale skip or end request cannot fire on a later revisit.
func (s *FieldState) clearTransient() {
	s.Skip = false
	s.Last = false
	s.End = false
	s.MoveToName = ""
}

// resetIntentResolution marks all four remote intent verdicts as pending.
func (s *FieldState) resetIntentResolution() {
	s.IntentSkipResolved = false
	s.IntentLastResolved = false
	s.IntentEndResolved = false
	s.IntentMoveToResolved = false
}

// intentsResolved reports whether all four remote intent verdicts arrived.
func (s *FieldState) intentsResolved() bool {
	return s.IntentSkipResolved && s.IntentLastResolved &&
		s.IntentEndResolved && s.IntentMoveToResolved
}

// navigationRequested reports whether any navigation flag is set.
func (s *FieldState) navigationRequested() bool {
	return s.Skip || s.Last || s.End || s.MoveToName != ""
}

// stateArena holds the FieldState records for a form, indexed by the field's
// declaration index. Field names resolve to indices once, at construction;
// traversal then works on integers.
type stateArena struct {
	states []FieldState
	index  map[string]int
}

func newStateArena(form *models.Form) *stateArena {
	a := &stateArena{
		states: make([]FieldState, len(form.Fields)),
		index:  make(map[string]int, len(form.Fields)),
	}
	for i := range form.Fields {
		a.states[i] = FieldState{Name: form.Fields[i].Name}
		a.index[form.Fields[i].Name] = i
	}
	return a
}

func (a *stateArena) at(i int) *FieldState {
	return &a.states[i]
}

func (a *stateArena) indexOf(name string) (int, bool) {
	i, ok := a.index[name]
	return i, ok
}

// answerFromState derives the typed answer for a field from its state.
func answerFromState(st *FieldState, field *models.Field) models.Answer {
	switch field.Kind {
	case models.FieldKindYesNo:
		if st.ValidYes {
			return models.TextAnswer("yes")
		}
		if st.ValidNo {
			return models.TextAnswer("no")
		}
		return models.Answer{}
	case models.FieldKindNumber:
		if st.Number != nil {
			return models.NumberAnswer(*st.Number)
		}
		return models.Answer{}
	case models.FieldKindSelect:
		if st.SelectOption != nil {
			return models.TextAnswer(st.SelectOption.Value)
		}
		return models.Answer{}
	case models.FieldKindMultiselect:
		values := make([]string, 0, len(st.SelectOptions))
		for _, opt := range st.SelectOptions {
			values = append(values, opt.Value)
		}
		return models.TextAnswer(strings.Join(values, ", "))
	case models.FieldKindInfo:
		return models.Answer{}
	default: // text and date carry the raw utterance
		return models.TextAnswer(st.Text)
	}
}

// entryFromState projects a field's state into its external representation.
func entryFromState(st *FieldState, field *models.Field) models.ConversationStateEntry {
	question := ""
	if len(field.Prompts.Question) > 0 {
		question = field.Prompts.Question[0]
	}
	return models.ConversationStateEntry{
		Name:     field.Name,
		Question: question,
		Answer:   answerFromState(st, field),
		Kind:     field.Kind,
		Valid:    st.Valid,
	}
}

// stateFromEntry rebuilds a FieldState from an externally supplied entry,
// the inverse of entryFromState for every answerable field kind.
func stateFromEntry(field *models.Field, entry models.ConversationStateEntry, visitCount int) FieldState {
	st := FieldState{Name: field.Name, Valid: entry.Valid, VisitCount: visitCount}
	switch field.Kind {
	case models.FieldKindYesNo:
		st.ValidYes = entry.Answer.Text == "yes"
		st.ValidNo = entry.Answer.Text == "no"
	case models.FieldKindNumber:
		if entry.Answer.Number != nil {
			n := *entry.Answer.Number
			st.Number = &n
		}
	case models.FieldKindSelect:
		if opt, ok := field.Validation.OptionByValue(entry.Answer.Text); ok {
			st.SelectOption = &opt
		}
	case models.FieldKindMultiselect:
		for _, value := range strings.Split(entry.Answer.Text, ",") {
			if opt, ok := field.Validation.OptionByValue(strings.TrimSpace(value)); ok {
				st.SelectOptions = append(st.SelectOptions, opt)
			}
		}
	default:
		st.Text = entry.Answer.Text
	}
	return st
}

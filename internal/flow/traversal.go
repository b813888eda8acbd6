package flow

import (
	"log/slog"

	"github.com/veform/veform/internal/models"
)

// resolver selects the next field for a traversal step. Decision order, first
// hit wins:
//
//  1. skip requested: the skip event's navigation behavior, else the next
//     field in declaration order
//  2. end requested: conversation end
//  3. go-back requested: the most recently visited field, or the current
//     field again when there is no history
//  4. explicit move-to by name
//  5. the selected option's attached navigation behavior
//  6. yes/no events for a valid yes or no answer
//  7. valid or invalid answer events
//  8. next field in declaration order
//  9. conversation end
//
// Within one behavior list a behavior whose modifier evaluates true beats the
// first-declared one. The resolver never mutates state, so repeated calls with
// the same state return the same field.
type resolver struct {
	form  *models.Form
	arena *stateArena
}

// nextField resolves the traversal step away from the field named in st.
// A nil return means the conversation should end.
func (r *resolver) nextField(st *FieldState, visitHistory []FieldState) *models.Field {
	idx, ok := r.arena.indexOf(st.Name)
	if !ok {
		return nil
	}
	field := &r.form.Fields[idx]

	if st.Skip {
		if next, handled := r.resolveNav(idx, field.Events.Behaviors(models.EventSkipRequested)); handled {
			return next
		}
		return r.sequentialNext(idx)
	}
	if st.End {
		return nil
	}
	if st.Last {
		if len(visitHistory) > 0 {
			last := visitHistory[len(visitHistory)-1]
			if prev, ok := r.form.FieldByName(last.Name); ok {
				return prev
			}
		}
		return field
	}
	if st.MoveToName != "" {
		if target, ok := r.form.FieldByName(st.MoveToName); ok {
			return target
		}
		slog.Warn("flow.resolver: move-to target not in form, ignoring", "field", st.Name, "target", st.MoveToName)
	}
	if st.SelectOption != nil {
		if next, handled := r.resolveNav(idx, st.SelectOption.Behaviors); handled {
			return next
		}
	}
	if st.Valid && st.ValidYes {
		if next, handled := r.resolveNav(idx, field.Events.Behaviors(models.EventValidYesAnswer)); handled {
			return next
		}
	}
	if st.Valid && st.ValidNo {
		if next, handled := r.resolveNav(idx, field.Events.Behaviors(models.EventValidNoAnswer)); handled {
			return next
		}
	}
	ev := models.EventInvalidAnswer
	if st.Valid {
		ev = models.EventValidAnswer
	}
	if next, handled := r.resolveNav(idx, field.Events.Behaviors(ev)); handled {
		return next
	}
	return r.sequentialNext(idx)
}

// resolveNav applies the navigation behavior from a list, if any. The second
// return is false when the list holds no applicable navigation behavior, so
// the caller falls through to the next decision rule.
func (r *resolver) resolveNav(current int, behaviors []models.FieldBehavior) (*models.Field, bool) {
	b := r.navBehavior(current, behaviors)
	if b == nil {
		return nil, false
	}
	switch b.Kind {
	case models.BehaviorEnd:
		return nil, true
	case models.BehaviorMoveToFirstUnresolved:
		if target := r.firstUnresolved(current); target != nil {
			return target, true
		}
		return nil, false
	default: // BehaviorMoveTo
		for _, name := range b.MoveToFields {
			if target, ok := r.form.FieldByName(name); ok {
				return target, true
			}
			slog.Warn("flow.resolver: behavior targets unknown field, ignoring", "target", name)
		}
		return nil, false
	}
}

// navBehavior picks the navigation behavior to apply from a declared list:
// the first behavior whose modifier evaluates true, else the first declared.
func (r *resolver) navBehavior(current int, behaviors []models.FieldBehavior) *models.FieldBehavior {
	var first *models.FieldBehavior
	for i := range behaviors {
		b := &behaviors[i]
		switch b.Kind {
		case models.BehaviorMoveTo, models.BehaviorEnd, models.BehaviorMoveToFirstUnresolved:
		default:
			continue
		}
		if b.Modifier != "" && r.modifierTrue(b.Modifier, current) {
			return b
		}
		if first == nil {
			first = b
		}
	}
	return first
}

// modifierTrue evaluates a behavior modifier against the arena. current is
// excluded: the field the input just answered does not count as unresolved
// for its own behaviors.
func (r *resolver) modifierTrue(mod models.EventModifier, current int) bool {
	switch mod {
	case models.ModifierFieldsUnresolved:
		return r.firstUnresolved(current) != nil
	default:
		slog.Warn("flow.resolver: unknown behavior modifier, treating as false", "modifier", mod)
		return false
	}
}

// firstUnresolved returns the first required answerable field, in declaration
// order, whose state is still invalid. Excludes the field at index exclude.
func (r *resolver) firstUnresolved(exclude int) *models.Field {
	for i := range r.form.Fields {
		if i == exclude {
			continue
		}
		field := &r.form.Fields[i]
		if field.Kind == models.FieldKindInfo || !fieldRequired(field) {
			continue
		}
		if !r.arena.at(i).Valid {
			return field
		}
	}
	return nil
}

func (r *resolver) sequentialNext(idx int) *models.Field {
	if idx+1 < len(r.form.Fields) {
		return &r.form.Fields[idx+1]
	}
	return nil
}

// fieldRequired reports the field's required flag; unset means required.
func fieldRequired(field *models.Field) bool {
	return field.Validation.Required == nil || *field.Validation.Required
}

// Package forms builds and loads form definitions: a programmatic builder,
// a JSON file loader, and an HTTP fetcher for served forms.
package forms

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/veform/veform/internal/models"
)

// Builder assembles a form field by field. Each added field is chained to
// the previous one with a valid-answer move-to behavior, unless the previous
// field already declared one.
type Builder struct {
	form models.Form
}

// NewBuilder starts an empty form with a generated identifier.
func NewBuilder() *Builder {
	return &Builder{form: models.Form{ID: uuid.NewString()}}
}

// AddField appends a field with the given question prompt. Field names must
// be unique within the form.
func (b *Builder) AddField(name string, kind models.FieldKind, question string) (*models.Field, error) {
	if _, ok := b.Field(name); ok {
		return nil, fmt.Errorf("field %q already exists", name)
	}
	if len(b.form.Fields) > 0 {
		b.chainPrevious(name)
	}
	b.form.Fields = append(b.form.Fields, models.Field{
		Name:    name,
		Kind:    kind,
		Prompts: models.FieldPrompts{Question: []string{question}},
	})
	return &b.form.Fields[len(b.form.Fields)-1], nil
}

// chainPrevious links the previous field's valid-answer event to the new
// field, preserving any move-to the form author already declared.
func (b *Builder) chainPrevious(name string) {
	prev := &b.form.Fields[len(b.form.Fields)-1]
	for _, behavior := range prev.Events.Behaviors(models.EventValidAnswer) {
		if behavior.Kind == models.BehaviorMoveTo {
			return
		}
	}
	if prev.Events == nil {
		prev.Events = models.EventConfig{}
	}
	prev.Events[models.EventValidAnswer] = append(prev.Events[models.EventValidAnswer],
		models.FieldBehavior{Kind: models.BehaviorMoveTo, MoveToFields: []string{name}})
}

// Field returns a previously added field by name for further configuration.
func (b *Builder) Field(name string) (*models.Field, bool) {
	for i := range b.form.Fields {
		if b.form.Fields[i].Name == name {
			return &b.form.Fields[i], true
		}
	}
	return nil, false
}

// Build validates and returns the assembled form.
func (b *Builder) Build() (*models.Form, error) {
	form := b.form
	if err := form.Validate(); err != nil {
		return nil, err
	}
	return &form, nil
}

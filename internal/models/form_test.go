package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func validForm() *Form {
	return &Form{
		ID: "checkin",
		Fields: []Field{
			{
				Name:    "welcome",
				Kind:    FieldKindInfo,
				Prompts: FieldPrompts{Question: []string{"Welcome to your daily check-in."}},
			},
			{
				Name:    "slept_well",
				Kind:    FieldKindYesNo,
				Prompts: FieldPrompts{Question: []string{"Did you sleep well?"}},
			},
			{
				Name:    "drink",
				Kind:    FieldKindSelect,
				Prompts: FieldPrompts{Question: []string{"What would you like to drink?"}},
				Validation: FieldValidation{
					SelectOptions: []SelectOption{
						{Label: "Coffee", Value: "coffee", ReadAloud: true},
						{Label: "Tea", Value: "tea", ReadAloud: true},
					},
				},
			},
		},
	}
}

func TestFormValidate(t *testing.T) {
	if err := validForm().Validate(); err != nil {
		t.Fatalf("valid form rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Form)
		wantErr error
	}{
		{"no fields", func(f *Form) { f.Fields = nil }, ErrNoFields},
		{"empty name", func(f *Form) { f.Fields[1].Name = "" }, ErrEmptyFieldName},
		{"duplicate name", func(f *Form) { f.Fields[1].Name = "welcome" }, ErrDuplicateFieldName},
		{"bad kind", func(f *Form) { f.Fields[1].Kind = "slider" }, ErrInvalidFieldKind},
		{"missing question", func(f *Form) { f.Fields[1].Prompts.Question = nil }, ErrMissingQuestion},
		{"select without options", func(f *Form) { f.Fields[2].Validation.SelectOptions = nil }, ErrNoSelectOptions},
		{
			"inverted selection bounds",
			func(f *Form) {
				three, one := 3, 1
				f.Fields[2].Validation.MinSelections = &three
				f.Fields[2].Validation.MaxSelections = &one
			},
			ErrSelectionBounds,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			tc.mutate(form)
			if err := form.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestEventConfigDropsUnknownEvents(t *testing.T) {
	raw := `{
		"eventValidAnswer": [{"type": "behaviorMoveTo", "moveToFields": ["next"]}],
		"eventFromTheFuture": [{"type": "behaviorOutput", "output": "never seen"}]
	}`
	var ec EventConfig
	if err := json.Unmarshal([]byte(raw), &ec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ec) != 1 {
		t.Fatalf("expected 1 known event, got %d", len(ec))
	}
	behaviors := ec.Behaviors(EventValidAnswer)
	if len(behaviors) != 1 || behaviors[0].Kind != BehaviorMoveTo {
		t.Errorf("known event lost in decode: %+v", behaviors)
	}
	if ec.Behaviors("eventFromTheFuture") != nil {
		t.Error("unknown event survived decode")
	}
}

func TestFormDecodeFromJSON(t *testing.T) {
	raw := `{
		"id": "f-1",
		"fields": [
			{
				"name": "mood",
				"type": "textarea",
				"prompts": {"question": ["How are you feeling?"]},
				"validation": {"validate": true},
				"eventConfig": {
					"eventSkipRequested": [{"type": "behaviorMoveTo", "moveToFields": ["wrapup"]}]
				}
			},
			{
				"name": "wrapup",
				"type": "yesNo",
				"prompts": {"question": ["Anything else?"]}
			}
		]
	}`
	var form Form
	if err := json.Unmarshal([]byte(raw), &form); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := form.Validate(); err != nil {
		t.Fatalf("decoded form invalid: %v", err)
	}
	mood, ok := form.FieldByName("mood")
	if !ok {
		t.Fatal("mood field missing")
	}
	if mood.Kind != FieldKindText {
		t.Errorf("mood kind = %s, want %s", mood.Kind, FieldKindText)
	}
	if mood.Validation.Validate == nil || !*mood.Validation.Validate {
		t.Error("validate flag lost in decode")
	}
	behaviors := mood.Events.Behaviors(EventSkipRequested)
	if len(behaviors) != 1 || behaviors[0].MoveToFields[0] != "wrapup" {
		t.Errorf("skip behavior lost in decode: %+v", behaviors)
	}
	if idx, ok := form.FieldIndex("wrapup"); !ok || idx != 1 {
		t.Errorf("FieldIndex(wrapup) = %d, %t", idx, ok)
	}
}

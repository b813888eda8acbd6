package rules

import (
	"testing"

	"github.com/veform/veform/internal/models"
)

func TestYesNoReply(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		sentiment float64
		want      YesNoReply
	}{
		{"strong yes", "yeah for sure", 0, YesNoReply{Valid: true, Answer: AnswerYes}},
		{"strong no", "no way", 0, YesNoReply{Valid: true, Answer: AnswerNo}},
		{"weak yes", "okay maybe", 0, YesNoReply{Valid: true, Answer: AnswerYes}},
		{"balanced is ambiguous", "yes and no", 0, YesNoReply{}},
		{"negative sentiment breaks tie", "yes and no", -1, YesNoReply{Valid: true, Answer: AnswerNo}},
		{"no signal", "my cat is orange", 0.8, YesNoReply{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := yesNoReply(tc.sentiment, extraction(tc.input).Lemmas)
			if got != tc.want {
				t.Errorf("yesNoReply(%q, %.1f) = %+v, want %+v", tc.input, tc.sentiment, got, tc.want)
			}
		})
	}
}

func selectField(minSel, maxSel *int) *models.Field {
	return &models.Field{
		Name: "drink",
		Kind: models.FieldKindSelect,
		Validation: models.FieldValidation{
			SelectOptions: []models.SelectOption{
				{Label: "Coffee", Value: "coffee"},
				{Label: "Tea", Value: "tea"},
				{Label: "Water", Value: "water"},
			},
			MinSelections: minSel,
			MaxSelections: maxSel,
		},
	}
}

func TestSelectReply(t *testing.T) {
	field := selectField(nil, nil)
	r := newTestValidator("i'd like coffee please", field).Select()
	if !r.Valid || r.Option == nil || r.Option.Value != "coffee" {
		t.Fatalf("Select = %+v, want coffee", r)
	}
	if r := newTestValidator("coffee or tea, whatever", field).Select(); r.Valid {
		t.Errorf("ambiguous input should not validate, got %+v", r)
	}
	if r := newTestValidator("a milkshake", field).Select(); r.Valid {
		t.Errorf("unknown option should not validate, got %+v", r)
	}
}

func TestMultiselectReplyBounds(t *testing.T) {
	two, three := 2, 3
	field := selectField(&two, &three)
	field.Kind = models.FieldKindMultiselect

	if r := newTestValidator("just coffee", field).Multiselect(); r.Valid {
		t.Errorf("one match below minSelections should not validate, got %+v", r)
	}
	r := newTestValidator("coffee and tea", field).Multiselect()
	if !r.Valid || len(r.Options) != 2 {
		t.Fatalf("Multiselect = %+v, want coffee and tea", r)
	}
	if r.Options[0].Value != "coffee" || r.Options[1].Value != "tea" {
		t.Errorf("matched options out of declaration order: %+v", r.Options)
	}
}

func TestNumberReply(t *testing.T) {
	bound := func(min, max float64) models.FieldValidation {
		return models.FieldValidation{MinValue: &min, MaxValue: &max}
	}
	tests := []struct {
		name       string
		input      string
		validation models.FieldValidation
		want       NumberReply
	}{
		{"decimal", "about 42 i think", models.FieldValidation{}, NumberReply{Valid: true, Number: 42}},
		{"spelled word", "around twenty dollars", models.FieldValidation{}, NumberReply{Valid: true, Number: 20}},
		{"none means zero", "none at all", models.FieldValidation{}, NumberReply{Valid: true, Number: 0}},
		{"no numeric content", "idk maybe a lot", models.FieldValidation{}, NumberReply{}},
		{"out of bounds", "twenty", bound(1, 10), NumberReply{}},
		{"within bounds", "seven", bound(1, 10), NumberReply{Valid: true, Number: 7}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			field := &models.Field{Name: "amount", Kind: models.FieldKindNumber, Validation: tc.validation}
			got := newTestValidator(tc.input, field).Number()
			if got != tc.want {
				t.Errorf("Number(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

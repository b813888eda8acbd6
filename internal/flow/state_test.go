package flow

import (
	"testing"

	"github.com/veform/veform/internal/models"
)

func TestStateEntryRoundTrip(t *testing.T) {
	coffee := models.SelectOption{Label: "Coffee", Value: "coffee"}
	tea := models.SelectOption{Label: "Tea", Value: "tea"}
	seven := 7.5

	tests := []struct {
		name  string
		field models.Field
		state FieldState
		want  string // Answer.String() after the round trip
	}{
		{
			name:  "text",
			field: models.Field{Name: "notes", Kind: models.FieldKindText},
			state: FieldState{Name: "notes", Valid: true, Text: "feeling pretty good"},
			want:  "feeling pretty good",
		},
		{
			name:  "yes",
			field: models.Field{Name: "slept", Kind: models.FieldKindYesNo},
			state: FieldState{Name: "slept", Valid: true, ValidYes: true},
			want:  "yes",
		},
		{
			name:  "no",
			field: models.Field{Name: "slept", Kind: models.FieldKindYesNo},
			state: FieldState{Name: "slept", Valid: true, ValidNo: true},
			want:  "no",
		},
		{
			name:  "number",
			field: models.Field{Name: "hours", Kind: models.FieldKindNumber},
			state: FieldState{Name: "hours", Valid: true, Number: &seven},
			want:  "7.5",
		},
		{
			name: "select",
			field: models.Field{Name: "drink", Kind: models.FieldKindSelect,
				Validation: models.FieldValidation{SelectOptions: []models.SelectOption{coffee, tea}}},
			state: FieldState{Name: "drink", Valid: true, SelectOption: &coffee},
			want:  "coffee",
		},
		{
			name: "multiselect",
			field: models.Field{Name: "drinks", Kind: models.FieldKindMultiselect,
				Validation: models.FieldValidation{SelectOptions: []models.SelectOption{coffee, tea}}},
			state: FieldState{Name: "drinks", Valid: true, SelectOptions: []models.SelectOption{coffee, tea}},
			want:  "coffee, tea",
		},
		{
			name:  "date",
			field: models.Field{Name: "when", Kind: models.FieldKindDate},
			state: FieldState{Name: "when", Valid: true, Text: "next tuesday"},
			want:  "next tuesday",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry := entryFromState(&tc.state, &tc.field)
			if entry.Answer.String() != tc.want {
				t.Fatalf("entry answer = %q, want %q", entry.Answer.String(), tc.want)
			}
			if entry.Valid != tc.state.Valid {
				t.Errorf("entry valid = %t, want %t", entry.Valid, tc.state.Valid)
			}

			rebuilt := stateFromEntry(&tc.field, entry, 3)
			again := entryFromState(&rebuilt, &tc.field)
			if again.Answer.String() != tc.want {
				t.Errorf("round-trip answer = %q, want %q", again.Answer.String(), tc.want)
			}
			if rebuilt.VisitCount != 3 {
				t.Errorf("visit count not preserved: %d", rebuilt.VisitCount)
			}
		})
	}
}

func TestStateArenaResolvesNamesOnce(t *testing.T) {
	form := threeFieldForm()
	arena := newStateArena(form)
	for i, field := range form.Fields {
		idx, ok := arena.indexOf(field.Name)
		if !ok || idx != i {
			t.Errorf("indexOf(%s) = %d, %t; want %d", field.Name, idx, ok, i)
		}
		if arena.at(i).Name != field.Name {
			t.Errorf("state %d named %q, want %q", i, arena.at(i).Name, field.Name)
		}
	}
	if _, ok := arena.indexOf("ghost"); ok {
		t.Error("unknown field resolved")
	}
}

func TestClearTransientKeepsAnswer(t *testing.T) {
	n := 4.0
	st := FieldState{Name: "hours", Valid: true, Number: &n, Skip: true, Last: true, End: true, MoveToName: "q2"}
	st.clearTransient()
	if st.Skip || st.Last || st.End || st.MoveToName != "" {
		t.Errorf("navigation flags not cleared: %+v", st)
	}
	if !st.Valid || st.Number == nil || *st.Number != 4 {
		t.Errorf("answer lost with the transient flags: %+v", st)
	}
}

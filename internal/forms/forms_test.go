package forms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/veform/veform/internal/models"
)

func TestBuilderChainsFields(t *testing.T) {
	b := NewBuilder()
	if _, err := b.AddField("mood", models.FieldKindText, "How are you feeling?"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddField("hours", models.FieldKindNumber, "How many hours did you sleep?"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddField("rested", models.FieldKindYesNo, "Do you feel rested?"); err != nil {
		t.Fatal(err)
	}

	form, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if form.ID == "" {
		t.Error("builder did not assign a form id")
	}

	mood, _ := form.FieldByName("mood")
	behaviors := mood.Events.Behaviors(models.EventValidAnswer)
	if len(behaviors) != 1 || behaviors[0].Kind != models.BehaviorMoveTo || behaviors[0].MoveToFields[0] != "hours" {
		t.Errorf("mood not chained to hours: %+v", behaviors)
	}

	// the final field has no outgoing chain
	rested, _ := form.FieldByName("rested")
	if got := rested.Events.Behaviors(models.EventValidAnswer); len(got) != 0 {
		t.Errorf("last field should not be chained: %+v", got)
	}
}

func TestBuilderRejectsDuplicateNames(t *testing.T) {
	b := NewBuilder()
	if _, err := b.AddField("mood", models.FieldKindText, "q"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddField("mood", models.FieldKindYesNo, "q again"); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestBuilderPreservesAuthoredMoveTo(t *testing.T) {
	b := NewBuilder()
	first, err := b.AddField("gate", models.FieldKindYesNo, "Ready?")
	if err != nil {
		t.Fatal(err)
	}
	first.Events = models.EventConfig{
		models.EventValidAnswer: {{Kind: models.BehaviorMoveTo, MoveToFields: []string{"gate"}}},
	}
	if _, err := b.AddField("next", models.FieldKindText, "Go on."); err != nil {
		t.Fatal(err)
	}

	gate, _ := b.Field("gate")
	behaviors := gate.Events.Behaviors(models.EventValidAnswer)
	if len(behaviors) != 1 || behaviors[0].MoveToFields[0] != "gate" {
		t.Errorf("authored move-to overwritten: %+v", behaviors)
	}
}

func sampleFormJSON(t *testing.T) []byte {
	t.Helper()
	form := models.Form{
		ID: "served-1",
		Fields: []models.Field{
			{Name: "mood", Kind: models.FieldKindText, Prompts: models.FieldPrompts{Question: []string{"How are you?"}}},
		},
	}
	raw, err := json.Marshal(form)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestFetch(t *testing.T) {
	raw := sampleFormJSON(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/form/served-1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
	}))
	defer srv.Close()

	form, err := Fetch(context.Background(), srv.URL, "served-1")
	if err != nil {
		t.Fatal(err)
	}
	if form.ID != "served-1" || len(form.Fields) != 1 {
		t.Errorf("fetched form = %+v", form)
	}

	if _, err := Fetch(context.Background(), srv.URL, "missing"); err == nil {
		t.Error("expected error for missing form")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.json")
	if err := os.WriteFile(path, sampleFormJSON(t), 0o644); err != nil {
		t.Fatal(err)
	}
	form, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if form.ID != "served-1" {
		t.Errorf("loaded form id = %s", form.ID)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"id": "x", "fields": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected validation error for empty form")
	}
}

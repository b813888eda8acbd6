package rules

import (
	"strings"
	"unicode/utf8"

	"github.com/veform/veform/internal/models"
)

// maxIntentInputLength guards hot-phrase and number detection against false
// positives on long free-text answers.
const maxIntentInputLength = 50

// tooLong applies the intent guard, counting characters rather than bytes so
// multibyte input is measured the same as ASCII.
func tooLong(input string) bool {
	return utf8.RuneCountInString(input) > maxIntentInputLength
}

// HotPhraseReply is the verdict of the navigation intent detectors. At most
// one intent fires per input, checked in order: skip, go-back, move-to, end.
type HotPhraseReply struct {
	Skip       bool
	Last       bool
	End        bool
	MoveToName string
}

// Detected reports whether any navigation intent fired.
func (r HotPhraseReply) Detected() bool {
	return r.Skip || r.Last || r.End || r.MoveToName != ""
}

// Validator scores one utterance against one field. Input is lowercased and
// trimmed at construction; the field is never mutated.
type Validator struct {
	input     string
	field     *models.Field
	lemmas    []string
	sentiment float64
}

// NewValidator builds a Validator from raw input, the current field, and the
// host-supplied extraction for that input.
func NewValidator(input string, field *models.Field, ex Extraction) *Validator {
	return &Validator{
		input:     strings.TrimSpace(strings.ToLower(input)),
		field:     field,
		lemmas:    ex.Lemmas,
		sentiment: ex.Sentiment,
	}
}

// HotPhrases checks the input for skip, go-back, explicit move-to, and end
// intents, returning the first that fires.
func (v *Validator) HotPhrases() HotPhraseReply {
	if skipRequested(v.lemmas, v.input) {
		return HotPhraseReply{Skip: true}
	}
	if lastRequested(v.lemmas, v.input) {
		return HotPhraseReply{Last: true}
	}
	if target := moveToRequested(v.input); target != "" {
		return HotPhraseReply{MoveToName: target}
	}
	if endRequested(v.lemmas, v.input) {
		return HotPhraseReply{End: true}
	}
	return HotPhraseReply{}
}

// YesNo validates the input as an affirmative or negative answer.
func (v *Validator) YesNo() YesNoReply {
	return yesNoReply(v.sentiment, v.lemmas)
}

// Select matches the input against the field's option labels.
func (v *Validator) Select() SelectReply {
	return selectReply(v.input, v.field)
}

// Multiselect matches the input against the field's option labels, enforcing
// the field's selection bounds.
func (v *Validator) Multiselect() MultiselectReply {
	return multiselectReply(v.input, v.field)
}

// Number extracts a numeric value from the input, respecting field bounds.
func (v *Validator) Number() NumberReply {
	return numberReply(v.input, v.lemmas, v.field)
}

// moveToRequested detects an explicit jump request structurally: input
// containing "move to" yields the trailing text as the target field name.
func moveToRequested(input string) string {
	const marker = "move to"
	idx := strings.LastIndex(input, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(input[idx+len(marker):])
}

// fuzzyMatch counts lemmas present in the expected word list.
func fuzzyMatch(lemmas, expected []string) int {
	matches := 0
	for _, lemma := range lemmas {
		for _, want := range expected {
			if lemma == want {
				matches++
				break
			}
		}
	}
	return matches
}

// hitScore combines strong-phrase substring matches against the raw input
// with weak-word lemma membership:
//
//	hardChars/inputChars * 1.5 + softHits/len(lemmas)
//
// Lengths are character counts.
func hitScore(lemmas []string, input string, strong, weak []string) float64 {
	inputChars := utf8.RuneCountInString(input)
	if inputChars == 0 || len(lemmas) == 0 {
		return 0
	}
	hardChars := 0
	for _, phrase := range strong {
		if strings.Contains(input, phrase) {
			hardChars += utf8.RuneCountInString(phrase)
		}
	}
	softHits := 0
	for _, word := range weak {
		for _, lemma := range lemmas {
			if lemma == word {
				softHits++
				break
			}
		}
	}
	hard := float64(hardChars) / float64(inputChars) * 1.5
	soft := float64(softHits) / float64(len(lemmas))
	return hard + soft
}

package models

import "strconv"

// Answer is a typed field answer: free text or a numeric value.
type Answer struct {
	Text   string   `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
}

// TextAnswer builds a text answer.
func TextAnswer(text string) Answer {
	return Answer{Text: text}
}

// NumberAnswer builds a numeric answer.
func NumberAnswer(n float64) Answer {
	return Answer{Number: &n}
}

// IsNumber reports whether the answer carries a numeric value.
func (a Answer) IsNumber() bool {
	return a.Number != nil
}

// String renders the answer for prompts and logs.
func (a Answer) String() string {
	if a.Number != nil {
		return strconv.FormatFloat(*a.Number, 'f', -1, 64)
	}
	return a.Text
}

// ConversationStateEntry is the externally visible projection of a field:
// derived from the engine's live field state plus the form definition, never
// stored independently.
type ConversationStateEntry struct {
	Name     string    `json:"name"`
	Question string    `json:"question"`
	Answer   Answer    `json:"answer"`
	Kind     FieldKind `json:"type"`
	Valid    bool      `json:"valid"`
}

// ConversationState is the ordered answer set for a conversation.
type ConversationState []ConversationStateEntry

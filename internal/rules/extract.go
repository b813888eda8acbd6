// Package rules implements the deterministic rule validators: hot-phrase
// navigation intent detectors, yes/no, select, multiselect, and number
// validation. Lemma and sentiment extraction is an injected capability; the
// validators never perform language analysis themselves.
package rules

import "strings"

// Extraction is the language primitive output for one utterance: a lemma
// sequence and a sentiment scalar in [-1, 1].
type Extraction struct {
	Lemmas    []string
	Sentiment float64
}

// Extractor produces lemmas and sentiment for raw text. Hosts with a real
// NLU primitive (on-device tagger, remote service) implement this.
type Extractor interface {
	Extract(text string) Extraction
}

// SimpleExtractor is a fallback Extractor for hosts without a language
// primitive: words double as lemmas and sentiment is neutral.
type SimpleExtractor struct{}

// Extract lowercases and tokenizes text on whitespace, stripping surrounding
// punctuation from each token.
func (SimpleExtractor) Extract(text string) Extraction {
	var lemmas []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if word != "" {
			lemmas = append(lemmas, word)
		}
	}
	return Extraction{Lemmas: lemmas}
}

package rules

import (
	"regexp"
	"strconv"

	"github.com/veform/veform/internal/models"
)

// NumberReply is the verdict of the number validator.
type NumberReply struct {
	Valid  bool
	Number float64
}

var (
	decimalPattern = regexp.MustCompile(`\b(\d+\.?\d*)\b`)
	wordPattern    = regexp.MustCompile(`\b(none|zero|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|thousand|million|billion|trillion)\b`)
)

// numberReply scans the lemma sequence, then the raw input, for a decimal
// number or a spelled-out number word. The first match within the field's
// min/max bounds wins. Long inputs are rejected outright; the heuristic is
// designed for short utterances.
func numberReply(input string, lemmas []string, field *models.Field) NumberReply {
	if tooLong(input) {
		return NumberReply{}
	}
	for _, lemma := range lemmas {
		if match := decimalPattern.FindString(lemma); match != "" {
			if n, ok := parseNumber(match); ok && inBounds(n, field) {
				return NumberReply{Valid: true, Number: n}
			}
		}
		if match := wordPattern.FindString(lemma); match != "" {
			if n, ok := wordToNumber(match); ok && inBounds(n, field) {
				return NumberReply{Valid: true, Number: n}
			}
		}
	}
	match := decimalPattern.FindString(input)
	if match == "" {
		match = wordPattern.FindString(input)
	}
	if match != "" {
		if n, ok := parseNumber(match); ok && inBounds(n, field) {
			return NumberReply{Valid: true, Number: n}
		}
	}
	return NumberReply{}
}

func inBounds(n float64, field *models.Field) bool {
	if min := field.Validation.MinValue; min != nil && n < *min {
		return false
	}
	if max := field.Validation.MaxValue; max != nil && n > *max {
		return false
	}
	return true
}

// parseNumber converts decimal text or a number word to its value.
func parseNumber(text string) (float64, bool) {
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return n, true
	}
	return wordToNumber(text)
}

var numberWords = map[string]float64{
	"none":      0,
	"zero":      0,
	"one":       1,
	"two":       2,
	"three":     3,
	"four":      4,
	"five":      5,
	"six":       6,
	"seven":     7,
	"eight":     8,
	"nine":      9,
	"ten":       10,
	"eleven":    11,
	"twelve":    12,
	"thirteen":  13,
	"fourteen":  14,
	"fifteen":   15,
	"sixteen":   16,
	"seventeen": 17,
	"eighteen":  18,
	"nineteen":  19,
	"twenty":    20,
	"thirty":    30,
	"forty":     40,
	"fifty":     50,
	"sixty":     60,
	"seventy":   70,
	"eighty":    80,
	"ninety":    90,
	"hundred":   100,
	"thousand":  1000,
	"million":   1000000,
	"billion":   1000000000,
	"trillion":  1000000000000,
}

func wordToNumber(word string) (float64, bool) {
	n, ok := numberWords[word]
	return n, ok
}

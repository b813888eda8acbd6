package rules

// skipThreshold is the hit score above which the skip intent fires.
const skipThreshold = 0.5

// skipRequested detects a desire to skip the current question.
func skipRequested(lemmas []string, input string) bool {
	if tooLong(input) {
		return false
	}
	return hitScore(lemmas, input, hardSkipPhrases, softSkipWords) > skipThreshold
}

// hardSkipPhrases are matched as substrings of the raw input.
var hardSkipPhrases = []string{
	"skip this",
	"skip it",
	"skip question",
	"move on",
	"go next",
	"go on",
	"go to the next",
	"go to next",
	"different question",
	"another question",
	"won't answer",
	"pass on this",
	"ignore this",
	"ignore question",
	"ignore this question",
	"ignore this one",
	"next question",
	"next one",
	"come back to th",
	"come back later",
	"let's move on",
	"shall we move on",
	"onto the next",
	"following question",
	"following one",
	"can't answer",
	"no answer",
	"no comment",
	"i am done",
}

// softSkipWords are matched against the lemma sequence.
var softSkipWords = []string{
	"pass",
	"next",
	"skip",
	"ignore",
	"continue",
	"not now",
	"later",
	"forward",
	"move on",
	"move forward",
	"more",
	"i don't want",
	"i won't",
	"i can't",
	"go to",
}

package rules

// lastThreshold is the hit score above which the go-back intent fires.
const lastThreshold = 0.5

// lastRequested detects a desire to revisit the previous question.
func lastRequested(lemmas []string, input string) bool {
	if tooLong(input) {
		return false
	}
	return hitScore(lemmas, input, hardLastPhrases, softLastWords) > lastThreshold
}

var hardLastPhrases = []string{
	"go back",
	"to previous",
	"previous question",
	"last question",
	"go to the previous",
	"go to the last one",
	"back to previous",
	"back to last",
	"return to previous",
	"return to last",
	"go to prior",
	"prior question",
	"the previous one",
	"the last one",
	"show previous",
	"show last",
	"take me back",
	"go backwards",
	"move back",
	"step back",
	"previous one",
	"last one",
	"go to the one before",
	"the one before",
	"back one",
	"one back",
	"earlier question",
	"go to earlier",
	"show me the previous",
	"show me the last one",
}

var softLastWords = []string{
	"back",
	"previous",
	"last",
	"prior",
	"before",
	"earlier",
	"go back",
	"move back",
	"step back",
	"backwards",
	"backward",
	"last one",
	"previous one",
	"go previous",
}

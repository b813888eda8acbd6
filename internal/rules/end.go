package rules

// endThreshold is deliberately higher than the skip/go-back thresholds;
// ending the conversation is harder to undo than a mis-skip.
const endThreshold = 0.6

// endRequested detects a desire to end the conversation entirely.
func endRequested(lemmas []string, input string) bool {
	if tooLong(input) {
		return false
	}
	return hitScore(lemmas, input, hardEndPhrases, softEndWords) > endThreshold
}

var hardEndPhrases = []string{
	"end form",
	"end conversation",
	"stop conversation",
	"close conversation",
	"terminate conversation",
	"cancel conversation",
	"abort conversation",
	"end chat",
	"stop chat",
	"close chat",
	"exit chat",
	"quit chat",
	"cancel chat",
	"abort chat",
	"leave chat",
	"end session",
	"close session",
	"terminate session",
	"end this",
	"stop this",
	"i'm done",
	"im done",
	"i am done",
	"we're done",
	"were done",
	"we are done",
	"that's all",
	"thats all",
	"that is all",
	"no more questions",
	"cancel",
	"abort",
	"goodbye",
	"good bye",
	"bye bye",
}

var softEndWords = []string{
	"quit",
	"exit",
	"cancel",
}

package rules

// YesNoAnswer is the extracted side of a yes/no verdict.
type YesNoAnswer string

const (
	AnswerYes YesNoAnswer = "yes"
	AnswerNo  YesNoAnswer = "no"
)

// YesNoReply is the verdict of the yes/no validator. Valid is false when the
// input is ambiguous.
type YesNoReply struct {
	Valid  bool
	Answer YesNoAnswer
}

const (
	yesNoThreshold  = 0.6
	sentimentWeight = 0.3
)

// yesNoReply scores the four lexicons by lemma membership, shifts the scores
// by weighted sentiment toward the side matching its sign, and picks the
// winning side if it clears the threshold.
func yesNoReply(sentiment float64, lemmas []string) YesNoReply {
	strongYesHits := fuzzyMatch(lemmas, strongYes)
	weakYesHits := fuzzyMatch(lemmas, weakYes)
	strongNoHits := fuzzyMatch(lemmas, strongNo)
	weakNoHits := fuzzyMatch(lemmas, weakNo)

	total := strongYesHits + weakYesHits + strongNoHits + weakNoHits
	if total == 0 {
		return YesNoReply{}
	}

	sentimentScore := abs(sentiment) * sentimentWeight
	yesScore := float64(strongYesHits+weakYesHits) / float64(total)
	noScore := float64(strongNoHits+weakNoHits) / float64(total)
	if sentiment < 0 {
		noScore += sentimentScore
		yesScore -= sentimentScore
	} else {
		yesScore += sentimentScore
		noScore -= sentimentScore
	}

	if noScore > yesScore {
		if noScore > yesNoThreshold {
			return YesNoReply{Valid: true, Answer: AnswerNo}
		}
	} else if yesScore > yesNoThreshold {
		return YesNoReply{Valid: true, Answer: AnswerYes}
	}
	return YesNoReply{}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Strong affirmative responses.
var strongYes = []string{
	"yes",
	"yeah",
	"yep",
	"yup",
	"absolutely",
	"definitely",
	"certainly",
	"of course",
	"sure",
	"indeed",
	"correct",
	"affirmative",
	"agreed",
	"exactly",
	"precisely",
	"without a doubt",
	"for sure",
	"no doubt",
	"100%",
	"totally",
	"completely",
}

// Weak affirmative responses.
var weakYes = []string{
	"maybe",
	"perhaps",
	"possibly",
	"probably",
	"i think so",
	"i guess",
	"i suppose",
	"sort of",
	"kind of",
	"i guess so",
	"likely",
	"most likely",
	"i believe so",
	"somewhat",
	"more or less",
	"okay",
	"ok",
	"fine",
	"alright",
}

// Strong negative responses.
var strongNo = []string{
	"no",
	"nope",
	"nah",
	"absolutely not",
	"definitely not",
	"certainly not",
	"of course not",
	"never",
	"no way",
	"not at all",
	"negative",
	"incorrect",
	"not a chance",
	"no chance",
	"by no means",
	"not in the slightest",
	"under no circumstances",
	"out of the question",
	"impossible",
	"not possible",
}

// Weak negative responses.
var weakNo = []string{
	"probably not",
	"i don't think so",
	"unlikely",
	"i doubt it",
	"doubtful",
	"not really",
	"not exactly",
	"i'm not sure",
	"unsure",
	"not likely",
	"doesn't seem like it",
	"i wouldn't say so",
	"not particularly",
	"hardly",
	"barely",
}

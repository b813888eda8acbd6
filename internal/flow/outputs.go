package flow

import (
	"strings"

	"github.com/veform/veform/internal/models"
	"github.com/veform/veform/internal/util"
)

// Default phrase pools. A field's own prompt pools take precedence; these
// cover fields that declare none.
var (
	thinkingPool = []string{
		"One moment. ",
		"Let me see. ",
		"Let me think about that. ",
		"Hold on. ",
		"Just a second. ",
		"Got it, one moment. ",
		"Let me think. ",
		"Ok, let's see. ",
	}

	acknowledgeSuccessPool = []string{
		"Thanks for sharing that. ",
		"Thanks for letting me know. ",
		"Thanks for the information. ",
		"Thanks for the input. ",
		"That sounds good. ",
		"Alright that works. ",
		"Ok, that sounds right. ",
	}

	acknowledgeSkipPool = []string{
		"Alright, skipping that. ",
		"Ok, skipping that. ",
		"Alright, moving on. ",
		"Ok, moving on. ",
		"Alright, let's move on. ",
		"Ok, let's move on. ",
	}

	acknowledgeEndPool = []string{
		"Thanks for the conversation, thanks, goodbye. ",
		"Ok, lets end here then, goodbye. ",
		"Alright, ending the conversation, goodbye. ",
		"Ok, we can end the conversation, goodbye. ",
	}

	acknowledgeLastPool = []string{
		"Going back to the last question. ",
		"Ok, going back to the last question. ",
		"Alright, going back to the last question. ",
		"Ok, we can go back to the last question. ",
	}

	moveToPrefixPool = []string{
		"Ok, back to: ",
		"Alright, we are back at: ",
	}
)

const backfillNotice = "Looks like we have a required question we need to revisit. "

// behaviorOutputs joins the output behaviors declared for a behavior list,
// or "" when none are declared.
func behaviorOutputs(behaviors []models.FieldBehavior) string {
	var outputs []string
	for _, b := range behaviors {
		if b.Kind == models.BehaviorOutput {
			outputs = append(outputs, b.Output)
		}
	}
	return strings.Join(outputs, "\n")
}

// pickPhrase draws from the field pool, falling back to the default pool.
func pickPhrase(fieldPool, defaultPool []string) string {
	if len(fieldPool) > 0 {
		return util.PickRandom(fieldPool)
	}
	return util.PickRandom(defaultPool)
}

// responseOutput composes the acknowledgment spoken after an input resolves.
// Precedence: navigation flags, the selected option's output behaviors, then
// the valid/invalid answer events.
func responseOutput(field *models.Field, st *FieldState, historyLen int) string {
	switch {
	case st.Skip:
		if out := behaviorOutputs(field.Events.Behaviors(models.EventSkipRequested)); out != "" {
			return out
		}
		return pickPhrase(field.Prompts.AcknowledgeSkip, acknowledgeSkipPool)
	case st.Last:
		if historyLen == 0 {
			return "There is no last question to revisit, let's continue. "
		}
		if out := behaviorOutputs(field.Events.Behaviors(models.EventLastRequested)); out != "" {
			return out
		}
		return pickPhrase(field.Prompts.AcknowledgeLast, acknowledgeLastPool)
	case st.End:
		if out := behaviorOutputs(field.Events.Behaviors(models.EventEndRequested)); out != "" {
			return out
		}
		return pickPhrase(field.Prompts.AcknowledgeEnd, acknowledgeEndPool)
	case st.MoveToName != "":
		// spoken immediately before the target field's question
		return util.PickRandom(moveToPrefixPool)
	}

	if st.SelectOption != nil {
		if out := behaviorOutputs(st.SelectOption.Behaviors); out != "" {
			return out
		}
	}
	if st.Valid {
		endBehaviors := hasEndBehavior(field.Events.Behaviors(models.EventValidAnswer))
		if st.ValidYes {
			if out := behaviorOutputs(field.Events.Behaviors(models.EventValidYesAnswer)); out != "" {
				return out
			}
			endBehaviors = hasEndBehavior(field.Events.Behaviors(models.EventValidYesAnswer))
		}
		if st.ValidNo {
			if out := behaviorOutputs(field.Events.Behaviors(models.EventValidNoAnswer)); out != "" {
				return out
			}
			endBehaviors = hasEndBehavior(field.Events.Behaviors(models.EventValidNoAnswer))
		}
		if out := behaviorOutputs(field.Events.Behaviors(models.EventValidAnswer)); out != "" {
			return out
		}
		if endBehaviors {
			return pickPhrase(field.Prompts.AcknowledgeEnd, acknowledgeEndPool)
		}
		return pickPhrase(field.Prompts.AcknowledgeSuccess, acknowledgeSuccessPool)
	}
	if out := behaviorOutputs(field.Events.Behaviors(models.EventInvalidAnswer)); out != "" {
		return out
	}
	return pickPhrase(field.Prompts.Thinking, thinkingPool)
}

func hasEndBehavior(behaviors []models.FieldBehavior) bool {
	for _, b := range behaviors {
		if b.Kind == models.BehaviorEnd {
			return true
		}
	}
	return false
}

// fieldQuestion composes the question asked when a field becomes current.
// First visits use the initial-question event or the question pool; revisits
// use the revisit events or the move-to pool.
func fieldQuestion(field *models.Field, st *FieldState) string {
	if st.VisitCount == 0 {
		if out := behaviorOutputs(field.Events.Behaviors(models.EventInitialQuestion)); out != "" {
			return out
		}
		return util.PickRandom(field.Prompts.Question)
	}
	ev := models.EventRevisitAfterUnresolved
	if st.Valid {
		ev = models.EventRevisitAfterResolved
	}
	if out := behaviorOutputs(field.Events.Behaviors(ev)); out != "" {
		return out
	}
	return pickPhrase(field.Prompts.QuestionMoveTo, field.Prompts.Question)
}

// questionAppend enumerates the read-aloud option labels, when any are
// declared, for appending after the question.
func questionAppend(field *models.Field) string {
	var labels []string
	for _, opt := range field.Validation.SelectOptions {
		if opt.ReadAloud {
			labels = append(labels, opt.Label)
		}
	}
	if len(labels) == 0 {
		return ""
	}
	return " The options are: " + strings.Join(labels, ", ") + "."
}

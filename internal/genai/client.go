// Package genai resolves inputs the deterministic rules cannot: navigation
// intent detection and free-form answer validation through the OpenAI API.
// It also provides an in-process reply channel speaking the same protocol as
// the remote resolution service.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/veform/veform/internal/util"
)

// chatService is the minimal chat-completion surface, for test substitution.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion API for intent and validation
// resolution.
type Client struct {
	chat  chatService
	model openai.ChatModel
}

// NewClient initializes a client from the OPENAI_API_KEY environment
// variable. VEFORM_OPENAI_MODEL overrides the default chat model.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(apiKey))
	model := util.GetEnv("VEFORM_OPENAI_MODEL", openai.ChatModelGPT4oMini)
	return &Client{chat: &cli.Chat.Completions, model: model}, nil
}

// IntentVerdict is the model's navigation intent reading of one input.
type IntentVerdict struct {
	Skip       bool   `json:"skip"`
	Last       bool   `json:"last"`
	End        bool   `json:"end"`
	MoveToName string `json:"moveToName"`
}

const intentSystemPrompt = `You analyze one user utterance from a voice form conversation for navigation intent.
Respond with only a JSON object: {"skip": bool, "last": bool, "end": bool, "moveToName": string}.
"skip" means the user wants to skip the current question. "last" means they want to return to the previous question.
"end" means they want to stop the whole conversation. "moveToName" is the name of a question they asked to jump to, or "".
At most one intent should be set. When in doubt, set none.`

// DetectIntent asks the model whether the input carries a navigation intent.
func (c *Client) DetectIntent(ctx context.Context, question, input string) (IntentVerdict, error) {
	user := fmt.Sprintf("Question asked: %q\nUser said: %q", question, input)
	content, err := c.complete(ctx, intentSystemPrompt, user)
	if err != nil {
		return IntentVerdict{}, err
	}
	var verdict IntentVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &verdict); err != nil {
		return IntentVerdict{}, fmt.Errorf("decode intent verdict: %w", err)
	}
	return verdict, nil
}

// ValidationVerdict is the model's reading of one answer: the validity
// fields plus a short conversational reply to speak back.
type ValidationVerdict struct {
	Valid         bool     `json:"valid"`
	ValidYes      bool     `json:"validYes"`
	ValidNo       bool     `json:"validNo"`
	Number        *float64 `json:"number"`
	SelectOption  string   `json:"selectOption"`
	SelectOptions []string `json:"selectOptions"`
	Reply         string   `json:"reply"`
}

const validationSystemPrompt = `You validate one user answer in a voice form conversation.
Respond with only a JSON object: {"valid": bool, "validYes": bool, "validNo": bool, "number": number or null, "selectOption": string, "selectOptions": [string], "reply": string}.
"valid" means the answer satisfies the question. For yes/no questions set validYes or validNo. For numeric questions
set "number" to the extracted value. For choice questions set "selectOption" (or "selectOptions") to the matching
option values from the provided list. "reply" is one or two short spoken sentences acknowledging or clarifying.
If the answer does not address the question, set valid to false and ask for clarification in "reply".`

// ValidateAnswer asks the model to validate an answer and produce a spoken
// reply. Prior exchanges for the field provide context.
func (c *Client) ValidateAnswer(ctx context.Context, question, input string, history []string, options []string) (ValidationVerdict, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question asked: %q\nUser said: %q\n", question, input)
	if len(options) > 0 {
		fmt.Fprintf(&b, "Option values: %s\n", strings.Join(options, ", "))
	}
	for _, line := range history {
		fmt.Fprintf(&b, "Earlier: %s\n", line)
	}
	content, err := c.complete(ctx, validationSystemPrompt, b.String())
	if err != nil {
		return ValidationVerdict{}, err
	}
	var verdict ValidationVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &verdict); err != nil {
		return ValidationVerdict{}, fmt.Errorf("decode validation verdict: %w", err)
	}
	return verdict, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips any prose the model wrapped around the JSON object.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}

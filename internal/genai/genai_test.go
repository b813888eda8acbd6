package genai

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/veform/veform/internal/models"
)

// mockChatService returns canned completions for testing without API calls.
type mockChatService struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.content}},
		},
	}, nil
}

func newMockClient(content string, err error) (*Client, *mockChatService) {
	mock := &mockChatService{content: content, err: err}
	return &Client{chat: mock, model: openai.ChatModelGPT4oMini}, mock
}

func TestDetectIntent(t *testing.T) {
	client, _ := newMockClient(`{"skip": true, "last": false, "end": false, "moveToName": ""}`, nil)
	verdict, err := client.DetectIntent(context.Background(), "How are you?", "can we not do this one")
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Skip || verdict.Last || verdict.End || verdict.MoveToName != "" {
		t.Errorf("verdict = %+v, want skip only", verdict)
	}
}

func TestDetectIntentStripsWrappingProse(t *testing.T) {
	client, _ := newMockClient("Sure! Here is the result:\n{\"skip\": false, \"last\": true, \"end\": false, \"moveToName\": \"\"}\nHope that helps.", nil)
	verdict, err := client.DetectIntent(context.Background(), "q", "go back")
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Last {
		t.Errorf("verdict = %+v, want last", verdict)
	}
}

func TestValidateAnswer(t *testing.T) {
	client, _ := newMockClient(`{"valid": true, "validYes": true, "reply": "Great, a solid yes."}`, nil)
	verdict, err := client.ValidateAnswer(context.Background(), "Did you sleep well?", "like a rock", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Valid || !verdict.ValidYes || verdict.Reply == "" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestValidateAnswerPropagatesError(t *testing.T) {
	client, _ := newMockClient("", errors.New("rate limited"))
	if _, err := client.ValidateAnswer(context.Background(), "q", "a", nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func receive(t *testing.T, ch <-chan models.ServerMessage) models.ServerMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return models.ServerMessage{}
}

func TestResolverChannelHandshake(t *testing.T) {
	client, _ := newMockClient("{}", nil)
	r := NewResolverChannel(client)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	msg := receive(t, r.Messages())
	if msg.Type != models.ServerSessionID || msg.Data == "" {
		t.Errorf("handshake = %+v", msg)
	}
}

func TestResolverChannelIntentRequest(t *testing.T) {
	client, _ := newMockClient(`{"skip": false, "last": false, "end": true, "moveToName": ""}`, nil)
	r := NewResolverChannel(client)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()
	receive(t, r.Messages()) // session-id

	payload, _ := json.Marshal(models.IntentRequest{FieldName: "mood", Question: "How?", Input: "we are done here"})
	if err := r.Send(context.Background(), models.Envelope{Type: models.ClientIntentRequest, Data: payload}); err != nil {
		t.Fatal(err)
	}

	got := map[models.ServerMessageType]models.ServerMessage{}
	for i := 0; i < 4; i++ {
		msg := receive(t, r.Messages())
		if msg.FieldName != "mood" {
			t.Errorf("verdict for field %q, want mood", msg.FieldName)
		}
		got[msg.Type] = msg
	}
	if end, ok := got[models.ServerIntentEnd]; !ok || end.End == nil || !*end.End {
		t.Errorf("end verdict = %+v", got[models.ServerIntentEnd])
	}
	if skip, ok := got[models.ServerIntentSkip]; !ok || skip.Skip == nil || *skip.Skip {
		t.Errorf("skip verdict = %+v", got[models.ServerIntentSkip])
	}
}

func TestResolverChannelValidationRequest(t *testing.T) {
	client, _ := newMockClient(`{"valid": true, "validYes": true, "reply": "Got it. Sleep matters!"}`, nil)
	r := NewResolverChannel(client)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()
	receive(t, r.Messages()) // session-id

	payload, _ := json.Marshal(models.ValidationRequest{FieldName: "slept_well", Question: "Did you sleep well?", Input: "like a rock"})
	if err := r.Send(context.Background(), models.Envelope{Type: models.ClientValidationRequest, Data: payload}); err != nil {
		t.Fatal(err)
	}

	if msg := receive(t, r.Messages()); msg.Type != models.ServerReplyStart {
		t.Fatalf("first message = %+v, want reply-start", msg)
	}
	var sawChunk bool
	for {
		msg := receive(t, r.Messages())
		if msg.Type == models.ServerReplyChunk {
			sawChunk = true
			continue
		}
		if msg.Type != models.ServerReplyEnd {
			t.Fatalf("unexpected message %+v", msg)
		}
		if msg.Valid == nil || !*msg.Valid || msg.ValidYes == nil || !*msg.ValidYes {
			t.Errorf("verdict = %+v", msg)
		}
		break
	}
	if !sawChunk {
		t.Error("no reply chunks streamed")
	}
}

func TestResolverChannelFailureResolvesInvalid(t *testing.T) {
	client, _ := newMockClient("", errors.New("api down"))
	r := NewResolverChannel(client)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()
	receive(t, r.Messages()) // session-id

	payload, _ := json.Marshal(models.ValidationRequest{FieldName: "mood", Question: "q", Input: "a"})
	if err := r.Send(context.Background(), models.Envelope{Type: models.ClientValidationRequest, Data: payload}); err != nil {
		t.Fatal(err)
	}
	if msg := receive(t, r.Messages()); msg.Type != models.ServerReplyStart {
		t.Fatalf("first message = %+v, want reply-start", msg)
	}
	end := receive(t, r.Messages())
	if end.Type != models.ServerReplyEnd || end.Valid == nil || *end.Valid {
		t.Errorf("failure verdict = %+v, want invalid reply-end", end)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Got it. Sleep matters! Rest up")
	if len(got) != 3 {
		t.Fatalf("splitSentences = %q, want 3 parts", got)
	}
	if got[0] != "Got it. " || got[1] != "Sleep matters! " || got[2] != "Rest up" {
		t.Errorf("splitSentences = %q", got)
	}
}

func TestNewClientReadsModelFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("VEFORM_OPENAI_MODEL", "gpt-4o")
	client, err := NewClient()
	if err != nil {
		t.Fatal(err)
	}
	if client.model != "gpt-4o" {
		t.Errorf("model = %s, want gpt-4o", client.model)
	}

	t.Setenv("VEFORM_OPENAI_MODEL", "")
	client, err = NewClient()
	if err != nil {
		t.Fatal(err)
	}
	if client.model != openai.ChatModelGPT4oMini {
		t.Errorf("default model = %s", client.model)
	}
}

func TestResolverChannelStopDuringResolution(t *testing.T) {
	client, _ := newMockClient("", errors.New("model offline"))
	r := NewResolverChannel(client)
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// more verdicts than the stream buffers, with nothing reading; the
	// emitters back up and must unblock when the channel stops
	payload, _ := json.Marshal(models.IntentRequest{FieldName: "mood", Question: "q", Input: "hmm"})
	for i := 0; i < 10; i++ {
		if err := r.Send(context.Background(), models.Envelope{Type: models.ClientIntentRequest, Data: payload}); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	drained := make(chan struct{})
	go func() {
		for range r.Messages() {
		}
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("message stream did not close after Stop")
	}

	if err := r.Stop(); err != nil {
		t.Errorf("second Stop returned %v", err)
	}
	if err := r.Send(context.Background(), models.Envelope{Type: models.ClientIntentRequest, Data: payload}); err == nil {
		t.Error("Send after Stop should fail")
	}
}

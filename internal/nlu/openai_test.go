package nlu

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type stubCompleter struct {
	reply   string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.reply}},
		},
	}, nil
}

func TestOpenAIResolveIntentParsesJSON(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n{\"intent\": \"book\", \"confidence\": 0.9, \"reasoning\": \"wants appointment\"}\n```"}
	c := NewOpenAIClient(stub, OpenAIConfig{Model: "gpt-4o"})

	res, err := c.ResolveIntent(context.Background(), "book me in", Context{PatientID: "PAB1234", LastIntent: IntentGreeting})
	if err != nil {
		t.Fatalf("ResolveIntent: %v", err)
	}
	if res.Intent != IntentBook || res.Confidence != 0.9 {
		t.Errorf("unexpected resolution %+v", res)
	}
	if stub.lastReq.Temperature != 0.1 {
		t.Errorf("intent resolution should run cold, got %f", stub.lastReq.Temperature)
	}
}

func TestOpenAIDefaultsModel(t *testing.T) {
	stub := &stubCompleter{reply: `{"intent": "greeting", "confidence": 1, "reasoning": "hi"}`}
	c := NewOpenAIClient(stub, OpenAIConfig{})

	if _, err := c.ResolveIntent(context.Background(), "hello", Context{}); err != nil {
		t.Fatalf("ResolveIntent: %v", err)
	}
	if stub.lastReq.Model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", stub.lastReq.Model)
	}
}

func TestOpenAIResolveIntentRejectsUnknownIntent(t *testing.T) {
	stub := &stubCompleter{reply: `{"intent": "escalate", "confidence": 1}`}
	c := NewOpenAIClient(stub, OpenAIConfig{})

	if _, err := c.ResolveIntent(context.Background(), "hm", Context{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for unknown intent, got %v", err)
	}
}

func TestOpenAIExtractFields(t *testing.T) {
	stub := &stubCompleter{reply: `{"patient_id": "PAB1234", "doctor_name": null, "date": "tomorrow", "time": null, "specialty": null}`}
	c := NewOpenAIClient(stub, OpenAIConfig{})

	fields, err := c.ExtractFields(context.Background(), "PAB1234, tomorrow please")
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if fields.PatientID == nil || *fields.PatientID != "PAB1234" {
		t.Errorf("patient id not extracted: %+v", fields)
	}
	if fields.DoctorName != nil {
		t.Errorf("null field should stay nil: %+v", fields)
	}
}

func TestOpenAIErrorsWrapUnavailable(t *testing.T) {
	stub := &stubCompleter{err: errors.New("rate limited")}
	c := NewOpenAIClient(stub, OpenAIConfig{})

	if _, err := c.ExtractFields(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.GenerateReply(context.Background(), Prompt{Task: TaskQuery}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

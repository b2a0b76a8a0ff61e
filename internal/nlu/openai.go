package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the slice of the OpenAI client the provider needs;
// narrowed for test stubs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// defaultModel is spelled out rather than taken from the client library,
// whose pinned release predates the gpt-4o constants.
const defaultModel = "gpt-4o"

// OpenAIConfig tunes the OpenAI-backed capability provider.
type OpenAIConfig struct {
	Model     string
	MaxTokens int
}

// OpenAIClient implements the three capabilities against the OpenAI chat
// completion API with JSON-constrained prompts.
type OpenAIClient struct {
	client ChatCompleter
	model  string
	max    int
}

// NewOpenAIClient wraps an OpenAI client. An empty model falls back to gpt-4o.
func NewOpenAIClient(client ChatCompleter, cfg OpenAIConfig) *OpenAIClient {
	if client == nil {
		panic("nlu: chat completer required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	max := cfg.MaxTokens
	if max <= 0 {
		max = 300
	}
	return &OpenAIClient{client: client, model: model, max: max}
}

const intentSystemPrompt = `You are analyzing user intent for an appointment scheduling system.

Current context:
%s
Analyze the user's message and determine their intent:
- book: Schedule a new appointment
- reschedule: Change existing appointment
- cancel: Cancel an appointment
- query: Ask about availability or information
- provide_info: User is providing requested information (name, date, etc.)
- greeting: General greeting or conversation
- unclear: Cannot determine intent

IMPORTANT: If the user is answering a question or providing information in response to your previous request, the intent is likely "provide_info".

Respond with ONLY a JSON object:
{"intent": "book|reschedule|cancel|query|provide_info|greeting|unclear", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`

// ResolveIntent asks the model to classify the message given the running
// conversation context.
func (c *OpenAIClient) ResolveIntent(ctx context.Context, message string, conv Context) (Resolution, error) {
	system := fmt.Sprintf(intentSystemPrompt, describeContext(conv))
	text, err := c.complete(ctx, system, message, 0.1)
	if err != nil {
		return Resolution{}, err
	}

	var res Resolution
	if err := json.Unmarshal([]byte(stripFences(text)), &res); err != nil {
		return Resolution{}, fmt.Errorf("decode intent %q: %v: %w", text, err, ErrUnavailable)
	}
	if !ValidIntent(string(res.Intent)) {
		return Resolution{}, fmt.Errorf("unknown intent %q: %w", res.Intent, ErrUnavailable)
	}
	return res, nil
}

const extractionSystemPrompt = `Extract information from the user's message. Return JSON with extracted info:
{
    "patient_id": "patient ID if mentioned (format: P + 2 letters + 4 numbers, e.g., PVY3830), or null",
    "doctor_name": "doctor name if mentioned, or null",
    "date": "date if mentioned, or null",
    "time": "time if mentioned, or null",
    "specialty": "medical specialty if mentioned, or null"
}`

// ExtractFields asks the model for the structured booking fields.
func (c *OpenAIClient) ExtractFields(ctx context.Context, message string) (Fields, error) {
	text, err := c.complete(ctx, extractionSystemPrompt, message, 0.1)
	if err != nil {
		return Fields{}, err
	}

	var fields Fields
	if err := json.Unmarshal([]byte(stripFences(text)), &fields); err != nil {
		return Fields{}, fmt.Errorf("decode fields %q: %v: %w", text, err, ErrUnavailable)
	}
	return fields, nil
}

var replyGuidance = map[ReplyTask]string{
	TaskQuery:      "Addresses their availability question naturally, presents the information helpfully, and offers to book if appropriate.",
	TaskReschedule: "Acknowledges their rescheduling need with empathy and clearly communicates the result.",
	TaskCancel:     "Shows understanding for their need to cancel, clearly confirms the status, and offers help with future appointments.",
}

// GenerateReply asks the model to phrase a worker outcome conversationally.
func (c *OpenAIClient) GenerateReply(ctx context.Context, prompt Prompt) (string, error) {
	var b strings.Builder
	b.WriteString("You are a helpful medical appointment scheduling assistant. Generate a response about an appointment ")
	b.WriteString(string(prompt.Task))
	b.WriteString(" outcome.\n\n")
	if prompt.PatientName != "" {
		fmt.Fprintf(&b, "Patient name: %s\n", prompt.PatientName)
	}
	fmt.Fprintf(&b, "Operation succeeded: %t\nResult: %s\n\n", prompt.Success, prompt.Outcome)
	if len(prompt.Recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, msg := range prompt.Recent {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(msg.Role), msg.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Generate a response that %s\n", replyGuidance[prompt.Task])
	b.WriteString("Sounds friendly and professional, not robotic. Keep it conversational (2-3 sentences max).")

	return c.complete(ctx, b.String(), prompt.UserMessage, 0.7)
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   c.max,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, ErrUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion: %w", ErrUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// describeContext renders the conversational context block of the intent
// prompt, mirroring what the resolver was trained against.
func describeContext(conv Context) string {
	var b strings.Builder
	if conv.PatientID != "" {
		fmt.Fprintf(&b, "Patient ID: %s\n", conv.PatientID)
	}
	if conv.DoctorName != "" || conv.Date != "" || conv.Time != "" || conv.Specialty != "" {
		b.WriteString("Current booking in progress:\n")
		writeField(&b, "doctor_name", conv.DoctorName)
		writeField(&b, "date", conv.Date)
		writeField(&b, "time", conv.Time)
		writeField(&b, "specialty", conv.Specialty)
	}
	if conv.LastIntent != "" {
		fmt.Fprintf(&b, "Last intent: %s\n", conv.LastIntent)
	}
	if len(conv.Recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range conv.Recent {
			fmt.Fprintf(&b, "%s: %s\n", roleLabel(msg.Role), msg.Content)
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "  %s: %s\n", name, value)
	}
}

func roleLabel(role string) string {
	if role == "user" {
		return "User"
	}
	return "Assistant"
}

// stripFences removes markdown code fences models sometimes wrap JSON in.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}

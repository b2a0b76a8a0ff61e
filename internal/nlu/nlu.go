// Package nlu defines the language-understanding capabilities the assistant
// consumes: intent resolution, structured field extraction, and conversational
// reply generation. The capabilities are interfaces so the core stays testable
// without a network dependency; an OpenAI-backed implementation and a
// deterministic keyword/template implementation both satisfy them.
package nlu

import (
	"context"
	"errors"
)

// ErrUnavailable reports an upstream capability failure (network, quota,
// malformed model output). Callers fall back to deterministic behavior.
var ErrUnavailable = errors.New("nlu: capability unavailable")

// Intent is one of the seven conversational intents.
type Intent string

const (
	IntentBook        Intent = "book"
	IntentReschedule  Intent = "reschedule"
	IntentCancel      Intent = "cancel"
	IntentQuery       Intent = "query"
	IntentProvideInfo Intent = "provide_info"
	IntentGreeting    Intent = "greeting"
	IntentUnclear     Intent = "unclear"
)

// Resolution is the outcome of intent analysis.
type Resolution struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Message is a prior conversation turn supplied as context.
type Message struct {
	Role    string
	Content string
}

// Context carries the conversational state that informs intent resolution.
type Context struct {
	PatientID  string
	DoctorName string
	Date       string
	Time       string
	Specialty  string
	LastIntent Intent
	Recent     []Message
}

// Fields are the structured values extracted from one message. Nil means the
// message did not mention the field.
type Fields struct {
	PatientID  *string `json:"patient_id"`
	DoctorName *string `json:"doctor_name"`
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	Specialty  *string `json:"specialty"`
}

// ReplyTask names the flavor of conversational phrasing requested.
type ReplyTask string

const (
	TaskQuery      ReplyTask = "query"
	TaskReschedule ReplyTask = "reschedule"
	TaskCancel     ReplyTask = "cancel"
)

// Prompt carries everything a reply generator needs to phrase an outcome.
type Prompt struct {
	Task        ReplyTask
	PatientName string
	Success     bool
	Outcome     string // the worker's structured outcome message
	UserMessage string
	Recent      []Message
}

// IntentResolver classifies a message into one of the seven intents.
type IntentResolver interface {
	ResolveIntent(ctx context.Context, message string, conv Context) (Resolution, error)
}

// FieldExtractor pulls structured booking fields out of a raw message.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, message string) (Fields, error)
}

// ReplyGenerator phrases a worker outcome conversationally.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, prompt Prompt) (string, error)
}

// Capabilities bundles the three language capabilities one provider offers.
type Capabilities interface {
	IntentResolver
	FieldExtractor
	ReplyGenerator
}

// ValidIntent reports whether s names a known intent.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentBook, IntentReschedule, IntentCancel, IntentQuery,
		IntentProvideInfo, IntentGreeting, IntentUnclear:
		return true
	}
	return false
}

package nlu

import (
	"context"
	"regexp"
	"strings"
)

// Deterministic implements all three capabilities with keyword matching,
// regular expressions, and fixed templates. It is the offline fallback and
// the default when no model is configured.
type Deterministic struct{}

// NewDeterministic returns the rule-based capability provider.
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

var (
	bookKeywords     = []string{"book", "schedule", "appointment", "see doctor"}
	queryKeywords    = []string{"available", "when", "slots", "times"}
	greetingKeywords = []string{"hello", "hi", "hey", "good morning"}

	rescheduleKeywords = []string{"reschedule", "move my", "change my"}
	cancelKeywords     = []string{"cancel"}
)

// ResolveIntent classifies by keyword sets. Anything unmatched is treated as
// provide_info so an in-progress transaction keeps collecting fields.
func (d *Deterministic) ResolveIntent(_ context.Context, message string, _ Context) (Resolution, error) {
	lower := strings.ToLower(message)

	switch {
	case containsAny(lower, rescheduleKeywords):
		return Resolution{Intent: IntentReschedule, Confidence: 0.7, Reasoning: "keyword match"}, nil
	case containsAny(lower, cancelKeywords):
		return Resolution{Intent: IntentCancel, Confidence: 0.7, Reasoning: "keyword match"}, nil
	case containsAny(lower, bookKeywords):
		return Resolution{Intent: IntentBook, Confidence: 0.7, Reasoning: "keyword match"}, nil
	case containsAny(lower, queryKeywords):
		return Resolution{Intent: IntentQuery, Confidence: 0.7, Reasoning: "keyword match"}, nil
	case containsAny(lower, greetingKeywords):
		return Resolution{Intent: IntentGreeting, Confidence: 0.8, Reasoning: "keyword match"}, nil
	}
	return Resolution{Intent: IntentProvideInfo, Confidence: 0.5, Reasoning: "default fallback"}, nil
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var (
	patientTokenRE = regexp.MustCompile(`(?i)\b(P[A-Z]{2}\d{4})\b`)
	doctorNameRE   = regexp.MustCompile(`(?i)\bdr\.?\s+([a-z]+)`)
	isoDateRE      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	relativeDayRE  = regexp.MustCompile(`(?i)\b(today|tomorrow|(?:next|this)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`)
	clockPhraseRE  = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:am|pm)|\d{1,2}:\d{2}|noon|morning|afternoon|evening)\b`)
	specialtyRE    = regexp.MustCompile(`(?i)\b(dermatolog\w*|pediatric\w*|endocrinolog\w*|general medicine)\b`)
)

// ExtractFields pulls raw field phrases out of the message. Values stay
// unnormalized; date/time parsing happens in the workers.
func (d *Deterministic) ExtractFields(_ context.Context, message string) (Fields, error) {
	var fields Fields

	if m := patientTokenRE.FindStringSubmatch(message); m != nil {
		token := strings.ToUpper(m[1])
		fields.PatientID = &token
	}
	if m := doctorNameRE.FindStringSubmatch(message); m != nil {
		name := "Dr. " + capitalize(m[1])
		fields.DoctorName = &name
	}
	if m := isoDateRE.FindString(message); m != "" {
		fields.Date = &m
	} else if m := relativeDayRE.FindString(message); m != "" {
		lower := strings.ToLower(m)
		fields.Date = &lower
	}
	if m := clockPhraseRE.FindString(message); m != "" {
		lower := strings.ToLower(m)
		fields.Time = &lower
	}
	if m := specialtyRE.FindString(message); m != "" {
		lower := strings.ToLower(m)
		fields.Specialty = &lower
	}
	return fields, nil
}

func capitalize(s string) string {
	lower := strings.ToLower(s)
	if lower == "" {
		return lower
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// GenerateReply assembles the fixed template for the task. The worker's
// outcome message always carries the substance.
func (d *Deterministic) GenerateReply(_ context.Context, prompt Prompt) (string, error) {
	switch prompt.Task {
	case TaskReschedule:
		if prompt.Success {
			return "I've successfully rescheduled your appointment. " + prompt.Outcome, nil
		}
		return "I wasn't able to reschedule your appointment. " + prompt.Outcome, nil
	case TaskCancel:
		if prompt.Success {
			return "I understand, and I've cancelled your appointment. " + prompt.Outcome, nil
		}
		return "I wasn't able to cancel your appointment. " + prompt.Outcome, nil
	default:
		return prompt.Outcome, nil
	}
}

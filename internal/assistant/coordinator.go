package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-concierge/internal/nlu"
	"github.com/wolfman30/clinic-concierge/internal/session"
)

var tracer = otel.Tracer("concierge.internal.assistant")

// recoveryMessage is the fixed apology for a turn that failed unexpectedly.
const recoveryMessage = "I apologize, I'm having some technical difficulties. Let me help you in a different way. What would you like to do with your appointment?"

// fieldQuestions prompt for the first missing booking field, in priority
// order patient_id, doctor_name, date, time.
var requiredBookingFields = []string{"patient_id", "doctor_name", "date", "time"}

var fieldQuestions = map[string]string{
	"patient_id":  "I need your patient ID to schedule your appointment. Your patient ID is a 7-character code that starts with 'P' followed by letters and numbers (like PVY3830). What's your patient ID?",
	"doctor_name": "Which doctor would you like to see? We have Dr. Adams (General Medicine), Dr. Baker (Pediatrics), Dr. Clark (Dermatology), and Dr. Davis (Endocrinology).",
	"date":        "What date works for you? You can say something like 'tomorrow', 'next Monday', or a specific date.",
	"time":        "What time would you prefer? You can say 'morning', 'afternoon', or a specific time like '2 PM'.",
}

// ProcessTurn runs one conversation turn: record the message, resolve intent,
// extract and merge fields, dispatch to at most one worker, and phrase the
// reply. A panic or unexpected failure inside the turn degrades to a fixed
// apology rather than surfacing internals.
func (a *Assistant) ProcessTurn(ctx context.Context, sessionID, message string) Result {
	ctx, span := tracer.Start(ctx, "assistant.process_turn")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.session_id", sessionID))

	start := a.now()
	a.sessions.AddMessage(sessionID, session.RoleUser, message)

	result := a.runTurn(ctx, sessionID, message)
	result.SessionID = sessionID

	a.sessions.AddMessage(sessionID, session.RoleAssistant, result.Message)

	span.SetAttributes(
		attribute.String("concierge.intent", result.Intent),
		attribute.Bool("concierge.success", result.Success),
	)
	a.metrics.ObserveTurn(result.Intent, result.Success, a.now().Sub(start).Seconds())
	return result
}

// runTurn is the fallible inner pipeline; ProcessTurn owns session bookkeeping
// and recovery.
func (a *Assistant) runTurn(ctx context.Context, sessionID, message string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("turn panicked", "session_id", sessionID, "panic", fmt.Sprint(r))
			result = Result{
				Message:    recoveryMessage,
				Diagnostic: fmt.Sprint(r),
			}
		}
	}()

	intent := a.resolveIntent(ctx, sessionID, message)

	// Sticky intent: an information-providing turn does not reset an active
	// book/reschedule/cancel transaction.
	last := nlu.Intent(a.sessions.LastIntent(sessionID))
	if intent == nlu.IntentProvideInfo && transactional(last) {
		// keep the stored intent
	} else {
		a.sessions.SetLastIntent(sessionID, string(intent))
	}

	a.absorbFields(ctx, sessionID, message)

	switch {
	case intent == nlu.IntentGreeting:
		return a.handleGreeting(sessionID)
	case intent == nlu.IntentBook,
		intent == nlu.IntentProvideInfo && last == nlu.IntentBook:
		return a.handleBooking(sessionID)
	case intent == nlu.IntentQuery:
		return a.handleQuery(ctx, sessionID, message)
	case intent == nlu.IntentReschedule,
		intent == nlu.IntentProvideInfo && last == nlu.IntentReschedule:
		return a.handleReschedule(ctx, sessionID, message)
	case intent == nlu.IntentCancel,
		intent == nlu.IntentProvideInfo && last == nlu.IntentCancel:
		return a.handleCancellation(ctx, sessionID, message)
	case intent == nlu.IntentProvideInfo:
		return Result{
			Success: true,
			Message: "Thank you for the information! How can I help you with your appointment?",
			Intent:  string(nlu.IntentProvideInfo),
		}
	default:
		return a.handleUnclear(sessionID)
	}
}

func transactional(intent nlu.Intent) bool {
	switch intent {
	case nlu.IntentBook, nlu.IntentReschedule, nlu.IntentCancel:
		return true
	}
	return false
}

// resolveIntent classifies the message with conversational context. Failures
// degrade to provide_info so an active transaction keeps moving.
func (a *Assistant) resolveIntent(ctx context.Context, sessionID, message string) nlu.Intent {
	res, err := a.caps.ResolveIntent(ctx, message, a.conversationContext(sessionID, 4))
	if err != nil {
		a.logger.Warn("intent resolution failed", "session_id", sessionID, "error", err)
		return nlu.IntentProvideInfo
	}
	return res.Intent
}

// absorbFields extracts structured fields from the message and merges them
// into session state. Extraction is best effort; failures are swallowed.
func (a *Assistant) absorbFields(ctx context.Context, sessionID, message string) {
	fields, err := a.caps.ExtractFields(ctx, message)
	if err != nil {
		a.logger.Debug("field extraction failed", "session_id", sessionID, "error", err)
		return
	}
	if fields.PatientID != nil {
		a.sessions.SetPatientID(sessionID, *fields.PatientID)
	}
	a.sessions.MergeBooking(sessionID, session.PartialBooking{
		DoctorName: fields.DoctorName,
		Date:       fields.Date,
		Time:       fields.Time,
		Specialty:  fields.Specialty,
	})
}

func (a *Assistant) conversationContext(sessionID string, recentN int) nlu.Context {
	conv := nlu.Context{LastIntent: nlu.Intent(a.sessions.LastIntent(sessionID))}
	if pid, ok := a.sessions.PatientID(sessionID); ok {
		conv.PatientID = pid
	}
	booking := a.sessions.Booking(sessionID)
	conv.DoctorName = deref(booking.DoctorName)
	conv.Date = deref(booking.Date)
	conv.Time = deref(booking.Time)
	conv.Specialty = deref(booking.Specialty)
	for _, msg := range a.sessions.RecentMessages(sessionID, recentN) {
		conv.Recent = append(conv.Recent, nlu.Message{Role: msg.Role, Content: msg.Content})
	}
	return conv
}

func (a *Assistant) handleGreeting(sessionID string) Result {
	message := "Hello! I'm your appointment scheduling assistant. I can help you book appointments, check availability, reschedule, or cancel appointments. What would you like to do?"
	if name := a.patientName(sessionID); name != "" {
		message = fmt.Sprintf("Hello %s! How can I help you with your appointment today?", name)
	}
	return Result{Success: true, Message: message, Intent: string(nlu.IntentGreeting)}
}

func (a *Assistant) handleUnclear(sessionID string) Result {
	message := "I'd be happy to help you with your appointment. Are you looking to book a new appointment, reschedule an existing one, cancel an appointment, or check available times?"
	if name := a.patientName(sessionID); name != "" {
		message = fmt.Sprintf("I want to make sure I help you correctly, %s. Are you looking to book a new appointment, reschedule an existing one, cancel an appointment, or check available times?", name)
	}
	return Result{Success: true, Message: message, Intent: string(nlu.IntentUnclear)}
}

// handleBooking gathers the four required fields from session state. If any
// are missing it asks for the first one in priority order; if complete it
// hands off to the scheduling worker.
func (a *Assistant) handleBooking(sessionID string) Result {
	req := a.bookingRequest(sessionID)

	var missing []string
	for _, field := range requiredBookingFields {
		if a.bookingFieldValue(req, field) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Result{
			Message:       a.missingFieldPrompt(req, missing),
			Intent:        string(nlu.IntentBook),
			MissingFields: missing,
		}
	}

	outcome := a.scheduling.book(req)
	if !outcome.Success {
		return Result{
			Message: fmt.Sprintf("I wasn't able to complete your booking. %s Would you like to try a different time or date?", outcome.Message),
			Intent:  string(nlu.IntentBook),
		}
	}

	a.sessions.ClearBooking(sessionID)
	return Result{
		Success: true,
		Message: fmt.Sprintf("Perfect! I've successfully booked your appointment. %s", outcome.Message),
		Intent:  string(nlu.IntentBook),
		Booking: &outcome,
	}
}

func (a *Assistant) bookingRequest(sessionID string) BookingRequest {
	req := BookingRequest{}
	if pid, ok := a.sessions.PatientID(sessionID); ok {
		req.PatientID = pid
	}
	booking := a.sessions.Booking(sessionID)
	req.DoctorName = deref(booking.DoctorName)
	req.Specialty = deref(booking.Specialty)
	req.Date = deref(booking.Date)
	req.Time = deref(booking.Time)
	return req
}

func (a *Assistant) bookingFieldValue(req BookingRequest, field string) string {
	switch field {
	case "patient_id":
		return req.PatientID
	case "doctor_name":
		return req.DoctorName
	case "date":
		return req.Date
	case "time":
		return req.Time
	}
	return ""
}

// missingFieldPrompt restates what is already known, then asks for the first
// missing field.
func (a *Assistant) missingFieldPrompt(req BookingRequest, missing []string) string {
	var confirmed []string
	if req.PatientID != "" {
		display := req.PatientID
		if p, ok := a.store.GetPatientByID(req.PatientID); ok {
			display = p.Name
		}
		confirmed = append(confirmed, "Patient: "+display)
	}
	if req.DoctorName != "" {
		confirmed = append(confirmed, "Doctor: "+req.DoctorName)
	}
	if req.Date != "" {
		confirmed = append(confirmed, "Date: "+req.Date)
	}
	if req.Time != "" {
		confirmed = append(confirmed, "Time: "+req.Time)
	}

	prompt := fieldQuestions[missing[0]]
	if len(confirmed) == 0 {
		return prompt
	}
	return "Let me confirm what I have so far: " + strings.Join(confirmed, ", ") + ". " + prompt
}

func (a *Assistant) handleQuery(ctx context.Context, sessionID, message string) Result {
	booking := a.sessions.Booking(sessionID)
	outcome := a.query.availability(QueryRequest{
		DoctorName:     deref(booking.DoctorName),
		Specialty:      deref(booking.Specialty),
		DatePreference: deref(booking.Date),
	})

	reply := a.phrase(ctx, sessionID, nlu.Prompt{
		Task:        nlu.TaskQuery,
		PatientName: a.patientName(sessionID),
		Success:     outcome.Success,
		Outcome:     outcome.Message,
		UserMessage: message,
	}, outcome.Message)

	return Result{
		Success:      true,
		Message:      reply,
		Intent:       string(nlu.IntentQuery),
		Availability: &outcome,
	}
}

func (a *Assistant) handleReschedule(ctx context.Context, sessionID, message string) Result {
	req := RescheduleRequest{}
	if pid, ok := a.sessions.PatientID(sessionID); ok {
		req.PatientID = pid
	}
	booking := a.sessions.Booking(sessionID)
	req.NewDate = deref(booking.Date)
	req.NewTime = deref(booking.Time)

	outcome := a.management.reschedule(req)

	fallback := fmt.Sprintf("I wasn't able to reschedule your appointment. %s", outcome.Message)
	if outcome.Success {
		fallback = fmt.Sprintf("I've successfully rescheduled your appointment. %s", outcome.Message)
		a.sessions.ClearBooking(sessionID)
	}
	reply := a.phrase(ctx, sessionID, nlu.Prompt{
		Task:        nlu.TaskReschedule,
		PatientName: a.patientName(sessionID),
		Success:     outcome.Success,
		Outcome:     outcome.Message,
		UserMessage: message,
	}, fallback)

	return Result{
		Success:    outcome.Success,
		Message:    reply,
		Intent:     string(nlu.IntentReschedule),
		Reschedule: &outcome,
	}
}

func (a *Assistant) handleCancellation(ctx context.Context, sessionID, message string) Result {
	req := CancelRequest{}
	if pid, ok := a.sessions.PatientID(sessionID); ok {
		req.PatientID = pid
	}
	req.Date = deref(a.sessions.Booking(sessionID).Date)

	outcome := a.management.cancel(req)

	fallback := fmt.Sprintf("I wasn't able to cancel your appointment. %s", outcome.Message)
	if outcome.Success {
		fallback = fmt.Sprintf("I understand, and I've cancelled your appointment. %s", outcome.Message)
	}
	reply := a.phrase(ctx, sessionID, nlu.Prompt{
		Task:        nlu.TaskCancel,
		PatientName: a.patientName(sessionID),
		Success:     outcome.Success,
		Outcome:     outcome.Message,
		UserMessage: message,
	}, fallback)

	return Result{
		Success:      outcome.Success,
		Message:      reply,
		Intent:       string(nlu.IntentCancel),
		Cancellation: &outcome,
	}
}

// phrase asks the reply generator to word the outcome conversationally,
// falling back to the given deterministic message.
func (a *Assistant) phrase(ctx context.Context, sessionID string, prompt nlu.Prompt, fallback string) string {
	for _, msg := range a.sessions.RecentMessages(sessionID, 2) {
		prompt.Recent = append(prompt.Recent, nlu.Message{Role: msg.Role, Content: msg.Content})
	}
	reply, err := a.caps.GenerateReply(ctx, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		return fallback
	}
	return reply
}

// patientName resolves the session's patient id to a display name, empty when
// unknown.
func (a *Assistant) patientName(sessionID string) string {
	pid, ok := a.sessions.PatientID(sessionID)
	if !ok {
		return ""
	}
	if p, ok := a.store.GetPatientByID(pid); ok {
		return p.Name
	}
	return "valued patient"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

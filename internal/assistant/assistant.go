// Package assistant is the conversational core: three internal workers
// (scheduling, availability query, appointment management) coordinated by a
// single turn processor that is the only component composing user-facing
// replies. Workers talk to the store and return structured outcomes; they
// never phrase anything for the user themselves.
package assistant

import (
	"time"

	"github.com/wolfman30/clinic-concierge/internal/nlu"
	"github.com/wolfman30/clinic-concierge/internal/observability/metrics"
	"github.com/wolfman30/clinic-concierge/internal/session"
	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

// Result is the outcome of one conversation turn.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Intent    string `json:"intent,omitempty"`
	SessionID string `json:"session_id"`

	Booking       *BookingOutcome      `json:"booking_result,omitempty"`
	Availability  *AvailabilityOutcome `json:"availability_data,omitempty"`
	Reschedule    *RescheduleOutcome   `json:"reschedule_result,omitempty"`
	Cancellation  *CancelOutcome       `json:"cancel_result,omitempty"`
	MissingFields []string             `json:"missing_fields,omitempty"`

	// Diagnostic carries the internal error description when a turn failed
	// unexpectedly. Never shown verbatim to the user.
	Diagnostic string `json:"error,omitempty"`
}

// Assistant processes conversation turns. The worker set is closed: exactly
// three, selected by the coordinator's intent dispatch.
type Assistant struct {
	store      *store.Store
	sessions   *session.Store
	caps       nlu.Capabilities
	logger     *logging.Logger
	metrics    *metrics.ConversationMetrics
	now        func() time.Time
	scheduling *schedulingWorker
	query      *queryWorker
	management *managementWorker
}

// Option customizes the assistant.
type Option func(*Assistant)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// WithMetrics attaches turn metrics. Nil-safe when omitted.
func WithMetrics(m *metrics.ConversationMetrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// New wires the assistant. Store, session store, and capabilities are
// required.
func New(st *store.Store, sessions *session.Store, caps nlu.Capabilities, logger *logging.Logger, opts ...Option) *Assistant {
	if st == nil {
		panic("assistant: store required")
	}
	if sessions == nil {
		panic("assistant: session store required")
	}
	if caps == nil {
		panic("assistant: nlu capabilities required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Assistant{
		store:    st,
		sessions: sessions,
		caps:     caps,
		logger:   logger.WithComponent("assistant"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.scheduling = &schedulingWorker{store: st, now: a.now}
	a.query = &queryWorker{store: st, now: a.now}
	a.management = &managementWorker{store: st, now: a.now}
	return a
}

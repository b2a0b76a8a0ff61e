// Package session holds per-conversation state for the assistant. Sessions
// live only for the process lifetime: they are created lazily on first touch,
// refreshed on every access, and evicted once idle past the TTL. Nothing here
// is persisted.
package session

import (
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PartialBooking is the set of transaction fields collected so far across
// turns. Nil means not yet provided; later writes of the same field overwrite
// earlier ones.
type PartialBooking struct {
	DoctorName *string `json:"doctor_name,omitempty"`
	Date       *string `json:"date,omitempty"`
	Time       *string `json:"time,omitempty"`
	Specialty  *string `json:"specialty,omitempty"`
}

// merge overlays non-nil fields of other onto b.
func (b *PartialBooking) merge(other PartialBooking) {
	if other.DoctorName != nil {
		b.DoctorName = other.DoctorName
	}
	if other.Date != nil {
		b.Date = other.Date
	}
	if other.Time != nil {
		b.Time = other.Time
	}
	if other.Specialty != nil {
		b.Specialty = other.Specialty
	}
}

// Session is the conversation state for one session id.
type Session struct {
	Messages     []Message
	PatientID    *string
	Partial      PartialBooking
	LastIntent   string
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store keeps sessions keyed by caller-supplied opaque ids. Safe for
// concurrent use; concurrent turns on the same session remain
// last-writer-wins, as the conversational model accepts.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl          time.Duration
	historyLimit int
	now          func() time.Time
}

// Option customizes the store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a session store with the given idle TTL and per-session
// history cap. Non-positive values get the standard 2h / 20 defaults.
func NewStore(ttl time.Duration, historyLimit int, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if historyLimit <= 0 {
		historyLimit = 20
	}
	s := &Store{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		historyLimit: historyLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// get lazily creates the session and refreshes its last activity. Caller
// holds the lock.
func (s *Store) get(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		now := s.now()
		sess = &Session{CreatedAt: now}
		s.sessions[id] = sess
	}
	sess.LastActivity = s.now()
	return sess
}

// AddMessage appends a role-tagged message, trimming history to the cap.
func (s *Store) AddMessage(id, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	sess.Messages = append(sess.Messages, Message{Role: role, Content: content, Timestamp: s.now()})
	if len(sess.Messages) > s.historyLimit {
		sess.Messages = sess.Messages[len(sess.Messages)-s.historyLimit:]
	}
}

// RecentMessages returns up to n most recent messages, oldest first.
func (s *Store) RecentMessages(id string, n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	if n <= 0 || n > len(sess.Messages) {
		n = len(sess.Messages)
	}
	out := make([]Message, n)
	copy(out, sess.Messages[len(sess.Messages)-n:])
	return out
}

// SetPatientID records the resolved patient for the session.
func (s *Store) SetPatientID(id, patientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).PatientID = &patientID
}

// PatientID returns the session's resolved patient id, if any.
func (s *Store) PatientID(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.get(id)
	if sess.PatientID == nil {
		return "", false
	}
	return *sess.PatientID, true
}

// MergeBooking overlays newly extracted fields onto the in-progress booking.
func (s *Store) MergeBooking(id string, fields PartialBooking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	sess.Partial.merge(fields)
}

// Booking returns a copy of the in-progress booking fields.
func (s *Store) Booking(id string) PartialBooking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).Partial
}

// ClearBooking resets the partial booking after a completed transaction.
func (s *Store) ClearBooking(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).Partial = PartialBooking{}
}

// SetLastIntent records the effective intent of the turn.
func (s *Store) SetLastIntent(id, intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(id).LastIntent = intent
}

// LastIntent returns the previous turn's effective intent ("" if none).
func (s *Store) LastIntent(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).LastIntent
}

// Count reports the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// MessageCount reports the total messages across all sessions.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, sess := range s.sessions {
		total += len(sess.Messages)
	}
	return total
}

// EvictIdle removes sessions idle past the TTL and returns the removed count.
// There is no internal timer; an external scheduler calls this.
func (s *Store) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := expiredIDs(s.now(), s.ttl, s.sessions)
	for _, id := range expired {
		delete(s.sessions, id)
	}
	return len(expired)
}

// expiredIDs is the pure eviction rule: sessions whose last activity precedes
// now minus ttl.
func expiredIDs(now time.Time, ttl time.Duration, sessions map[string]*Session) []string {
	var out []string
	cutoff := now.Add(-ttl)
	for id, sess := range sessions {
		if sess.LastActivity.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

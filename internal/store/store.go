// Package store owns the persisted patients/doctors/appointments state.
// Every mutation serializes the full state to a JSON file with a
// backup-on-write protocol; volumes are small enough that whole-file writes
// stay cheap. A single mutex guards all access, which also makes the
// availability-check-then-create sequence atomic (see BookSlot).
package store

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

const patientIDDigits = "0123456789"
const patientIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Store is the persisted appointment store. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	path              string
	patients          map[string]*Patient
	doctors           map[int]*Doctor
	appointments      map[int]*Appointment
	nextAppointmentID int
	usedPatientIDs    map[string]struct{}

	now    func() time.Time
	rng    *rand.Rand
	logger *logging.Logger
}

// Option customizes store construction.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandSource overrides the id-generation randomness, for tests.
func WithRandSource(src rand.Source) Option {
	return func(s *Store) { s.rng = rand.New(src) }
}

// Open loads the store from path, migrating any legacy numeric patient ids.
// If the file does not exist, reference doctors are seeded and an initial
// file is written.
func Open(path string, logger *logging.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{
		path:              path,
		patients:          make(map[string]*Patient),
		doctors:           make(map[int]*Doctor),
		appointments:      make(map[int]*Appointment),
		nextAppointmentID: 1,
		usedPatientIDs:    make(map[string]struct{}),
		now:               time.Now,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:            logger.WithComponent("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.logger.Info("store ready",
		"patients", len(s.patients),
		"doctors", len(s.doctors),
		"appointments", len(s.appointments),
	)
	return s, nil
}

// generatePatientID rejection-samples fresh P + 2 letters + 4 digits tokens
// until one outside the used set is found. Caller holds the lock.
func (s *Store) generatePatientID() string {
	for {
		var b strings.Builder
		b.WriteByte('P')
		for i := 0; i < 2; i++ {
			b.WriteByte(patientIDLetters[s.rng.Intn(len(patientIDLetters))])
		}
		for i := 0; i < 4; i++ {
			b.WriteByte(patientIDDigits[s.rng.Intn(len(patientIDDigits))])
		}
		id := b.String()
		if _, taken := s.usedPatientIDs[id]; !taken {
			s.usedPatientIDs[id] = struct{}{}
			return id
		}
	}
}

// CreatePatient registers a patient and persists immediately.
func (s *Store) CreatePatient(name string, age int, condition string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.generatePatientID()
	s.patients[id] = &Patient{
		ID:        id,
		Name:      name,
		Age:       age,
		Condition: condition,
		CreatedAt: s.now(),
	}
	s.saveLocked()
	return id
}

// GetPatientByID resolves both token ids and legacy numeric ids. Numeric
// input is matched against the old_id back-reference retained at migration.
func (s *Store) GetPatientByID(id string) (*Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patientByIDLocked(id)
}

func (s *Store) patientByIDLocked(id string) (*Patient, bool) {
	if p, ok := s.patients[id]; ok {
		return p, true
	}
	if legacy, err := strconv.Atoi(strings.TrimSpace(id)); err == nil {
		for _, p := range s.patients {
			if p.OldID != nil && *p.OldID == legacy {
				return p, true
			}
		}
	}
	return nil, false
}

// FindPatientByName searches patients by case-insensitive substring match.
func (s *Store) FindPatientByName(name string) (*Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, false
	}
	for _, p := range s.patients {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return p, true
		}
	}
	return nil, false
}

// GetAllPatients returns patients sorted by id for stable output.
func (s *Store) GetAllPatients() []*Patient {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetAllDoctors returns doctors sorted by id.
func (s *Store) GetAllDoctors() []*Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doctorsLocked()
}

func (s *Store) doctorsLocked() []*Doctor {
	out := make([]*Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetDoctorByID looks up a doctor by its small integer id.
func (s *Store) GetDoctorByID(id int) (*Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	return d, ok
}

// specialtyAliases maps common practitioner words onto the seeded specialty
// names so "dermatologist" finds the Dermatology doctor.
var specialtyAliases = map[string]string{
	"dermatologist":   "dermatology",
	"pediatrician":    "pediatrics",
	"general":         "general medicine",
	"endocrinologist": "endocrinology",
}

// FindDoctorByNameOrSpecialty matches a doctor by name substring first, then
// by specialty (with alias mapping).
func (s *Store) FindDoctorByNameOrSpecialty(query string) (*Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, false
	}
	for _, d := range s.doctorsLocked() {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d, true
		}
	}
	if mapped, ok := specialtyAliases[needle]; ok {
		needle = mapped
	}
	for _, d := range s.doctorsLocked() {
		if strings.Contains(strings.ToLower(d.Specialty), needle) {
			return d, true
		}
	}
	return nil, false
}

// CreateAppointment stores a scheduled appointment for an existing patient
// and persists immediately. It does not check slot availability; callers that
// need the availability check to be atomic with the write use BookSlot.
func (s *Store) CreateAppointment(patientID string, doctorID int, date, timeOfDay string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAppointmentLocked(patientID, doctorID, date, timeOfDay)
}

func (s *Store) createAppointmentLocked(patientID string, doctorID int, date, timeOfDay string) (int, error) {
	patient, ok := s.patientByIDLocked(patientID)
	if !ok {
		return 0, fmt.Errorf("patient %q: %w", patientID, ErrNotFound)
	}

	id := s.nextAppointmentID
	s.appointments[id] = &Appointment{
		ID:        id,
		PatientID: patient.ID, // always the token id, even for legacy input
		DoctorID:  doctorID,
		Date:      date,
		Time:      timeOfDay,
		Status:    StatusScheduled,
		CreatedAt: s.now(),
	}
	s.nextAppointmentID++
	s.saveLocked()
	return id, nil
}

// IsSlotAvailable reports whether no scheduled appointment exists for the
// exact (doctor, date, time) triple.
func (s *Store) IsSlotAvailable(doctorID int, date, timeOfDay string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotFreeLocked(doctorID, date, timeOfDay, 0)
}

// slotFreeLocked checks the slot, ignoring the appointment with id exclude
// (0 excludes nothing). Caller holds the lock.
func (s *Store) slotFreeLocked(doctorID int, date, timeOfDay string, exclude int) bool {
	for _, apt := range s.appointments {
		if apt.ID == exclude {
			continue
		}
		if apt.DoctorID == doctorID && apt.Date == date && apt.Time == timeOfDay && apt.Status == StatusScheduled {
			return false
		}
	}
	return true
}

// BookSlot checks availability and creates the appointment under one lock,
// so two concurrent bookings of the same slot cannot both succeed.
func (s *Store) BookSlot(patientID string, doctorID int, date, timeOfDay string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.slotFreeLocked(doctorID, date, timeOfDay, 0) {
		return 0, fmt.Errorf("doctor %d at %s %s: %w", doctorID, date, timeOfDay, ErrSlotUnavailable)
	}
	return s.createAppointmentLocked(patientID, doctorID, date, timeOfDay)
}

// GetAppointmentByID returns the raw appointment record.
func (s *Store) GetAppointmentByID(id int) (*Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apt, ok := s.appointments[id]
	return apt, ok
}

// GetAllAppointments joins patient/doctor display names onto every
// non-cancelled appointment. Expiry uses the full date+time against the wall
// clock; expired records are excluded unless includeExpired is set.
func (s *Store) GetAllAppointments(includeExpired bool) []AppointmentView {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]AppointmentView, 0, len(s.appointments))
	for _, apt := range s.appointments {
		if apt.Status == StatusCancelled {
			continue
		}
		expired := appointmentExpired(apt, now)
		if expired && !includeExpired {
			continue
		}
		out = append(out, s.joinLocked(apt, expired))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) joinLocked(apt *Appointment, expired bool) AppointmentView {
	view := AppointmentView{Appointment: *apt, PatientName: "Unknown", DoctorName: "Unknown", Specialty: "Unknown", IsExpired: expired}
	if p, ok := s.patientByIDLocked(apt.PatientID); ok {
		view.PatientName = p.Name
	}
	if d, ok := s.doctors[apt.DoctorID]; ok {
		view.DoctorName = d.Name
		view.Specialty = d.Specialty
	}
	return view
}

// appointmentExpired applies the cleanup-sense expiry rule: date+time
// strictly before now. Records with malformed date/time never expire.
func appointmentExpired(apt *Appointment, now time.Time) bool {
	at, err := time.ParseInLocation("2006-01-02 15:04", apt.Date+" "+apt.Time, now.Location())
	if err != nil {
		return false
	}
	return at.Before(now)
}

// GetPatientAppointments returns the patient's non-cancelled appointments,
// matching both the token id and any legacy numeric id, sorted by date.
func (s *Store) GetPatientAppointments(patientID string) []*Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	patient, ok := s.patientByIDLocked(patientID)
	if !ok {
		return nil
	}
	var legacy string
	if patient.OldID != nil {
		legacy = strconv.Itoa(*patient.OldID)
	}

	var out []*Appointment
	for _, apt := range s.appointments {
		if apt.Status == StatusCancelled {
			continue
		}
		if apt.PatientID == patient.ID || (legacy != "" && apt.PatientID == legacy) {
			out = append(out, apt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// UpdateAppointment mutates an appointment's date and time in place and
// persists. Returns false if the id is unknown.
func (s *Store) UpdateAppointment(id int, newDate, newTime string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateAppointmentLocked(id, newDate, newTime)
}

func (s *Store) updateAppointmentLocked(id int, newDate, newTime string) bool {
	apt, ok := s.appointments[id]
	if !ok {
		return false
	}
	now := s.now()
	apt.Date = newDate
	apt.Time = newTime
	apt.UpdatedAt = &now
	s.saveLocked()
	return true
}

// MoveAppointment relocates an appointment to a new slot, checking the target
// slot's availability (excluding the appointment being moved) and mutating
// under one lock.
func (s *Store) MoveAppointment(id int, newDate, newTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	if !s.slotFreeLocked(apt.DoctorID, newDate, newTime, id) {
		return fmt.Errorf("doctor %d at %s %s: %w", apt.DoctorID, newDate, newTime, ErrSlotUnavailable)
	}
	s.updateAppointmentLocked(id, newDate, newTime)
	return nil
}

// DeleteAppointment soft-deletes: the record is retained with status
// cancelled. Returns false if the id is unknown.
func (s *Store) DeleteAppointment(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return false
	}
	now := s.now()
	apt.Status = StatusCancelled
	apt.CancelledAt = &now
	s.saveLocked()
	return true
}

// DeletePatient hard-deletes a patient record. Callers are responsible for
// verifying the patient has no remaining non-cancelled appointments first.
func (s *Store) DeletePatient(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[id]; !ok {
		return false
	}
	delete(s.patients, id)
	s.saveLocked()
	return true
}

// CleanupExpired hard-deletes every appointment, regardless of status, whose
// date+time is strictly in the past. Unlike DeleteAppointment this is
// destructive and irreversible. Idempotent: a second immediate call removes
// nothing.
func (s *Store) CleanupExpired() CleanupSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	summary := CleanupSummary{CleanupTime: now}
	for id, apt := range s.appointments {
		if !appointmentExpired(apt, now) {
			continue
		}
		view := s.joinLocked(apt, true)
		summary.Removed = append(summary.Removed, RemovedAppointment{
			AppointmentID: apt.ID,
			PatientName:   view.PatientName,
			DoctorName:    view.DoctorName,
			Date:          apt.Date,
			Time:          apt.Time,
			Status:        apt.Status,
		})
		summary.RemovedIDs = append(summary.RemovedIDs, id)
	}
	for _, id := range summary.RemovedIDs {
		delete(s.appointments, id)
	}
	summary.ExpiredCount = len(summary.RemovedIDs)
	sort.Ints(summary.RemovedIDs)

	if summary.ExpiredCount > 0 {
		s.saveLocked()
		s.logger.Info("expired appointments removed", "count", summary.ExpiredCount)
	}
	return summary
}

// Stats classifies appointments with the date-only expiry rule: a scheduled
// appointment earlier today still counts as active. This is deliberately
// coarser than CleanupExpired's full-datetime rule; the two views are kept
// distinct on purpose.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().Format("2006-01-02")
	stats := Stats{
		TotalPatients: len(s.patients),
		TotalDoctors:  len(s.doctors),
	}
	for _, apt := range s.appointments {
		switch apt.Status {
		case StatusScheduled:
			if _, err := time.Parse("2006-01-02", apt.Date); err == nil && apt.Date < today {
				stats.ExpiredAppointments++
			} else {
				stats.ActiveAppointments++
			}
		case StatusCompleted:
			stats.CompletedAppointments++
		case StatusCancelled:
			stats.CancelledAppointments++
		}
	}
	return stats
}

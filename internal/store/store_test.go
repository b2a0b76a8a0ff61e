package store

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wolfman30/clinic-concierge/pkg/logging"
)

var testNow = time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "data.json"))
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path, logging.NewWithWriter("error", os.Stderr),
		WithClock(func() time.Time { return testNow }),
		WithRandSource(rand.NewSource(1)),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenSeedsDoctors(t *testing.T) {
	s := newTestStore(t)

	doctors := s.GetAllDoctors()
	if len(doctors) != 4 {
		t.Fatalf("expected 4 seeded doctors, got %d", len(doctors))
	}
	if doctors[0].Name != "Dr. Adams" || doctors[0].Specialty != "General Medicine" {
		t.Errorf("unexpected first doctor %+v", doctors[0])
	}
}

func TestCreatePatientGeneratesTokenID(t *testing.T) {
	s := newTestStore(t)

	id := s.CreatePatient("Jane Roe", 42, "Checkup")
	if len(id) != 7 || id[0] != 'P' {
		t.Fatalf("unexpected patient id %q", id)
	}
	p, ok := s.GetPatientByID(id)
	if !ok || p.Name != "Jane Roe" {
		t.Fatalf("patient lookup failed: %+v ok=%v", p, ok)
	}
}

func TestFindPatientByName(t *testing.T) {
	s := newTestStore(t)
	s.CreatePatient("Alice Morgan", 30, "Allergy")

	if _, ok := s.FindPatientByName("morgan"); !ok {
		t.Error("case-insensitive substring match should find patient")
	}
	if _, ok := s.FindPatientByName("nobody"); ok {
		t.Error("unknown name should not match")
	}
}

func TestFindDoctorByNameOrSpecialty(t *testing.T) {
	s := newTestStore(t)

	d, ok := s.FindDoctorByNameOrSpecialty("adams")
	if !ok || d.ID != 1 {
		t.Fatalf("name lookup failed: %+v", d)
	}
	d, ok = s.FindDoctorByNameOrSpecialty("dermatologist")
	if !ok || d.Specialty != "Dermatology" {
		t.Fatalf("specialty alias lookup failed: %+v", d)
	}
	if _, ok := s.FindDoctorByNameOrSpecialty("astrology"); ok {
		t.Error("unknown specialty should not match")
	}
}

func TestBookSlotGuardsDoubleBooking(t *testing.T) {
	s := newTestStore(t)
	first := s.CreatePatient("One", 30, "A")
	second := s.CreatePatient("Two", 31, "B")

	if _, err := s.BookSlot(first, 1, "2026-08-27", "14:00"); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if s.IsSlotAvailable(1, "2026-08-27", "14:00") {
		t.Error("slot should be unavailable after booking")
	}

	_, err := s.BookSlot(second, 1, "2026-08-27", "14:00")
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	// Cancelling frees the slot again.
	apts := s.GetPatientAppointments(first)
	if len(apts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(apts))
	}
	if !s.DeleteAppointment(apts[0].ID) {
		t.Fatal("cancel failed")
	}
	if !s.IsSlotAvailable(1, "2026-08-27", "14:00") {
		t.Error("slot should free up after cancellation")
	}
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateAppointment("PXX0000", 1, "2026-08-27", "10:00")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveAppointmentExcludesSelf(t *testing.T) {
	s := newTestStore(t)
	pid := s.CreatePatient("Jane", 40, "Checkup")
	id, err := s.BookSlot(pid, 2, "2026-08-28", "09:00")
	if err != nil {
		t.Fatalf("BookSlot: %v", err)
	}

	// Moving onto its own slot is allowed; the occupied check excludes the
	// appointment being moved.
	if err := s.MoveAppointment(id, "2026-08-28", "09:00"); err != nil {
		t.Fatalf("self-move should succeed: %v", err)
	}

	other := s.CreatePatient("John", 41, "Checkup")
	if _, err := s.BookSlot(other, 2, "2026-08-28", "10:00"); err != nil {
		t.Fatalf("BookSlot: %v", err)
	}
	if err := s.MoveAppointment(id, "2026-08-28", "10:00"); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("move onto occupied slot should fail, got %v", err)
	}
}

func TestDeletePatient(t *testing.T) {
	s := newTestStore(t)
	pid := s.CreatePatient("Gone Soon", 50, "X")

	if !s.DeletePatient(pid) {
		t.Fatal("delete existing patient failed")
	}
	if s.DeletePatient(pid) {
		t.Fatal("second delete should report false")
	}
}

func TestGetAllAppointmentsExpiryAndJoin(t *testing.T) {
	s := newTestStore(t)
	pid := s.CreatePatient("Jane", 40, "Checkup")

	// Past (prior day), earlier today, and future appointments.
	mustBook(t, s, pid, 1, "2026-08-20", "10:00")
	mustBook(t, s, pid, 2, "2026-08-26", "09:00") // testNow is 12:00, so expired
	future := mustBook(t, s, pid, 3, "2026-08-30", "10:00")

	active := s.GetAllAppointments(false)
	if len(active) != 1 || active[0].ID != future {
		t.Fatalf("expected only the future appointment, got %+v", active)
	}
	if active[0].PatientName != "Jane" || active[0].DoctorName != "Dr. Clark" {
		t.Errorf("join missing: %+v", active[0])
	}

	all := s.GetAllAppointments(true)
	if len(all) != 3 {
		t.Fatalf("expected 3 with expired included, got %d", len(all))
	}
}

func TestStatsUsesDateOnlyExpiry(t *testing.T) {
	s := newTestStore(t)
	pid := s.CreatePatient("Jane", 40, "Checkup")

	mustBook(t, s, pid, 1, "2026-08-20", "10:00") // past date: expired in stats
	morning := mustBook(t, s, pid, 2, "2026-08-26", "09:00")
	mustBook(t, s, pid, 3, "2026-08-30", "10:00")

	stats := s.Stats()
	// The 09:00 slot today has passed by the clock, but stats compare dates
	// only, so it still counts as active.
	if stats.ActiveAppointments != 2 {
		t.Errorf("expected 2 active (date-only rule), got %d", stats.ActiveAppointments)
	}
	if stats.ExpiredAppointments != 1 {
		t.Errorf("expected 1 expired, got %d", stats.ExpiredAppointments)
	}

	s.DeleteAppointment(morning)
	stats = s.Stats()
	if stats.CancelledAppointments != 1 || stats.ActiveAppointments != 1 {
		t.Errorf("unexpected stats after cancel: %+v", stats)
	}
}

func TestCleanupExpiredUsesFullDatetimeAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	pid := s.CreatePatient("Jane", 40, "Checkup")

	mustBook(t, s, pid, 1, "2026-08-20", "10:00")
	morning := mustBook(t, s, pid, 2, "2026-08-26", "09:00")
	cancelled := mustBook(t, s, pid, 3, "2026-08-25", "10:00")
	s.DeleteAppointment(cancelled) // cancelled but in the past: still removed
	keep := mustBook(t, s, pid, 4, "2026-08-30", "10:00")

	summary := s.CleanupExpired()
	if summary.ExpiredCount != 3 {
		t.Fatalf("expected 3 removed (datetime rule, any status), got %d", summary.ExpiredCount)
	}
	for _, id := range summary.RemovedIDs {
		if id == keep {
			t.Fatal("future appointment must not be removed")
		}
	}
	if _, ok := s.GetAppointmentByID(morning); ok {
		t.Error("expired record should be hard-deleted")
	}

	again := s.CleanupExpired()
	if again.ExpiredCount != 0 {
		t.Errorf("second cleanup should remove nothing, got %d", again.ExpiredCount)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := openTestStore(t, path)
	pid := s.CreatePatient("Jane", 40, "Checkup")
	aptID := mustBook(t, s, pid, 1, "2026-08-30", "10:00")

	reloaded := openTestStore(t, path)
	p, ok := reloaded.GetPatientByID(pid)
	if !ok || p.Name != "Jane" || p.Age != 40 {
		t.Fatalf("patient did not survive reload: %+v ok=%v", p, ok)
	}
	apt, ok := reloaded.GetAppointmentByID(aptID)
	if !ok || apt.PatientID != pid || apt.Status != StatusScheduled {
		t.Fatalf("appointment did not survive reload: %+v ok=%v", apt, ok)
	}
	if got := reloaded.Stats(); got.TotalDoctors != 4 {
		t.Errorf("doctors did not survive reload: %+v", got)
	}
	// The next booking continues the id sequence, never reuses.
	next := mustBook(t, s, pid, 2, "2026-08-30", "11:00")
	if next <= aptID {
		t.Errorf("appointment ids must increase, got %d after %d", next, aptID)
	}
}

func TestSaveWritesBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := openTestStore(t, path)

	// First mutation after the initial write rotates the previous file.
	s.CreatePatient("Jane", 40, "Checkup")
	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Fatalf("expected .backup beside data file: %v", err)
	}
}

func TestManualBackup(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, filepath.Join(dir, "data.json"))
	s.CreatePatient("Jane", 40, "Checkup")

	target := filepath.Join(dir, "snapshot.json")
	name, err := s.Backup(target)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if name != target {
		t.Fatalf("unexpected backup name %s", name)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var state map[string]json.RawMessage
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("backup is not valid JSON: %v", err)
	}
	if _, ok := state["patients"]; !ok {
		t.Error("backup missing patients section")
	}
}

func TestLegacyNumericIDMigration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	legacy := map[string]any{
		"patients": map[string]any{
			"3": map[string]any{"id": "3", "name": "Old Timer", "age": 61, "condition": "Follow-up", "created_at": "2024-01-01T00:00:00Z"},
		},
		"doctors": map[string]any{
			"1": map[string]any{"id": 1, "name": "Dr. Adams", "specialty": "General Medicine"},
		},
		"appointments": map[string]any{
			"1": map[string]any{"id": 1, "patient_id": 3, "doctor_id": 1, "date": "2026-08-30", "time": "10:00", "status": "scheduled", "created_at": "2024-01-01T00:00:00Z"},
		},
		"next_appointment_id": 2,
		"used_patient_ids":    []string{},
	}
	raw, err := json.Marshal(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	s := openTestStore(t, path)

	// The numeric id resolves through the old_id back-reference.
	p, ok := s.GetPatientByID("3")
	if !ok {
		t.Fatal("legacy numeric id should resolve after migration")
	}
	if len(p.ID) != 7 || p.ID[0] != 'P' {
		t.Fatalf("migrated patient should carry a token id, got %q", p.ID)
	}
	if p.OldID == nil || *p.OldID != 3 {
		t.Fatalf("old_id back-reference missing: %+v", p)
	}

	// Appointments referencing the numeric id still belong to the patient.
	apts := s.GetPatientAppointments(p.ID)
	if len(apts) != 1 {
		t.Fatalf("expected legacy appointment to resolve, got %d", len(apts))
	}

	// Migration is idempotent: reloading the migrated file changes nothing.
	reloaded := openTestStore(t, path)
	p2, ok := reloaded.GetPatientByID(p.ID)
	if !ok || p2.OldID == nil || *p2.OldID != 3 {
		t.Fatalf("second load must be a no-op, got %+v ok=%v", p2, ok)
	}
}

func mustBook(t *testing.T, s *Store, patientID string, doctorID int, date, timeOfDay string) int {
	t.Helper()
	id, err := s.BookSlot(patientID, doctorID, date, timeOfDay)
	if err != nil {
		t.Fatalf("BookSlot(%d, %s, %s): %v", doctorID, date, timeOfDay, err)
	}
	return id
}

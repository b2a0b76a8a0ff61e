package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// fileState is the on-disk JSON layout. Doctor and appointment maps are keyed
// by the stringified integer id, as JSON requires.
type fileState struct {
	Patients          map[string]*Patient     `json:"patients"`
	Doctors           map[string]*Doctor      `json:"doctors"`
	Appointments      map[string]*Appointment `json:"appointments"`
	NextAppointmentID int                     `json:"next_appointment_id"`
	UsedPatientIDs    []string                `json:"used_patient_ids"`
	LastSaved         time.Time               `json:"last_saved"`
}

func (s *Store) backupPath() string {
	return s.path + ".backup"
}

// UnmarshalJSON tolerates legacy files where patient_id was stored as a JSON
// number; the value is normalized to its decimal string so the old_id
// back-reference lookup still matches.
func (a *Appointment) UnmarshalJSON(data []byte) error {
	type alias Appointment
	aux := struct {
		PatientID json.RawMessage `json:"patient_id"`
		*alias
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.PatientID) > 0 {
		var asString string
		if err := json.Unmarshal(aux.PatientID, &asString); err == nil {
			a.PatientID = asString
		} else {
			var asNumber int
			if err := json.Unmarshal(aux.PatientID, &asNumber); err != nil {
				return fmt.Errorf("appointment patient_id: %w", err)
			}
			a.PatientID = strconv.Itoa(asNumber)
		}
	}
	return nil
}

// load reads the data file if present, migrating legacy numeric patient ids
// to token ids (keeping old_id as a back-reference). A missing file seeds the
// reference doctors and writes the initial state. Migration is idempotent:
// reloading an already-migrated file changes nothing.
func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.seedDoctors()
		if saveErr := s.saveLocked(); saveErr != nil {
			return saveErr
		}
		s.logger.Info("initialized new data file", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %v: %w", s.path, err, ErrPersistence)
	}

	var state fileState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("decode %s: %v: %w", s.path, err, ErrPersistence)
	}

	for k, d := range state.Doctors {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		d.ID = id
		s.doctors[id] = d
	}
	for k, apt := range state.Appointments {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		apt.ID = id
		s.appointments[id] = apt
	}
	if state.NextAppointmentID > 0 {
		s.nextAppointmentID = state.NextAppointmentID
	}
	for _, id := range state.UsedPatientIDs {
		s.usedPatientIDs[id] = struct{}{}
	}

	migrated := 0
	for key, p := range state.Patients {
		if legacy, err := strconv.Atoi(key); err == nil {
			// Legacy numeric id: assign a fresh token, keep the numeric id
			// as a cross-reference so existing appointments still resolve.
			newID := s.generatePatientID()
			p.ID = newID
			p.OldID = &legacy
			s.patients[newID] = p
			migrated++
			continue
		}
		p.ID = key
		s.patients[key] = p
		s.usedPatientIDs[key] = struct{}{}
	}
	if migrated > 0 {
		s.logger.Info("migrated legacy patient ids", "count", migrated)
		if err := s.saveLocked(); err != nil {
			return err
		}
	}

	// First-run files written before doctors existed get the seed set.
	if len(s.doctors) == 0 {
		s.seedDoctors()
	}
	return nil
}

// seedDoctors installs the reference doctor data. Caller holds the lock (or
// runs before the store is shared).
func (s *Store) seedDoctors() {
	for _, d := range []*Doctor{
		{ID: 1, Name: "Dr. Adams", Specialty: "General Medicine"},
		{ID: 2, Name: "Dr. Baker", Specialty: "Pediatrics"},
		{ID: 3, Name: "Dr. Clark", Specialty: "Dermatology"},
		{ID: 4, Name: "Dr. Davis", Specialty: "Endocrinology"},
	} {
		s.doctors[d.ID] = d
	}
}

func (s *Store) snapshotLocked() fileState {
	state := fileState{
		Patients:          make(map[string]*Patient, len(s.patients)),
		Doctors:           make(map[string]*Doctor, len(s.doctors)),
		Appointments:      make(map[string]*Appointment, len(s.appointments)),
		NextAppointmentID: s.nextAppointmentID,
		UsedPatientIDs:    make([]string, 0, len(s.usedPatientIDs)),
		LastSaved:         s.now(),
	}
	for id, p := range s.patients {
		state.Patients[id] = p
	}
	for id, d := range s.doctors {
		state.Doctors[strconv.Itoa(id)] = d
	}
	for id, apt := range s.appointments {
		state.Appointments[strconv.Itoa(id)] = apt
	}
	for id := range s.usedPatientIDs {
		state.UsedPatientIDs = append(state.UsedPatientIDs, id)
	}
	return state
}

// saveLocked serializes the full state. The previous file is renamed to the
// .backup suffix first; if the write then fails, the backup is moved back so
// the on-disk file is never left missing. A save failure leaves memory and
// disk diverged until the next successful save; that window is accepted.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %v: %w", err, ErrPersistence)
	}

	hadPrevious := false
	if _, statErr := os.Stat(s.path); statErr == nil {
		if err := os.Rename(s.path, s.backupPath()); err != nil {
			s.logger.Error("backup rename failed", "error", err)
			return fmt.Errorf("backup %s: %v: %w", s.path, err, ErrPersistence)
		}
		hadPrevious = true
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error("state write failed", "path", s.path, "error", err)
		if hadPrevious {
			if restoreErr := os.Rename(s.backupPath(), s.path); restoreErr != nil {
				s.logger.Error("backup restore failed", "error", restoreErr)
			}
		}
		return fmt.Errorf("write %s: %v: %w", s.path, err, ErrPersistence)
	}
	return nil
}

// Backup writes a standalone timestamped snapshot alongside the data file and
// returns its path. The live file and its .backup are untouched.
func (s *Store) Backup(filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filename == "" {
		filename = fmt.Sprintf("appointment_data_backup_%s.json", s.now().Format("20060102_150405"))
	}
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(filepath.Dir(s.path), filename)
	}
	data, err := json.MarshalIndent(s.snapshotLocked(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %v: %w", err, ErrPersistence)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %v: %w", filename, err, ErrPersistence)
	}
	return filename, nil
}

// FileInfo describes the data file on disk.
type FileInfo struct {
	Exists       bool      `json:"file_exists"`
	Path         string    `json:"file_path"`
	SizeBytes    int64     `json:"file_size,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// DataFileInfo reports the data file's current on-disk state.
func (s *Store) DataFileInfo() FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := FileInfo{Path: s.path}
	if stat, err := os.Stat(s.path); err == nil {
		info.Exists = true
		info.SizeBytes = stat.Size()
		info.LastModified = stat.ModTime()
	}
	return info
}

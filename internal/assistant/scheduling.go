package assistant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/internal/timetext"
)

// BookingRequest carries the merged fields for one booking attempt. DoctorName
// falls back to Specialty when the user only named a specialty.
type BookingRequest struct {
	PatientID  string
	DoctorName string
	Specialty  string
	Date       string
	Time       string
}

// BookingOutcome is the scheduling worker's structured result.
type BookingOutcome struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	AppointmentID   int    `json:"appointment_id,omitempty"`
	PatientName     string `json:"patient_name,omitempty"`
	PatientID       string `json:"patient_id,omitempty"`
	DoctorName      string `json:"doctor_name,omitempty"`
	DoctorSpecialty string `json:"doctor_specialty,omitempty"`
	Date            string `json:"date,omitempty"`
	Time            string `json:"time,omitempty"`
	FormattedDate   string `json:"formatted_date,omitempty"`
	FormattedTime   string `json:"formatted_time,omitempty"`
}

type schedulingWorker struct {
	store *store.Store
	now   func() time.Time
}

// book validates the request step by step and claims the slot atomically.
// Validation order is fixed: patient id present, patient exists, doctor
// resolvable, date parses, time parses, slot free. The first failure wins and
// nothing is written before the final step.
func (w *schedulingWorker) book(req BookingRequest) BookingOutcome {
	if req.PatientID == "" {
		return BookingOutcome{Message: "Patient ID is required for appointment booking. Please provide your 7-character patient ID (format: P + 2 letters + 4 numbers)."}
	}
	patient, ok := w.store.GetPatientByID(req.PatientID)
	if !ok {
		return BookingOutcome{Message: fmt.Sprintf("Patient ID '%s' not found in our system. Please check your patient ID or contact reception for assistance.", req.PatientID)}
	}

	doctorQuery := req.DoctorName
	if doctorQuery == "" {
		doctorQuery = req.Specialty
	}
	doctor, ok := w.store.FindDoctorByNameOrSpecialty(doctorQuery)
	if !ok {
		return BookingOutcome{Message: fmt.Sprintf("I couldn't find a doctor matching '%s'. Our available doctors are: %s", doctorQuery, w.doctorRoster())}
	}

	date, err := timetext.NormalizeDate(req.Date, w.now())
	if err != nil {
		return BookingOutcome{Message: fmt.Sprintf("I couldn't understand the date '%s'. Please try something like 'tomorrow', 'next Monday', or '2024-08-30'.", req.Date)}
	}
	timeOfDay, err := timetext.NormalizeTime(req.Time)
	if err != nil {
		return BookingOutcome{Message: fmt.Sprintf("I couldn't understand the time '%s'. Please try something like '2 PM', '14:30', or 'morning'.", req.Time)}
	}

	id, err := w.store.BookSlot(patient.ID, doctor.ID, date, timeOfDay)
	if err != nil {
		if errors.Is(err, store.ErrSlotUnavailable) {
			return BookingOutcome{Message: fmt.Sprintf("%s is not available on %s at %s. Would you like to see other available times?",
				doctor.Name, timetext.FormatDate(date), timetext.FormatTime(timeOfDay))}
		}
		return BookingOutcome{Message: fmt.Sprintf("I encountered an error while booking the appointment: %v", err)}
	}

	formattedDate := timetext.FormatDate(date)
	formattedTime := timetext.FormatTime(timeOfDay)
	return BookingOutcome{
		Success:         true,
		Message:         fmt.Sprintf("%s is scheduled with %s on %s at %s.", patient.Name, doctor.Name, formattedDate, formattedTime),
		AppointmentID:   id,
		PatientName:     patient.Name,
		PatientID:       patient.ID,
		DoctorName:      doctor.Name,
		DoctorSpecialty: doctor.Specialty,
		Date:            date,
		Time:            timeOfDay,
		FormattedDate:   formattedDate,
		FormattedTime:   formattedTime,
	}
}

func (w *schedulingWorker) doctorRoster() string {
	var parts []string
	for _, d := range w.store.GetAllDoctors() {
		parts = append(parts, fmt.Sprintf("%s (%s)", d.Name, d.Specialty))
	}
	return strings.Join(parts, ", ")
}

package assistant

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/internal/timetext"
)

// RescheduleRequest carries the merged fields for a reschedule attempt.
// CurrentDate pins which appointment to move; when empty the soonest upcoming
// one is chosen.
type RescheduleRequest struct {
	PatientID   string
	CurrentDate string
	NewDate     string
	NewTime     string
}

// RescheduleOutcome is the management worker's reschedule result.
type RescheduleOutcome struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	OldDate    string `json:"old_date,omitempty"`
	OldTime    string `json:"old_time,omitempty"`
	NewDate    string `json:"new_date,omitempty"`
	NewTime    string `json:"new_time,omitempty"`
	DoctorName string `json:"doctor_name,omitempty"`
}

// CancelRequest carries the merged fields for a cancellation attempt. Date
// pins which appointment to cancel.
type CancelRequest struct {
	PatientID string
	Date      string
}

// CancelOutcome is the management worker's cancellation result.
type CancelOutcome struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	CancelledDate  string `json:"cancelled_date,omitempty"`
	CancelledTime  string `json:"cancelled_time,omitempty"`
	DoctorName     string `json:"doctor_name,omitempty"`
	PatientRemoved bool   `json:"patient_removed,omitempty"`
}

type managementWorker struct {
	store *store.Store
	now   func() time.Time
}

// reschedule moves an existing appointment. Without a new date and time it
// answers with a two-step prompt naming the appointment it found, so the next
// turn can supply the target slot.
func (w *managementWorker) reschedule(req RescheduleRequest) RescheduleOutcome {
	if req.PatientID == "" {
		return RescheduleOutcome{Message: "I need your patient ID to reschedule your appointment. Please provide your 7-character patient ID."}
	}
	patient, ok := w.store.GetPatientByID(req.PatientID)
	if !ok {
		return RescheduleOutcome{Message: fmt.Sprintf("Patient ID '%s' not found in our system. Please check your patient ID.", req.PatientID)}
	}

	target := w.locateAppointment(patient.ID, req.CurrentDate)
	if target == nil {
		return RescheduleOutcome{Message: fmt.Sprintf("I couldn't find any upcoming appointments for %s to reschedule.", patient.Name)}
	}

	if req.NewDate == "" || req.NewTime == "" {
		doctor, _ := w.store.GetDoctorByID(target.DoctorID)
		return RescheduleOutcome{Message: fmt.Sprintf("I found your appointment with %s on %s at %s. What new date and time would you like?",
			doctorName(doctor), timetext.FormatDate(target.Date), timetext.FormatTime(target.Time))}
	}

	newDate, err := timetext.NormalizeDate(req.NewDate, w.now())
	if err != nil {
		return RescheduleOutcome{Message: fmt.Sprintf("I couldn't understand the date '%s'. Please try something like 'tomorrow', 'next Monday', or '2024-08-30'.", req.NewDate)}
	}
	newTime, err := timetext.NormalizeTime(req.NewTime)
	if err != nil {
		return RescheduleOutcome{Message: fmt.Sprintf("I couldn't understand the time '%s'. Please try something like '2 PM', '14:30', or 'morning'.", req.NewTime)}
	}

	doctor, _ := w.store.GetDoctorByID(target.DoctorID)
	if err := w.store.MoveAppointment(target.ID, newDate, newTime); err != nil {
		if errors.Is(err, store.ErrSlotUnavailable) {
			return RescheduleOutcome{Message: fmt.Sprintf("%s is not available on %s at %s. Would you like to see other available times?",
				doctorName(doctor), timetext.FormatDate(newDate), timetext.FormatTime(newTime))}
		}
		return RescheduleOutcome{Message: "I encountered an error while rescheduling your appointment. Please try again."}
	}

	return RescheduleOutcome{
		Success: true,
		Message: fmt.Sprintf("Perfect! I've rescheduled %s's appointment with %s from %s at %s to %s at %s.",
			patient.Name, doctorName(doctor),
			timetext.FormatDate(target.Date), timetext.FormatTime(target.Time),
			timetext.FormatDate(newDate), timetext.FormatTime(newTime)),
		OldDate:    target.Date,
		OldTime:    target.Time,
		NewDate:    newDate,
		NewTime:    newTime,
		DoctorName: doctorName(doctor),
	}
}

// cancel soft-deletes an appointment. With no date given and more than one
// upcoming appointment it asks which one before acting. A patient left with
// no active appointments is removed from the records entirely.
func (w *managementWorker) cancel(req CancelRequest) CancelOutcome {
	if req.PatientID == "" {
		return CancelOutcome{Message: "I need your patient ID to cancel your appointment. Please provide your 7-character patient ID."}
	}
	patient, ok := w.store.GetPatientByID(req.PatientID)
	if !ok {
		return CancelOutcome{Message: fmt.Sprintf("Patient ID '%s' not found in our system. Please check your patient ID.", req.PatientID)}
	}

	appointments := w.store.GetPatientAppointments(patient.ID)
	today := w.now().Format(timetext.DateLayout)

	var target *store.Appointment
	if req.Date != "" {
		if parsed, err := timetext.NormalizeDate(req.Date, w.now()); err == nil {
			for _, apt := range appointments {
				if apt.Date == parsed {
					target = apt
					break
				}
			}
		}
	}
	upcoming := 0
	for _, apt := range appointments {
		if apt.Date >= today {
			upcoming++
			if target == nil {
				target = apt
			}
		}
	}
	if target == nil {
		return CancelOutcome{Message: fmt.Sprintf("I couldn't find any upcoming appointments for %s to cancel.", patient.Name)}
	}

	doctor, _ := w.store.GetDoctorByID(target.DoctorID)
	if req.Date == "" && upcoming > 1 {
		return CancelOutcome{Message: fmt.Sprintf("I found your appointment with %s on %s at %s. Is this the appointment you want to cancel?",
			doctorName(doctor), timetext.FormatDate(target.Date), timetext.FormatTime(target.Time))}
	}

	if !w.store.DeleteAppointment(target.ID) {
		return CancelOutcome{Message: "I encountered an error while cancelling your appointment. Please try again."}
	}

	message := fmt.Sprintf("I've successfully cancelled %s's appointment with %s on %s at %s.",
		patient.Name, doctorName(doctor), timetext.FormatDate(target.Date), timetext.FormatTime(target.Time))

	patientRemoved := false
	if len(w.store.GetPatientAppointments(patient.ID)) == 0 {
		patientRemoved = w.store.DeletePatient(patient.ID)
		if patientRemoved {
			message += fmt.Sprintf(" %s has also been removed from the patient database.", patient.Name)
		}
	}

	return CancelOutcome{
		Success:        true,
		Message:        message,
		CancelledDate:  target.Date,
		CancelledTime:  target.Time,
		DoctorName:     doctorName(doctor),
		PatientRemoved: patientRemoved,
	}
}

// locateAppointment resolves which appointment a vague request refers to:
// the one on the named date if it parses, else the soonest upcoming one.
func (w *managementWorker) locateAppointment(patientID, currentDate string) *store.Appointment {
	appointments := w.store.GetPatientAppointments(patientID)

	if currentDate != "" {
		if parsed, err := timetext.NormalizeDate(currentDate, w.now()); err == nil {
			for _, apt := range appointments {
				if apt.Date == parsed {
					return apt
				}
			}
		}
	}

	today := w.now().Format(timetext.DateLayout)
	for _, apt := range appointments {
		if apt.Date >= today {
			return apt
		}
	}
	return nil
}

func doctorName(d *store.Doctor) string {
	if d == nil {
		return "Unknown"
	}
	return d.Name
}

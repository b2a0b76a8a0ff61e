package store

import "time"

// Appointment lifecycle states.
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Patient is a registered patient. ID is an opaque 7-character token
// (P + 2 letters + 4 digits), immutable once assigned. OldID is retained only
// for records migrated from the legacy numeric scheme so appointments that
// still reference the numeric id keep resolving.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Condition string    `json:"condition"`
	CreatedAt time.Time `json:"created_at"`
	OldID     *int      `json:"old_id,omitempty"`
}

// Doctor is static reference data seeded on first run.
type Doctor struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Appointment links a patient to a doctor slot. Date and Time carry the
// canonical timetext forms. Display names are never stored; they are joined
// in at read time.
type Appointment struct {
	ID          int        `json:"id"`
	PatientID   string     `json:"patient_id"`
	DoctorID    int        `json:"doctor_id"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// AppointmentView is an appointment with patient/doctor display fields joined
// in, as served to read-only projections.
type AppointmentView struct {
	Appointment
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
	Specialty   string `json:"specialty"`
	IsExpired   bool   `json:"is_expired"`
}

// Stats are aggregate counts. Expiry here is date-only (an appointment earlier
// today still counts as active); cleanup uses the stricter full-datetime rule.
type Stats struct {
	TotalPatients         int `json:"total_patients"`
	TotalDoctors          int `json:"total_doctors"`
	ActiveAppointments    int `json:"active_appointments"`
	ExpiredAppointments   int `json:"expired_appointments"`
	CompletedAppointments int `json:"completed_appointments"`
	CancelledAppointments int `json:"cancelled_appointments"`
}

// RemovedAppointment describes one record hard-deleted by cleanup.
type RemovedAppointment struct {
	AppointmentID int    `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	DoctorName    string `json:"doctor_name"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
}

// CleanupSummary reports the outcome of an expiry cleanup pass.
type CleanupSummary struct {
	ExpiredCount int                  `json:"expired_count"`
	Removed      []RemovedAppointment `json:"expired_appointments"`
	RemovedIDs   []int                `json:"removed_appointment_ids"`
	CleanupTime  time.Time            `json:"cleanup_date"`
}

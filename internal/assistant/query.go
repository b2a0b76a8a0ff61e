package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-concierge/internal/store"
	"github.com/wolfman30/clinic-concierge/internal/timetext"
)

// Standard appointment times offered per weekday.
var slotTimes = []string{"09:00", "10:00", "11:00", "14:00", "15:00", "16:00"}

// Display at most this many slots; the true total is still reported.
const maxDisplayedSlots = 10

// QueryRequest narrows an availability search. All fields optional.
type QueryRequest struct {
	DoctorName     string
	Specialty      string
	DatePreference string
}

// Slot is one open appointment opening.
type Slot struct {
	DoctorID      int    `json:"doctor_id"`
	DoctorName    string `json:"doctor_name"`
	Specialty     string `json:"specialty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	DayName       string `json:"day_name"`
	FormattedDate string `json:"formatted_date"`
	FormattedTime string `json:"formatted_time"`
}

// AvailabilityOutcome is the query worker's structured result.
type AvailabilityOutcome struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Slots          []Slot `json:"slots"`
	TotalAvailable int    `json:"total_available"`
}

type queryWorker struct {
	store *store.Store
	now   func() time.Time
}

// availability scans the upcoming window for open slots. With a parseable
// date preference the window is 3 days from that date; otherwise 7 days
// starting tomorrow. Weekends are skipped.
func (w *queryWorker) availability(req QueryRequest) AvailabilityOutcome {
	slots := w.findSlots(req)
	if len(slots) == 0 {
		return AvailabilityOutcome{
			Success: true,
			Message: noAvailabilityMessage(req.DoctorName, req.Specialty),
			Slots:   []Slot{},
		}
	}

	displayed := slots
	if len(displayed) > maxDisplayedSlots {
		displayed = displayed[:maxDisplayedSlots]
	}
	return AvailabilityOutcome{
		Success:        true,
		Message:        formatAvailability(slots, req.DoctorName, req.Specialty),
		Slots:          displayed,
		TotalAvailable: len(slots),
	}
}

func (w *queryWorker) findSlots(req QueryRequest) []Slot {
	today := w.now()

	start, days := w.window(req.DatePreference, today)

	var doctors []*store.Doctor
	switch {
	case req.DoctorName != "":
		if d, ok := w.store.FindDoctorByNameOrSpecialty(req.DoctorName); ok {
			doctors = append(doctors, d)
		}
	case req.Specialty != "":
		if d, ok := w.store.FindDoctorByNameOrSpecialty(req.Specialty); ok {
			doctors = append(doctors, d)
		}
	default:
		doctors = w.store.GetAllDoctors()
	}

	var slots []Slot
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		date := day.Format(timetext.DateLayout)
		for _, doctor := range doctors {
			for _, t := range slotTimes {
				if !w.store.IsSlotAvailable(doctor.ID, date, t) {
					continue
				}
				slots = append(slots, Slot{
					DoctorID:      doctor.ID,
					DoctorName:    doctor.Name,
					Specialty:     doctor.Specialty,
					Date:          date,
					Time:          t,
					DayName:       day.Format("Monday"),
					FormattedDate: day.Format("January 02"),
					FormattedTime: timetext.FormatTime(t),
				})
			}
		}
	}
	return slots
}

// window picks the scan start and length. "this week" anchors today and
// "next week" a week out; anything else goes through the date normalizer.
func (w *queryWorker) window(pref string, today time.Time) (time.Time, int) {
	if pref != "" {
		lower := strings.ToLower(strings.TrimSpace(pref))
		switch {
		case strings.Contains(lower, "next week"):
			return today.AddDate(0, 0, 7), 3
		case strings.Contains(lower, "this week"):
			return today, 3
		}
		if date, err := timetext.NormalizeDate(pref, today); err == nil {
			parsed, _ := time.ParseInLocation(timetext.DateLayout, date, today.Location())
			return parsed, 3
		}
	}
	return today.AddDate(0, 0, 1), 7
}

func noAvailabilityMessage(doctorName, specialty string) string {
	switch {
	case doctorName != "":
		return fmt.Sprintf("I don't see any available slots with %s in the next week. Would you like me to check with other doctors or look further ahead?", doctorName)
	case specialty != "":
		return fmt.Sprintf("I don't see any available slots for %s in the next week. Would you like me to check further ahead or with other specialties?", specialty)
	default:
		return "I don't see any available slots in the next week. Would you like me to check further ahead?"
	}
}

// formatAvailability groups the first ten slots by day, in scan order.
func formatAvailability(slots []Slot, doctorName, specialty string) string {
	filter := ""
	if doctorName != "" {
		filter = " with " + doctorName
	} else if specialty != "" {
		filter = " with " + specialty
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are some available appointment slots%s:\n\n", filter)

	shown := slots
	if len(shown) > maxDisplayedSlots {
		shown = shown[:maxDisplayedSlots]
	}

	var order []string
	byDay := make(map[string][]Slot)
	for _, slot := range shown {
		key := slot.DayName + ", " + slot.FormattedDate
		if _, ok := byDay[key]; !ok {
			order = append(order, key)
		}
		byDay[key] = append(byDay[key], slot)
	}
	for _, key := range order {
		fmt.Fprintf(&b, "**%s:**\n", key)
		for _, slot := range byDay[key] {
			fmt.Fprintf(&b, "• %s - %s (%s)\n", slot.FormattedTime, slot.DoctorName, slot.Specialty)
		}
		b.WriteString("\n")
	}

	if len(slots) > maxDisplayedSlots {
		fmt.Fprintf(&b, "... and %d more slots available.", len(slots)-maxDisplayedSlots)
	}
	b.WriteString("\nWould you like to book any of these times?")
	return b.String()
}

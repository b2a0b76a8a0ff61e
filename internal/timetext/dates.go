// Package timetext converts natural-language date and time phrases into the
// canonical YYYY-MM-DD / HH:MM forms the rest of the system works with. All
// functions are pure; callers that need "today" to be deterministic pass a
// reference time.
package timetext

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseable reports input that no recognizer accepted. Callers must treat
// it as "ask the user again", never guess a value.
var ErrUnparseable = errors.New("timetext: unparseable")

const (
	// DateLayout is the canonical calendar-date form.
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical minute-resolution time form.
	TimeLayout = "15:04"
)

// fallbackDateLayouts are tried in order when the phrase is not a known
// keyword. Order matters: MM/DD before DD/MM mirrors the original behavior.
var fallbackDateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// NormalizeDate resolves a date phrase against the given reference day.
// Supported phrases: exact ISO dates, "today", "tomorrow", "next <weekday>"
// (always a forward offset, wrapping a full week when the day has not yet
// passed), "this <weekday>" (same-day allowed), and the fallback layout list.
func NormalizeDate(phrase string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(phrase)
	if trimmed == "" {
		return "", fmt.Errorf("empty date phrase: %w", ErrUnparseable)
	}

	if parsed, err := time.Parse(DateLayout, trimmed); err == nil {
		return parsed.Format(DateLayout), nil
	}

	today := now
	lower := strings.ToLower(trimmed)

	switch lower {
	case "today":
		return today.Format(DateLayout), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(DateLayout), nil
	}

	if strings.Contains(lower, "next") {
		if day, ok := findWeekday(lower); ok {
			return nextWeekday(today, day, false).Format(DateLayout), nil
		}
	}
	if strings.Contains(lower, "this") {
		if day, ok := findWeekday(lower); ok {
			return nextWeekday(today, day, true).Format(DateLayout), nil
		}
	}

	for _, layout := range fallbackDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format(DateLayout), nil
		}
	}

	return "", fmt.Errorf("unrecognized date %q: %w", phrase, ErrUnparseable)
}

func findWeekday(lower string) (time.Weekday, bool) {
	for name, day := range weekdayNames {
		if strings.Contains(lower, name) {
			return day, true
		}
	}
	return 0, false
}

// nextWeekday computes the date of the named weekday relative to today.
// With allowSameDay, the named day counts when it is today or later this
// week; otherwise today (and past days) roll into next week.
func nextWeekday(today time.Time, day time.Weekday, allowSameDay bool) time.Time {
	offset := int(day) - int(today.Weekday())
	if allowSameDay {
		if offset < 0 {
			offset += 7
		}
	} else {
		if offset <= 0 {
			offset += 7
		}
	}
	return today.AddDate(0, 0, offset)
}

// FormatDate renders a canonical date for display, e.g.
// "Friday, August 28, 2026". Non-canonical input is returned unchanged.
func FormatDate(canonical string) string {
	parsed, err := time.Parse(DateLayout, canonical)
	if err != nil {
		return canonical
	}
	return parsed.Format("Monday, January 2, 2006")
}

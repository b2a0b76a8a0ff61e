package timetext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Named bands map coarse phrases to fixed clinic hours.
var timeBands = []struct {
	keyword string
	value   string
}{
	{"morning", "09:00"},
	{"afternoon", "14:00"},
	{"evening", "17:00"},
	{"noon", "12:00"},
}

var (
	clock12MinuteRE = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)`)
	clock12HourRE   = regexp.MustCompile(`(\d{1,2})\s*(am|pm)`)
	clock24RE       = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// NormalizeTime resolves a time phrase to HH:MM. Bands ("morning",
// "afternoon", "evening", "noon") resolve to fixed hours; explicit clock
// phrases are matched in order of specificity and range-checked.
func NormalizeTime(phrase string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if lower == "" {
		return "", fmt.Errorf("empty time phrase: %w", ErrUnparseable)
	}

	for _, band := range timeBands {
		if strings.Contains(lower, band.keyword) {
			return band.value, nil
		}
	}
	if lower == "12pm" {
		return "12:00", nil
	}

	if m := clock12MinuteRE.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		hour = to24Hour(hour, m[3])
		if validClock(hour, minute) {
			return fmt.Sprintf("%02d:%02d", hour, minute), nil
		}
	} else if m := clock12HourRE.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		hour = to24Hour(hour, m[2])
		if validClock(hour, 0) {
			return fmt.Sprintf("%02d:00", hour), nil
		}
	} else if m := clock24RE.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if validClock(hour, minute) {
			return fmt.Sprintf("%02d:%02d", hour, minute), nil
		}
	}

	return "", fmt.Errorf("unrecognized time %q: %w", phrase, ErrUnparseable)
}

func to24Hour(hour int, period string) int {
	switch {
	case period == "pm" && hour != 12:
		return hour + 12
	case period == "am" && hour == 12:
		return 0
	}
	return hour
}

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// FormatTime renders a canonical HH:MM time on a 12-hour clock, e.g.
// "02:00 PM". Non-canonical input is returned unchanged.
func FormatTime(canonical string) string {
	parsed, err := time.Parse(TimeLayout, canonical)
	if err != nil {
		return canonical
	}
	return parsed.Format("03:04 PM")
}

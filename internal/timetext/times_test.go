package timetext

import (
	"errors"
	"testing"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		phrase string
		want   string
	}{
		{"morning", "09:00"},
		{"in the afternoon", "14:00"},
		{"evening", "17:00"},
		{"noon", "12:00"},
		{"12pm", "12:00"},
		{"2 PM", "14:00"},
		{"3:30 pm", "15:30"},
		{"12 am", "00:00"},
		{"12 pm", "12:00"},
		{"14:30", "14:30"},
		{"09:05", "09:05"},
	}

	for _, tt := range tests {
		got, err := NormalizeTime(tt.phrase)
		if err != nil {
			t.Errorf("NormalizeTime(%q) returned error: %v", tt.phrase, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeTime(%q) = %s, want %s", tt.phrase, got, tt.want)
		}
	}
}

func TestNormalizeTimeRejectsGarbage(t *testing.T) {
	for _, phrase := range []string{"", "99 PM", "late", "25:61"} {
		if _, err := NormalizeTime(phrase); !errors.Is(err, ErrUnparseable) {
			t.Errorf("NormalizeTime(%q) should be unparseable, got %v", phrase, err)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime("14:00"); got != "02:00 PM" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := FormatTime("xx"); got != "xx" {
		t.Errorf("FormatTime passthrough = %q", got)
	}
}

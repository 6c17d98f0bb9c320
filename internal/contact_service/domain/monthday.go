package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MonthDay is a recurring calendar date with no year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay accepts "MM-DD" or "YYYY-MM-DD"; the year is discarded.
// 02-29 is accepted and only ever matches 29 February.
func ParseMonthDay(s string) (MonthDay, error) {
	s = strings.TrimSpace(s)
	var layout string
	switch len(s) {
	case len("01-02"):
		layout = "01-02"
	case len("2006-01-02"):
		layout = "2006-01-02"
	default:
		return MonthDay{}, fmt.Errorf("%w: %q", ErrInvalidMonthDay, s)
	}

	if layout == "01-02" {
		// Anchor to a leap year so 02-29 parses.
		s = "2000-" + s
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return MonthDay{}, fmt.Errorf("%w: %q", ErrInvalidMonthDay, s)
	}
	return MonthDay{Month: t.Month(), Day: t.Day()}, nil
}

// MonthDayOf returns the month-day of t in t's location.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

// Matches reports whether t falls on this month-day.
func (md MonthDay) Matches(t time.Time) bool {
	return md.Month == t.Month() && md.Day == t.Day()
}

// String renders the storage form "MM-DD".
func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

func (md MonthDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(md.String())
}

func (md *MonthDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMonthDay(s)
	if err != nil {
		return err
	}
	*md = parsed
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// Precision controls how due dates are normalized and compared. It is a
// deploy-time choice; the write path and the scan path must always use the
// same value, otherwise equality at day boundaries breaks.
type Precision string

const (
	PrecisionDate     Precision = "DATE"
	PrecisionDateTime Precision = "DATETIME"
)

func (p Precision) String() string { return string(p) }

func (p Precision) IsValid() bool {
	switch p {
	case PrecisionDate, PrecisionDateTime:
		return true
	}
	return false
}

func ParsePrecisionFromString(s string) (Precision, error) {
	p := Precision(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid date precision %q", ErrValidation, s)
	}
	return p, nil
}

// Layout returns the canonical textual layout for the precision.
func (p Precision) Layout() string {
	if p == PrecisionDateTime {
		return "2006-01-02 15:04"
	}
	return "2006-01-02"
}

// Normalize maps an instant onto the precision grid in the given zone:
// midnight for date precision, minute granularity for date-time.
func (p Precision) Normalize(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if p == PrecisionDateTime {
		return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, loc)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Format renders an instant in the given zone at the precision's layout.
func (p Precision) Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(p.Layout())
}

var dateTimeInputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseInput parses a client-supplied due date string and normalizes it to
// the precision grid in the given zone. Date-time precision also accepts a
// bare date, which lands on midnight.
func (p Precision) ParseInput(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: dueDate is required", ErrValidation)
	}

	layouts := dateTimeInputLayouts
	if p == PrecisionDate {
		layouts = []string{"2006-01-02", time.RFC3339}
	}

	for _, layout := range layouts {
		parsed, err := time.ParseInLocation(layout, trimmed, loc)
		if err != nil {
			continue
		}
		return p.Normalize(parsed, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: dueDate %q is not a recognized date", ErrValidation, trimmed)
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// Period is the reconciliation period echoed back in status payloads.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// DateOnly trims a service timestamp down to its date part. The service
// sends dates both bare and with a time component.
func DateOnly(s string) string {
	if i := strings.IndexAny(s, "T "); i >= 0 {
		return s[:i]
	}
	return s
}

// ParseDate parses a service date, tolerating a trailing time component.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", DateOnly(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayDate formats a service date as YYYY-MM-DD, passing unparsable
// values through unchanged.
func DisplayDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("2006-01-02")
}

// DisplayDateUS formats a service date as MM/DD/YYYY, passing unparsable
// values through unchanged.
func DisplayDateUS(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("01/02/2006")
}

// Display renders the period for humans, collapsing the month and year when
// shared: "July 1 - 31, 2025", "July 1 - August 31, 2025", or the full
// "December 1, 2024 - January 31, 2025".
func (p Period) Display() string {
	if p.StartDate == "" || p.EndDate == "" {
		return "Period not available"
	}
	start, okStart := ParseDate(p.StartDate)
	end, okEnd := ParseDate(p.EndDate)
	if !okStart || !okEnd {
		return fmt.Sprintf("%s - %s", p.StartDate, p.EndDate)
	}
	switch {
	case start.Year() == end.Year() && start.Month() == end.Month():
		return fmt.Sprintf("%s - %s", start.Format("January 2"), end.Format("2, 2006"))
	case start.Year() == end.Year():
		return fmt.Sprintf("%s - %s", start.Format("January 2"), end.Format("January 2, 2006"))
	default:
		return fmt.Sprintf("%s - %s", start.Format("January 2, 2006"), end.Format("January 2, 2006"))
	}
}

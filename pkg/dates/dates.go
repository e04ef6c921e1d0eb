// Package dates converts business dates (due dates, validity dates) between
// their stored time form and the YYYY-MM-DD strings used on the wire.
package dates

import (
	"errors"
	"strings"
	"time"
)

const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid_date")

// Parse accepts YYYY-MM-DD or RFC 3339. A blank value yields nil.
func Parse(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(Layout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, ErrInvalidDate
	}
	day := Truncate(t)
	return &day, nil
}

// Format renders t as YYYY-MM-DD, or nil when t is nil.
func Format(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(Layout)
	return &s
}

// Day renders t as YYYY-MM-DD.
func Day(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Truncate drops the time of day, keeping the UTC calendar day.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar day n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Truncate(t).AddDate(0, 0, n)
}

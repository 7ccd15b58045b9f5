package core

import (
	"fmt"
	"regexp"
	"time"
)

const isoLayout = "2006-01-02"

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ISODate formats t as YYYY-MM-DD using t's own calendar fields.
// No timezone conversion happens: a local 00:30 stays on the local day.
func ISODate(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// IsISODate reports whether s has the YYYY-MM-DD shape.
func IsISODate(s string) bool {
	return isoDateRe.MatchString(s)
}

// IsValidISODate reports whether s is YYYY-MM-DD and names a real calendar day.
func IsValidISODate(s string) bool {
	if !IsISODate(s) {
		return false
	}
	_, err := time.ParseInLocation(isoLayout, s, time.Local)
	return err == nil
}

// ParseISODate reads a YYYY-MM-DD string as midnight in the local zone.
func ParseISODate(s string) (time.Time, error) {
	if !IsISODate(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.ParseInLocation(isoLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// IsRequiredDate reports whether a date was selected.
func IsRequiredDate(t time.Time) bool {
	return !t.IsZero()
}

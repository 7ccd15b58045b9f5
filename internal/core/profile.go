package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrFirstNameRequired = errors.New("first name is required")
	ErrLastNameRequired  = errors.New("last name is required")
)

// Profile holds the user-facing details stored alongside an account.
type Profile struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
	AvatarURL string
	UpdatedAt time.Time
}

// NeedsNameCompletion reports whether either name is missing.
func (p Profile) NeedsNameCompletion() bool {
	return strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == ""
}

// DisplayName is the full name, or the email when no name is set.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return p.Email
	}
	return name
}

// NormalizeNames trims both names and requires them to be non-empty.
func NormalizeNames(first, last string) (string, string, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" {
		return "", "", invalid("first_name", ErrFirstNameRequired)
	}
	if last == "" {
		return "", "", invalid("last_name", ErrLastNameRequired)
	}
	return first, last, nil
}

package main

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

const (
	maxTitleLength       = 150
	maxDescriptionLength = 255
)

type validator struct {
	errors map[string][]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string][]string),
	}
}

func (v *validator) toError() error {
	if !v.hasErrors() {
		return nil
	}
	return &validationError{Fields: v.errors}
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

// checkCond records msg under key when cond is false. Only the first failure
// per key is kept.
func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = []string{msg}
	}
}

func (v *validator) checkEmail(email string) {
	v.checkCond(email != "", "email", "The email field is required.")
	v.checkCond(emailRegexp.MatchString(email), "email", "The email must be a valid email address.")
}

func (v *validator) checkPassword(password string) {
	v.checkCond(password != "", "password", "The password field is required.")
	v.checkCond(len(password) >= 8, "password", "The password must be at least 8 characters.")
	v.checkCond(len(password) <= 72, "password", "The password must not be greater than 72 characters.")
}

func (v *validator) checkTitle(title string) {
	v.checkCond(strings.TrimSpace(title) != "", "title", "The title field is required.")
	v.checkCond(utf8.RuneCountInString(title) <= maxTitleLength, "title", "The title must not be greater than 150 characters.")
}

func (v *validator) checkDescription(description string) {
	v.checkCond(utf8.RuneCountInString(description) <= maxDescriptionLength, "description", "The description must not be greater than 255 characters.")
}

// checkDate parses value as a calendar date and returns it at UTC midnight.
func (v *validator) checkDate(key, value string) *time.Time {
	d, ok := parseDate(value)
	v.checkCond(ok, key, "The "+humanize(key)+" must be a date.")
	if !ok {
		return nil
	}
	return &d
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if d, err := time.Parse(dateLayout, value); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", dateLayout} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

package main

import (
	"errors"
	"sort"
	"strings"
)

var (
	errNotFound           = errors.New("task not found")
	errForbidden          = errors.New("forbidden")
	errUnauthenticated    = errors.New("unauthenticated")
	errInvalidCredentials = errors.New("invalid credentials")
	errDuplicateEmail     = errors.New("a user with this email address already exists")
	errPersistence        = errors.New("persistence failure")
)

// validationError carries user-correctable, per-field messages.
type validationError struct {
	Fields map[string][]string
}

func (e *validationError) Error() string {
	keys := e.fieldNames()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *validationError) fieldNames() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// first returns the first message recorded for key, or "".
func (e *validationError) first(key string) string {
	if e == nil || len(e.Fields[key]) == 0 {
		return ""
	}
	return e.Fields[key][0]
}

func asValidationError(err error) (*validationError, bool) {
	var verr *validationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is the parent of every state conflict below.
	ErrConflict = errors.New("application: conflict")
	// ErrTitleTaken is returned when another event already uses the title.
	ErrTitleTaken = fmt.Errorf("%w: title already exists", ErrConflict)
	// ErrAlreadyAttending is returned when joining an event twice.
	ErrAlreadyAttending = fmt.Errorf("%w: already an attendee", ErrConflict)
	// ErrNotAttending is returned when leaving an event the user never joined.
	ErrNotAttending = fmt.Errorf("%w: not an attendee", ErrConflict)
	// ErrQuotaExceeded is returned when a non-admin already has the maximum number of upcoming events.
	ErrQuotaExceeded = errors.New("application: upcoming event quota exceeded")
	// ErrInvalidCredentials is returned when a login code or session token cannot be used.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session was logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrIdentityProvider wraps failures talking to the external identity provider.
	ErrIdentityProvider = errors.New("application: identity provider failure")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(v.Fields(), ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Fields returns the names of the invalid fields in sorted order.
func (v *ValidationError) Fields() []string {
	if v == nil {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// QuotaError reports the upcoming event limit a create ran into. It matches
// ErrQuotaExceeded with errors.Is.
type QuotaError struct {
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%v (limit %d)", ErrQuotaExceeded, e.Limit)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record id is not in the store
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when a record id is already taken
	ErrDuplicateID = errors.New("duplicate record id")
)

// TransportError means the remote call failed or returned a non-success status
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError means the remote call succeeded but reported an error field
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Op, e.Message)
}

// ValidationError means user input failed a required-field or shape check
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseError means an imported document was not valid JSON or had the wrong shape
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsParse reports whether err carries a *ParseError
func IsParse(err error) bool {
	var p *ParseError
	return errors.As(err, &p)
}

// IsRemote reports whether err is a transport or application failure
func IsRemote(err error) bool {
	var t *TransportError
	var a *ApplicationError
	return errors.As(err, &t) || errors.As(err, &a)
}

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is a generic sentinel for invalid configuration or parameters.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInputFormat marks a malformed input line. Fatal for the run.
	ErrInputFormat = errors.New("input format error")
	// ErrDegenerateInput marks a parameter the data cannot satisfy, e.g. k larger
	// than the number of distinct users.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrOutputWrite marks a failure writing a result artifact.
	ErrOutputWrite = errors.New("output write error")
)

// RecordError describes a rejected input record.
type RecordError struct {
	File   string
	Line   int
	Field  string
	Reason string
	Cause  error
}

func (e *RecordError) Error() string {
	if e == nil {
		return ErrInputFormat.Error()
	}
	loc := e.File
	if loc == "" {
		loc = "input"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	msg := fmt.Sprintf("%s: %s", loc, e.Reason)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: field %s: %s", loc, e.Field, e.Reason)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrInputFormat) match any RecordError.
func (e *RecordError) Is(target error) bool { return target == ErrInputFormat }

func (e *RecordError) Unwrap() error { return e.Cause }

// CandidateError is the failure of one cluster-count candidate in a sweep.
type CandidateError struct {
	K     int
	Cause error
}

func (e *CandidateError) Error() string {
	if e == nil {
		return "candidate failed"
	}
	return fmt.Sprintf("k=%d: %v", e.K, e.Cause)
}

func (e *CandidateError) Unwrap() error { return e.Cause }

// Degenerate wraps ErrDegenerateInput with a formatted reason.
func Degenerate(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDegenerateInput, fmt.Sprintf(format, args...))
}

// Invalid wraps ErrInvalidArgument with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

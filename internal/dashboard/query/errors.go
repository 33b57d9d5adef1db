package query

import (
	"errors"
	"fmt"
)

var (
	ErrNoScope         = errors.New("select a line or a consortium")
	ErrWindowTooWide   = errors.New("requested window is wider than 24 hours")
	ErrInvalidWindow   = errors.New("invalid date or time window")
	ErrRealTimeMinutes = errors.New("real-time minutes must be between 1 and 1440")
)

// ValidationError blocks a query before any network call
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

package service

import "fmt"

// ValidationError reports rejected input. Code is the snake_case value
// returned to API clients, e.g. "email_required".
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Code)
}

// PersistenceError reports that a submission could not be stored.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist submission: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionNotFound = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
)

// ValidationError reports why the version at Index could not be translated.
// Field is the dotted path of the offending value, e.g.
// "config.sections[0].questions[2].type".
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("version %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("version %d: %s: %s", e.Index, e.Field, e.Reason)
}

// StoreError wraps a backend failure with the operation and the identifier
// it targeted.
type StoreError struct {
	Op     string
	Target string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Target: target, Err: err}
}

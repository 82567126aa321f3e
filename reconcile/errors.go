// errors.go - Infrastructure error types.
//
// Data-quality problems (inverted punches, missing counterparts, double
// punches) are NOT errors here: they become tagged Shift records and the
// batch continues. Errors in this file mean the run cannot produce
// trustworthy output and must abort the current employee's batch; the
// caller owns retry policy.
package reconcile

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmployeeNotFound is returned when the pin resolves to no employee.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrStoreUnavailable wraps database-level failures from any store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidRange is returned when the processing window is malformed.
	ErrInvalidRange = errors.New("invalid range: end before start")
)

// StoreError carries which store operation failed mid-batch.
type StoreError struct {
	Op          string // "fetch_punches", "find_holidays", "replace_shifts", ...
	EmployeePin string
	Err         error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s for employee %s: %v", e.Op, e.EmployeePin, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// RangeError reports a malformed processing window.
type RangeError struct {
	From, To time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: %s after %s",
		e.From.Format("2006-01-02"), e.To.Format("2006-01-02"))
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

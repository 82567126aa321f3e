/*
stores.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the reconciliation algorithm and the
  database. The engine only ever reads punches, reads holidays, reads
  employees, and atomically replaces shift windows; each of those is a
  narrow interface so implementations can be swapped (SQLite, PostgreSQL,
  in-memory for tests).

REPLACE SEMANTICS:
  ShiftStore has no Update. A reconciliation pass produces the complete
  set of shifts for a window and calls ReplaceRange, which must delete
  every existing shift in the window and insert the new set in ONE
  transaction. A failure mid-replace must leave the prior records intact.

IMPLEMENTATIONS:
  - store/sqlite:        production SQLite (database/sql + mattn/go-sqlite3)
  - store/postgres:      production PostgreSQL (gorm)
  - reconcile/store:     in-memory, for tests and dev servers

SEE ALSO:
  - reconciler.go: The only consumer of these interfaces
  - calendar.go: Wraps HolidayStore with a per-batch cache
*/
package reconcile

import (
	"context"
	"time"
)

// PunchStore fetches raw device punches. Punches are immutable; the only
// mutation the engine is allowed is clearing a window before re-ingest,
// which lives with the surrounding application, not here.
type PunchStore interface {
	// FetchRange returns all punches for the employee with timestamps in
	// [from, to], sorted ascending by timestamp.
	FetchRange(ctx context.Context, employeePin string, from, to time.Time) ([]Punch, error)
}

// HolidayEntry is one row of the external holiday calendar. Only entries
// with Public=true affect pay; observances and company events do not.
type HolidayEntry struct {
	Start  time.Time
	End    time.Time
	Name   string
	Public bool
}

// HolidayStore answers calendar queries. Wrapped by Calendar, which adds
// the per-batch cache; engine code should not call this directly.
type HolidayStore interface {
	FindOverlapping(ctx context.Context, from, to time.Time) ([]HolidayEntry, error)
}

// EmployeeStore resolves a pin to the employee record (name, team, and
// crucially which overtime policy branch applies).
type EmployeeStore interface {
	Get(ctx context.Context, pin string) (Employee, error)
}

// ShiftStore persists the engine's output.
type ShiftStore interface {
	// ReplaceRange atomically deletes every shift for the employee with
	// shift_date in [from, to] and inserts the given shifts. All or nothing.
	ReplaceRange(ctx context.Context, employeePin string, from, to time.Time, shifts []Shift) error

	// ListRange returns shifts for the employee with shift_date in
	// [from, to], ordered by shift_date ascending.
	ListRange(ctx context.Context, employeePin string, from, to time.Time) ([]Shift, error)

	// CountComplete returns the number of complete shifts for the employee
	// with shift_date in [from, to]. Used by the weekly Sunday exemption.
	CountComplete(ctx context.Context, employeePin string, from, to time.Time) (int, error)
}

/*
Package reconcile turns a raw biometric punch stream into work-shift records.

PURPOSE:
  This package contains the attendance-to-shift reconciliation engine: it
  ingests unordered, error-prone clock punches (in/out events keyed by a
  device-prefixed employee pin), reconstructs discrete work shifts, classifies
  each as day/night/irregular, detects operator and device errors (duplicate
  punches, inverted times, missing counterparts, accidental double-punches),
  and computes lateness and tiered overtime (1.5x / 2.0x) with calendar-aware
  rules (weekends, public holidays, cross-midnight boundaries).

KEY CONCEPTS IN THIS FILE (types.go):
  - Punch: A single timestamped clock-in or clock-out event from the device
  - Shift: The reconciled output, filed under a single calendar shift date
  - ShiftType: Classification outcome, including every anomaly tag
  - Employee: Pin, name, and the overtime policy branch that applies
  - OvertimePolicy: Flat weekend/holiday rate vs minute-segment allocation

DESIGN PRINCIPLES:
  1. Punches are immutable: the engine reads them and tracks consumption in
     an in-memory set for the duration of one pass, never mutates the source
  2. Shifts are replaced, never updated: one reconciliation pass deletes the
     affected window and writes fresh records (idempotent replace)
  3. Precision: hour quantities use decimal.Decimal to keep the additive
     invariant hoursWorked = regular + overtime1_5 + overtime2_0 exact
  4. Nothing is silently dropped: every unresolvable punch combination still
     produces a tagged diagnostic Shift

SEE ALSO:
  - rules.go: Thresholds and nominal shift boundaries
  - reconciler.go: The per-employee, per-day orchestrator
  - overtime.go: Minute-walk hour allocation across rate boundaries
*/
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PUNCH - Raw device event (external, read-only)
// =============================================================================

// PunchType is inferred from the leading digit of the raw device pin:
// '1' marks a clock-in, '2' a clock-out. Anything else is unknown and
// passes through untouched.
type PunchType int

const (
	PunchUnknown PunchType = iota
	PunchIn
	PunchOut
)

func (pt PunchType) String() string {
	switch pt {
	case PunchIn:
		return "in"
	case PunchOut:
		return "out"
	default:
		return "unknown"
	}
}

// Punch is a single clock event as recorded by the attendance device.
// RawPin is the device-prefixed employee code; Type and EmployeePin are
// derived from it at load time.
type Punch struct {
	ID          int64
	RawPin      string
	EmployeePin string
	Type        PunchType
	Timestamp   time.Time

	// Device metadata, carried for audit only.
	VerifyMethod int
	Status       int
	WorkCode     int
}

// ParsePin splits a raw device pin into punch type and employee code.
// An empty or unprefixed pin yields PunchUnknown with the pin untouched.
func ParsePin(raw string) (PunchType, string) {
	if len(raw) < 2 {
		return PunchUnknown, raw
	}
	switch raw[0] {
	case '1':
		return PunchIn, raw[1:]
	case '2':
		return PunchOut, raw[1:]
	default:
		return PunchUnknown, raw
	}
}

// SameDay reports whether the punch falls on the given calendar day.
func (p Punch) SameDay(day time.Time) bool {
	y1, m1, d1 := p.Timestamp.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// =============================================================================
// EMPLOYEE - External record, read-only
// =============================================================================

// OvertimePolicy selects which of the two overtime rule branches applies
// to an employee. The two branches are a genuine behavioral fork in the
// payroll rules, not interchangeable implementations.
type OvertimePolicy string

const (
	// OvertimeFlat: a shift that starts on a weekend or public holiday is
	// filed wholesale as an overtime shift at the 2.0x rate.
	OvertimeFlat OvertimePolicy = "flat"

	// OvertimeSegmented: every minute of the shift is classified against
	// the calendar and nominal windows individually, with a weekly-count
	// exemption for Sunday shifts.
	OvertimeSegmented OvertimePolicy = "segmented"
)

type Employee struct {
	Pin        string
	Name       string
	Occupation string
	Team       string
	Policy     OvertimePolicy
}

// =============================================================================
// SHIFT - The engine's output record
// =============================================================================

// ShiftType tags the classification outcome of a reconciled shift,
// including every anomaly. Anomalous shifts are persisted, never dropped.
type ShiftType string

const (
	ShiftDay              ShiftType = "day"
	ShiftNight            ShiftType = "night"
	ShiftIrregularSameDay ShiftType = "irregular_sameday"
	ShiftIrregularCross   ShiftType = "irregular_crossday"
	ShiftOvertime         ShiftType = "overtime_shift"

	ShiftInvertedTimes    ShiftType = "inverted_times"
	ShiftDoublePunch      ShiftType = "double_punch_anomaly"
	ShiftTooShort         ShiftType = "short_shift_anomaly"
	ShiftMissingClockIn   ShiftType = "missing_clockin"
	ShiftMissingClockOut  ShiftType = "missing_clockout"
	ShiftWeekendPartial   ShiftType = "weekend_incomplete"
	ShiftHolidayPartial   ShiftType = "holiday_incomplete"
	ShiftUnhandledPattern ShiftType = "unhandled_pattern"
)

// IsAnomaly reports whether the type tags an error outcome rather than a
// worked shift.
func (st ShiftType) IsAnomaly() bool {
	switch st {
	case ShiftDay, ShiftNight, ShiftIrregularSameDay, ShiftIrregularCross, ShiftOvertime:
		return false
	}
	return true
}

// Shift is a reconciled work period filed under a single calendar day.
// For night shifts ShiftDate is the day the shift began, not ended.
type Shift struct {
	ID          string
	EmployeePin string
	ShiftDate   time.Time

	ClockInID   *int64
	ClockOutID  *int64
	ClockInAt   *time.Time
	ClockOutAt  *time.Time

	HoursWorked  decimal.Decimal
	RegularHours decimal.Decimal
	Overtime15   decimal.Decimal
	Overtime20   decimal.Decimal

	LatenessMinutes int
	Type            ShiftType
	Complete        bool
	Holiday         bool
	Weekend         bool
	Notes           string
}

// Day truncates a timestamp to its calendar day (midnight, same location).
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameCalendarDay reports whether two timestamps share a calendar day.
func SameCalendarDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

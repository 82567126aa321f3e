/*
rules.go - Thresholds and nominal shift boundaries

PURPOSE:
  Every constant the engine reasons with lives here: anomaly thresholds,
  duplicate-collapse window, nominal shift start/end times, classification
  buffers, and the rounding precision for hour values. Callers take
  DefaultRules() and override fields as needed; the engine itself never
  reaches for package-level state.

NOMINAL BOUNDARIES:
  The day shift nominally runs 07:00-18:00; the night shift 18:00-07:00
  the next morning. Lateness and overtime are measured against these
  policy times, never against actual punch times.

BUFFERS:
  Workers punch early. A clock-in up to 59 minutes before the nominal day
  start still classifies as a day shift (06:01 is a day shift, 06:00 is
  not). Night shifts tolerate the same early buffer on the evening side
  plus up to 3 extra hours past the nominal morning end on the out side.
*/
package reconcile

import "time"

// Rules carries every tunable the reconciliation engine consults.
type Rules struct {
	// Anomaly thresholds
	MinShiftMinutes    int // below this a genuine pairing is a short-shift anomaly
	MaxShiftHours      int // above this the shift is flagged (not rejected)
	DoublePunchMinutes int // below this a human-error pairing is an accidental double punch
	HumanErrorGap      time.Duration // same-type gap larger than this flags a likely forgotten punch

	// Duplicate collapse
	DuplicateWindow time.Duration

	// Nominal boundaries (offsets from midnight of the shift date)
	DayStart   time.Duration // 07:00
	DayEnd     time.Duration // 18:00, doubles as the nominal night start
	NightStart time.Duration // 18:00
	NightEnd   time.Duration // 07:00 next day, expressed past midnight

	// Classification buffers
	EarlyInBuffer     time.Duration // how early a punch-in may be and still match its shift
	NightEndLookahead time.Duration // extra hours past nominal night end still accepted as night

	// Pairing cutoffs
	EveningCutoff    time.Duration // prior-day clock-ins at/after this hour can open a night shift
	MorningCutoff    time.Duration // clock-outs before this hour can close a prior night shift
	NextDayOutCutoff time.Duration // next-day clock-outs before this hour can close today's shift

	// Weekly exemption for segmented-policy Sunday shifts
	WeeklyShiftExemptionCount int

	// Rounding for persisted hour values. Payroll history has both 1 and 2
	// decimal places in circulation; keep it configurable.
	HoursPrecision int32
}

// DefaultRules returns the production thresholds.
func DefaultRules() Rules {
	return Rules{
		MinShiftMinutes:    15,
		MaxShiftHours:      16,
		DoublePunchMinutes: 5,
		HumanErrorGap:      time.Hour,

		DuplicateWindow: 10 * time.Minute,

		DayStart:   7 * time.Hour,
		DayEnd:     18 * time.Hour,
		NightStart: 18 * time.Hour,
		NightEnd:   31 * time.Hour, // 07:00 the next day

		EarlyInBuffer:     59 * time.Minute,
		NightEndLookahead: 3 * time.Hour,

		EveningCutoff:    17 * time.Hour,
		MorningCutoff:    8 * time.Hour,
		NextDayOutCutoff: 10 * time.Hour,

		WeeklyShiftExemptionCount: 4,

		HoursPrecision: 2,
	}
}

// DayStartAt returns the nominal day-shift start on the given calendar day.
func (r Rules) DayStartAt(day time.Time) time.Time { return Day(day).Add(r.DayStart) }

// DayEndAt returns the nominal day-shift end on the given calendar day.
func (r Rules) DayEndAt(day time.Time) time.Time { return Day(day).Add(r.DayEnd) }

// NightStartAt returns the nominal night-shift start on the given calendar day.
func (r Rules) NightStartAt(day time.Time) time.Time { return Day(day).Add(r.NightStart) }

// NightEndAt returns the nominal night-shift end for a shift dated on the
// given calendar day (07:00 the following morning).
func (r Rules) NightEndAt(day time.Time) time.Time { return Day(day).Add(r.NightEnd) }

/*
classify.go - Shift-type classification and lateness

PURPOSE:
  Given a matched in/out pair, decide what kind of shift it is and how
  late the worker clocked in. Both are pure functions of the punch times,
  the nominal boundaries, and the calendar flags; they touch no store.

CLASSIFICATION:
  Same-calendar-day pair:
    day               in within [dayStart - buffer, nightStart)
    irregular_sameday otherwise
  Cross-midnight pair:
    night             in at/after (nightStart - buffer) AND
                      out at/before (nightEnd + lookahead)
    irregular_crossday otherwise

  With defaults that means a 06:01 clock-in is a day shift and a 06:00
  clock-in is not; a night shift must start at/after 17:01 and end by
  10:00 the next morning.

LATENESS:
  Measured against the nominal start only for day and night shifts, and
  zeroed on weekends and public holidays. Irregular shifts never accrue
  lateness: there is no nominal start to be late against.
*/
package reconcile

import "time"

// Classify determines the shift type for a matched in/out pair.
func (r Rules) Classify(in, out time.Time) ShiftType {
	if SameCalendarDay(in, out) {
		earliest := Day(in).Add(r.DayStart - r.EarlyInBuffer)
		nightStart := Day(in).Add(r.NightStart)
		if !in.Before(earliest) && in.Before(nightStart) {
			return ShiftDay
		}
		return ShiftIrregularSameDay
	}

	bufferedStart := Day(in).Add(r.NightStart - r.EarlyInBuffer)
	latestOut := Day(in).Add(r.NightEnd + r.NightEndLookahead)
	if !in.Before(bufferedStart) && !out.After(latestOut) {
		return ShiftNight
	}
	return ShiftIrregularCross
}

// Lateness returns whole minutes the clock-in exceeds the nominal start.
// Zero for irregular shift types and on weekends/holidays.
func (r Rules) Lateness(in time.Time, shiftType ShiftType, workFree bool) int {
	if workFree {
		return 0
	}

	var expected time.Time
	switch shiftType {
	case ShiftDay:
		expected = r.DayStartAt(in)
	case ShiftNight:
		// A night clock-in before the morning cutoff belongs to a shift
		// that nominally started 18:00 the previous evening.
		if in.Sub(Day(in)) < r.MorningCutoff {
			expected = r.NightStartAt(Day(in).AddDate(0, 0, -1))
		} else {
			expected = r.NightStartAt(in)
		}
	default:
		return 0
	}

	if !in.After(expected) {
		return 0
	}
	return int(in.Sub(expected) / time.Minute)
}

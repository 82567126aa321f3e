/*
overtime.go - Minute-walk overtime and regular-hours allocation

PURPOSE:
  Splits a shift's duration across pay-rate buckets (regular, 1.5x, 2.0x)
  by walking the interval minute by minute and classifying each minute
  against the calendar and the nominal shift window. Minute granularity
  is what lets a single shift straddle a Saturday midnight or a holiday
  boundary and still pay each side correctly.

TWO POLICIES:
  OvertimeFlat (ordinary employees, legacy rule):
    A shift that STARTS on a weekend or public holiday is filed wholesale
    as overtime_shift with every hour at 2.0x. Weekday starts use the
    nominal-window rule below for the whole interval.

  OvertimeSegmented (the special overtime category, e.g. blowmolding):
    Every minute is classified on its own calendar day:
      public holiday        2.0x
      Sunday                2.0x (unless the weekly exemption applies,
                            then the nominal-window rule)
      Saturday              1.5x
      ordinary weekday      nominal-window rule

  Nominal-window rule: minutes before the shift's nominal start or after
  its nominal end are 1.5x, minutes inside are regular. The window is
  07:00-18:00 of the start day for same-day shifts and 18:00-07:00(+1d)
  for cross-midnight shifts.

ADDITIVE INVARIANT:
  hoursWorked = regular + overtime1.5 + overtime2.0 exactly, at the
  configured precision. Regular is DERIVED as the remainder after the
  overtime buckets are rounded, floored at zero, so the invariant can
  never drift no matter how the per-bucket rounding falls.
*/
package reconcile

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HourSplit is the result of allocating one shift across rate buckets.
type HourSplit struct {
	Total   decimal.Decimal
	Regular decimal.Decimal
	OT15    decimal.Decimal
	OT20    decimal.Decimal

	// FlatOvertime is set when the flat policy converted the whole shift
	// to the overtime_shift type.
	FlatOvertime bool
}

// AllocationInput carries everything AllocateHours needs to know about
// the shift being split.
type AllocationInput struct {
	In, Out      time.Time
	Policy       OvertimePolicy
	SundayExempt bool // weekly-count exemption: Sunday minutes fall back to the window rule
}

const secondsPerHour = 3600

// AllocateHours splits [in, out] across the rate buckets under the
// employee's overtime policy. Holiday lookups go through the calendar
// oracle and are the only I/O this function performs.
func (r Rules) AllocateHours(ctx context.Context, cal *Calendar, in AllocationInput) (HourSplit, error) {
	total := in.Out.Sub(in.In)
	if total <= 0 {
		return HourSplit{}, nil
	}

	crossDay := !SameCalendarDay(in.In, in.Out)
	windowStart, windowEnd := r.nominalWindow(in.In, crossDay)

	// Flat policy: a work-free start day converts the whole shift.
	if in.Policy == OvertimeFlat {
		startFree, err := cal.IsWorkFree(ctx, in.In)
		if err != nil {
			return HourSplit{}, err
		}
		if startFree {
			totalH := roundHours(total, r.HoursPrecision)
			return HourSplit{Total: totalH, OT20: totalH, FlatOvertime: true}, nil
		}
	}

	var ot15Sec, ot20Sec int64
	for t := in.In; t.Before(in.Out); t = t.Truncate(time.Minute).Add(time.Minute) {
		segEnd := t.Truncate(time.Minute).Add(time.Minute)
		if segEnd.After(in.Out) {
			segEnd = in.Out
		}
		sec := int64(segEnd.Sub(t) / time.Second)

		bucket, err := r.classifyMinute(ctx, cal, t, in, windowStart, windowEnd)
		if err != nil {
			return HourSplit{}, err
		}
		switch bucket {
		case bucketOT20:
			ot20Sec += sec
		case bucketOT15:
			ot15Sec += sec
		}
	}

	totalH := roundHours(total, r.HoursPrecision)
	ot15 := roundSecHours(ot15Sec, r.HoursPrecision)
	ot20 := roundSecHours(ot20Sec, r.HoursPrecision)

	// Regular is the remainder after rounding the overtime buckets, so the
	// additive invariant holds at the persisted precision.
	regular := totalH.Sub(ot15).Sub(ot20)
	if regular.IsNegative() {
		regular = decimal.Zero
	}

	return HourSplit{Total: totalH, Regular: regular, OT15: ot15, OT20: ot20}, nil
}

type rateBucket int

const (
	bucketRegular rateBucket = iota
	bucketOT15
	bucketOT20
)

func (r Rules) classifyMinute(ctx context.Context, cal *Calendar, t time.Time, in AllocationInput, windowStart, windowEnd time.Time) (rateBucket, error) {
	if in.Policy == OvertimeSegmented {
		holiday, err := cal.IsHoliday(ctx, t)
		if err != nil {
			return bucketRegular, err
		}
		switch {
		case holiday:
			return bucketOT20, nil
		case t.Weekday() == time.Sunday:
			if !in.SundayExempt {
				return bucketOT20, nil
			}
			// exemption: fall through to the window rule
		case t.Weekday() == time.Saturday:
			return bucketOT15, nil
		}
	}

	if t.Before(windowStart) || !t.Before(windowEnd) {
		return bucketOT15, nil
	}
	return bucketRegular, nil
}

// nominalWindow returns the policy window the shift is measured against:
// day boundaries on the start day for same-day shifts, night boundaries
// for cross-midnight shifts.
func (r Rules) nominalWindow(in time.Time, crossDay bool) (time.Time, time.Time) {
	if crossDay {
		return r.NightStartAt(in), r.NightEndAt(in)
	}
	return r.DayStartAt(in), r.DayEndAt(in)
}

func roundHours(d time.Duration, precision int32) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).
		Div(decimal.NewFromInt(secondsPerHour)).
		Round(precision)
}

func roundSecHours(sec int64, precision int32) decimal.Decimal {
	return decimal.NewFromInt(sec).
		Div(decimal.NewFromInt(secondsPerHour)).
		Round(precision)
}

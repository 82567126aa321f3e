package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftworks/shift-engine/reconcile"
	"github.com/shiftworks/shift-engine/reconcile/store"
)

// =============================================================================
// FIXTURES
// =============================================================================

const testPin = "1042"

// 2025-05-01 is a Thursday; 05-03 Saturday, 05-04 Sunday, 05-05 Monday.

func setup(t *testing.T, policy reconcile.OvertimePolicy) (*store.Memory, *reconcile.Reconciler) {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.PutEmployee(context.Background(), reconcile.Employee{
		Pin:    testPin,
		Name:   "Test Worker",
		Policy: policy,
	}))
	return mem, reconcile.NewReconciler(mem, mem, mem, mem, reconcile.DefaultRules())
}

func listDay(t *testing.T, mem *store.Memory, day time.Time) []reconcile.Shift {
	t.Helper()
	shifts, err := mem.ListRange(context.Background(), testPin, reconcile.Day(day), reconcile.Day(day))
	require.NoError(t, err)
	return shifts
}

func eq(t *testing.T, want string, got decimal.Decimal, what string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: got %s want %s", what, got, want)
}

// =============================================================================
// COMPLETE SHIFTS
// =============================================================================

func TestReconcile_StandardDayShift(t *testing.T) {
	// GIVEN: A clean in/out pair on a Monday, 07:05 to 18:30
	// WHEN: The day is reconciled
	// THEN: One complete day shift with 5 minutes lateness and the half
	//       hour past 18:00 at 1.5x

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 7, 5))
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 18, 30))

	n, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftDay, s.Type)
	assert.True(t, s.Complete)
	assert.False(t, s.Weekend)
	assert.Equal(t, 5, s.LatenessMinutes)
	eq(t, "11.42", s.HoursWorked, "hours")
	eq(t, "10.92", s.RegularHours, "regular")
	eq(t, "0.5", s.Overtime15, "ot1.5")
	eq(t, "0", s.Overtime20, "ot2.0")
	assert.True(t, s.HoursWorked.Equal(s.RegularHours.Add(s.Overtime15).Add(s.Overtime20)))
	assert.Contains(t, s.Notes, "type=day")
	assert.Contains(t, s.Notes, "late=5m")
}

func TestReconcile_NightShiftFiledUnderStartDay(t *testing.T) {
	// GIVEN: A cross-midnight pair, Thursday 18:10 to Friday 06:50
	// WHEN: Only Thursday is reconciled
	// THEN: One night shift filed under Thursday, all regular hours,
	//       10 minutes late against the 18:00 nominal start

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 1, 18, 10))
	mem.AddPunch("2"+testPin, at(2025, time.May, 2, 6, 50))

	n, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shifts := listDay(t, mem, at(2025, time.May, 1, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftNight, s.Type)
	assert.True(t, s.Complete)
	assert.Equal(t, 10, s.LatenessMinutes)
	eq(t, "12.67", s.HoursWorked, "hours")
	eq(t, "12.67", s.RegularHours, "regular")

	// Nothing spills onto Friday.
	assert.Empty(t, listDay(t, mem, at(2025, time.May, 2, 0, 0)))
}

func TestReconcile_NightShiftSurvivesNextDayPass(t *testing.T) {
	// GIVEN: A night shift already reconciled under Thursday
	// WHEN: A later pass covers only Friday (whose delete window reaches
	//       back to Thursday)
	// THEN: The Thursday record is re-derived, not lost

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 1, 18, 10))
	mem.AddPunch("2"+testPin, at(2025, time.May, 2, 6, 50))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 1, 0, 0))
	require.NoError(t, err)
	before := listDay(t, mem, at(2025, time.May, 1, 0, 0))
	require.Len(t, before, 1)

	_, err = rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 2, 0, 0))
	require.NoError(t, err)

	after := listDay(t, mem, at(2025, time.May, 1, 0, 0))
	require.Len(t, after, 1)
	assert.Equal(t, before[0], after[0])
}

func TestReconcile_DuplicatePunchesCollapsed(t *testing.T) {
	// GIVEN: Two ins 6 minutes apart and two outs 5 minutes apart
	// THEN: One shift from the first in to the last out

	mem, rec := setup(t, reconcile.OvertimeFlat)
	firstIn := mem.AddPunch("1"+testPin, at(2025, time.May, 5, 6, 58))
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 7, 4))
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 18, 2))
	lastOut := mem.AddPunch("2"+testPin, at(2025, time.May, 5, 18, 7))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftDay, s.Type)
	require.NotNil(t, s.ClockInID)
	require.NotNil(t, s.ClockOutID)
	assert.Equal(t, firstIn, *s.ClockInID)
	assert.Equal(t, lastOut, *s.ClockOutID)
	eq(t, "11.15", s.HoursWorked, "hours")
}

// =============================================================================
// ANOMALIES
// =============================================================================

func TestReconcile_InvertedTimes(t *testing.T) {
	// GIVEN: A day whose only out precedes its only in
	// THEN: One inverted_times record with both punches attached and
	//       zero hours

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 9, 0))
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 18, 0))

	n, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftInvertedTimes, s.Type)
	assert.False(t, s.Complete)
	assert.True(t, s.Type.IsAnomaly())
	assert.True(t, s.HoursWorked.IsZero())
	require.NotNil(t, s.ClockInID)
	require.NotNil(t, s.ClockOutID)
	assert.Contains(t, s.Notes, "out before in")
}

func TestReconcile_MissingClockOut(t *testing.T) {
	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 7, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftMissingClockOut, s.Type)
	assert.False(t, s.Complete)
	assert.NotNil(t, s.ClockInID)
	assert.Nil(t, s.ClockOutID)
	assert.Contains(t, s.Notes, "no matching clock-out")
}

func TestReconcile_MissingClockIn(t *testing.T) {
	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 18, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	assert.Equal(t, reconcile.ShiftMissingClockIn, shifts[0].Type)
}

func TestReconcile_WeekendIncomplete(t *testing.T) {
	// A lone punch on a Saturday files under the weekend variant.
	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 3, 8, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 3, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 3, 0, 0))
	require.Len(t, shifts, 1)
	assert.Equal(t, reconcile.ShiftWeekendPartial, shifts[0].Type)
	assert.True(t, shifts[0].Weekend)
}

func TestReconcile_HolidayIncomplete(t *testing.T) {
	mem, rec := setup(t, reconcile.OvertimeFlat)
	require.NoError(t, mem.AddHoliday(context.Background(), reconcile.HolidayEntry{
		Start:  at(2025, time.May, 1, 0, 0),
		End:    at(2025, time.May, 1, 0, 0),
		Name:   "Labour Day",
		Public: true,
	}))
	mem.AddPunch("2"+testPin, at(2025, time.May, 1, 14, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 1, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 1, 0, 0))
	require.Len(t, shifts, 1)
	assert.Equal(t, reconcile.ShiftHolidayPartial, shifts[0].Type)
	assert.True(t, shifts[0].Holiday)
}

// =============================================================================
// HUMAN-ERROR OVERRIDES
// =============================================================================

func TestReconcile_InInOverride(t *testing.T) {
	// GIVEN: Two ins hours apart on one day, no out anywhere
	// THEN: The second in stands in as the out and the pairing is
	//       flagged on the notes

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 7, 0))
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 9, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftDay, s.Type)
	assert.True(t, s.Complete)
	eq(t, "2", s.HoursWorked, "hours")
	assert.Contains(t, s.Notes, "human-error pairing (in_in_override)")
}

func TestReconcile_OutOutOverride(t *testing.T) {
	// GIVEN: A day that opens with an out and closes with another out
	// THEN: The first stands in as the in, paired with the last out

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 8, 0))
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 17, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftDay, s.Type)
	eq(t, "9", s.HoursWorked, "hours")
	assert.Contains(t, s.Notes, "human-error pairing (out_out_override)")
}

func TestReconcile_TrailingShortPairFoldsIntoDay(t *testing.T) {
	// GIVEN: A full day shift followed by an isolated in closed 2
	//        minutes later
	// THEN: The trailing pair is a very short complete shift, folded
	//       into the day's record to keep one record per shift date

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 7, 0))
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 18, 0))
	mem.AddPunch("1"+testPin, at(2025, time.May, 5, 19, 0))
	mem.AddPunch("2"+testPin, at(2025, time.May, 5, 19, 2))

	n, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftDay, s.Type)
	assert.Contains(t, s.Notes, "also:")
	assert.Contains(t, s.Notes, "accidental double punch")
}

func TestReconcile_UnknownPrefixFilesUnhandled(t *testing.T) {
	// GIVEN: A punch whose pin prefix is neither 1 nor 2
	// THEN: It survives as an unhandled_pattern record carrying the raw
	//       punch evidence

	mem, _ := setup(t, reconcile.OvertimeFlat)
	stub := &stubPunchStore{punches: []reconcile.Punch{{
		ID:        7,
		RawPin:    "9" + testPin,
		Timestamp: at(2025, time.May, 5, 12, 0),
	}}}
	rec := reconcile.NewReconciler(stub, mem, mem, mem, reconcile.DefaultRules())

	n, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shifts := listDay(t, mem, at(2025, time.May, 5, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	assert.Equal(t, reconcile.ShiftUnhandledPattern, s.Type)
	assert.Contains(t, s.Notes, "unknown@2025-05-05 12:00#7")
}

type stubPunchStore struct {
	punches []reconcile.Punch
}

func (s *stubPunchStore) FetchRange(_ context.Context, _ string, from, to time.Time) ([]reconcile.Punch, error) {
	var out []reconcile.Punch
	for _, p := range s.punches {
		if !p.Timestamp.Before(from) && !p.Timestamp.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// =============================================================================
// SUNDAY WEEKLY EXEMPTION (end to end)
// =============================================================================

func TestReconcile_SundayExemptWithSparseWeek(t *testing.T) {
	// GIVEN: A segmented-policy employee whose only shift of the week
	//        ends on Sunday
	// THEN: The weekly-count exemption applies and the Sunday hours pay
	//       regular inside the day window

	mem, rec := setup(t, reconcile.OvertimeSegmented)
	mem.AddPunch("1"+testPin, at(2025, time.May, 4, 8, 0))
	mem.AddPunch("2"+testPin, at(2025, time.May, 4, 16, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 4, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 4, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	eq(t, "8", s.RegularHours, "regular")
	eq(t, "0", s.Overtime20, "ot2.0")
	assert.Contains(t, s.Notes, "sunday rate exemption")
}

func TestReconcile_SundayRateAfterFullWeek(t *testing.T) {
	// GIVEN: Three completed shifts already stored in the trailing week
	// WHEN: A fourth shift ends on Sunday
	// THEN: The exemption no longer applies and Sunday pays 2.0x

	mem, rec := setup(t, reconcile.OvertimeSegmented)

	seed := make([]reconcile.Shift, 0, 3)
	for d := 28; d <= 30; d++ { // Mon-Wed of the prior week
		day := at(2025, time.April, d, 0, 0)
		seed = append(seed, reconcile.Shift{
			ID:          day.Format("2006-01-02"),
			EmployeePin: testPin,
			ShiftDate:   day,
			Type:        reconcile.ShiftDay,
			Complete:    true,
		})
	}
	require.NoError(t, mem.ReplaceRange(context.Background(), testPin,
		at(2025, time.April, 28, 0, 0), at(2025, time.April, 30, 0, 0), seed))

	mem.AddPunch("1"+testPin, at(2025, time.May, 4, 8, 0))
	mem.AddPunch("2"+testPin, at(2025, time.May, 4, 16, 0))

	_, err := rec.ReconcileDay(context.Background(), testPin, at(2025, time.May, 4, 0, 0))
	require.NoError(t, err)

	shifts := listDay(t, mem, at(2025, time.May, 4, 0, 0))
	require.Len(t, shifts, 1)
	s := shifts[0]

	eq(t, "8", s.Overtime20, "ot2.0")
	eq(t, "0", s.RegularHours, "regular")
	assert.NotContains(t, s.Notes, "sunday rate exemption")
}

// =============================================================================
// IDEMPOTENCE AND ERRORS
// =============================================================================

func TestReconcile_Idempotent(t *testing.T) {
	// GIVEN: A messy week of punches
	// WHEN: The same window is reconciled twice
	// THEN: The stored records are identical byte for byte, IDs included

	mem, rec := setup(t, reconcile.OvertimeFlat)
	mem.AddPunch("1"+testPin, at(2025, time.April, 28, 7, 5))
	mem.AddPunch("2"+testPin, at(2025, time.April, 28, 18, 30))
	mem.AddPunch("1"+testPin, at(2025, time.April, 29, 18, 10))
	mem.AddPunch("2"+testPin, at(2025, time.April, 30, 6, 50))
	mem.AddPunch("1"+testPin, at(2025, time.May, 1, 9, 0))  // missing out
	mem.AddPunch("2"+testPin, at(2025, time.May, 2, 11, 0)) // missing in, past the morning cutoff

	from, to := at(2025, time.April, 28, 0, 0), at(2025, time.May, 2, 0, 0)

	n1, err := rec.Reconcile(context.Background(), testPin, from, to)
	require.NoError(t, err)
	first, err := mem.ListRange(context.Background(), testPin, from, to)
	require.NoError(t, err)

	n2, err := rec.Reconcile(context.Background(), testPin, from, to)
	require.NoError(t, err)
	second, err := mem.ListRange(context.Background(), testPin, from, to)
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Equal(t, first, second)
	assert.Len(t, first, 4) // 28th day, 29th night, two incompletes
}

func TestReconcile_UnknownEmployee(t *testing.T) {
	_, rec := setup(t, reconcile.OvertimeFlat)

	_, err := rec.ReconcileDay(context.Background(), "9999", at(2025, time.May, 5, 0, 0))
	assert.ErrorIs(t, err, reconcile.ErrEmployeeNotFound)
}

func TestReconcile_InvalidRange(t *testing.T) {
	_, rec := setup(t, reconcile.OvertimeFlat)

	_, err := rec.Reconcile(context.Background(), testPin,
		at(2025, time.May, 5, 0, 0), at(2025, time.May, 1, 0, 0))

	var re *reconcile.RangeError
	assert.True(t, errors.As(err, &re))
}

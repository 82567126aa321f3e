/*
reconciler.go - The per-employee, per-day reconciliation orchestrator

PURPOSE:
  Drives one employee's punch stream through the pairing strategies and
  the validation cascade, day by day, and atomically replaces the shift
  records for the window. This file owns all mutable per-run state: the
  used-punch set, the in-progress batch, and the per-batch calendar cache.

ALGORITHM (per calendar day, strict priority):
  1-4. Pairing strategies (see strategies.go). Every matched pair runs
       the validation cascade:
         a. out <= in                         -> inverted_times
         b. human-error pair under 5 minutes  -> double_punch_anomaly
         c. genuine pair under 15 minutes     -> short_shift_anomaly
         d. otherwise classify, compute lateness and the hour split,
            apply the Sunday weekly exemption, persist fully annotated
  5.   Leftover clock-ins: an out within the double-punch window makes a
       very short complete shift; otherwise missing_clockout (weekend /
       holiday variants on work-free days).
  6.   Leftover clock-outs: missing_clockin (same variants).
  Last resort: any unused punch activity that produced no record files
  as unhandled_pattern with the raw punches serialized into the notes.

IDEMPOTENCE:
  Before writing, every existing shift with shift_date in
  [rangeStart - 1 day, rangeEnd] is deleted in the same transaction that
  inserts the new batch. The one-day buffer voids stale night shifts
  filed under the day before the range. Re-running the same window with
  unchanged punches reproduces the records byte for byte.

FAILURE SEMANTICS:
  Data problems never abort the run; they become tagged records. Store
  and holiday-lookup failures abort the current employee's batch and
  propagate, because the output could not be trusted.
*/
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciler wires the engine to its stores. One Reconciler is safe for
// sequential use; give each concurrent employee run its own (the
// calendar cache and used set are created per call, so the only shared
// state is the stores themselves).
type Reconciler struct {
	punches   PunchStore
	shifts    ShiftStore
	employees EmployeeStore
	holidays  HolidayStore
	rules     Rules
}

func NewReconciler(punches PunchStore, shifts ShiftStore, employees EmployeeStore, holidays HolidayStore, rules Rules) *Reconciler {
	return &Reconciler{
		punches:   punches,
		shifts:    shifts,
		employees: employees,
		holidays:  holidays,
		rules:     rules,
	}
}

// ReconcileDay processes a single calendar day.
func (r *Reconciler) ReconcileDay(ctx context.Context, employeePin string, date time.Time) (int, error) {
	return r.Reconcile(ctx, employeePin, date, date)
}

// Reconcile processes [from, to] for one employee and returns the number
// of shift records written.
func (r *Reconciler) Reconcile(ctx context.Context, employeePin string, from, to time.Time) (int, error) {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return 0, &RangeError{From: from, To: to}
	}

	emp, err := r.employees.Get(ctx, employeePin)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return 0, fmt.Errorf("reconcile %s: %w", employeePin, err)
		}
		return 0, &StoreError{Op: "get_employee", EmployeePin: employeePin, Err: err}
	}

	// Buffer day on each side: night shifts reach across both edges.
	fetchFrom := from.AddDate(0, 0, -1)
	fetchTo := to.AddDate(0, 0, 2).Add(-time.Second)

	cal := NewCalendar(r.holidays)
	if err := cal.Preload(ctx, fetchFrom, fetchTo); err != nil {
		return 0, &StoreError{Op: "find_holidays", EmployeePin: employeePin, Err: err}
	}

	raw, err := r.punches.FetchRange(ctx, employeePin, fetchFrom, fetchTo)
	if err != nil {
		return 0, &StoreError{Op: "fetch_punches", EmployeePin: employeePin, Err: err}
	}
	punches := r.normalize(raw)

	run := &employeeRun{
		rec:     r,
		emp:     emp,
		cal:     cal,
		punches: r.rules.CollapseDuplicates(punches),
		used:    NewUsedSet(),
		filed:   make(map[string]int),
		windowFrom: from.AddDate(0, 0, -1), // delete window includes the buffer day
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := run.processDay(ctx, day); err != nil {
			return 0, err
		}
	}

	if err := r.shifts.ReplaceRange(ctx, employeePin, run.windowFrom, to, run.batch); err != nil {
		return 0, &StoreError{Op: "replace_shifts", EmployeePin: employeePin, Err: err}
	}
	return len(run.batch), nil
}

// normalize derives punch type and employee pin from the raw device pin.
func (r *Reconciler) normalize(punches []Punch) []Punch {
	out := make([]Punch, len(punches))
	for i, p := range punches {
		p.Type, p.EmployeePin = ParsePin(p.RawPin)
		if p.Type == PunchUnknown {
			log.Printf("reconcile: unrecognized pin prefix %q (punch %d), passing through", p.RawPin, p.ID)
		}
		out[i] = p
	}
	return out
}

// =============================================================================
// PER-EMPLOYEE RUN STATE
// =============================================================================

// employeeRun carries the mutable state of one employee's pass. Never
// shared across goroutines.
type employeeRun struct {
	rec        *Reconciler
	emp        Employee
	cal        *Calendar
	punches    []Punch
	used       UsedSet
	batch      []Shift
	filed      map[string]int // shift date -> index into batch
	windowFrom time.Time      // first date the pass will delete/replace
}

func (er *employeeRun) rules() Rules { return er.rec.rules }

func (er *employeeRun) processDay(ctx context.Context, day time.Time) error {
	pc := PairContext{Day: day, Punches: er.punches, Used: er.used, Rules: er.rules()}

	for _, strat := range Strategies() {
		pair, ok := strat.Match(pc)
		if !ok {
			continue
		}
		if err := er.filePair(ctx, pair); err != nil {
			return err
		}
		// Re-evaluate the chain once: a night close this morning and a
		// fresh start tonight can both legitimately land on one day.
		pc = PairContext{Day: day, Punches: er.punches, Used: er.used, Rules: er.rules()}
	}

	if err := er.fileLeftoverIns(ctx, day); err != nil {
		return err
	}
	if err := er.fileLeftoverOuts(ctx, day); err != nil {
		return err
	}
	er.fileUnhandled(day)
	return nil
}

// =============================================================================
// VALIDATION CASCADE AND COMPLETE-SHIFT ASSEMBLY
// =============================================================================

func (er *employeeRun) filePair(ctx context.Context, pair Pair) error {
	rules := er.rules()
	in, out := pair.In, pair.Out
	duration := out.Timestamp.Sub(in.Timestamp)

	er.used.Add(in.ID)
	er.used.Add(out.ID)

	// a. Inverted times are recorded, never silently dropped.
	if duration <= 0 {
		er.fileAnomalyPair(pair, ShiftInvertedTimes, "out before in")
		return nil
	}

	// b/c. Too-short pairings: the double-punch rule for human-error
	// pairs, the short-shift rule for genuine ones.
	if pair.HumanError && rules.AccidentalDoublePunch(duration) {
		er.fileAnomalyPair(pair, ShiftDoublePunch, fmt.Sprintf("same-type punches %s apart", duration))
		return nil
	}
	if !pair.HumanError && rules.TooShort(duration) {
		er.fileAnomalyPair(pair, ShiftTooShort, fmt.Sprintf("duration %s below minimum", duration))
		return nil
	}

	// d. A real shift: classify, split hours, annotate.
	return er.fileCompleteShift(ctx, pair)
}

func (er *employeeRun) fileCompleteShift(ctx context.Context, pair Pair) error {
	rules := er.rules()
	in, out := pair.In.Timestamp, pair.Out.Timestamp
	shiftDate := pair.ShiftDate

	shiftType := rules.Classify(in, out)

	holiday, err := er.cal.IsHoliday(ctx, shiftDate)
	if err != nil {
		return &StoreError{Op: "find_holidays", EmployeePin: er.emp.Pin, Err: err}
	}
	weekend := IsWeekend(shiftDate)

	sundayExempt, err := er.sundayExemption(ctx, shiftDate, out)
	if err != nil {
		return err
	}

	split, err := rules.AllocateHours(ctx, er.cal, AllocationInput{
		In:           in,
		Out:          out,
		Policy:       er.emp.Policy,
		SundayExempt: sundayExempt,
	})
	if err != nil {
		return &StoreError{Op: "find_holidays", EmployeePin: er.emp.Pin, Err: err}
	}
	if split.FlatOvertime {
		shiftType = ShiftOvertime
	}

	lateness := rules.Lateness(in, shiftType, weekend || holiday)

	var annotations []string
	if pair.HumanError {
		annotations = append(annotations, "human-error pairing ("+pair.Strategy+")")
	}
	if rules.TooLong(out.Sub(in)) {
		annotations = append(annotations, fmt.Sprintf("unusually long shift (> %dh)", rules.MaxShiftHours))
	}
	if er.humanErrorGapOn(shiftDate) {
		annotations = append(annotations, "large same-type punch gap, possible forgotten punch")
	}
	if sundayExempt {
		annotations = append(annotations, "sunday rate exemption (weekly shift count)")
	}

	shift := Shift{
		ID:              shiftID(er.emp.Pin, shiftDate),
		EmployeePin:     er.emp.Pin,
		ShiftDate:       shiftDate,
		ClockInID:       &pair.In.ID,
		ClockOutID:      &pair.Out.ID,
		ClockInAt:       &in,
		ClockOutAt:      &out,
		HoursWorked:     split.Total,
		RegularHours:    split.Regular,
		Overtime15:      split.OT15,
		Overtime20:      split.OT20,
		LatenessMinutes: lateness,
		Type:            shiftType,
		Complete:        true,
		Holiday:         holiday,
		Weekend:         weekend,
	}
	shift.Notes = ComposeNotes(NoteInput{
		Type:        shiftType,
		In:          &in,
		Out:         &out,
		Split:       split,
		Lateness:    lateness,
		Annotations: annotations,
	})

	er.used.MarkWindow(er.punches, in, out)
	er.addShift(shift)
	return nil
}

// fileAnomalyPair records a rejected pairing with both punches attached,
// zero hours, and an explanatory note.
func (er *employeeRun) fileAnomalyPair(pair Pair, shiftType ShiftType, reason string) {
	in, out := pair.In.Timestamp, pair.Out.Timestamp
	shift := Shift{
		ID:          shiftID(er.emp.Pin, pair.ShiftDate),
		EmployeePin: er.emp.Pin,
		ShiftDate:   pair.ShiftDate,
		ClockInID:   &pair.In.ID,
		ClockOutID:  &pair.Out.ID,
		ClockInAt:   &in,
		ClockOutAt:  &out,
		Type:        shiftType,
		Complete:    false,
		Weekend:     IsWeekend(pair.ShiftDate),
		HoursWorked: decimal.Zero, RegularHours: decimal.Zero,
		Overtime15: decimal.Zero, Overtime20: decimal.Zero,
	}
	shift.Notes = ComposeNotes(NoteInput{
		Type:        shiftType,
		In:          &in,
		Out:         &out,
		Annotations: []string{reason},
	})
	er.addShift(shift)
}

// =============================================================================
// LEFTOVER AND FALLBACK HANDLING (steps 5, 6, last resort)
// =============================================================================

func (er *employeeRun) fileLeftoverIns(ctx context.Context, day time.Time) error {
	rules := er.rules()
	for {
		ins := SelectPunches(er.punches, er.used, PunchFilter{Day: &day, Type: PunchIn})
		if len(ins) == 0 {
			return nil
		}
		in := ins[0]
		er.used.Add(in.ID)

		// A clock-out within the double-punch window makes this a real,
		// if suspiciously short, complete shift.
		window := in.Timestamp.Add(time.Duration(rules.DoublePunchMinutes) * time.Minute)
		if next := NextChronological(er.punches, er.used, in.Timestamp); next != nil &&
			next.Type == PunchOut && !next.Timestamp.After(window) {
			er.used.Add(next.ID)
			er.fileShortComplete(day, in, *next)
			continue
		}

		shiftType, err := er.incompleteType(ctx, day, ShiftMissingClockOut)
		if err != nil {
			return err
		}
		er.fileIncomplete(day, shiftType, &in, nil)
	}
}

func (er *employeeRun) fileLeftoverOuts(ctx context.Context, day time.Time) error {
	for {
		outs := SelectPunches(er.punches, er.used, PunchFilter{Day: &day, Type: PunchOut})
		if len(outs) == 0 {
			return nil
		}
		out := outs[len(outs)-1] // latest first: the most plausible shift end
		er.used.Add(out.ID)

		shiftType, err := er.incompleteType(ctx, day, ShiftMissingClockIn)
		if err != nil {
			return err
		}
		er.fileIncomplete(day, shiftType, nil, &out)
	}
}

// fileShortComplete records an isolated in closed by an out inside the
// double-punch window: a complete shift, just an implausibly short one.
func (er *employeeRun) fileShortComplete(day time.Time, in, out Punch) {
	inAt, outAt := in.Timestamp, out.Timestamp
	total := roundHours(outAt.Sub(inAt), er.rules().HoursPrecision)
	shift := Shift{
		ID:           shiftID(er.emp.Pin, day),
		EmployeePin:  er.emp.Pin,
		ShiftDate:    Day(day),
		ClockInID:    &in.ID,
		ClockOutID:   &out.ID,
		ClockInAt:    &inAt,
		ClockOutAt:   &outAt,
		Type:         ShiftDoublePunch,
		Complete:     true,
		Weekend:      IsWeekend(day),
		HoursWorked:  total,
		RegularHours: total,
		Overtime15:   decimal.Zero,
		Overtime20:   decimal.Zero,
	}
	shift.Notes = ComposeNotes(NoteInput{
		Type:        ShiftDoublePunch,
		In:          &inAt,
		Out:         &outAt,
		Split:       HourSplit{Total: total},
		Annotations: []string{"accidental double punch"},
	})
	er.addShift(shift)
}

// incompleteType maps a missing-counterpart day onto its calendar variant.
func (er *employeeRun) incompleteType(ctx context.Context, day time.Time, base ShiftType) (ShiftType, error) {
	holiday, err := er.cal.IsHoliday(ctx, day)
	if err != nil {
		return base, &StoreError{Op: "find_holidays", EmployeePin: er.emp.Pin, Err: err}
	}
	if holiday {
		return ShiftHolidayPartial, nil
	}
	if IsWeekend(day) {
		return ShiftWeekendPartial, nil
	}
	return base, nil
}

func (er *employeeRun) fileIncomplete(day time.Time, shiftType ShiftType, in, out *Punch) {
	shift := Shift{
		ID:          shiftID(er.emp.Pin, day),
		EmployeePin: er.emp.Pin,
		ShiftDate:   Day(day),
		Type:        shiftType,
		Complete:    false,
		Weekend:     IsWeekend(day),
		Holiday:     shiftType == ShiftHolidayPartial,
		HoursWorked: decimal.Zero, RegularHours: decimal.Zero,
		Overtime15: decimal.Zero, Overtime20: decimal.Zero,
	}
	note := NoteInput{Type: shiftType}
	if in != nil {
		shift.ClockInID, shift.ClockInAt = &in.ID, &in.Timestamp
		note.In = &in.Timestamp
		note.Annotations = []string{"no matching clock-out"}
	}
	if out != nil {
		shift.ClockOutID, shift.ClockOutAt = &out.ID, &out.Timestamp
		note.Out = &out.Timestamp
		note.Annotations = []string{"no matching clock-in"}
	}
	shift.Notes = ComposeNotes(note)
	er.addShift(shift)
}

// fileUnhandled is the last resort: unused punch activity that none of
// the branches could place still leaves an auditable record.
func (er *employeeRun) fileUnhandled(day time.Time) {
	leftover := SelectPunches(er.punches, er.used, PunchFilter{Day: &day})
	if len(leftover) == 0 {
		return
	}
	for _, p := range leftover {
		er.used.Add(p.ID)
	}
	if _, ok := er.filed[dayKey(day)]; ok {
		er.annotateFiled(day, DescribePunches(leftover))
		return
	}

	shift := Shift{
		ID:          shiftID(er.emp.Pin, day),
		EmployeePin: er.emp.Pin,
		ShiftDate:   Day(day),
		Type:        ShiftUnhandledPattern,
		Complete:    false,
		Weekend:     IsWeekend(day),
		HoursWorked: decimal.Zero, RegularHours: decimal.Zero,
		Overtime15: decimal.Zero, Overtime20: decimal.Zero,
	}
	shift.Notes = ComposeNotes(NoteInput{
		Type:        ShiftUnhandledPattern,
		Annotations: []string{DescribePunches(leftover)},
	})
	er.addShift(shift)
}

// =============================================================================
// SUNDAY WEEKLY EXEMPTION
// =============================================================================

// sundayExemption decides whether the weekly shift-count exception lifts
// the Sunday 2.0x rate for this shift. Applies only to segmented-policy
// employees whose shift ends on a Sunday: if the completed shifts in the
// trailing week, including this one, are below the threshold, the Sunday
// minutes are paid by the ordinary window rule.
func (er *employeeRun) sundayExemption(ctx context.Context, shiftDate time.Time, out time.Time) (bool, error) {
	if er.emp.Policy != OvertimeSegmented || out.Weekday() != time.Sunday {
		return false, nil
	}

	weekEnd := Day(out)
	weekStart := weekEnd.AddDate(0, 0, -7)

	count := 1 // this shift
	for _, s := range er.batch {
		if s.Complete && !s.ShiftDate.Before(weekStart) && !s.ShiftDate.After(weekEnd) {
			count++
		}
	}

	// Dates before the delete window still live in the store untouched.
	if weekStart.Before(er.windowFrom) {
		storeEnd := er.windowFrom.AddDate(0, 0, -1)
		if storeEnd.After(weekEnd) {
			storeEnd = weekEnd
		}
		stored, err := er.rec.shifts.CountComplete(ctx, er.emp.Pin, weekStart, storeEnd)
		if err != nil {
			return false, &StoreError{Op: "count_shifts", EmployeePin: er.emp.Pin, Err: err}
		}
		count += stored
	}

	return count < er.rules().WeeklyShiftExemptionCount, nil
}

// =============================================================================
// BATCH BOOKKEEPING
// =============================================================================

func dayKey(day time.Time) string { return Day(day).Format("2006-01-02") }

// shiftID derives a stable record ID from the employee and shift date so
// reprocessing an unchanged window reproduces records byte for byte.
func shiftID(employeePin string, shiftDate time.Time) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("shift:"+employeePin+":"+dayKey(shiftDate))).String()
}

// addShift appends to the batch, keeping one record per shift date. A
// second record for an already-filed date folds into the existing one's
// notes instead, preserving the unique-shift-date invariant without
// losing evidence.
func (er *employeeRun) addShift(s Shift) {
	key := dayKey(s.ShiftDate)
	if idx, ok := er.filed[key]; ok {
		er.batch[idx].Notes += "; also: " + s.Notes
		return
	}
	er.filed[key] = len(er.batch)
	er.batch = append(er.batch, s)
}

func (er *employeeRun) annotateFiled(day time.Time, note string) {
	if idx, ok := er.filed[dayKey(day)]; ok {
		er.batch[idx].Notes += "; also: " + note
	}
}

// humanErrorGapOn runs the informational forgotten-punch check over the
// shift date's own punches.
func (er *employeeRun) humanErrorGapOn(day time.Time) bool {
	var ins, outs []Punch
	for _, p := range er.punches {
		if !p.SameDay(day) {
			continue
		}
		switch p.Type {
		case PunchIn:
			ins = append(ins, p)
		case PunchOut:
			outs = append(outs, p)
		}
	}
	return er.rules().HumanErrorLikely(ins, outs)
}

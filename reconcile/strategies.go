/*
strategies.go - Ordered shift-pairing strategies

PURPOSE:
  Each pairing attempt is its own strategy object; the orchestrator tries them
  in strict priority order and the first match wins. Each strategy is
  pure: it inspects the punch stream and the used set but consumes
  nothing. The orchestrator marks punches used only after the match
  passes validation.

PRIORITY ORDER (see Strategies):
  1. nightEndingHere   a prior-evening clock-in closed by an early out
                       today; the shift files under the PRIOR day
  2. startingToday     earliest clock-in today closed by a same-day out,
                       a next-morning out, or (last resort) a same-day
                       out BEFORE the in, which validation then rejects
                       as inverted times
  3. inInOverride      the next punch after an unclosed clock-in is
                       itself a clock-in: treat it as a stand-in OUT
  4. outOutOverride    the day opens with a clock-out and a later one
                       exists: treat the first as a stand-in IN

  Strategies 3 and 4 are human-error pairings; their shifts carry the
  override flag so validation applies the accidental-double-punch rule
  instead of the short-shift rule.
*/
package reconcile

import "time"

// Pair is a candidate in/out match produced by a strategy.
type Pair struct {
	In, Out    Punch
	ShiftDate  time.Time
	HumanError bool
	Strategy   string
}

// PairContext is the read-only view a strategy matches against.
type PairContext struct {
	Day     time.Time
	Punches []Punch // full deduped employee window, chronological
	Used    UsedSet
	Rules   Rules
}

// PairingStrategy attempts one kind of match for the day under process.
type PairingStrategy interface {
	Name() string
	Match(pc PairContext) (Pair, bool)
}

// Strategies returns the pairing chain in priority order.
func Strategies() []PairingStrategy {
	return []PairingStrategy{
		nightEndingHere{},
		startingToday{},
		inInOverride{},
		outOutOverride{},
	}
}

// =============================================================================
// 1. NIGHT SHIFT ENDING THIS MORNING
// =============================================================================

type nightEndingHere struct{}

func (nightEndingHere) Name() string { return "night_ending_here" }

func (s nightEndingHere) Match(pc PairContext) (Pair, bool) {
	prevDay := pc.Day.AddDate(0, 0, -1)
	evening := Day(prevDay).Add(pc.Rules.EveningCutoff)
	morning := Day(pc.Day).Add(pc.Rules.MorningCutoff)

	ins := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &prevDay, Type: PunchIn})
	for _, in := range ins {
		if in.Timestamp.Before(evening) {
			continue
		}
		outs := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &pc.Day, Type: PunchOut})
		for _, out := range outs {
			if out.Timestamp.Before(morning) && out.Timestamp.After(in.Timestamp) {
				return Pair{In: in, Out: out, ShiftDate: Day(prevDay), Strategy: s.Name()}, true
			}
		}
	}
	return Pair{}, false
}

// =============================================================================
// 2. SHIFT STARTING TODAY
// =============================================================================

type startingToday struct{}

func (startingToday) Name() string { return "starting_today" }

func (s startingToday) Match(pc PairContext) (Pair, bool) {
	ins := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &pc.Day, Type: PunchIn})
	if len(ins) == 0 {
		return Pair{}, false
	}
	in := ins[0]

	sameDay := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &pc.Day, Type: PunchOut})
	for _, out := range sameDay {
		if out.Timestamp.After(in.Timestamp) {
			return Pair{In: in, Out: out, ShiftDate: Day(pc.Day), Strategy: s.Name()}, true
		}
	}

	nextDay := pc.Day.AddDate(0, 0, 1)
	cutoff := Day(nextDay).Add(pc.Rules.NextDayOutCutoff)
	nextOuts := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &nextDay, Type: PunchOut})
	for _, out := range nextOuts {
		if out.Timestamp.Before(cutoff) && out.Timestamp.After(in.Timestamp) {
			return Pair{In: in, Out: out, ShiftDate: Day(pc.Day), Strategy: s.Name()}, true
		}
	}

	// Last resort: a same-day out that precedes the in. Deliberately
	// surfaced as a pair so validation files it as inverted times rather
	// than two disconnected missing-counterpart records.
	if len(sameDay) > 0 {
		return Pair{In: in, Out: sameDay[0], ShiftDate: Day(pc.Day), Strategy: s.Name()}, true
	}
	return Pair{}, false
}

// =============================================================================
// 3. HUMAN ERROR: IN FOLLOWED BY IN
// =============================================================================

type inInOverride struct{}

func (inInOverride) Name() string { return "in_in_override" }

func (s inInOverride) Match(pc PairContext) (Pair, bool) {
	ins := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &pc.Day, Type: PunchIn})
	if len(ins) == 0 {
		return Pair{}, false
	}
	in := ins[0]

	next := NextChronological(pc.Punches, pc.Used, in.Timestamp)
	if next == nil || next.Type != PunchIn {
		return Pair{}, false
	}
	return Pair{In: in, Out: *next, ShiftDate: Day(pc.Day), HumanError: true, Strategy: s.Name()}, true
}

// =============================================================================
// 4. HUMAN ERROR: OUT FOLLOWED BY OUT
// =============================================================================

type outOutOverride struct{}

func (outOutOverride) Name() string { return "out_out_override" }

func (s outOutOverride) Match(pc PairContext) (Pair, bool) {
	today := SelectPunches(pc.Punches, pc.Used, PunchFilter{Day: &pc.Day})
	if len(today) == 0 || today[0].Type != PunchOut {
		return Pair{}, false
	}
	first := today[0]

	// Pair the stray opening out with the last out of the day, mirroring
	// the last-out-wins rule from duplicate collapse.
	var last *Punch
	for i := range today {
		if today[i].Type == PunchOut && today[i].Timestamp.After(first.Timestamp) {
			last = &today[i]
		}
	}
	if last == nil {
		return Pair{}, false
	}
	return Pair{In: first, Out: *last, ShiftDate: Day(pc.Day), HumanError: true, Strategy: s.Name()}, true
}

// anomaly.go - Stateless threshold predicates over shift durations.
package reconcile

import "time"

// TooShort reports whether a genuinely paired shift is below the minimum
// believable duration.
func (r Rules) TooShort(d time.Duration) bool {
	return d < time.Duration(r.MinShiftMinutes)*time.Minute
}

// TooLong reports whether a shift exceeds the maximum believable length.
// Flagged on the notes, never rejected.
func (r Rules) TooLong(d time.Duration) bool {
	return d > time.Duration(r.MaxShiftHours)*time.Hour
}

// AccidentalDoublePunch reports whether a human-error pairing (IN-IN or
// OUT-OUT) is so short the second punch was almost certainly a fumbled
// duplicate rather than a real counterpart. Never applied to genuine
// in/out pairs.
func (r Rules) AccidentalDoublePunch(d time.Duration) bool {
	return d < time.Duration(r.DoublePunchMinutes)*time.Minute
}

// HumanErrorLikely scans same-day punches of a single type and reports
// whether any two consecutive ones are separated by more than the
// human-error gap. A large same-type gap usually means the counterpart
// punch between them was forgotten. Informational only; it annotates the
// shift note and drives no pairing decision.
func (r Rules) HumanErrorLikely(ins, outs []Punch) bool {
	return hasGap(ins, r.HumanErrorGap) || hasGap(outs, r.HumanErrorGap)
}

func hasGap(punches []Punch, gap time.Duration) bool {
	for i := 1; i < len(punches); i++ {
		if punches[i].Timestamp.Sub(punches[i-1].Timestamp) > gap {
			return true
		}
	}
	return false
}

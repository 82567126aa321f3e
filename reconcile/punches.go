/*
punches.go - Punch selection and consumption tracking

PURPOSE:
  Pure helpers the orchestrator uses to walk the punch stream: filter by
  calendar day and type, skip punches already attributed to a shift, and
  mark whole time windows consumed.

USED SET:
  One UsedSet lives for exactly one employee's reconciliation pass. It is
  threaded explicitly through the call chain; there is no package-level
  state. A punch ID in the set can never be attributed to a second shift
  within the pass, which is the punch-conservation invariant.
*/
package reconcile

import "time"

// UsedSet tracks punch IDs already attributed to a shift in the current
// reconciliation pass. Not safe for concurrent use; each employee run
// owns exactly one.
type UsedSet map[int64]struct{}

func NewUsedSet() UsedSet { return make(UsedSet) }

func (u UsedSet) Has(id int64) bool { _, ok := u[id]; return ok }

func (u UsedSet) Add(id int64) { u[id] = struct{}{} }

// MarkWindow consumes every punch whose timestamp falls in [from, to].
func (u UsedSet) MarkWindow(punches []Punch, from, to time.Time) {
	for _, p := range punches {
		if !p.Timestamp.Before(from) && !p.Timestamp.After(to) {
			u.Add(p.ID)
		}
	}
}

// PunchFilter narrows a selection. Zero value matches everything unused.
type PunchFilter struct {
	Day  *time.Time // match this calendar day only
	Type PunchType  // PunchUnknown means any type
}

// SelectPunches returns the punches matching the filter that are not yet
// in the used set, preserving chronological order.
func SelectPunches(punches []Punch, used UsedSet, f PunchFilter) []Punch {
	var out []Punch
	for _, p := range punches {
		if used.Has(p.ID) {
			continue
		}
		if f.Type != PunchUnknown && p.Type != f.Type {
			continue
		}
		if f.Day != nil && !p.SameDay(*f.Day) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// NextChronological returns the first unused punch of any type strictly
// after t, or nil. Used by the IN-IN human-error override, which needs
// to know what the very next event on the clock was.
func NextChronological(punches []Punch, used UsedSet, t time.Time) *Punch {
	for i := range punches {
		if used.Has(punches[i].ID) {
			continue
		}
		if punches[i].Timestamp.After(t) {
			return &punches[i]
		}
	}
	return nil
}

// notes.go - Human-readable shift annotation.
//
// Notes are the audit trail a payroll clerk reads when a shift looks odd.
// The field order is fixed so reprocessing the same punches reproduces
// the same string byte for byte.
package reconcile

import (
	"fmt"
	"strings"
	"time"
)

const noteTimeLayout = "2006-01-02 15:04"

// NoteInput is everything that can appear on a shift note.
type NoteInput struct {
	Type        ShiftType
	In, Out     *time.Time
	Split       HourSplit
	Lateness    int
	Annotations []string // anomaly and human-error remarks, already ordered
}

// ComposeNotes renders the deterministic semicolon-joined summary.
func ComposeNotes(n NoteInput) string {
	parts := []string{"type=" + string(n.Type)}

	if n.In != nil {
		parts = append(parts, "in="+n.In.Format(noteTimeLayout))
	}
	if n.Out != nil {
		parts = append(parts, "out="+n.Out.Format(noteTimeLayout))
	}
	if n.In != nil && n.Out != nil && n.Split.Total.IsPositive() {
		parts = append(parts, "hours="+n.Split.Total.String())
	}
	if n.Lateness > 0 {
		parts = append(parts, fmt.Sprintf("late=%dm", n.Lateness))
	}
	if n.Split.OT15.IsPositive() {
		parts = append(parts, "ot1.5="+n.Split.OT15.String())
	}
	if n.Split.OT20.IsPositive() {
		parts = append(parts, "ot2.0="+n.Split.OT20.String())
	}
	parts = append(parts, n.Annotations...)

	return strings.Join(parts, "; ")
}

// DescribePunches serializes a raw punch set for unhandled_pattern notes
// so the original evidence survives into the audit trail.
func DescribePunches(punches []Punch) string {
	if len(punches) == 0 {
		return "no punches"
	}
	items := make([]string, 0, len(punches))
	for _, p := range punches {
		items = append(items, fmt.Sprintf("%s@%s#%d",
			p.Type, p.Timestamp.Format(noteTimeLayout), p.ID))
	}
	return "punches[" + strings.Join(items, ",") + "]"
}

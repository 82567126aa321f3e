/*
dedupe.go - Duplicate punch collapse

PURPOSE:
  Workers fumble the reader: two or three same-type punches land within
  seconds or minutes of each other. Before any pairing runs, consecutive
  same-type punches inside the duplicate window collapse to one:

    clock-ins:  keep the FIRST of the cluster (actual arrival)
    clock-outs: keep the LAST of the cluster (actual departure)

  A cluster is chained: each punch within the window of the PREVIOUS one
  extends the cluster, so three outs nine minutes apart still collapse to
  the final out. Punch type comes solely from the raw pin prefix digit;
  punches with an unrecognized prefix pass through unchanged and the
  caller logs them.
*/
package reconcile

// CollapseDuplicates filters a chronologically sorted punch stream,
// removing same-type punches that repeat within the duplicate window.
// The input slice is not modified.
func (r Rules) CollapseDuplicates(punches []Punch) []Punch {
	if len(punches) < 2 {
		return append([]Punch(nil), punches...)
	}

	out := make([]Punch, 0, len(punches))
	for i, p := range punches {
		if p.Type == PunchUnknown || len(out) == 0 {
			out = append(out, p)
			continue
		}

		prev := punches[i-1]
		last := &out[len(out)-1]
		sameCluster := last.Type == p.Type && prev.Type == p.Type &&
			p.Timestamp.Sub(prev.Timestamp) <= r.DuplicateWindow

		if !sameCluster {
			out = append(out, p)
			continue
		}

		// Within a cluster: first-in wins, last-out wins.
		if p.Type == PunchOut {
			*last = p
		}
	}
	return out
}

/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	punch data for testing and demos. Each scenario creates employees,
	raw device punches, and holidays, then runs the engine so the shift
	table is immediately browsable.

AVAILABLE SCENARIOS:

	clean-week:     A flat-policy day worker with an uneventful week
	night-crew:     Cross-midnight night shifts filed under the start day
	messy-punches:  Duplicates, missing counterparts, inverted times
	overtime-week:  Segmented-policy worker across Saturday, Sunday and
	                a public holiday

HOW SCENARIOS WORK:
 1. Register the scenario's employees
 2. Ingest a week of raw punches anchored to the most recent full
    Monday-Sunday week, so weekday-dependent rules land predictably
 3. Add holidays where the scenario needs them
 4. Reconcile the window for every seeded employee

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "messy-punches"}

NOTE:

	Scenarios seed additively under reserved demo pins (83xx range).
	Reloading a scenario re-reconciles the same window, which rewrites
	identical records. Development and demo environments only.

SEE ALSO:
  - handlers.go: The Store surface the loaders seed through
  - reconcile/reconciler.go: The engine each loader runs
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shiftworks/shift-engine/reconcile"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "clean-week",
		Name:        "Clean Week",
		Description: "Five uneventful day shifts for a flat-policy worker",
	},
	{
		ID:          "night-crew",
		Name:        "Night Crew",
		Description: "Cross-midnight night shifts filed under the start day",
	},
	{
		ID:          "messy-punches",
		Name:        "Messy Punches",
		Description: "Duplicate, missing and inverted punches surfacing as tagged anomalies",
	},
	{
		ID:          "overtime-week",
		Name:        "Overtime Week",
		Description: "Segmented-policy worker across Saturday, Sunday and a public holiday",
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds one scenario and reconciles its window.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		pins []string
		err  error
	)
	ctx := r.Context()
	switch req.ScenarioID {
	case "clean-week":
		pins, err = h.loadCleanWeekScenario(ctx)
	case "night-crew":
		pins, err = h.loadNightCrewScenario(ctx)
	case "messy-punches":
		pins, err = h.loadMessyPunchesScenario(ctx)
	case "overtime-week":
		pins, err = h.loadOvertimeWeekScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	from, to := demoWeek()
	written := 0
	rec := h.reconciler()
	for _, pin := range pins {
		n, err := rec.Reconcile(ctx, pin, from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reconcile scenario", err)
			return
		}
		written += n
	}

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ScenarioID:    req.ScenarioID,
		EmployeePins:  pins,
		WindowStart:   from.Format(dateLayout),
		WindowEnd:     to.Format(dateLayout),
		ShiftsWritten: written,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// demoWeek returns the most recent fully elapsed Monday..Sunday week, so
// every scenario's weekday-sensitive rules land on the intended days.
func demoWeek() (time.Time, time.Time) {
	today := reconcile.Day(time.Now())
	daysSinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -daysSinceMonday-7)
	return monday, monday.AddDate(0, 0, 6)
}

func (h *Handler) loadCleanWeekScenario(ctx context.Context) ([]string, error) {
	const pin = "8301"
	if err := h.Store.PutEmployee(ctx, reconcile.Employee{
		Pin: pin, Name: "Dana Mills", Occupation: "operator", Team: "packing",
		Policy: reconcile.OvertimeFlat,
	}); err != nil {
		return nil, err
	}

	monday, _ := demoWeek()
	for d := 0; d < 5; d++ {
		day := monday.AddDate(0, 0, d)
		if err := h.seedPunch(ctx, "1"+pin, day.Add(7*time.Hour+2*time.Minute)); err != nil {
			return nil, err
		}
		if err := h.seedPunch(ctx, "2"+pin, day.Add(17*time.Hour+58*time.Minute)); err != nil {
			return nil, err
		}
	}
	return []string{pin}, nil
}

func (h *Handler) loadNightCrewScenario(ctx context.Context) ([]string, error) {
	const pin = "8302"
	if err := h.Store.PutEmployee(ctx, reconcile.Employee{
		Pin: pin, Name: "Rui Costa", Occupation: "operator", Team: "furnace",
		Policy: reconcile.OvertimeFlat,
	}); err != nil {
		return nil, err
	}

	monday, _ := demoWeek()
	for d := 0; d < 4; d++ {
		day := monday.AddDate(0, 0, d)
		if err := h.seedPunch(ctx, "1"+pin, day.Add(18*time.Hour+5*time.Minute)); err != nil {
			return nil, err
		}
		if err := h.seedPunch(ctx, "2"+pin, day.AddDate(0, 0, 1).Add(6*time.Hour+55*time.Minute)); err != nil {
			return nil, err
		}
	}
	return []string{pin}, nil
}

func (h *Handler) loadMessyPunchesScenario(ctx context.Context) ([]string, error) {
	const pin = "8303"
	if err := h.Store.PutEmployee(ctx, reconcile.Employee{
		Pin: pin, Name: "Petra Novak", Occupation: "operator", Team: "packing",
		Policy: reconcile.OvertimeFlat,
	}); err != nil {
		return nil, err
	}

	monday, _ := demoWeek()

	// Monday: duplicate ins and outs that collapse to one clean shift.
	for _, p := range []struct {
		raw string
		at  time.Duration
	}{
		{"1" + pin, 6*time.Hour + 58*time.Minute},
		{"1" + pin, 7*time.Hour + 4*time.Minute},
		{"2" + pin, 18*time.Hour + 1*time.Minute},
		{"2" + pin, 18*time.Hour + 6*time.Minute},
	} {
		if err := h.seedPunch(ctx, p.raw, monday.Add(p.at)); err != nil {
			return nil, err
		}
	}

	// Tuesday: a forgotten clock-out.
	if err := h.seedPunch(ctx, "1"+pin, monday.AddDate(0, 0, 1).Add(7*time.Hour)); err != nil {
		return nil, err
	}

	// Wednesday: a forgotten clock-in.
	if err := h.seedPunch(ctx, "2"+pin, monday.AddDate(0, 0, 2).Add(18*time.Hour)); err != nil {
		return nil, err
	}

	// Thursday: out before in, surfaced as inverted times.
	if err := h.seedPunch(ctx, "2"+pin, monday.AddDate(0, 0, 3).Add(9*time.Hour)); err != nil {
		return nil, err
	}
	if err := h.seedPunch(ctx, "1"+pin, monday.AddDate(0, 0, 3).Add(18*time.Hour)); err != nil {
		return nil, err
	}

	return []string{pin}, nil
}

func (h *Handler) loadOvertimeWeekScenario(ctx context.Context) ([]string, error) {
	const pin = "8304"
	if err := h.Store.PutEmployee(ctx, reconcile.Employee{
		Pin: pin, Name: "Sami Aldin", Occupation: "operator", Team: "blowmolding",
		Policy: reconcile.OvertimeSegmented,
	}); err != nil {
		return nil, err
	}

	monday, _ := demoWeek()

	// A public holiday on Thursday pays that whole shift at 2.0x.
	thursday := monday.AddDate(0, 0, 3)
	if err := h.Store.AddHoliday(ctx, reconcile.HolidayEntry{
		Start: thursday, End: thursday, Name: "Demo Holiday", Public: true,
	}); err != nil {
		return nil, err
	}

	// Monday through Sunday: enough completed shifts that the Sunday
	// weekly-count exemption does not apply.
	for d := 0; d < 7; d++ {
		day := monday.AddDate(0, 0, d)
		if err := h.seedPunch(ctx, "1"+pin, day.Add(7*time.Hour)); err != nil {
			return nil, err
		}
		if err := h.seedPunch(ctx, "2"+pin, day.Add(16*time.Hour)); err != nil {
			return nil, err
		}
	}
	return []string{pin}, nil
}

func (h *Handler) seedPunch(ctx context.Context, rawPin string, at time.Time) error {
	_, err := h.Store.InsertPunch(ctx, reconcile.Punch{RawPin: rawPin, Timestamp: at})
	return err
}

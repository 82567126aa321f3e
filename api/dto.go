/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shiftworks/shift-engine/reconcile"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ReconcileRequest triggers a reconciliation pass over a date range.
type ReconcileRequest struct {
	EmployeePin string `json:"employee_pin"`
	Start       string `json:"start"` // 2006-01-02
	End         string `json:"end"`   // 2006-01-02
}

// ReconcileDayRequest is the single-day convenience variant.
type ReconcileDayRequest struct {
	EmployeePin string `json:"employee_pin"`
	Date        string `json:"date"`
}

// ReconcileResponse reports how many shift records were written.
type ReconcileResponse struct {
	EmployeePin   string `json:"employee_pin"`
	ShiftsWritten int    `json:"shifts_written"`
}

// ShiftDTO is one row of the reconciled shift table.
type ShiftDTO struct {
	ID              string     `json:"id"`
	EmployeePin     string     `json:"employee_pin"`
	ShiftDate       string     `json:"shift_date"`
	ClockInID       *int64     `json:"clock_in_id,omitempty"`
	ClockOutID      *int64     `json:"clock_out_id,omitempty"`
	ClockInAt       *time.Time `json:"clock_in_at,omitempty"`
	ClockOutAt      *time.Time `json:"clock_out_at,omitempty"`
	HoursWorked     string     `json:"hours_worked"`
	RegularHours    string     `json:"regular_hours"`
	Overtime15      string     `json:"overtime_1_5"`
	Overtime20      string     `json:"overtime_2_0"`
	LatenessMinutes int        `json:"lateness_minutes"`
	ShiftType       string     `json:"shift_type"`
	IsComplete      bool       `json:"is_complete"`
	IsHoliday       bool       `json:"is_holiday"`
	IsWeekend       bool       `json:"is_weekend"`
	Notes           string     `json:"notes"`
}

func toShiftDTO(s reconcile.Shift) ShiftDTO {
	return ShiftDTO{
		ID:              s.ID,
		EmployeePin:     s.EmployeePin,
		ShiftDate:       s.ShiftDate.Format("2006-01-02"),
		ClockInID:       s.ClockInID,
		ClockOutID:      s.ClockOutID,
		ClockInAt:       s.ClockInAt,
		ClockOutAt:      s.ClockOutAt,
		HoursWorked:     s.HoursWorked.String(),
		RegularHours:    s.RegularHours.String(),
		Overtime15:      s.Overtime15.String(),
		Overtime20:      s.Overtime20.String(),
		LatenessMinutes: s.LatenessMinutes,
		ShiftType:       string(s.Type),
		IsComplete:      s.Complete,
		IsHoliday:       s.Holiday,
		IsWeekend:       s.Weekend,
		Notes:           s.Notes,
	}
}

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	Pin            string `json:"pin"`
	Name           string `json:"name"`
	Occupation     string `json:"occupation,omitempty"`
	Team           string `json:"team,omitempty"`
	OvertimePolicy string `json:"overtime_policy"`
}

// CreateEmployeeRequest registers an employee with the engine.
type CreateEmployeeRequest struct {
	Pin            string `json:"pin"`
	Name           string `json:"name"`
	Occupation     string `json:"occupation"`
	Team           string `json:"team"`
	OvertimePolicy string `json:"overtime_policy"` // "flat" or "segmented"
}

// PunchDTO is one raw device event in an ingest payload. RawPin carries
// the device prefix digit ('1' = in, '2' = out) plus the employee code.
type PunchDTO struct {
	RawPin       string    `json:"raw_pin"`
	Timestamp    time.Time `json:"timestamp"`
	VerifyMethod int       `json:"verify_method,omitempty"`
	Status       int       `json:"status,omitempty"`
	WorkCode     int       `json:"work_code,omitempty"`
}

// IngestPunchesRequest is a bulk device dump.
type IngestPunchesRequest struct {
	Punches []PunchDTO `json:"punches"`
}

// IngestPunchesResponse reports the assigned punch IDs in input order.
type IngestPunchesResponse struct {
	PunchIDs []int64 `json:"punch_ids"`
}

// HolidayDTO is one calendar entry.
type HolidayDTO struct {
	Start    string `json:"start"` // 2006-01-02
	End      string `json:"end"`
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to seed.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what the loader seeded and reconciled.
type LoadScenarioResponse struct {
	ScenarioID    string   `json:"scenario_id"`
	EmployeePins  []string `json:"employee_pins"`
	WindowStart   string   `json:"window_start"`
	WindowEnd     string   `json:"window_end"`
	ShiftsWritten int      `json:"shifts_written"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

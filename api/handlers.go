/*
handlers.go - HTTP API handlers for the shift reconciliation engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Reconciliation:
    POST   /api/reconcile               Reconcile a date range for one employee
    POST   /api/reconcile/day           Single-day convenience variant

  Shifts:
    GET    /api/employees/{pin}/shifts  Reconciled shift table for a window

  Employees:
    GET    /api/employees               List registered employees
    POST   /api/employees               Register or update an employee

  Punches:
    POST   /api/punches                 Bulk ingest of raw device events

  Holidays:
    GET    /api/holidays                Calendar entries overlapping a window
    POST   /api/holidays                Add a calendar entry

  Demo scenarios (see scenarios.go):
    GET    /api/scenarios               List loadable scenarios
    POST   /api/scenarios/load          Seed and reconcile one scenario

SEE ALSO:
  - server.go: Router wiring
  - dto.go: JSON shapes
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shiftworks/shift-engine/reconcile"
)

const dateLayout = "2006-01-02"

// Store is the persistence surface the API needs: the engine's read
// interfaces plus the write paths the surrounding application owns.
// All three store backends satisfy it.
type Store interface {
	reconcile.PunchStore
	reconcile.ShiftStore
	reconcile.EmployeeStore
	reconcile.HolidayStore

	InsertPunch(ctx context.Context, p reconcile.Punch) (int64, error)
	PutEmployee(ctx context.Context, e reconcile.Employee) error
	AddHoliday(ctx context.Context, h reconcile.HolidayEntry) error
	ListEmployees(ctx context.Context) ([]reconcile.Employee, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store Store
	Rules reconcile.Rules
}

// NewHandler creates a handler over the given store.
func NewHandler(store Store, rules reconcile.Rules) *Handler {
	return &Handler{Store: store, Rules: rules}
}

func (h *Handler) reconciler() *reconcile.Reconciler {
	return reconcile.NewReconciler(h.Store, h.Store, h.Store, h.Store, h.Rules)
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// Reconcile runs the engine over a date range for one employee.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date", err)
		return
	}

	written, err := h.reconciler().Reconcile(r.Context(), req.EmployeePin, start, end)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, reconcile.ErrEmployeeNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, reconcile.ErrInvalidRange) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Reconciliation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		EmployeePin:   req.EmployeePin,
		ShiftsWritten: written,
	})
}

// ReconcileDay runs the engine for a single calendar day.
func (h *Handler) ReconcileDay(w http.ResponseWriter, r *http.Request) {
	var req ReconcileDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	written, err := h.reconciler().ReconcileDay(r.Context(), req.EmployeePin, date)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, reconcile.ErrEmployeeNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Reconciliation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		EmployeePin:   req.EmployeePin,
		ShiftsWritten: written,
	})
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns the reconciled shift table for a window.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	pin := chi.URLParam(r, "pin")
	start, end, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	shifts, err := h.Store.ListRange(r.Context(), pin, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all registered employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeDTO{
			Pin:            e.Pin,
			Name:           e.Name,
			Occupation:     e.Occupation,
			Team:           e.Team,
			OvertimePolicy: string(e.Policy),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee registers or updates an employee record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Pin == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "pin and name are required", nil)
		return
	}

	policy := reconcile.OvertimePolicy(req.OvertimePolicy)
	switch policy {
	case "":
		policy = reconcile.OvertimeFlat
	case reconcile.OvertimeFlat, reconcile.OvertimeSegmented:
	default:
		writeError(w, http.StatusBadRequest, "overtime_policy must be flat or segmented", nil)
		return
	}

	emp := reconcile.Employee{
		Pin:        req.Pin,
		Name:       req.Name,
		Occupation: req.Occupation,
		Team:       req.Team,
		Policy:     policy,
	}
	if err := h.Store.PutEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, EmployeeDTO{
		Pin:            emp.Pin,
		Name:           emp.Name,
		Occupation:     emp.Occupation,
		Team:           emp.Team,
		OvertimePolicy: string(emp.Policy),
	})
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// IngestPunches ingests a bulk device dump.
func (h *Handler) IngestPunches(w http.ResponseWriter, r *http.Request) {
	var req IngestPunchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Punches) == 0 {
		writeError(w, http.StatusBadRequest, "punches is empty", nil)
		return
	}

	ids := make([]int64, 0, len(req.Punches))
	for _, p := range req.Punches {
		if p.RawPin == "" || p.Timestamp.IsZero() {
			writeError(w, http.StatusBadRequest, "each punch needs raw_pin and timestamp", nil)
			return
		}
		id, err := h.Store.InsertPunch(r.Context(), reconcile.Punch{
			RawPin:       p.RawPin,
			Timestamp:    p.Timestamp,
			VerifyMethod: p.VerifyMethod,
			Status:       p.Status,
			WorkCode:     p.WorkCode,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to ingest punches", err)
			return
		}
		ids = append(ids, id)
	}
	writeJSON(w, http.StatusCreated, IngestPunchesResponse{PunchIDs: ids})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns calendar entries overlapping a window.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid window", err)
		return
	}

	entries, err := h.Store.FindOverlapping(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(entries))
	for i, e := range entries {
		dtos[i] = HolidayDTO{
			Start:    e.Start.Format(dateLayout),
			End:      e.End.Format(dateLayout),
			Name:     e.Name,
			IsPublic: e.Public,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds one calendar entry.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date", err)
		return
	}
	end := start
	if req.End != "" {
		if end, err = time.Parse(dateLayout, req.End); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date", err)
			return
		}
	}

	entry := reconcile.HolidayEntry{Start: start, End: end, Name: req.Name, Public: req.IsPublic}
	if err := h.Store.AddHoliday(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, err := time.Parse(dateLayout, q.Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(dateLayout, q.Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		log.Printf("api: %s: %v", msg, err)
		msg = msg + ": " + err.Error()
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

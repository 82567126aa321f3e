package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftworks/shift-engine/api"
	"github.com/shiftworks/shift-engine/reconcile"
	"github.com/shiftworks/shift-engine/reconcile/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestRouter() (http.Handler, *store.Memory) {
	mem := store.NewMemory()
	h := api.NewHandler(mem, reconcile.DefaultRules())
	return api.NewRouter(h), mem
}

func ts(hour, min int) time.Time {
	return time.Date(2025, time.May, 5, hour, min, 0, 0, time.UTC) // a Monday
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	router, _ := newTestRouter()
	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestCreateEmployee(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Pin: "1042", Name: "Ana", Team: "packing",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	emp := decode[api.EmployeeDTO](t, rec)
	assert.Equal(t, "1042", emp.Pin)
	// Policy defaults to flat when omitted.
	assert.Equal(t, "flat", emp.OvertimePolicy)

	rec = doJSON(t, router, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.EmployeeDTO](t, rec)
	assert.Len(t, list, 1)
}

func TestCreateEmployee_Validation(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{Name: "no pin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Pin: "1042", Name: "Ana", OvertimePolicy: "tripletime",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PUNCH INGEST
// =============================================================================

func TestIngestPunches(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/punches", api.IngestPunchesRequest{
		Punches: []api.PunchDTO{
			{RawPin: "11042", Timestamp: ts(7, 5)},
			{RawPin: "21042", Timestamp: ts(18, 30)},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decode[api.IngestPunchesResponse](t, rec)
	assert.Len(t, resp.PunchIDs, 2)
}

func TestIngestPunches_Empty(t *testing.T) {
	router, _ := newTestRouter()
	rec := doJSON(t, router, http.MethodPost, "/api/punches", api.IngestPunchesRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// RECONCILIATION FLOW
// =============================================================================

func TestReconcileFlow(t *testing.T) {
	// GIVEN: A registered employee and one clean day of punches
	// WHEN: The day is reconciled over the API
	// THEN: The shift table endpoint serves the classified record

	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Pin: "1042", Name: "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/punches", api.IngestPunchesRequest{
		Punches: []api.PunchDTO{
			{RawPin: "11042", Timestamp: ts(7, 5)},
			{RawPin: "21042", Timestamp: ts(18, 30)},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/reconcile", api.ReconcileRequest{
		EmployeePin: "1042", Start: "2025-05-05", End: "2025-05-05",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[api.ReconcileResponse](t, rec)
	assert.Equal(t, 1, result.ShiftsWritten)

	rec = doJSON(t, router, http.MethodGet, "/api/employees/1042/shifts?start=2025-05-05&end=2025-05-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shifts := decode[[]api.ShiftDTO](t, rec)
	require.Len(t, shifts, 1)

	assert.Equal(t, "day", shifts[0].ShiftType)
	assert.True(t, shifts[0].IsComplete)
	assert.Equal(t, "11.42", shifts[0].HoursWorked)
	assert.Equal(t, "0.5", shifts[0].Overtime15)
	assert.Equal(t, 5, shifts[0].LatenessMinutes)
}

func TestReconcile_UnknownEmployeeIs404(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/reconcile", api.ReconcileRequest{
		EmployeePin: "9999", Start: "2025-05-05", End: "2025-05-05",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReconcile_BadDates(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/reconcile", api.ReconcileRequest{
		EmployeePin: "1042", Start: "05/05/2025", End: "2025-05-05",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileDay(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/employees", api.CreateEmployeeRequest{
		Pin: "1042", Name: "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/reconcile/day", api.ReconcileDayRequest{
		EmployeePin: "1042", Date: "2025-05-05",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[api.ReconcileResponse](t, rec)
	assert.Equal(t, 0, result.ShiftsWritten)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidayEndpoints(t *testing.T) {
	router, _ := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/holidays", api.HolidayDTO{
		Start: "2025-05-01", Name: "Labour Day", IsPublic: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/holidays?start=2025-05-01&end=2025-05-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.HolidayDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Labour Day", list[0].Name)
	assert.True(t, list[0].IsPublic)
}

func TestListShifts_MissingWindow(t *testing.T) {
	router, _ := newTestRouter()
	rec := doJSON(t, router, http.MethodGet, "/api/employees/1042/shifts", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

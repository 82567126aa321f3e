// Package store provides in-memory implementations of the reconcile
// store interfaces, for tests and dev servers.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shiftworks/shift-engine/reconcile"
)

// =============================================================================
// MEMORY - In-memory implementation of every store interface
// =============================================================================

// Memory implements PunchStore, ShiftStore, EmployeeStore and
// HolidayStore behind one mutex. Suitable for tests and single-process
// dev servers only.
type Memory struct {
	mu        sync.RWMutex
	punches   map[string][]reconcile.Punch // employee pin -> chronological
	shifts    map[string][]reconcile.Shift // employee pin -> by shift date
	employees map[string]reconcile.Employee
	holidays  []reconcile.HolidayEntry
	nextPunch int64
}

func NewMemory() *Memory {
	return &Memory{
		punches:   make(map[string][]reconcile.Punch),
		shifts:    make(map[string][]reconcile.Shift),
		employees: make(map[string]reconcile.Employee),
		nextPunch: 1,
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// PutEmployee registers or replaces an employee record.
func (m *Memory) PutEmployee(_ context.Context, e reconcile.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.Pin] = e
	return nil
}

// AddHoliday appends a calendar entry.
func (m *Memory) AddHoliday(_ context.Context, h reconcile.HolidayEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
	return nil
}

// InsertPunch records a raw device punch and returns its assigned ID.
// The employee pin is derived from the raw device pin.
func (m *Memory) InsertPunch(_ context.Context, p reconcile.Punch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextPunch
	m.nextPunch++
	p.Type, p.EmployeePin = reconcile.ParsePin(p.RawPin)

	list := m.punches[p.EmployeePin]
	i := sort.Search(len(list), func(i int) bool { return list[i].Timestamp.After(p.Timestamp) })
	list = append(list, reconcile.Punch{})
	copy(list[i+1:], list[i:])
	list[i] = p
	m.punches[p.EmployeePin] = list
	return p.ID, nil
}

// AddPunch is a seeding shorthand for tests.
func (m *Memory) AddPunch(rawPin string, ts time.Time) int64 {
	id, _ := m.InsertPunch(context.Background(), reconcile.Punch{RawPin: rawPin, Timestamp: ts})
	return id
}

// =============================================================================
// PUNCH STORE
// =============================================================================

func (m *Memory) FetchRange(_ context.Context, employeePin string, from, to time.Time) ([]reconcile.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []reconcile.Punch
	for _, p := range m.punches[employeePin] {
		if !p.Timestamp.Before(from) && !p.Timestamp.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (m *Memory) FindOverlapping(_ context.Context, from, to time.Time) ([]reconcile.HolidayEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []reconcile.HolidayEntry
	for _, h := range m.holidays {
		if !h.End.Before(from) && !h.Start.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (m *Memory) Get(_ context.Context, pin string) (reconcile.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[pin]
	if !ok {
		return reconcile.Employee{}, reconcile.ErrEmployeeNotFound
	}
	return e, nil
}

// ListEmployees returns all registered employees sorted by pin.
func (m *Memory) ListEmployees(_ context.Context) ([]reconcile.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]reconcile.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pin < out[j].Pin })
	return out, nil
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (m *Memory) ReplaceRange(_ context.Context, employeePin string, from, to time.Time, shifts []reconcile.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []reconcile.Shift
	for _, s := range m.shifts[employeePin] {
		if s.ShiftDate.Before(from) || s.ShiftDate.After(to) {
			kept = append(kept, s)
		}
	}
	kept = append(kept, shifts...)
	sort.Slice(kept, func(i, j int) bool { return kept[i].ShiftDate.Before(kept[j].ShiftDate) })
	m.shifts[employeePin] = kept
	return nil
}

func (m *Memory) ListRange(_ context.Context, employeePin string, from, to time.Time) ([]reconcile.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []reconcile.Shift
	for _, s := range m.shifts[employeePin] {
		if !s.ShiftDate.Before(from) && !s.ShiftDate.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) CountComplete(_ context.Context, employeePin string, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.shifts[employeePin] {
		if s.Complete && !s.ShiftDate.Before(from) && !s.ShiftDate.After(to) {
			n++
		}
	}
	return n, nil
}

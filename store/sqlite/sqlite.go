/*
Package sqlite provides a SQLite-backed implementation of the reconcile
storage interfaces.

PURPOSE:
  Implements PunchStore, ShiftStore, EmployeeStore and HolidayStore on a
  single SQLite database. The same schema and statements carry over to
  PostgreSQL with minor dialect changes; see store/postgres for the GORM
  variant used against a real server.

REPLACE-ONLY SHIFTS:
  There is no UPDATE on the shifts table. ReplaceRange deletes the
  window and inserts the new batch inside ONE transaction, so a failed
  run can never leave a half-deleted window behind.

KEY TABLES:
  punches:   Raw device events, immutable once ingested
  shifts:    Reconciled output, replaced per window
  employees: Pin, name, team, overtime policy branch
  holidays:  External calendar entries (public flag decides pay impact)

WAL MODE:
  Opened with WAL and foreign keys on: multiple readers, single writer,
  decent crash recovery.

USAGE:
  st, err := sqlite.New("./data/shifts.db")
  if err != nil { ... }
  defer st.Close()
  rec := reconcile.NewReconciler(st, st, st, st, reconcile.DefaultRules())
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/shiftworks/shift-engine/reconcile"
)

const timeLayout = time.RFC3339
const dateLayout = "2006-01-02"

// Store implements all reconcile storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS punches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raw_pin TEXT NOT NULL,
		employee_pin TEXT NOT NULL,
		punched_at TEXT NOT NULL,
		verify_method INTEGER NOT NULL DEFAULT 0,
		status INTEGER NOT NULL DEFAULT 0,
		work_code INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_punches_employee_time
		ON punches(employee_pin, punched_at);

	CREATE TABLE IF NOT EXISTS employees (
		pin TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		occupation TEXT,
		team TEXT,
		overtime_policy TEXT NOT NULL DEFAULT 'flat'
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		name TEXT NOT NULL,
		is_public INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_holidays_range ON holidays(start_date, end_date);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		employee_pin TEXT NOT NULL,
		shift_date TEXT NOT NULL,
		clock_in_id INTEGER,
		clock_out_id INTEGER,
		clock_in_at TEXT,
		clock_out_at TEXT,
		hours_worked TEXT NOT NULL,
		regular_hours TEXT NOT NULL,
		overtime_1_5 TEXT NOT NULL,
		overtime_2_0 TEXT NOT NULL,
		lateness_minutes INTEGER NOT NULL DEFAULT 0,
		shift_type TEXT NOT NULL,
		is_complete INTEGER NOT NULL DEFAULT 0,
		is_holiday INTEGER NOT NULL DEFAULT 0,
		is_weekend INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	);
	-- One record per employee per shift date, the engine's core invariant.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_employee_date
		ON shifts(employee_pin, shift_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE
// =============================================================================

func (s *Store) FetchRange(ctx context.Context, employeePin string, from, to time.Time) ([]reconcile.Punch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, raw_pin, employee_pin, punched_at, verify_method, status, work_code
		FROM punches
		WHERE employee_pin = ? AND punched_at >= ? AND punched_at <= ?
		ORDER BY punched_at ASC`,
		employeePin, from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("fetch punches: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Punch
	for rows.Next() {
		var p reconcile.Punch
		var ts string
		if err := rows.Scan(&p.ID, &p.RawPin, &p.EmployeePin, &ts, &p.VerifyMethod, &p.Status, &p.WorkCode); err != nil {
			return nil, fmt.Errorf("scan punch: %w", err)
		}
		if p.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse punch time %q: %w", ts, err)
		}
		p.Type, _ = reconcile.ParsePin(p.RawPin)
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertPunch records one raw device event and returns its ID.
func (s *Store) InsertPunch(ctx context.Context, p reconcile.Punch) (int64, error) {
	_, pin := reconcile.ParsePin(p.RawPin)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO punches (raw_pin, employee_pin, punched_at, verify_method, status, work_code)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.RawPin, pin, p.Timestamp.UTC().Format(timeLayout), p.VerifyMethod, p.Status, p.WorkCode)
	if err != nil {
		return 0, fmt.Errorf("insert punch: %w", err)
	}
	return res.LastInsertId()
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (s *Store) Get(ctx context.Context, pin string) (reconcile.Employee, error) {
	var e reconcile.Employee
	var policy string
	err := s.db.QueryRowContext(ctx, `
		SELECT pin, name, COALESCE(occupation, ''), COALESCE(team, ''), overtime_policy
		FROM employees WHERE pin = ?`, pin).
		Scan(&e.Pin, &e.Name, &e.Occupation, &e.Team, &policy)
	if err == sql.ErrNoRows {
		return reconcile.Employee{}, reconcile.ErrEmployeeNotFound
	}
	if err != nil {
		return reconcile.Employee{}, fmt.Errorf("get employee %s: %w", pin, err)
	}
	e.Policy = reconcile.OvertimePolicy(policy)
	return e, nil
}

// PutEmployee inserts or updates an employee record.
func (s *Store) PutEmployee(ctx context.Context, e reconcile.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (pin, name, occupation, team, overtime_policy)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pin) DO UPDATE SET
			name = excluded.name,
			occupation = excluded.occupation,
			team = excluded.team,
			overtime_policy = excluded.overtime_policy`,
		e.Pin, e.Name, e.Occupation, e.Team, string(e.Policy))
	if err != nil {
		return fmt.Errorf("put employee %s: %w", e.Pin, err)
	}
	return nil
}

// ListEmployees returns every employee ordered by pin.
func (s *Store) ListEmployees(ctx context.Context) ([]reconcile.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pin, name, COALESCE(occupation, ''), COALESCE(team, ''), overtime_policy
		FROM employees ORDER BY pin ASC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Employee
	for rows.Next() {
		var e reconcile.Employee
		var policy string
		if err := rows.Scan(&e.Pin, &e.Name, &e.Occupation, &e.Team, &policy); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		e.Policy = reconcile.OvertimePolicy(policy)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (s *Store) FindOverlapping(ctx context.Context, from, to time.Time) ([]reconcile.HolidayEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_date, end_date, name, is_public
		FROM holidays
		WHERE end_date >= ? AND start_date <= ?`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("find holidays: %w", err)
	}
	defer rows.Close()

	var out []reconcile.HolidayEntry
	for rows.Next() {
		var h reconcile.HolidayEntry
		var start, end string
		var public int
		if err := rows.Scan(&start, &end, &h.Name, &public); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		if h.Start, err = time.Parse(dateLayout, start); err != nil {
			return nil, fmt.Errorf("parse holiday start %q: %w", start, err)
		}
		if h.End, err = time.Parse(dateLayout, end); err != nil {
			return nil, fmt.Errorf("parse holiday end %q: %w", end, err)
		}
		h.Public = public != 0
		out = append(out, h)
	}
	return out, rows.Err()
}

// AddHoliday appends one calendar entry.
func (s *Store) AddHoliday(ctx context.Context, h reconcile.HolidayEntry) error {
	public := 0
	if h.Public {
		public = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (start_date, end_date, name, is_public) VALUES (?, ?, ?, ?)`,
		h.Start.Format(dateLayout), h.End.Format(dateLayout), h.Name, public)
	if err != nil {
		return fmt.Errorf("add holiday: %w", err)
	}
	return nil
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (s *Store) ReplaceRange(ctx context.Context, employeePin string, from, to time.Time, shifts []reconcile.Shift) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM shifts WHERE employee_pin = ? AND shift_date >= ? AND shift_date <= ?`,
		employeePin, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("delete shift window: %w", err)
	}

	for _, sh := range shifts {
		if err := insertShift(ctx, tx, sh); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertShift(ctx context.Context, tx *sql.Tx, sh reconcile.Shift) error {
	var inAt, outAt any
	if sh.ClockInAt != nil {
		inAt = sh.ClockInAt.UTC().Format(timeLayout)
	}
	if sh.ClockOutAt != nil {
		outAt = sh.ClockOutAt.UTC().Format(timeLayout)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shifts (
			id, employee_pin, shift_date, clock_in_id, clock_out_id,
			clock_in_at, clock_out_at, hours_worked, regular_hours,
			overtime_1_5, overtime_2_0, lateness_minutes, shift_type,
			is_complete, is_holiday, is_weekend, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.EmployeePin, sh.ShiftDate.Format(dateLayout),
		sh.ClockInID, sh.ClockOutID, inAt, outAt,
		sh.HoursWorked.String(), sh.RegularHours.String(),
		sh.Overtime15.String(), sh.Overtime20.String(),
		sh.LatenessMinutes, string(sh.Type),
		boolInt(sh.Complete), boolInt(sh.Holiday), boolInt(sh.Weekend), sh.Notes)
	if err != nil {
		return fmt.Errorf("insert shift %s/%s: %w", sh.EmployeePin, sh.ShiftDate.Format(dateLayout), err)
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, employeePin string, from, to time.Time) ([]reconcile.Shift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_pin, shift_date, clock_in_id, clock_out_id,
			clock_in_at, clock_out_at, hours_worked, regular_hours,
			overtime_1_5, overtime_2_0, lateness_minutes, shift_type,
			is_complete, is_holiday, is_weekend, notes
		FROM shifts
		WHERE employee_pin = ? AND shift_date >= ? AND shift_date <= ?
		ORDER BY shift_date ASC`,
		employeePin, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) CountComplete(ctx context.Context, employeePin string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shifts
		WHERE employee_pin = ? AND is_complete = 1 AND shift_date >= ? AND shift_date <= ?`,
		employeePin, from.Format(dateLayout), to.Format(dateLayout)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count complete shifts: %w", err)
	}
	return n, nil
}

func scanShift(rows *sql.Rows) (reconcile.Shift, error) {
	var sh reconcile.Shift
	var date string
	var inID, outID sql.NullInt64
	var inAt, outAt sql.NullString
	var hours, regular, ot15, ot20 string
	var complete, holiday, weekend int

	err := rows.Scan(&sh.ID, &sh.EmployeePin, &date, &inID, &outID, &inAt, &outAt,
		&hours, &regular, &ot15, &ot20, &sh.LatenessMinutes, (*string)(&sh.Type),
		&complete, &holiday, &weekend, &sh.Notes)
	if err != nil {
		return sh, fmt.Errorf("scan shift: %w", err)
	}

	if sh.ShiftDate, err = time.Parse(dateLayout, date); err != nil {
		return sh, fmt.Errorf("parse shift date %q: %w", date, err)
	}
	if inID.Valid {
		v := inID.Int64
		sh.ClockInID = &v
	}
	if outID.Valid {
		v := outID.Int64
		sh.ClockOutID = &v
	}
	if inAt.Valid {
		t, err := time.Parse(timeLayout, inAt.String)
		if err != nil {
			return sh, fmt.Errorf("parse clock-in time %q: %w", inAt.String, err)
		}
		sh.ClockInAt = &t
	}
	if outAt.Valid {
		t, err := time.Parse(timeLayout, outAt.String)
		if err != nil {
			return sh, fmt.Errorf("parse clock-out time %q: %w", outAt.String, err)
		}
		sh.ClockOutAt = &t
	}

	if sh.HoursWorked, err = decimal.NewFromString(hours); err != nil {
		return sh, fmt.Errorf("parse hours %q: %w", hours, err)
	}
	if sh.RegularHours, err = decimal.NewFromString(regular); err != nil {
		return sh, fmt.Errorf("parse regular hours %q: %w", regular, err)
	}
	if sh.Overtime15, err = decimal.NewFromString(ot15); err != nil {
		return sh, fmt.Errorf("parse overtime 1.5 %q: %w", ot15, err)
	}
	if sh.Overtime20, err = decimal.NewFromString(ot20); err != nil {
		return sh, fmt.Errorf("parse overtime 2.0 %q: %w", ot20, err)
	}

	sh.Complete = complete != 0
	sh.Holiday = holiday != 0
	sh.Weekend = weekend != 0
	return sh, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

/*
Package postgres provides a PostgreSQL-backed implementation of the
reconcile storage interfaces, using GORM.

Schema management is AutoMigrate on Open, matching how the rest of our
services run against Postgres. ReplaceRange uses DB.Transaction so the
delete and the inserts commit or roll back together.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shiftworks/shift-engine/reconcile"
)

// Store implements all reconcile storage interfaces on PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open connects using the given DSN and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&punchRow{}, &employeeRow{}, &holidayRow{}, &shiftRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// =============================================================================
// ROW MODELS
// =============================================================================

type punchRow struct {
	ID           int64     `gorm:"primaryKey"`
	RawPin       string    `gorm:"size:32;not null"`
	EmployeePin  string    `gorm:"size:16;not null;index:idx_punch_emp_time"`
	PunchedAt    time.Time `gorm:"not null;index:idx_punch_emp_time"`
	VerifyMethod int
	Status       int
	WorkCode     int
}

func (punchRow) TableName() string { return "punches" }

type employeeRow struct {
	Pin            string `gorm:"primaryKey;size:16"`
	Name           string `gorm:"size:128;not null"`
	Occupation     string `gorm:"size:128"`
	Team           string `gorm:"size:64"`
	OvertimePolicy string `gorm:"size:16;not null;default:flat"`
}

func (employeeRow) TableName() string { return "employees" }

type holidayRow struct {
	ID        int64     `gorm:"primaryKey"`
	StartDate time.Time `gorm:"type:date;not null;index"`
	EndDate   time.Time `gorm:"type:date;not null;index"`
	Name      string    `gorm:"size:128;not null"`
	IsPublic  bool      `gorm:"not null;default:false"`
}

func (holidayRow) TableName() string { return "holidays" }

type shiftRow struct {
	ID              string    `gorm:"primaryKey;size:36"`
	EmployeePin     string    `gorm:"size:16;not null;uniqueIndex:idx_shift_emp_date"`
	ShiftDate       time.Time `gorm:"type:date;not null;uniqueIndex:idx_shift_emp_date"`
	ClockInID       *int64
	ClockOutID      *int64
	ClockInAt       *time.Time
	ClockOutAt      *time.Time
	HoursWorked     decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	RegularHours    decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	Overtime15      decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	Overtime20      decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	LatenessMinutes int             `gorm:"not null;default:0"`
	ShiftType       string          `gorm:"size:32;not null"`
	IsComplete      bool            `gorm:"not null;default:false"`
	IsHoliday       bool            `gorm:"not null;default:false"`
	IsWeekend       bool            `gorm:"not null;default:false"`
	Notes           string          `gorm:"type:text;not null;default:''"`
}

func (shiftRow) TableName() string { return "shifts" }

// =============================================================================
// PUNCH STORE
// =============================================================================

func (s *Store) FetchRange(ctx context.Context, employeePin string, from, to time.Time) ([]reconcile.Punch, error) {
	var rows []punchRow
	err := s.db.WithContext(ctx).
		Where("employee_pin = ? AND punched_at >= ? AND punched_at <= ?", employeePin, from, to).
		Order("punched_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("fetch punches: %w", err)
	}

	out := make([]reconcile.Punch, 0, len(rows))
	for _, r := range rows {
		typ, pin := reconcile.ParsePin(r.RawPin)
		out = append(out, reconcile.Punch{
			ID:           r.ID,
			RawPin:       r.RawPin,
			EmployeePin:  pin,
			Type:         typ,
			Timestamp:    r.PunchedAt,
			VerifyMethod: r.VerifyMethod,
			Status:       r.Status,
			WorkCode:     r.WorkCode,
		})
	}
	return out, nil
}

// InsertPunch records one raw device event and returns its ID.
func (s *Store) InsertPunch(ctx context.Context, p reconcile.Punch) (int64, error) {
	_, pin := reconcile.ParsePin(p.RawPin)
	row := punchRow{
		RawPin:       p.RawPin,
		EmployeePin:  pin,
		PunchedAt:    p.Timestamp,
		VerifyMethod: p.VerifyMethod,
		Status:       p.Status,
		WorkCode:     p.WorkCode,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert punch: %w", err)
	}
	return row.ID, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (s *Store) Get(ctx context.Context, pin string) (reconcile.Employee, error) {
	var row employeeRow
	err := s.db.WithContext(ctx).First(&row, "pin = ?", pin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reconcile.Employee{}, reconcile.ErrEmployeeNotFound
	}
	if err != nil {
		return reconcile.Employee{}, fmt.Errorf("get employee %s: %w", pin, err)
	}
	return reconcile.Employee{
		Pin:        row.Pin,
		Name:       row.Name,
		Occupation: row.Occupation,
		Team:       row.Team,
		Policy:     reconcile.OvertimePolicy(row.OvertimePolicy),
	}, nil
}

// PutEmployee inserts or updates an employee record.
func (s *Store) PutEmployee(ctx context.Context, e reconcile.Employee) error {
	row := employeeRow{
		Pin:            e.Pin,
		Name:           e.Name,
		Occupation:     e.Occupation,
		Team:           e.Team,
		OvertimePolicy: string(e.Policy),
	}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("put employee %s: %w", e.Pin, err)
	}
	return nil
}

// ListEmployees returns every employee ordered by pin.
func (s *Store) ListEmployees(ctx context.Context) ([]reconcile.Employee, error) {
	var rows []employeeRow
	if err := s.db.WithContext(ctx).Order("pin ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	out := make([]reconcile.Employee, 0, len(rows))
	for _, r := range rows {
		out = append(out, reconcile.Employee{
			Pin:        r.Pin,
			Name:       r.Name,
			Occupation: r.Occupation,
			Team:       r.Team,
			Policy:     reconcile.OvertimePolicy(r.OvertimePolicy),
		})
	}
	return out, nil
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

func (s *Store) FindOverlapping(ctx context.Context, from, to time.Time) ([]reconcile.HolidayEntry, error) {
	var rows []holidayRow
	err := s.db.WithContext(ctx).
		Where("end_date >= ? AND start_date <= ?", from, to).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find holidays: %w", err)
	}
	out := make([]reconcile.HolidayEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, reconcile.HolidayEntry{
			Start:  r.StartDate,
			End:    r.EndDate,
			Name:   r.Name,
			Public: r.IsPublic,
		})
	}
	return out, nil
}

// AddHoliday appends one calendar entry.
func (s *Store) AddHoliday(ctx context.Context, h reconcile.HolidayEntry) error {
	row := holidayRow{StartDate: h.Start, EndDate: h.End, Name: h.Name, IsPublic: h.Public}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("add holiday: %w", err)
	}
	return nil
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (s *Store) ReplaceRange(ctx context.Context, employeePin string, from, to time.Time, shifts []reconcile.Shift) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("employee_pin = ? AND shift_date >= ? AND shift_date <= ?",
			employeePin, from, to).
			Delete(&shiftRow{}).Error
		if err != nil {
			return fmt.Errorf("delete shift window: %w", err)
		}
		for _, sh := range shifts {
			row := toRow(sh)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("insert shift %s/%s: %w",
					sh.EmployeePin, sh.ShiftDate.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

func (s *Store) ListRange(ctx context.Context, employeePin string, from, to time.Time) ([]reconcile.Shift, error) {
	var rows []shiftRow
	err := s.db.WithContext(ctx).
		Where("employee_pin = ? AND shift_date >= ? AND shift_date <= ?", employeePin, from, to).
		Order("shift_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	out := make([]reconcile.Shift, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

func (s *Store) CountComplete(ctx context.Context, employeePin string, from, to time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&shiftRow{}).
		Where("employee_pin = ? AND is_complete = true AND shift_date >= ? AND shift_date <= ?",
			employeePin, from, to).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count complete shifts: %w", err)
	}
	return int(n), nil
}

func toRow(sh reconcile.Shift) shiftRow {
	return shiftRow{
		ID:              sh.ID,
		EmployeePin:     sh.EmployeePin,
		ShiftDate:       sh.ShiftDate,
		ClockInID:       sh.ClockInID,
		ClockOutID:      sh.ClockOutID,
		ClockInAt:       sh.ClockInAt,
		ClockOutAt:      sh.ClockOutAt,
		HoursWorked:     sh.HoursWorked,
		RegularHours:    sh.RegularHours,
		Overtime15:      sh.Overtime15,
		Overtime20:      sh.Overtime20,
		LatenessMinutes: sh.LatenessMinutes,
		ShiftType:       string(sh.Type),
		IsComplete:      sh.Complete,
		IsHoliday:       sh.Holiday,
		IsWeekend:       sh.Weekend,
		Notes:           sh.Notes,
	}
}

func fromRow(r shiftRow) reconcile.Shift {
	return reconcile.Shift{
		ID:              r.ID,
		EmployeePin:     r.EmployeePin,
		ShiftDate:       r.ShiftDate,
		ClockInID:       r.ClockInID,
		ClockOutID:      r.ClockOutID,
		ClockInAt:       r.ClockInAt,
		ClockOutAt:      r.ClockOutAt,
		HoursWorked:     r.HoursWorked,
		RegularHours:    r.RegularHours,
		Overtime15:      r.Overtime15,
		Overtime20:      r.Overtime20,
		LatenessMinutes: r.LatenessMinutes,
		Type:            reconcile.ShiftType(r.ShiftType),
		Complete:        r.IsComplete,
		Holiday:         r.IsHoliday,
		Weekend:         r.IsWeekend,
		Notes:           r.Notes,
	}
}

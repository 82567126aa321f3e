/*
calendar.go - Holiday and weekend oracle

PURPOSE:
  Answers "is date X a public holiday / weekend / work-free day" for the
  rest of the engine. Holiday answers come from the external holiday list
  and are cached per date for the lifetime of one batch run; weekend
  answers are pure calendar arithmetic and never touch the store.

CACHE LIFECYCLE:
  One Calendar is constructed per batch run and discarded afterwards.
  Repeated lookups for the same date within a run hit the in-memory map,
  not the store. The cache is safe to share read-only across workers once
  Preload has run; concurrent cold lookups take the write lock.

PUBLIC VS OBSERVANCE:
  The holiday list mixes statutory public holidays with observances and
  company events. Only entries flagged Public count for pay purposes.
*/
package reconcile

import (
	"context"
	"sync"
	"time"
)

// Calendar is the per-batch holiday/weekend oracle.
type Calendar struct {
	store HolidayStore

	mu    sync.RWMutex
	cache map[string]bool // "2006-01-02" -> is public holiday
}

// NewCalendar creates an empty oracle over the given holiday store.
func NewCalendar(store HolidayStore) *Calendar {
	return &Calendar{store: store, cache: make(map[string]bool)}
}

// Preload resolves every date in [from, to] with a single store query.
// The orchestrator calls this once per employee window so the per-day
// loop never blocks on holiday I/O.
func (c *Calendar) Preload(ctx context.Context, from, to time.Time) error {
	entries, err := c.store.FindOverlapping(ctx, Day(from), Day(to))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for d := Day(from); !d.After(Day(to)); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		if _, ok := c.cache[key]; ok {
			continue
		}
		c.cache[key] = coveredByPublicHoliday(d, entries)
	}
	return nil
}

// IsHoliday reports whether the date is a statutory public holiday.
// Cached per date; a cache miss costs one store query.
func (c *Calendar) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	key := Day(date).Format("2006-01-02")

	c.mu.RLock()
	v, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	entries, err := c.store.FindOverlapping(ctx, Day(date), Day(date))
	if err != nil {
		return false, err
	}
	v = coveredByPublicHoliday(Day(date), entries)

	c.mu.Lock()
	c.cache[key] = v
	c.mu.Unlock()
	return v, nil
}

// IsWeekend is pure arithmetic: Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsWorkFree reports weekend-or-holiday in one call.
func (c *Calendar) IsWorkFree(ctx context.Context, date time.Time) (bool, error) {
	if IsWeekend(date) {
		return true, nil
	}
	return c.IsHoliday(ctx, date)
}

func coveredByPublicHoliday(day time.Time, entries []HolidayEntry) bool {
	for _, e := range entries {
		if !e.Public {
			continue
		}
		if !day.Before(Day(e.Start)) && !day.After(Day(e.End)) {
			return true
		}
	}
	return false
}

/*
scheduler.go - Automated reconciliation scheduler

PURPOSE:
  Periodically re-reconciles the trailing punch window for every
  registered employee, so late device syncs and hand-ingested punches
  are folded into the shift table without anyone calling the API.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each tick reconciles [today - LookbackDays, today] per employee
  - Re-running an unchanged window rewrites identical records, so a
    tick that races a manual reconcile is harmless
  - A failing employee is logged and skipped; the sweep continues

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - LookbackDays: Trailing window depth (default: 3)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewScheduler(store, rules)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: The manual reconcile endpoints
  - reconcile/reconciler.go: The engine each sweep drives
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shiftworks/shift-engine/reconcile"
)

// Scheduler sweeps the trailing punch window for all employees.
type Scheduler struct {
	Store         Store
	Rules         reconcile.Rules
	CheckInterval time.Duration
	LookbackDays  int
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a scheduler with default interval and lookback.
func NewScheduler(store Store, rules reconcile.Rules) *Scheduler {
	return &Scheduler{
		Store:         store,
		Rules:         rules,
		CheckInterval: 1 * time.Hour,
		LookbackDays:  3,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with check interval: %v, lookback: %d days",
		s.CheckInterval, s.LookbackDays)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) sweep() {
	ctx := context.Background()
	now := time.Now()

	to := reconcile.Day(now)
	from := to.AddDate(0, 0, -s.LookbackDays)

	employees, err := s.Store.ListEmployees(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing employees: %v", err)
		return
	}

	rec := reconcile.NewReconciler(s.Store, s.Store, s.Store, s.Store, s.Rules)

	written := 0
	failed := 0
	for _, emp := range employees {
		n, err := rec.Reconcile(ctx, emp.Pin, from, to)
		if err != nil {
			log.Printf("[Scheduler] Error reconciling %s: %v", emp.Pin, err)
			failed++
			continue
		}
		written += n
	}

	if len(employees) > 0 {
		log.Printf("[Scheduler] Swept %s..%s: %d employees, %d shifts written, %d failed",
			from.Format("2006-01-02"), to.Format("2006-01-02"),
			len(employees), written, failed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	s.sweep()
}

// NextRunTime returns when the next scheduled sweep will occur.
func (s *Scheduler) NextRunTime() time.Time {
	return time.Now().Add(s.CheckInterval)
}

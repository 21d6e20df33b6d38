/*
scheduler.go - Automated reference table reload

PURPOSE:
  Periodically rebuilds the engine from its reference source so edits to
  a shared database (or CSV directory) reach a running server without a
  restart.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A failed reload is logged and the current engine keeps serving
  - Tables are rebuilt in full on every tick

CONFIGURATION:
  - Interval: How often to reload (PDR_RELOAD_INTERVAL, 0 disables)

USAGE:
  scheduler := NewReloadScheduler(handler, 10*time.Minute)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerReload endpoint (manual reload)
*/
package api

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ReloadScheduler reloads reference tables on a fixed interval.
type ReloadScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Timeout  time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runs   atomic.Int64
}

// NewReloadScheduler creates a scheduler. An interval <= 0 disables it.
func NewReloadScheduler(h *Handler, interval time.Duration) *ReloadScheduler {
	return &ReloadScheduler{
		Handler:  h,
		Interval: interval,
		Timeout:  time.Minute,
	}
}

// Enabled reports whether Start will run anything.
func (rs *ReloadScheduler) Enabled() bool {
	return rs.Interval > 0 && rs.Handler != nil && rs.Handler.Source != nil
}

// Start begins the scheduler.
func (rs *ReloadScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled() {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	log.Printf("[Scheduler] Started with reload interval: %v", rs.Interval)
}

// Stop stops the scheduler and waits for a running reload to finish.
func (rs *ReloadScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

// Runs returns the number of successful reloads.
func (rs *ReloadScheduler) Runs() int {
	return int(rs.runs.Load())
}

func (rs *ReloadScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			rs.reload()
		case <-stop:
			return
		}
	}
}

func (rs *ReloadScheduler) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), rs.Timeout)
	defer cancel()

	stats, err := rs.Handler.Reload(ctx)
	if err != nil {
		log.Printf("[Scheduler] Reload failed, keeping current tables: %v", err)
		return
	}

	rs.runs.Add(1)
	log.Printf("[Scheduler] Reloaded reference tables: %d occupations, %d age rows", stats.Occupations, stats.AgeRows)
}

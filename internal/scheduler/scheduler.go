// Package scheduler holds the editor's timed work: the autosave debouncer
// and the periodic maintenance of the local store.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/canopy/internal/store"
)

// DefaultMaintenanceCron runs maintenance daily at 03:00.
const DefaultMaintenanceCron = "0 3 * * *"

// MaintenanceReport describes one maintenance run.
type MaintenanceReport struct {
	RanAt        time.Time `json:"ran_at"`
	PrunedEvents int64     `json:"pruned_events"`
	Vacuumed     bool      `json:"vacuumed"`
}

// Maintenance prunes old journal entries and compacts the store on a cron
// schedule.
type Maintenance struct {
	store     store.Store
	retention time.Duration
	parser    cron.Parser
	schedule  cron.Schedule
	logger    *slog.Logger
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex

	runMu sync.Mutex
	last  *MaintenanceReport
}

// NewMaintenance creates a Maintenance that keeps retention worth of journal
// history. A non-positive retention disables pruning.
func NewMaintenance(s store.Store, cronExpr string, retention time.Duration, logger *slog.Logger) (*Maintenance, error) {
	m := &Maintenance{
		store:     s,
		retention: retention,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if cronExpr == "" {
		cronExpr = DefaultMaintenanceCron
	}
	schedule, err := m.parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	m.schedule = schedule
	return m, nil
}

// NextRun returns the next scheduled run after from.
func (m *Maintenance) NextRun(from time.Time) time.Time {
	return m.schedule.Next(from)
}

// Start launches the background loop.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return fmt.Errorf("maintenance already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop(loopCtx)
	m.logger.Info("maintenance started", slog.Time("next_run", m.NextRun(m.now())))
	return nil
}

func (m *Maintenance) loop(ctx context.Context) {
	defer close(m.done)

	for {
		wait := m.NextRun(m.now()).Sub(m.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := m.RunOnce(ctx); err != nil {
				m.logger.Error("maintenance run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce prunes and vacuums immediately. Concurrent calls are serialized.
func (m *Maintenance) RunOnce(ctx context.Context) (*MaintenanceReport, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	report := &MaintenanceReport{RanAt: m.now()}
	if m.retention > 0 {
		n, err := m.store.PruneEvents(ctx, report.RanAt.Add(-m.retention))
		if err != nil {
			return nil, fmt.Errorf("prune events: %w", err)
		}
		report.PrunedEvents = n
	}
	if err := m.store.Vacuum(ctx); err != nil {
		return nil, fmt.Errorf("vacuum: %w", err)
	}
	report.Vacuumed = true
	m.last = report

	m.logger.Info("maintenance completed",
		slog.Int64("pruned_events", report.PrunedEvents),
	)
	return report, nil
}

// LastRun returns the report of the most recent successful run, or nil.
func (m *Maintenance) LastRun() *MaintenanceReport {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.last
}

// Stop gracefully shuts down the loop.
func (m *Maintenance) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return nil
	}

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	m.logger.Info("maintenance stopped")
	return nil
}

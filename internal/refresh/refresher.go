// Package refresh schedules the per-city hotspot precomputation jobs.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vigiamaps/occurrence-hotspots/internal/cache/keys"
	"github.com/vigiamaps/occurrence-hotspots/internal/config"
)

// Processor is the pipeline entry point each scheduled job invokes.
type Processor interface {
	ProcessAndCache(ctx context.Context, city, state string, daysAgo int, cacheKey string) error
}

// Refresher runs the fetch+cluster pipeline for a static city roster on a
// cron schedule. Each city is an independent unit of work: one failure is
// logged and the remaining cities still run.
type Refresher struct {
	proc     Processor
	roster   []config.RosterEntry
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

func New(proc Processor, roster []config.RosterEntry, schedule string, jobTimeout time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		proc:     proc,
		roster:   roster,
		schedule: schedule,
		timeout:  jobTimeout,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers one cron entry per roster city and starts the scheduler.
func (r *Refresher) Start() error {
	for _, entry := range r.roster {
		if _, err := r.cron.AddFunc(r.schedule, r.jobFor(entry)); err != nil {
			return err
		}
	}
	r.cron.Start()
	r.logger.Info("refresh schedule started",
		"cities", len(r.roster), "schedule", r.schedule)
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RunAll executes every roster job once, sequentially. Used at worker
// startup so a fresh deployment does not wait a full schedule interval for
// its first analysis.
func (r *Refresher) RunAll(ctx context.Context) {
	for _, entry := range r.roster {
		r.runOne(ctx, entry)
	}
}

func (r *Refresher) jobFor(entry config.RosterEntry) func() {
	return func() {
		ctx := context.Background()
		r.runOne(ctx, entry)
	}
}

func (r *Refresher) runOne(ctx context.Context, entry config.RosterEntry) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	key := keys.HotspotAnalysis(entry.City, entry.State)
	err := r.proc.ProcessAndCache(ctx, entry.City, entry.State, entry.LookbackDays, key)
	if err != nil {
		r.logger.Error("refresh job failed",
			"city", entry.City, "state", entry.State, "err", err)
		return
	}
	r.logger.Info("refresh job done",
		"city", entry.City, "state", entry.State,
		"dur", time.Since(start).String())
}

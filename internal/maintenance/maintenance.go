// Package maintenance runs periodic background tasks as Go tickers: the
// session idle sweep and a database liveness probe.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/rosterdex/internal/session"
)

// Task is one periodic job. A zero or negative Interval disables it.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Start launches every enabled task on its own ticker. Blocks until ctx is
// cancelled and every loop has returned. Intended to be called with `go`.
func Start(ctx context.Context, tasks []Task, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		if task.Interval <= 0 || task.Run == nil {
			logger.Info("Maintenance task disabled", "task", task.Name)
			continue
		}
		t := time.NewTicker(task.Interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer t.Stop()
			runLoop(ctx, t.C, func() {
				if err := task.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("Maintenance task failed", "task", task.Name, "error", err)
				}
			})
		}()
		logger.Info("Maintenance task started", "task", task.Name, "interval", task.Interval)
	}

	<-ctx.Done()
	wg.Wait()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// SessionSweep closes sessions idle past the registry's timeout.
func SessionSweep(reg *session.Registry, interval time.Duration, logger *slog.Logger) Task {
	return Task{
		Name:     "session_sweep",
		Interval: interval,
		Run: func(context.Context) error {
			if n := reg.Sweep(); n > 0 {
				logger.Info("Session sweep: closed idle sessions", "count", n, "open", reg.Len())
			}
			return nil
		},
	}
}

// Pinger is satisfied by *db.DB.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// DatabaseProbe pings the database so a lost connection shows up in the logs
// before a request hits it.
func DatabaseProbe(p Pinger, interval, timeout time.Duration) Task {
	return Task{
		Name:     "db_probe",
		Interval: interval,
		Run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return p.HealthCheck(ctx)
		},
	}
}

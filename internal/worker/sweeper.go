// Package worker runs the background jobs of the library service.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-school-library/internal/service"
	"go-school-library/pkg/clock"
)

// DailySweep is the part of the borrowing service the sweeper drives.
type DailySweep interface {
	RunDailySweep(ctx context.Context, today time.Time) (*service.SweepReport, error)
}

// Sweeper escalates due and overdue loans on a fixed interval.
type Sweeper struct {
	sweep    DailySweep
	clock    clock.Clock
	interval time.Duration
	onStart  bool
	log      *zap.Logger
}

func NewSweeper(sweep DailySweep, clk clock.Clock, interval time.Duration, onStart bool, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{sweep: sweep, clock: clk, interval: interval, onStart: onStart, log: log}
}

// Run blocks until ctx is cancelled. A failed run is logged and retried on the
// next tick; the sweep itself catches up on any days it missed.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("sweeper started", zap.Duration("interval", w.interval), zap.Bool("on_start", w.onStart))
	if w.onStart {
		w.runOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Sweeper) runOnce(ctx context.Context) {
	report, err := w.sweep.RunDailySweep(ctx, w.clock.Today())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error("daily sweep failed", zap.Error(err))
		return
	}
	if report.Failed > 0 {
		w.log.Warn("daily sweep skipped borrowings", zap.String("date", report.Date), zap.Int("failed", report.Failed))
	}
}

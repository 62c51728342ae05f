package usecase

import (
	"context"
	"errors"
	"fmt"

	"ForecastDash/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Refresher re-runs the forecast for the current selection on a cron schedule.
type Refresher struct {
	cron      *cron.Cron
	dashboard *Dashboard
	log       *logger.Logger
	ctx       context.Context
}

// NewRefresher registers spec (six fields, seconds first). An empty spec yields a
// refresher whose Start and Stop are no-ops.
func NewRefresher(ctx context.Context, d *Dashboard, log *logger.Logger, spec string) (*Refresher, error) {
	r := &Refresher{dashboard: d, log: log, ctx: ctx}
	if spec == "" {
		return r, nil
	}

	r.cron = cron.New(cron.WithSeconds())
	if _, err := r.cron.AddFunc(spec, r.RunNow); err != nil {
		return nil, fmt.Errorf("register refresh %q: %w", spec, err)
	}
	return r, nil
}

// Enabled reports whether a schedule is registered.
func (r *Refresher) Enabled() bool { return r.cron != nil }

func (r *Refresher) Start() {
	if r.cron == nil {
		return
	}
	r.cron.Start()
	r.log.Info("forecast refresher started")
}

// Stop waits for a running refresh to finish.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.log.Info("forecast refresher stopped")
}

// RunNow performs one refresh. A busy dashboard or missing selection skips the tick.
func (r *Refresher) RunNow() {
	_, err := r.dashboard.Predict(r.ctx)
	switch {
	case err == nil:
		r.log.Debug("scheduled forecast refreshed")
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNoSymbol):
		r.log.Debug("scheduled forecast skipped", logger.Error(err))
	default:
		r.log.Warn("scheduled forecast failed", logger.Error(err))
	}
}

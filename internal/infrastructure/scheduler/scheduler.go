// Package scheduler runs the periodic overdue sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/api/metrics"
	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
	"github.com/assignhub/marketplace/internal/core/service"
)

const (
	lockName = "reconcile-overdue"
	lockTTL  = 10 * time.Minute
)

// ErrLocked is returned by RunOnce when another replica is sweeping.
var ErrLocked = errors.New("reconcile already running elsewhere")

// Sweeper is satisfied by *service.Reconciler.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Scheduler triggers the sweep on a cron schedule (UTC). Runs are guarded by
// a distributed lock so only one replica sweeps at a time; locker may be nil
// for single-instance deployments.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	locker  ports.Locker
	log     zerolog.Logger
}

// New validates spec (standard 5-field cron syntax) and registers the job.
func New(spec string, sweeper Sweeper, locker ports.Locker, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		sweeper: sweeper,
		locker:  locker,
		log:     log,
	}
	if _, err := s.cron.AddFunc(spec, func() {
		_, _ = s.RunOnce(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("reconcile scheduler started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single guarded sweep.
func (s *Scheduler) RunOnce(ctx context.Context) (service.SweepResult, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, lockName, lockTTL)
		if err != nil {
			// Redis being down must not stop reconciliation; the conditional
			// updates keep concurrent sweeps safe.
			s.log.Warn().Err(err).Msg("reconcile lock unavailable, sweeping without it")
		} else if !ok {
			metrics.ReconcileRunsTotal.WithLabelValues("locked").Inc()
			s.log.Debug().Msg("reconcile skipped, lock held elsewhere")
			return service.SweepResult{}, ErrLocked
		} else {
			defer release()
		}
	}

	start := time.Now()
	res, err := s.sweeper.Sweep(ctx)
	metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	metrics.ReconcileAssignmentsTotal.WithLabelValues("transitioned").Add(float64(res.Transitioned))
	metrics.ReconcileAssignmentsTotal.WithLabelValues("skipped").Add(float64(res.Skipped))
	metrics.ReconcileAssignmentsTotal.WithLabelValues("failed").Add(float64(res.Failed))
	metrics.AssignmentTransitionsTotal.WithLabelValues(string(domain.StatusDue), "reconciler").Add(float64(res.Transitioned))
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("overdue sweep failed")
		return res, err
	}
	metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()
	return res, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// SystemActor is recorded in status history for transitions no user initiated.
const SystemActor = "system"

// SweepResult reports the outcome of one reconciliation pass.
type SweepResult struct {
	Scanned      int
	Transitioned int
	Skipped      int
	Failed       int
}

// Reconciler moves accepted assignments past their deadline to due.
type Reconciler struct {
	assignments ports.AssignmentRepository
	users       ports.UserRepository
	events      ports.EventPublisher
	now         func() time.Time
	log         zerolog.Logger
}

func NewReconciler(assignments ports.AssignmentRepository, users ports.UserRepository, events ports.EventPublisher, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		assignments: assignments,
		users:       users,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// WithClock replaces the reconciler's time source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Sweep applies accepted -> due to every overdue assignment. Each update is
// conditional on the status still being accepted, so work that moved on
// concurrently is skipped. A failure on one assignment does not stop the rest.
// Running Sweep twice in a row is a no-op the second time.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	now := r.now()
	overdue, err := r.assignments.ListOverdue(ctx, now)
	if err != nil {
		return SweepResult{}, domain.WrapStorage("list overdue assignments", err)
	}

	res := SweepResult{Scanned: len(overdue)}
	for _, a := range overdue {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !a.IsOverdue(now) {
			res.Skipped++
			continue
		}

		updated, err := r.assignments.Transition(ctx, ports.Transition{
			AssignmentID: a.ID,
			From:         []domain.AssignmentStatus{domain.StatusAccepted},
			To:           domain.StatusDue,
			History: domain.StatusHistoryEntry{
				Status:    domain.StatusDue,
				Timestamp: now,
				ActorID:   SystemActor,
				Notes:     "deadline passed",
			},
		})
		switch {
		case err == nil:
			res.Transitioned++
			r.notify(ctx, updated, now)
		case errors.Is(err, domain.ErrConflict):
			res.Skipped++
		default:
			res.Failed++
			r.log.Error().Err(err).Str("assignment_id", a.ID).Msg("failed to mark assignment overdue")
		}
	}

	r.log.Info().
		Int("scanned", res.Scanned).
		Int("transitioned", res.Transitioned).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("overdue sweep finished")
	return res, nil
}

func (r *Reconciler) notify(ctx context.Context, a *domain.Assignment, now time.Time) {
	if r.events == nil {
		return
	}
	msg := fmt.Sprintf("⏰ Assignment Overdue: **%s** has passed its deadline and is now marked as \"Due\".", a.Title)
	events := []domain.LifecycleEvent{{
		ID: uuid.NewString(), Kind: domain.EventAssignmentOverdue, AssignmentID: a.ID, Message: msg, OccurredAt: now,
	}}
	if a.HasHelper() {
		if helper, err := r.users.FindByID(ctx, a.HelperID); err == nil && helper.DiscordID != "" {
			events = append(events, domain.LifecycleEvent{
				ID: uuid.NewString(), Kind: domain.EventAssignmentOverdue, AssignmentID: a.ID,
				Recipient: helper.DiscordID, Message: msg, OccurredAt: now,
			})
		}
	}
	r.events.Publish(events...)
}

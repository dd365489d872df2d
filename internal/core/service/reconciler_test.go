package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/core/domain"
)

func newTestReconciler(f *fixture) *Reconciler {
	return NewReconciler(memAssignments{f.store}, memUsers{f.store}, f.pub, zerolog.Nop()).WithClock(f.clock.Now)
}

func TestReconciler_Sweep_MarksOverdueAsDue(t *testing.T) {
	f := newFixture(t)
	a := f.advance(t, domain.StatusAccepted)
	f.pub.reset()
	f.clock.Advance(96 * time.Hour) // deadline was +72h

	res, err := newTestReconciler(f).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if res.Transitioned != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	got := f.stored(t, a.ID)
	if got.Status != domain.StatusDue {
		t.Fatalf("status = %s, want due", got.Status)
	}
	last := got.StatusHistory[len(got.StatusHistory)-1]
	if last.ActorID != SystemActor || last.Status != domain.StatusDue {
		t.Errorf("last history = %+v", last)
	}
	if len(f.pub.directTo("d-helper")) != 1 {
		t.Errorf("helper must be told about the overdue assignment")
	}

	// Work can still be submitted once due.
	if _, err := f.svc.Complete(context.Background(), a.ID, f.helper, nil); err != nil {
		t.Fatalf("Complete from due: %v", err)
	}
}

func TestReconciler_Sweep_Idempotent(t *testing.T) {
	f := newFixture(t)
	a := f.advance(t, domain.StatusAccepted)
	f.clock.Advance(96 * time.Hour)
	r := newTestReconciler(f)

	if _, err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	res, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if res.Scanned != 0 || res.Transitioned != 0 {
		t.Errorf("second sweep = %+v, want no-op", res)
	}
	if n := len(f.stored(t, a.ID).StatusHistory); n != 3 {
		t.Errorf("history entries = %d, want 3", n)
	}
}

func TestReconciler_Sweep_LeavesOtherStatusesAlone(t *testing.T) {
	f := newFixture(t)
	pending := f.create(t)
	review := f.advance(t, domain.StatusPendingClientReview)
	notYet := f.advance(t, domain.StatusAccepted)
	f.clock.Advance(96 * time.Hour)
	// Push one deadline further out so it is not yet overdue.
	f.store.assignments[notYet.ID].Deadline = f.clock.Now().Add(time.Hour)

	res, err := newTestReconciler(f).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Transitioned != 0 {
		t.Errorf("result = %+v, want nothing transitioned", res)
	}
	for id, want := range map[string]domain.AssignmentStatus{
		pending.ID: domain.StatusPending,
		review.ID:  domain.StatusPendingClientReview,
		notYet.ID:  domain.StatusAccepted,
	} {
		if got := f.stored(t, id).Status; got != want {
			t.Errorf("%s status = %s, want %s", id, got, want)
		}
	}
}

func TestReconciler_Sweep_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	broken := f.advance(t, domain.StatusAccepted)
	healthy := f.advance(t, domain.StatusAccepted)
	raced := f.advance(t, domain.StatusAccepted)
	f.clock.Advance(96 * time.Hour)
	f.store.transitionErrs[broken.ID] = errBoom
	f.store.transitionErrs[raced.ID] = domain.NewConflictError(raced, "moved on")

	res, err := newTestReconciler(f).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 3 || res.Transitioned != 1 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := f.stored(t, healthy.ID).Status; got != domain.StatusDue {
		t.Errorf("healthy status = %s, want due", got)
	}
}

func TestReconciler_Sweep_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.store.storageErr = errBoom

	_, err := newTestReconciler(f).Sweep(context.Background())
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

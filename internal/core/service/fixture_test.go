package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memStore
	clock  *fakeClock
	pub    *recordingPublisher
	sum    *stubSummarizer
	svc    *AssignmentService
	owner  *domain.User
	helper *domain.User
	rival  *domain.User
	admin  *domain.User
	other  *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store: store,
		clock: &fakeClock{now: baseTime},
		pub:   &recordingPublisher{},
		sum:   &stubSummarizer{out: "short summary"},
	}

	store.categories["python-help"] = &domain.Category{ID: "cat_1", Name: "python-help", HandlerType: domain.HandlerCompSci, ChannelID: "chan-python"}
	store.categories["physics-help"] = &domain.Category{ID: "cat_2", Name: "physics-help", HandlerType: domain.HandlerExternalSTEM}

	helperSpecs := []string{"python-help", "java-help", "matlab-help"}
	f.owner = f.addUser(&domain.User{ID: "usr_owner", Username: "carol", DiscordID: "d-owner", Roles: []string{domain.RoleClient}, Active: true})
	f.helper = f.addUser(&domain.User{ID: "usr_helper", Username: "hank", DiscordID: "d-helper", Roles: []string{domain.RoleHelper}, Active: true, Specializations: helperSpecs})
	f.rival = f.addUser(&domain.User{ID: "usr_rival", Username: "rita", DiscordID: "d-rival", Roles: []string{domain.RoleHelper}, Active: true, Specializations: helperSpecs})
	f.admin = f.addUser(&domain.User{ID: "usr_admin", Username: "ada", DiscordID: "d-admin", Roles: []string{domain.RoleAdmin, domain.RoleClient}, Active: true})
	f.other = f.addUser(&domain.User{ID: "usr_other", Username: "olga", DiscordID: "d-other", Roles: []string{domain.RoleClient}, Active: true})

	f.svc = NewAssignmentService(AssignmentDeps{
		Assignments: memAssignments{store},
		Ledger:      memLedger{store},
		Users:       memUsers{store},
		Categories:  memCategories{store},
		Summarizer:  f.sum,
		Events:      f.pub,
		Now:         f.clock.Now,
	}, zerolog.Nop())
	return f
}

func (f *fixture) addUser(u *domain.User) *domain.User {
	f.store.users[u.ID] = cloneUser(u)
	return u
}

func (f *fixture) input() ports.CreateAssignmentInput {
	return ports.CreateAssignmentInput{
		Title:         "Linked list lab",
		Description:   "Implement a doubly linked list in Python with unit tests.",
		Category:      "python-help",
		Complexity:    "medium",
		PaymentAmount: decimal.NewFromInt(100),
		Deadline:      baseTime.Add(72 * time.Hour).Format(time.RFC3339),
	}
}

func (f *fixture) create(t *testing.T) *domain.Assignment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.owner, f.input())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return a
}

// advance drives a fresh assignment to target along the happy path.
func (f *fixture) advance(t *testing.T, target domain.AssignmentStatus) *domain.Assignment {
	t.Helper()
	ctx := context.Background()
	a := f.create(t)
	steps := []struct {
		reached domain.AssignmentStatus
		run     func() (*domain.Assignment, error)
	}{
		{domain.StatusAccepted, func() (*domain.Assignment, error) { return f.svc.Accept(ctx, a.ID, f.helper) }},
		{domain.StatusPendingClientReview, func() (*domain.Assignment, error) {
			return f.svc.Complete(ctx, a.ID, f.helper, []domain.Attachment{{Locator: "s3://work/1", Filename: "list.py"}})
		}},
		{domain.StatusReadyForPayout, func() (*domain.Assignment, error) { return f.svc.ApproveWork(ctx, a.ID, f.owner) }},
	}
	for _, step := range steps {
		if a.Status == target {
			return a
		}
		var err error
		if a, err = step.run(); err != nil {
			t.Fatalf("advancing to %s: %v", step.reached, err)
		}
	}
	if a.Status != target {
		t.Fatalf("cannot advance to %s, stopped at %s", target, a.Status)
	}
	return a
}

func (f *fixture) stored(t *testing.T, id string) *domain.Assignment {
	t.Helper()
	a, err := memAssignments{f.store}.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("stored assignment %s: %v", id, err)
	}
	return a
}

func (f *fixture) earnings(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	u, err := memUsers{f.store}.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("stored user %s: %v", userID, err)
	}
	return u.TotalEarnings
}

package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store shared by the stub repositories. A single mutex makes every
// conditional update atomic, mirroring the single-document guarantees of the
// real Mongo store.
// ---------------------------------------------------------------------------

type memStore struct {
	mu          sync.Mutex
	seq         int
	assignments map[string]*domain.Assignment
	users       map[string]*domain.User
	categories  map[string]*domain.Category
	txns        map[string]*domain.PayoutTransaction
	settings    domain.Settings

	transitionErrs map[string]error // per-assignment injected Transition failure
	storageErr     error            // if set, reads and aggregations fail
}

func newMemStore() *memStore {
	return &memStore{
		assignments:    make(map[string]*domain.Assignment),
		users:          make(map[string]*domain.User),
		categories:     make(map[string]*domain.Category),
		txns:           make(map[string]*domain.PayoutTransaction),
		transitionErrs: make(map[string]error),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%03d", prefix, s.seq)
}

func cloneAssignment(a *domain.Assignment) *domain.Assignment {
	if a == nil {
		return nil
	}
	c := *a
	c.Attachments = slices.Clone(a.Attachments)
	c.CompletedWork = slices.Clone(a.CompletedWork)
	c.StatusHistory = slices.Clone(a.StatusHistory)
	if a.Payout != nil {
		p := *a.Payout
		c.Payout = &p
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	if a.PaidAt != nil {
		t := *a.PaidAt
		c.PaidAt = &t
	}
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	c.Specializations = slices.Clone(u.Specializations)
	if u.Destination != nil {
		d := *u.Destination
		c.Destination = &d
	}
	return &c
}

// ---- assignments ----

type memAssignments struct{ s *memStore }

func (r memAssignments) Create(_ context.Context, a *domain.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.storageErr != nil {
		return r.s.storageErr
	}
	if a.ID == "" {
		a.ID = r.s.nextID("asg")
	}
	r.s.assignments[a.ID] = cloneAssignment(a)
	return nil
}

func (r memAssignments) FindByID(_ context.Context, id string) (*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, domain.NewNotFoundError("assignment", id)
	}
	return cloneAssignment(a), nil
}

func (r memAssignments) List(_ context.Context, f ports.ListAssignmentsFilter) ([]*domain.Assignment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.storageErr != nil {
		return nil, 0, r.s.storageErr
	}
	var matched []*domain.Assignment
	for _, a := range r.s.assignments {
		if f.OwnerID != "" && a.OwnerID != f.OwnerID {
			continue
		}
		if f.HelperID != "" && a.HelperID != f.HelperID {
			continue
		}
		if f.Unassigned && a.HelperID != "" {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
			continue
		}
		matched = append(matched, cloneAssignment(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []*domain.Assignment{}, total, nil
	}
	end := min(start+f.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r memAssignments) Transition(_ context.Context, t ports.Transition) (*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.transitionErrs[t.AssignmentID]; err != nil {
		return nil, err
	}
	a, ok := r.s.assignments[t.AssignmentID]
	if !ok {
		return nil, domain.NewNotFoundError("assignment", t.AssignmentID)
	}
	if !slices.Contains(t.From, a.Status) ||
		(t.RequireUnassigned && a.HelperID != "") ||
		(t.RequireHelperID != "" && a.HelperID != t.RequireHelperID) {
		return nil, fmt.Errorf("transition %s: %w", t.AssignmentID, domain.ErrConflict)
	}
	a.Status = t.To
	if t.Set.HelperID != nil {
		a.HelperID = *t.Set.HelperID
	}
	if t.Set.CompletedWork != nil {
		a.CompletedWork = slices.Clone(*t.Set.CompletedWork)
	}
	if t.Set.CompletedAt != nil {
		ts := *t.Set.CompletedAt
		a.CompletedAt = &ts
	}
	a.StatusHistory = append(a.StatusHistory, t.History)
	return cloneAssignment(a), nil
}

func (r memAssignments) SetPayout(_ context.Context, id string, payout domain.Payout) (*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, domain.NewNotFoundError("assignment", id)
	}
	if a.Status.IsTerminal() {
		return nil, fmt.Errorf("set payout %s: %w", id, domain.ErrConflict)
	}
	a.Payout = &payout
	return cloneAssignment(a), nil
}

func (r memAssignments) ListOverdue(_ context.Context, now time.Time) ([]*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.storageErr != nil {
		return nil, r.s.storageErr
	}
	var out []*domain.Assignment
	for _, a := range r.s.assignments {
		if a.IsOverdue(now) {
			out = append(out, cloneAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAssignments) CountActiveForUser(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.assignments {
		if (a.OwnerID == userID || a.HelperID == userID) && !a.Status.IsTerminal() {
			n++
		}
	}
	return n, nil
}

func (r memAssignments) SumPayments(_ context.Context) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.storageErr != nil {
		return decimal.Zero, r.s.storageErr
	}
	sum := decimal.Zero
	for _, a := range r.s.assignments {
		sum = sum.Add(a.PaymentAmount)
	}
	return sum, nil
}

func (r memAssignments) SumPaidPayouts(_ context.Context) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.storageErr != nil {
		return decimal.Zero, r.s.storageErr
	}
	sum := decimal.Zero
	for _, a := range r.s.assignments {
		if a.Status == domain.StatusPaid && a.Payout != nil {
			sum = sum.Add(a.Payout.HelperAmount)
		}
	}
	return sum, nil
}

// ---- payout ledger ----

type memLedger struct{ s *memStore }

func (l memLedger) RecordPayout(_ context.Context, rec ports.PayoutRecord) (*domain.Assignment, *domain.PayoutTransaction, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	a, ok := l.s.assignments[rec.AssignmentID]
	if !ok {
		return nil, nil, domain.NewNotFoundError("assignment", rec.AssignmentID)
	}
	if _, paid := l.s.txns[rec.AssignmentID]; paid || a.Status != domain.StatusReadyForPayout ||
		a.HelperID != rec.HelperID || a.Payout == nil {
		return nil, nil, fmt.Errorf("record payout %s: %w", rec.AssignmentID, domain.ErrConflict)
	}
	helper, ok := l.s.users[rec.HelperID]
	if !ok {
		return nil, nil, domain.NewNotFoundError("user", rec.HelperID)
	}

	paidAt := rec.PaidAt
	a.Status = domain.StatusPaid
	a.PaidAt = &paidAt
	a.StatusHistory = append(a.StatusHistory, domain.StatusHistoryEntry{
		Status: domain.StatusPaid, Timestamp: paidAt, ActorID: rec.ActorID, Notes: rec.Notes,
	})
	txn := &domain.PayoutTransaction{
		ID:            l.s.nextID("txn"),
		AssignmentID:  a.ID,
		HelperID:      rec.HelperID,
		Amount:        a.Payout.HelperAmount,
		TransactionID: rec.TransactionID,
		Notes:         rec.Notes,
		PaidAt:        paidAt,
	}
	l.s.txns[a.ID] = txn
	helper.TotalEarnings = helper.TotalEarnings.Add(txn.Amount)

	c := *txn
	return cloneAssignment(a), &c, nil
}

func (l memLedger) FindByAssignment(_ context.Context, assignmentID string) (*domain.PayoutTransaction, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	txn, ok := l.s.txns[assignmentID]
	if !ok {
		return nil, domain.NewNotFoundError("payout transaction", assignmentID)
	}
	c := *txn
	return &c, nil
}

// ---- users ----

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return nil, domain.ErrUserExists
		}
	}
	c := cloneUser(u)
	if c.ID == "" {
		c.ID = r.s.nextID("usr")
	}
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id)
	}
	return cloneUser(u), nil
}

func (r memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.NewNotFoundError("user", username)
}

func (r memUsers) FindByDiscordID(_ context.Context, discordID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.DiscordID == discordID {
			return cloneUser(u), nil
		}
	}
	return nil, domain.NewNotFoundError("user", discordID)
}

func (r memUsers) FindHelpersFor(_ context.Context, category string) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.User
	for _, u := range r.s.users {
		if u.Active && u.HasRole(domain.RoleHelper) && u.SpecializesIn(category) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) UpdateRoles(_ context.Context, id string, roles []string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id)
	}
	u.Roles = slices.Clone(roles)
	return cloneUser(u), nil
}

func (r memUsers) SetActive(_ context.Context, id string, active bool) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id)
	}
	u.Active = active
	return cloneUser(u), nil
}

func (r memUsers) UpsertByDiscordID(_ context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.DiscordID == u.DiscordID {
			existing.Username = u.Username
			existing.Roles = slices.Clone(u.Roles)
			existing.Active = u.Active
			return cloneUser(existing), nil
		}
	}
	c := cloneUser(u)
	c.ID = r.s.nextID("usr")
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return domain.NewNotFoundError("user", id)
	}
	delete(r.s.users, id)
	return nil
}

// ---- categories and settings ----

type memCategories struct{ s *memStore }

func (r memCategories) FindByName(_ context.Context, name string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[name]
	if !ok {
		return nil, domain.NewNotFoundError("category", name)
	}
	cp := *c
	return &cp, nil
}

func (r memCategories) List(_ context.Context) ([]*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Category
	for _, c := range r.s.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCategories) Upsert(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.storageErr != nil {
		return r.s.storageErr
	}
	cp := *c
	r.s.categories[c.Name] = &cp
	return nil
}

type memSettings struct{ s *memStore }

func (r memSettings) Get(_ context.Context) (*domain.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := r.s.settings
	return &st, nil
}

func (r memSettings) SetHelperRegistrationOpen(_ context.Context, open bool) (*domain.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings.HelperRegistrationOpen = open
	st := r.s.settings
	return &st, nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (p *recordingPublisher) Publish(events ...domain.LifecycleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func (p *recordingPublisher) directTo(recipient string) []domain.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.LifecycleEvent
	for _, e := range p.events {
		if e.Recipient == recipient {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type stubSummarizer struct {
	out string
	err error
}

func (s *stubSummarizer) Summarize(_ context.Context, content []byte, hint string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if hint != "" {
		return s.out + " [" + hint + "]", nil
	}
	return s.out, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/api/middleware"
	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Service stubs
// ---------------------------------------------------------------------------

type stubAssignmentService struct {
	createFn    func(ctx context.Context, owner *domain.User, in ports.CreateAssignmentInput) (*domain.Assignment, error)
	getFn       func(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error)
	listFn      func(ctx context.Context, actor *domain.User, in ports.ListAssignmentsInput) (*ports.ListAssignmentsResult, error)
	acceptFn    func(ctx context.Context, id string, helper *domain.User) (*domain.Assignment, error)
	completeFn  func(ctx context.Context, id string, helper *domain.User, work []domain.Attachment) (*domain.Assignment, error)
	approveFn   func(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error)
	revisionFn  func(ctx context.Context, id string, actor *domain.User, feedback string) (*domain.Assignment, error)
	cancelFn    func(ctx context.Context, id string, actor *domain.User, reason string) (*domain.Assignment, error)
	payoutFn    func(ctx context.Context, id string, actor *domain.User, amount decimal.Decimal) (*domain.Assignment, error)
	payFn       func(ctx context.Context, id string, actor *domain.User, txnID, notes string) (*domain.Assignment, *domain.PayoutTransaction, error)
	summarizeFn func(ctx context.Context, id string, actor *domain.User) (string, error)
}

var errNotStubbed = errors.New("not stubbed")

func (s *stubAssignmentService) Create(ctx context.Context, owner *domain.User, in ports.CreateAssignmentInput) (*domain.Assignment, error) {
	if s.createFn == nil {
		return nil, errNotStubbed
	}
	return s.createFn(ctx, owner, in)
}

func (s *stubAssignmentService) Get(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
	if s.getFn == nil {
		return nil, errNotStubbed
	}
	return s.getFn(ctx, id, actor)
}

func (s *stubAssignmentService) List(ctx context.Context, actor *domain.User, in ports.ListAssignmentsInput) (*ports.ListAssignmentsResult, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx, actor, in)
}

func (s *stubAssignmentService) Accept(ctx context.Context, id string, helper *domain.User) (*domain.Assignment, error) {
	if s.acceptFn == nil {
		return nil, errNotStubbed
	}
	return s.acceptFn(ctx, id, helper)
}

func (s *stubAssignmentService) Complete(ctx context.Context, id string, helper *domain.User, work []domain.Attachment) (*domain.Assignment, error) {
	if s.completeFn == nil {
		return nil, errNotStubbed
	}
	return s.completeFn(ctx, id, helper, work)
}

func (s *stubAssignmentService) ApproveWork(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
	if s.approveFn == nil {
		return nil, errNotStubbed
	}
	return s.approveFn(ctx, id, actor)
}

func (s *stubAssignmentService) RequestRevision(ctx context.Context, id string, actor *domain.User, feedback string) (*domain.Assignment, error) {
	if s.revisionFn == nil {
		return nil, errNotStubbed
	}
	return s.revisionFn(ctx, id, actor, feedback)
}

func (s *stubAssignmentService) Cancel(ctx context.Context, id string, actor *domain.User, reason string) (*domain.Assignment, error) {
	if s.cancelFn == nil {
		return nil, errNotStubbed
	}
	return s.cancelFn(ctx, id, actor, reason)
}

func (s *stubAssignmentService) SetHelperPayout(ctx context.Context, id string, actor *domain.User, amount decimal.Decimal) (*domain.Assignment, error) {
	if s.payoutFn == nil {
		return nil, errNotStubbed
	}
	return s.payoutFn(ctx, id, actor, amount)
}

func (s *stubAssignmentService) Pay(ctx context.Context, id string, actor *domain.User, txnID, notes string) (*domain.Assignment, *domain.PayoutTransaction, error) {
	if s.payFn == nil {
		return nil, nil, errNotStubbed
	}
	return s.payFn(ctx, id, actor, txnID, notes)
}

func (s *stubAssignmentService) Summarize(ctx context.Context, id string, actor *domain.User) (string, error) {
	if s.summarizeFn == nil {
		return "", errNotStubbed
	}
	return s.summarizeFn(ctx, id, actor)
}

type stubFinanceService struct {
	summary *domain.FinancialSummary
	err     error
}

func (s *stubFinanceService) Summary(context.Context) (*domain.FinancialSummary, error) {
	return s.summary, s.err
}

type stubUserService struct {
	rolesFn  func(ctx context.Context, actor *domain.User, id string, roles []string) (*domain.User, error)
	activeFn func(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error)
	deleteFn func(ctx context.Context, actor *domain.User, id string) error
	open     bool
}

func (s *stubUserService) Get(context.Context, string) (*domain.User, error) {
	return nil, errNotStubbed
}

func (s *stubUserService) UpdateRoles(ctx context.Context, actor *domain.User, id string, roles []string) (*domain.User, error) {
	return s.rolesFn(ctx, actor, id, roles)
}

func (s *stubUserService) SetActive(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error) {
	return s.activeFn(ctx, actor, id, active)
}

func (s *stubUserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *stubUserService) RegistrationOpen(context.Context) (bool, error) {
	return s.open, nil
}

func (s *stubUserService) SetRegistrationOpen(_ context.Context, _ *domain.User, open bool) (bool, error) {
	s.open = open
	return open, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var (
	testClient = &domain.User{ID: "u-client", Username: "carol", Roles: []string{domain.RoleClient}, Active: true}
	testHelper = &domain.User{ID: "u-helper", Username: "hank", Roles: []string{domain.RoleHelper}, Active: true}
	testAdmin  = &domain.User{ID: "u-admin", Username: "ada", Roles: []string{domain.RoleAdmin}, Active: true}
)

// newContext builds an echo context for method/target with an optional JSON
// body and the actor already resolved, the way LoadActor leaves it.
func newContext(method, target, body string, actor *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		c.Set(middleware.KeyActor, actor)
	}
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

// httpStatus returns the status carried by an *echo.HTTPError, or 0.
func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

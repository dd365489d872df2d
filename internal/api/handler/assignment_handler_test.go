package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

func sampleAssignment(status domain.AssignmentStatus) *domain.Assignment {
	return &domain.Assignment{
		ID:            "a-1",
		OwnerID:       testClient.ID,
		Title:         "Linear algebra set",
		Description:   "Ten eigenvalue problems",
		Category:      "mathematics",
		Complexity:    domain.ComplexityMedium,
		PaymentAmount: decimal.RequireFromString("100"),
		Deadline:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:        status,
		CreatedAt:     time.Date(2029, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestAssignmentHandler_Create_Success(t *testing.T) {
	stub := &stubAssignmentService{
		createFn: func(ctx context.Context, owner *domain.User, in ports.CreateAssignmentInput) (*domain.Assignment, error) {
			if owner.ID != testClient.ID {
				t.Fatalf("unexpected owner %s", owner.ID)
			}
			if !in.PaymentAmount.Equal(decimal.RequireFromString("100.50")) {
				t.Fatalf("payment not parsed: %s", in.PaymentAmount)
			}
			if len(in.Attachments) != 1 || string(in.Attachments[0].Content) != "hello" {
				t.Fatalf("attachment content not decoded: %+v", in.Attachments)
			}
			a := sampleAssignment(domain.StatusPending)
			a.PaymentAmount = in.PaymentAmount
			return a, nil
		},
	}
	h := NewAssignmentHandler(stub)

	body := `{"title":"Linear algebra set","description":"Ten eigenvalue problems","category":"mathematics",
		"complexity":"medium","payment_amount":"100.50","deadline":"2030-01-01",
		"attachments":[{"locator":"s3://bucket/a.pdf","filename":"a.pdf","content":"aGVsbG8="}]}`
	c, rec := newContext(http.MethodPost, "/v1/assignments", body, testClient)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["status"] != "pending" || resp["id"] != "a-1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	links, ok := resp["_links"].(map[string]any)
	if !ok || links["self"] != "/v1/assignments/a-1" {
		t.Fatalf("unexpected links: %+v", resp["_links"])
	}
}

func TestAssignmentHandler_Create_ValidationFails(t *testing.T) {
	h := NewAssignmentHandler(&stubAssignmentService{})

	c, _ := newContext(http.MethodPost, "/v1/assignments", `{"title":"x","complexity":"extreme"}`, testClient)

	err := h.Create(c)
	if httpStatus(t, err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAssignmentHandler_Create_InvalidPayload(t *testing.T) {
	h := NewAssignmentHandler(&stubAssignmentService{})

	c, _ := newContext(http.MethodPost, "/v1/assignments", "not-json", testClient)

	if httpStatus(t, h.Create(c)) != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}

func TestAssignmentHandler_RequiresActor(t *testing.T) {
	h := NewAssignmentHandler(&stubAssignmentService{})

	c, _ := newContext(http.MethodGet, "/v1/assignments", "", nil)

	if httpStatus(t, h.List(c)) != http.StatusUnauthorized {
		t.Fatalf("expected 401")
	}
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestAssignmentHandler_List_PassesQuery(t *testing.T) {
	stub := &stubAssignmentService{
		listFn: func(ctx context.Context, actor *domain.User, in ports.ListAssignmentsInput) (*ports.ListAssignmentsResult, error) {
			if in.Status != "accepted" || !in.AssignedToMe || in.Page != 2 || in.Limit != 5 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.ListAssignmentsResult{
				Items:      []*domain.Assignment{sampleAssignment(domain.StatusAccepted)},
				Total:      6,
				Page:       2,
				Limit:      5,
				TotalPages: 2,
			}, nil
		},
	}
	h := NewAssignmentHandler(stub)

	c, rec := newContext(http.MethodGet, "/v1/assignments?status=accepted&assigned_to_me=true&page=2&limit=5", "", testHelper)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var resp listAssignmentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 6 || resp.TotalPages != 2 || len(resp.Items) != 1 {
		t.Fatalf("unexpected page: %+v", resp)
	}
}

func TestAssignmentHandler_Get_PropagatesDomainError(t *testing.T) {
	stub := &stubAssignmentService{
		getFn: func(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
			return nil, domain.NewAuthorizationError("access denied")
		},
	}
	h := NewAssignmentHandler(stub)

	c, _ := newContext(http.MethodGet, "/v1/assignments/a-1", "", testHelper)
	withID(c, "a-1")

	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle transitions
// ---------------------------------------------------------------------------

func TestAssignmentHandler_Accept(t *testing.T) {
	stub := &stubAssignmentService{
		acceptFn: func(ctx context.Context, id string, helper *domain.User) (*domain.Assignment, error) {
			if id != "a-1" || helper.ID != testHelper.ID {
				t.Fatalf("unexpected args: %s %s", id, helper.ID)
			}
			a := sampleAssignment(domain.StatusAccepted)
			a.HelperID = helper.ID
			return a, nil
		},
	}
	h := NewAssignmentHandler(stub)

	c, rec := newContext(http.MethodPost, "/v1/assignments/a-1/accept", "", testHelper)
	withID(c, "a-1")

	if err := h.Accept(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
}

func TestAssignmentHandler_Accept_Conflict(t *testing.T) {
	stub := &stubAssignmentService{
		acceptFn: func(ctx context.Context, id string, helper *domain.User) (*domain.Assignment, error) {
			return nil, domain.NewConflictError(sampleAssignment(domain.StatusAccepted), "assignment has already been accepted")
		},
	}
	h := NewAssignmentHandler(stub)

	c, _ := newContext(http.MethodPost, "/v1/assignments/a-1/accept", "", testHelper)
	withID(c, "a-1")

	err := h.Accept(c)
	var ce *domain.ConflictError
	if !errors.As(err, &ce) || ce.Current != domain.StatusAccepted {
		t.Fatalf("expected conflict carrying current status, got %v", err)
	}
}

func TestAssignmentHandler_Complete_MapsAttachments(t *testing.T) {
	stub := &stubAssignmentService{
		completeFn: func(ctx context.Context, id string, helper *domain.User, work []domain.Attachment) (*domain.Assignment, error) {
			if len(work) != 2 || work[1].Filename != "b.pdf" {
				t.Fatalf("unexpected work: %+v", work)
			}
			return sampleAssignment(domain.StatusPendingClientReview), nil
		},
	}
	h := NewAssignmentHandler(stub)

	body := `{"attachments":[{"locator":"l1","filename":"a.pdf"},{"locator":"l2","filename":"b.pdf"}]}`
	c, rec := newContext(http.MethodPost, "/v1/assignments/a-1/complete", body, testHelper)
	withID(c, "a-1")

	if err := h.Complete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
}

func TestAssignmentHandler_Complete_RejectsIncompleteAttachment(t *testing.T) {
	h := NewAssignmentHandler(&stubAssignmentService{})

	c, _ := newContext(http.MethodPost, "/v1/assignments/a-1/complete", `{"attachments":[{"locator":"l1"}]}`, testHelper)
	withID(c, "a-1")

	if httpStatus(t, h.Complete(c)) != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}

func TestAssignmentHandler_Revision_RequiresFeedback(t *testing.T) {
	h := NewAssignmentHandler(&stubAssignmentService{})

	c, _ := newContext(http.MethodPost, "/v1/assignments/a-1/revision", `{}`, testClient)
	withID(c, "a-1")

	if httpStatus(t, h.RequestRevision(c)) != http.StatusBadRequest {
		t.Fatalf("expected 400")
	}
}

func TestAssignmentHandler_Revision(t *testing.T) {
	stub := &stubAssignmentService{
		revisionFn: func(ctx context.Context, id string, actor *domain.User, feedback string) (*domain.Assignment, error) {
			if feedback != "show your work" {
				t.Fatalf("unexpected feedback %q", feedback)
			}
			return sampleAssignment(domain.StatusAccepted), nil
		},
	}
	h := NewAssignmentHandler(stub)

	c, rec := newContext(http.MethodPost, "/v1/assignments/a-1/revision", `{"feedback":"show your work"}`, testClient)
	withID(c, "a-1")

	if err := h.RequestRevision(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
}

func TestAssignmentHandler_ApproveAndCancel(t *testing.T) {
	stub := &stubAssignmentService{
		approveFn: func(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
			return sampleAssignment(domain.StatusReadyForPayout), nil
		},
		cancelFn: func(ctx context.Context, id string, actor *domain.User, reason string) (*domain.Assignment, error) {
			if reason != "" {
				t.Fatalf("expected empty reason, got %q", reason)
			}
			return sampleAssignment(domain.StatusCancelled), nil
		},
	}
	h := NewAssignmentHandler(stub)

	c, rec := newContext(http.MethodPost, "/v1/assignments/a-1/approve", "", testClient)
	withID(c, "a-1")
	if err := h.Approve(c); err != nil {
		t.Fatalf("approve: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	c, rec = newContext(http.MethodPost, "/v1/assignments/a-1/cancel", "", testClient)
	withID(c, "a-1")
	if err := h.Cancel(c); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
}

func TestAssignmentHandler_Summary(t *testing.T) {
	stub := &stubAssignmentService{
		summarizeFn: func(ctx context.Context, id string, actor *domain.User) (string, error) {
			return "Ten eigenvalue problems, medium difficulty.", nil
		},
	}
	h := NewAssignmentHandler(stub)

	c, rec := newContext(http.MethodPost, "/v1/assignments/a-1/summary", "", testHelper)
	withID(c, "a-1")

	if err := h.Summary(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AssignmentID != "a-1" || resp.Summary == "" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

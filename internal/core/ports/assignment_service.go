package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// AttachmentUpload is a client-submitted file. Content is optional and only
// used to produce a summary; the file itself lives behind Locator.
type AttachmentUpload struct {
	Locator  string
	Filename string
	Content  []byte
}

// CreateAssignmentInput carries all data needed to create a new assignment.
type CreateAssignmentInput struct {
	Title           string
	Description     string
	Category        string
	Complexity      string
	PaymentAmount   decimal.Decimal
	Deadline        string
	TicketChannelID string
	Attachments     []AttachmentUpload
}

// ListAssignmentsInput carries the parameters for the list endpoint.
type ListAssignmentsInput struct {
	Status       string
	AssignedToMe bool
	OwnedByMe    bool
	Page         int
	Limit        int
}

// ListAssignmentsResult is returned by List.
type ListAssignmentsResult struct {
	Items      []*domain.Assignment
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// AssignmentService is the lifecycle engine. Every operation takes the
// resolved acting user and returns either the updated assignment or a typed
// domain error.
type AssignmentService interface {
	Create(ctx context.Context, owner *domain.User, input CreateAssignmentInput) (*domain.Assignment, error)
	Get(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error)
	List(ctx context.Context, actor *domain.User, input ListAssignmentsInput) (*ListAssignmentsResult, error)
	Accept(ctx context.Context, id string, helper *domain.User) (*domain.Assignment, error)
	Complete(ctx context.Context, id string, helper *domain.User, work []domain.Attachment) (*domain.Assignment, error)
	ApproveWork(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error)
	RequestRevision(ctx context.Context, id string, actor *domain.User, feedback string) (*domain.Assignment, error)
	Cancel(ctx context.Context, id string, actor *domain.User, reason string) (*domain.Assignment, error)
	SetHelperPayout(ctx context.Context, id string, actor *domain.User, amount decimal.Decimal) (*domain.Assignment, error)
	Pay(ctx context.Context, id string, actor *domain.User, transactionID, notes string) (*domain.Assignment, *domain.PayoutTransaction, error)
	Summarize(ctx context.Context, id string, actor *domain.User) (string, error)
}

// FinanceService exposes read-only ledger rollups.
type FinanceService interface {
	Summary(ctx context.Context) (*domain.FinancialSummary, error)
}

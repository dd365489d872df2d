package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// AssignmentPatch lists the fields a transition sets alongside the new status.
// Nil pointers leave the stored value untouched.
type AssignmentPatch struct {
	HelperID      *string
	CompletedWork *[]domain.Attachment
	CompletedAt   *time.Time
}

// Transition is a conditional status update. It only applies when the stored
// assignment's status is one of From and the helper precondition holds.
type Transition struct {
	AssignmentID string
	From         []domain.AssignmentStatus
	To           domain.AssignmentStatus
	// RequireUnassigned matches only documents whose helper is unset.
	RequireUnassigned bool
	// RequireHelperID, when non-empty, matches only documents attached to that helper.
	RequireHelperID string
	Set             AssignmentPatch
	History         domain.StatusHistoryEntry
}

// ListAssignmentsFilter carries query parameters for listing assignments.
type ListAssignmentsFilter struct {
	OwnerID    string                    // empty = any owner
	HelperID   string                    // empty = any helper
	Unassigned bool                      // only assignments without a helper
	Statuses   []domain.AssignmentStatus // empty = any status
	Page       int                       // 1-based
	Limit      int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.Assignment) error
	FindByID(ctx context.Context, id string) (*domain.Assignment, error)
	List(ctx context.Context, filter ListAssignmentsFilter) ([]*domain.Assignment, int64, error)

	// Transition atomically applies t and returns the updated document.
	// It returns an error wrapping domain.ErrConflict when no document matched
	// the preconditions and domain.ErrNotFound when the id does not exist.
	Transition(ctx context.Context, t Transition) (*domain.Assignment, error)

	// SetPayout overwrites the payout breakdown of a non-terminal assignment.
	SetPayout(ctx context.Context, id string, payout domain.Payout) (*domain.Assignment, error)

	// ListOverdue returns accepted assignments whose deadline is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]*domain.Assignment, error)

	// CountActiveForUser counts non-terminal assignments owned by or attached to userID.
	CountActiveForUser(ctx context.Context, userID string) (int64, error)

	// SumPayments totals payment_amount over every assignment.
	SumPayments(ctx context.Context) (decimal.Decimal, error)
	// SumPaidPayouts totals the helper payout over assignments in status paid.
	SumPaidPayouts(ctx context.Context) (decimal.Decimal, error)
}

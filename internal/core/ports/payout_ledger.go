package ports

import (
	"context"
	"time"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// PayoutRecord carries everything needed to settle an assignment.
type PayoutRecord struct {
	AssignmentID  string
	HelperID      string
	ActorID       string
	TransactionID string
	Notes         string
	PaidAt        time.Time
}

// PayoutLedger settles assignments. RecordPayout must apply all of its effects
// or none: the ready_for_payout -> paid transition with paid_at, the insert of
// exactly one PayoutTransaction, and the increment of the helper's earnings by
// the assignment's payout amount. A second call for the same assignment fails
// with an error wrapping domain.ErrConflict.
type PayoutLedger interface {
	RecordPayout(ctx context.Context, rec PayoutRecord) (*domain.Assignment, *domain.PayoutTransaction, error)
	FindByAssignment(ctx context.Context, assignmentID string) (*domain.PayoutTransaction, error)
}

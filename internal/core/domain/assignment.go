package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssignmentStatus represents the lifecycle state of an assignment.
type AssignmentStatus string

const (
	StatusPending             AssignmentStatus = "pending"
	StatusAccepted            AssignmentStatus = "accepted"
	StatusDue                 AssignmentStatus = "due"
	StatusPendingClientReview AssignmentStatus = "pending_client_review"
	StatusReadyForPayout      AssignmentStatus = "ready_for_payout"
	StatusPaid                AssignmentStatus = "paid"
	StatusCancelled           AssignmentStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions.
// Statuses without an entry are terminal.
var validTransitions = map[AssignmentStatus][]AssignmentStatus{
	StatusPending:             {StatusAccepted, StatusCancelled},
	StatusAccepted:            {StatusDue, StatusPendingClientReview, StatusCancelled},
	StatusDue:                 {StatusPendingClientReview, StatusCancelled},
	StatusPendingClientReview: {StatusReadyForPayout, StatusAccepted},
	StatusReadyForPayout:      {StatusPaid},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s AssignmentStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsValid reports whether s is one of the known statuses.
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDue, StatusPendingClientReview,
		StatusReadyForPayout, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// ActiveStatuses lists every non-terminal status.
func ActiveStatuses() []AssignmentStatus {
	return []AssignmentStatus{
		StatusPending, StatusAccepted, StatusDue, StatusPendingClientReview, StatusReadyForPayout,
	}
}

// Complexity is the client's estimate of how hard an assignment is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ParseComplexity normalises user input into a Complexity.
func ParseComplexity(s string) (Complexity, bool) {
	switch c := Complexity(s); c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return c, true
	}
	return "", false
}

// Attachment points at a stored file.
type Attachment struct {
	Locator  string `json:"locator"`
	Filename string `json:"filename"`
}

// StatusHistoryEntry records a single status transition on an assignment.
type StatusHistoryEntry struct {
	Status    AssignmentStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	ActorID   string           `json:"actor_id,omitempty"`
	Notes     string           `json:"notes,omitempty"`
}

// Payout is the admin-determined split of a client payment.
type Payout struct {
	HelperAmount  decimal.Decimal `json:"helper_amount"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	OperatorShare decimal.Decimal `json:"operator_share"`
	PartnerShare  decimal.Decimal `json:"partner_share"`
}

// SplitPayout computes the platform fee for a helper payout and divides it
// between the two beneficiaries. The shares always sum to the fee exactly;
// any odd cent goes to the operator.
func SplitPayout(payment, helperAmount decimal.Decimal) Payout {
	fee := payment.Sub(helperAmount)
	operator := fee.Div(decimal.NewFromInt(2)).Round(2)
	return Payout{
		HelperAmount:  helperAmount,
		PlatformFee:   fee,
		OperatorShare: operator,
		PartnerShare:  fee.Sub(operator),
	}
}

// Assignment is the core aggregate root.
type Assignment struct {
	ID                 string               `json:"id"`
	OwnerID            string               `json:"owner_id"`
	HelperID           string               `json:"helper_id,omitempty"`
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	DescriptionSummary string               `json:"description_summary,omitempty"`
	AttachmentSummary  string               `json:"attachment_summary,omitempty"`
	Category           string               `json:"category"`
	Complexity         Complexity           `json:"complexity"`
	PaymentAmount      decimal.Decimal      `json:"payment_amount"`
	Payout             *Payout              `json:"payout,omitempty"`
	Deadline           time.Time            `json:"deadline"`
	Status             AssignmentStatus     `json:"status"`
	Attachments        []Attachment         `json:"attachments"`
	CompletedWork      []Attachment         `json:"completed_work_attachments"`
	TicketChannelID    string               `json:"ticket_channel_id,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	PaidAt             *time.Time           `json:"paid_at,omitempty"`
	StatusHistory      []StatusHistoryEntry `json:"status_history"`
}

// HasHelper reports whether a helper is attached.
func (a *Assignment) HasHelper() bool {
	return a.HelperID != ""
}

// IsOverdue reports whether an accepted assignment has passed its deadline at now.
func (a *Assignment) IsOverdue(now time.Time) bool {
	return a.Status == StatusAccepted && a.Deadline.Before(now)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutTransaction is the immutable receipt written when an assignment is paid.
type PayoutTransaction struct {
	ID            string          `json:"id"`
	AssignmentID  string          `json:"assignment_id"`
	HelperID      string          `json:"helper_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	Notes         string          `json:"notes,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
}

// FinancialSummary is the ledger rollup shown on the admin dashboard.
type FinancialSummary struct {
	TotalClientPayments decimal.Decimal `json:"total_client_payments"`
	TotalHelperPayouts  decimal.Decimal `json:"total_helper_payouts"`
	PlatformProfit      decimal.Decimal `json:"platform_profit"`
}

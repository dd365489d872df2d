package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

type financeService struct {
	assignments ports.AssignmentRepository
	log         zerolog.Logger
}

// NewFinanceService returns a FinanceService backed by the assignment store.
func NewFinanceService(assignments ports.AssignmentRepository, log zerolog.Logger) ports.FinanceService {
	return &financeService{assignments: assignments, log: log}
}

// Summary totals client payments over every assignment and helper payouts
// over paid assignments only.
func (s *financeService) Summary(ctx context.Context) (*domain.FinancialSummary, error) {
	payments, err := s.assignments.SumPayments(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to sum client payments")
		return nil, domain.WrapStorage("sum payments", err)
	}
	payouts, err := s.assignments.SumPaidPayouts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to sum helper payouts")
		return nil, domain.WrapStorage("sum payouts", err)
	}
	return &domain.FinancialSummary{
		TotalClientPayments: payments,
		TotalHelperPayouts:  payouts,
		PlatformProfit:      payments.Sub(payouts),
	}, nil
}

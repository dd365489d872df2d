package handler

import (
	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
)

type setPayoutRequest struct {
	HelperAmount decimal.Decimal `json:"helper_amount" swaggertype:"string"`
}

type payRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Notes         string `json:"notes"`
}

type payResponse struct {
	Assignment  assignmentResponse        `json:"assignment"`
	Transaction *domain.PayoutTransaction `json:"transaction"`
}

type updateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=admin client helper"`
}

type setStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type registrationSettingRequest struct {
	Open *bool `json:"open" validate:"required"`
}

type registrationSettingResponse struct {
	HelperRegistrationOpen bool `json:"helper_registration_open"`
}

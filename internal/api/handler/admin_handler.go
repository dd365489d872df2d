package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assignhub/marketplace/internal/api/metrics"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// AdminHandler serves the admin-only payout, finance and user endpoints.
type AdminHandler struct {
	assignments ports.AssignmentService
	finance     ports.FinanceService
	users       ports.UserService
}

func NewAdminHandler(assignments ports.AssignmentService, finance ports.FinanceService, users ports.UserService) *AdminHandler {
	return &AdminHandler{assignments: assignments, finance: finance, users: users}
}

// SetPayout handles PUT /v1/admin/assignments/:id/payout.
//
// @Summary      Set the helper payout for an assignment
// @Description  Computes the platform fee and the operator/partner split.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Assignment ID"
// @Param        body  body      setPayoutRequest  true  "Helper amount"
// @Success      200   {object}  assignmentResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/admin/assignments/{id}/payout [put]
func (h *AdminHandler) SetPayout(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req setPayoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	a, err := h.assignments.SetHelperPayout(c.Request().Context(), c.Param("id"), actor, req.HelperAmount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAssignmentResponse(a))
}

// Pay handles POST /v1/admin/assignments/:id/pay.
//
// @Summary      Record the helper payout
// @Description  Moves a ready_for_payout assignment to paid and writes exactly one
// @Description  payout transaction. Repeating the call yields 409.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string      true  "Assignment ID"
// @Param        body  body      payRequest  true  "Payment reference"
// @Success      200   {object}  payResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/admin/assignments/{id}/pay [post]
func (h *AdminHandler) Pay(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req payRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, txn, err := h.assignments.Pay(c.Request().Context(), c.Param("id"), actor, req.TransactionID, req.Notes)
	if err != nil {
		return err
	}
	metrics.PayoutsTotal.Inc()
	metrics.AssignmentTransitionsTotal.WithLabelValues(string(a.Status), "api").Inc()

	return c.JSON(http.StatusOK, payResponse{Assignment: toAssignmentResponse(a), Transaction: txn})
}

// FinancialSummary handles GET /v1/admin/financial-summary.
//
// @Summary      Ledger totals
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.FinancialSummary
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/financial-summary [get]
func (h *AdminHandler) FinancialSummary(c echo.Context) error {
	summary, err := h.finance.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// UpdateRoles handles PUT /v1/admin/users/:id/roles.
//
// @Summary      Replace a user's roles
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "User ID"
// @Param        body  body      updateRolesRequest  true  "New role set"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/admin/users/{id}/roles [put]
func (h *AdminHandler) UpdateRoles(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req updateRolesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.users.UpdateRoles(c.Request().Context(), actor, c.Param("id"), req.Roles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// SetStatus handles PUT /v1/admin/users/:id/status.
//
// @Summary      Activate or deactivate a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "User ID"
// @Param        body  body      setStatusRequest  true  "Active flag"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/admin/users/{id}/status [put]
func (h *AdminHandler) SetStatus(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.users.SetActive(c.Request().Context(), actor, c.Param("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /v1/admin/users/:id.
//
// @Summary      Delete a user
// @Description  Refused while the user still owns or helps with active assignments.
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRegistration handles GET /v1/admin/settings/helper-registration.
//
// @Summary      Helper registration toggle
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  registrationSettingResponse
// @Router       /v1/admin/settings/helper-registration [get]
func (h *AdminHandler) GetRegistration(c echo.Context) error {
	open, err := h.users.RegistrationOpen(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, registrationSettingResponse{HelperRegistrationOpen: open})
}

// SetRegistration handles PUT /v1/admin/settings/helper-registration.
//
// @Summary      Open or close helper self-registration
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      registrationSettingRequest  true  "Toggle"
// @Success      200   {object}  registrationSettingResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/admin/settings/helper-registration [put]
func (h *AdminHandler) SetRegistration(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req registrationSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	open, err := h.users.SetRegistrationOpen(c.Request().Context(), actor, *req.Open)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, registrationSettingResponse{HelperRegistrationOpen: open})
}

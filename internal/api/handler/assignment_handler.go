package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assignhub/marketplace/internal/api/metrics"
	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// AssignmentHandler exposes the assignment lifecycle over HTTP.
type AssignmentHandler struct {
	service ports.AssignmentService
}

func NewAssignmentHandler(service ports.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Create handles POST /v1/assignments.
//
// @Summary      Post a new assignment
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAssignmentRequest  true  "Assignment details"
// @Success      201   {object}  assignmentResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/assignments [post]
func (h *AssignmentHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req createAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.service.Create(c.Request().Context(), actor, toCreateInput(req))
	if err != nil {
		return err
	}
	metrics.AssignmentsCreatedTotal.WithLabelValues(a.Category).Inc()
	metrics.AssignmentTransitionsTotal.WithLabelValues(string(a.Status), "api").Inc()

	return c.JSON(http.StatusCreated, toAssignmentResponse(a))
}

// List handles GET /v1/assignments.
//
// @Summary      List assignments visible to the caller
// @Description  Clients see their own assignments, helpers the unassigned active pool
// @Description  (or their own work with assigned_to_me), admins everything.
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        status          query     string  false  "Filter by status"
// @Param        assigned_to_me  query     bool    false  "Only assignments the caller is helping with"
// @Param        owned_by_me     query     bool    false  "Admins: only assignments the caller posted"
// @Param        page            query     int     false  "Page number (1-based)"
// @Param        limit           query     int     false  "Page size (max 100)"
// @Success      200             {object}  listAssignmentsResponse
// @Failure      400             {object}  errorResponse
// @Failure      403             {object}  errorResponse
// @Router       /v1/assignments [get]
func (h *AssignmentHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var q listAssignmentsQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	res, err := h.service.List(c.Request().Context(), actor, ports.ListAssignmentsInput{
		Status:       q.Status,
		AssignedToMe: q.AssignedToMe,
		OwnedByMe:    q.OwnedByMe,
		Page:         q.Page,
		Limit:        q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(res))
}

// Get handles GET /v1/assignments/:id.
//
// @Summary      Get an assignment
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  assignmentResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/assignments/{id} [get]
func (h *AssignmentHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	a, err := h.service.Get(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAssignmentResponse(a))
}

// Accept handles POST /v1/assignments/:id/accept.
//
// @Summary      Accept a pending assignment
// @Description  Exactly one of several concurrent helpers wins; the others get 409.
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  assignmentResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/assignments/{id}/accept [post]
func (h *AssignmentHandler) Accept(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	a, err := h.service.Accept(c.Request().Context(), c.Param("id"), actor)
	return h.respond(c, "accept", a, err)
}

// Complete handles POST /v1/assignments/:id/complete.
//
// @Summary      Submit completed work for review
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                     true  "Assignment ID"
// @Param        body  body      completeAssignmentRequest  true  "Completed work"
// @Success      200   {object}  assignmentResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/assignments/{id}/complete [post]
func (h *AssignmentHandler) Complete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req completeAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.service.Complete(c.Request().Context(), c.Param("id"), actor, toAttachments(req.Attachments))
	return h.respond(c, "complete", a, err)
}

// Approve handles POST /v1/assignments/:id/approve.
//
// @Summary      Approve submitted work
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  assignmentResponse
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/assignments/{id}/approve [post]
func (h *AssignmentHandler) Approve(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	a, err := h.service.ApproveWork(c.Request().Context(), c.Param("id"), actor)
	return h.respond(c, "approve", a, err)
}

// RequestRevision handles POST /v1/assignments/:id/revision.
//
// @Summary      Send work back to the helper
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Assignment ID"
// @Param        body  body      revisionRequest  true  "Revision feedback"
// @Success      200   {object}  assignmentResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/assignments/{id}/revision [post]
func (h *AssignmentHandler) RequestRevision(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req revisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	a, err := h.service.RequestRevision(c.Request().Context(), c.Param("id"), actor, req.Feedback)
	return h.respond(c, "revision", a, err)
}

// Cancel handles POST /v1/assignments/:id/cancel.
//
// @Summary      Cancel an assignment
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true   "Assignment ID"
// @Param        body  body      cancelRequest  false  "Cancellation reason"
// @Success      200   {object}  assignmentResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/assignments/{id}/cancel [post]
func (h *AssignmentHandler) Cancel(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	a, err := h.service.Cancel(c.Request().Context(), c.Param("id"), actor, req.Reason)
	return h.respond(c, "cancel", a, err)
}

// Summary handles POST /v1/assignments/:id/summary.
//
// @Summary      Summarize an assignment description
// @Description  Never fails on summarizer outages; a placeholder is returned instead.
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  summaryResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/assignments/{id}/summary [post]
func (h *AssignmentHandler) Summary(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	summary, err := h.service.Summarize(c.Request().Context(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryResponse{AssignmentID: id, Summary: summary})
}

// respond records the outcome of a lifecycle operation and renders it.
func (h *AssignmentHandler) respond(c echo.Context, op string, a *domain.Assignment, err error) error {
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.AssignmentConflictsTotal.WithLabelValues(op).Inc()
		}
		return err
	}
	metrics.AssignmentTransitionsTotal.WithLabelValues(string(a.Status), "api").Inc()
	return c.JSON(http.StatusOK, toAssignmentResponse(a))
}

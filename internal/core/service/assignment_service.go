package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

const (
	defaultSummaryTimeout = 20 * time.Second
	defaultListLimit      = 20
	maxListLimit          = 100
)

// maxPaymentAmount bounds client-supplied amounts well inside what the store
// can represent exactly.
var maxPaymentAmount = decimal.NewFromInt(1_000_000_000)

// deadlineLayouts are tried in order when parsing a client-supplied deadline.
var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// AssignmentDeps groups the collaborators of AssignmentService.
type AssignmentDeps struct {
	Assignments ports.AssignmentRepository
	Ledger      ports.PayoutLedger
	Users       ports.UserRepository
	Categories  ports.CategoryRepository
	Summarizer  ports.Summarizer     // optional
	Events      ports.EventPublisher // optional
	// SummaryTimeout bounds each summarizer call. Defaults to 20s.
	SummaryTimeout time.Duration
	// Now overrides the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// AssignmentService is the sole authority for assignment state transitions,
// authorization and payout fields.
type AssignmentService struct {
	assignments    ports.AssignmentRepository
	ledger         ports.PayoutLedger
	users          ports.UserRepository
	categories     ports.CategoryRepository
	summarizer     ports.Summarizer
	events         ports.EventPublisher
	summaryTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

func NewAssignmentService(deps AssignmentDeps, logger zerolog.Logger) *AssignmentService {
	s := &AssignmentService{
		assignments:    deps.Assignments,
		ledger:         deps.Ledger,
		users:          deps.Users,
		categories:     deps.Categories,
		summarizer:     deps.Summarizer,
		events:         deps.Events,
		summaryTimeout: deps.SummaryTimeout,
		now:            deps.Now,
		logger:         logger,
	}
	if s.summaryTimeout <= 0 {
		s.summaryTimeout = defaultSummaryTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Create validates the request and stores a new assignment in pending status.
// Summaries are best-effort and never block creation.
func (s *AssignmentService) Create(ctx context.Context, owner *domain.User, input ports.CreateAssignmentInput) (*domain.Assignment, error) {
	if owner == nil || !owner.Active {
		return nil, domain.NewAuthorizationError("only active users can create assignments")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, domain.NewValidationError("description", "description is required")
	}
	if !input.PaymentAmount.IsPositive() {
		return nil, domain.NewValidationError("payment_amount", "payment amount must be greater than 0")
	}
	if err := checkMoney("payment_amount", input.PaymentAmount); err != nil {
		return nil, err
	}
	complexity, ok := domain.ParseComplexity(strings.ToLower(strings.TrimSpace(input.Complexity)))
	if !ok {
		return nil, domain.NewValidationError("complexity", "complexity must be one of: low, medium, high")
	}

	now := s.now()
	deadline, err := parseDeadline(input.Deadline)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.FindByName(ctx, strings.TrimSpace(input.Category))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("category", fmt.Sprintf("category %q not found", input.Category))
		}
		return nil, domain.WrapStorage("find category", err)
	}

	attachments, attachmentSummary := s.summarizeAttachments(ctx, input.Attachments)
	a := &domain.Assignment{
		OwnerID:            owner.ID,
		Title:              title,
		Description:        description,
		DescriptionSummary: s.summarize(ctx, "description", []byte(description), ""),
		AttachmentSummary:  attachmentSummary,
		Category:           category.Name,
		Complexity:         complexity,
		PaymentAmount:      input.PaymentAmount,
		Deadline:           deadline,
		Status:             domain.StatusPending,
		Attachments:        attachments,
		CompletedWork:      []domain.Attachment{},
		TicketChannelID:    input.TicketChannelID,
		CreatedAt:          now,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusPending, Timestamp: now, ActorID: owner.ID},
		},
	}

	if err := s.assignments.Create(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("owner_id", owner.ID).Msg("failed to create assignment")
		return nil, domain.WrapStorage("create assignment", err)
	}

	s.logger.Info().
		Str("assignment_id", a.ID).
		Str("owner_id", owner.ID).
		Str("category", a.Category).
		Msg("assignment created")

	s.publish(s.creationEvents(ctx, a, category, owner))
	return a, nil
}

// Get returns an assignment visible to actor.
func (s *AssignmentService) Get(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanView(actor, a) {
		return nil, domain.NewAuthorizationError("you do not have permission to view this assignment")
	}
	return a, nil
}

// List returns a role-scoped page of assignments.
func (s *AssignmentService) List(ctx context.Context, actor *domain.User, input ports.ListAssignmentsInput) (*ports.ListAssignmentsResult, error) {
	if actor == nil || !actor.Active {
		return nil, domain.NewAuthorizationError("access denied")
	}

	var statuses []domain.AssignmentStatus
	if input.Status != "" {
		st := domain.AssignmentStatus(input.Status)
		if !st.IsValid() {
			return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", input.Status))
		}
		statuses = []domain.AssignmentStatus{st}
	}

	filter := ports.ListAssignmentsFilter{Statuses: statuses}
	switch {
	case actor.IsAdmin():
		if input.OwnedByMe {
			filter.OwnerID = actor.ID
		}
		if input.AssignedToMe {
			filter.HelperID = actor.ID
		}
	case actor.HasRole(domain.RoleHelper):
		if input.AssignedToMe {
			filter.HelperID = actor.ID
		} else {
			filter.Unassigned = true
			if len(filter.Statuses) == 0 {
				filter.Statuses = domain.ActiveStatuses()
			}
		}
	case actor.HasRole(domain.RoleClient):
		filter.OwnerID = actor.ID
	default:
		return nil, domain.NewAuthorizationError("access denied: no valid role")
	}

	filter.Page = input.Page
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Limit = input.Limit
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	items, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, domain.WrapStorage("list assignments", err)
	}
	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ports.ListAssignmentsResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// Accept attaches helper to a pending, unassigned assignment. The store only
// applies the update while the helper is still unset, so of two concurrent
// calls exactly one succeeds.
func (s *AssignmentService) Accept(ctx context.Context, id string, helper *domain.User) (*domain.Assignment, error) {
	if helper == nil || !helper.Active || !helper.HasRole(domain.RoleHelper) {
		return nil, domain.NewAuthorizationError("only active helpers can accept assignments")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPending {
		return nil, domain.NewConflictError(a, "assignment is not pending")
	}
	if a.HasHelper() {
		return nil, domain.NewConflictError(a, "assignment is already assigned to a helper")
	}
	if !helper.SpecializesIn(a.Category) {
		return nil, domain.NewAuthorizationError(fmt.Sprintf("you are not specialized in the %q category and cannot accept this assignment", a.Category))
	}

	updated, err := s.apply(ctx, a, ports.Transition{
		From:              []domain.AssignmentStatus{domain.StatusPending},
		To:                domain.StatusAccepted,
		RequireUnassigned: true,
		Set:               ports.AssignmentPatch{HelperID: &helper.ID},
		History:           domain.StatusHistoryEntry{ActorID: helper.ID},
	}, "assignment is already assigned to a helper")
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("✅ Assignment Accepted: **%s** by helper **%s**", updated.Title, helper.Username)
	events := []domain.LifecycleEvent{s.channelEvent(domain.EventAssignmentAccepted, updated, msg)}
	if owner := s.lookupUser(ctx, updated.OwnerID); owner != nil {
		events[0].Message = fmt.Sprintf("%s (Client: %s)", msg, owner.Username)
		events = append(events, s.directEvent(domain.EventAssignmentAccepted, updated, owner,
			fmt.Sprintf("Your assignment **%s** was accepted by helper **%s**.", updated.Title, helper.Username)))
	}
	s.publish(events)
	return updated, nil
}

// Complete submits the attached helper's work for client review.
func (s *AssignmentService) Complete(ctx context.Context, id string, helper *domain.User, work []domain.Attachment) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if helper == nil || !a.HasHelper() || a.HelperID != helper.ID {
		return nil, domain.NewAuthorizationError("you are not assigned to this assignment")
	}
	if a.Status != domain.StatusAccepted && a.Status != domain.StatusDue {
		return nil, domain.NewConflictError(a, "assignment cannot be marked as complete")
	}

	if work == nil {
		work = []domain.Attachment{}
	}
	now := s.now()
	updated, err := s.apply(ctx, a, ports.Transition{
		From:            []domain.AssignmentStatus{domain.StatusAccepted, domain.StatusDue},
		To:              domain.StatusPendingClientReview,
		RequireHelperID: helper.ID,
		Set:             ports.AssignmentPatch{CompletedWork: &work, CompletedAt: &now},
		History:         domain.StatusHistoryEntry{ActorID: helper.ID},
	}, "assignment changed while completing")
	if err != nil {
		return nil, err
	}

	events := []domain.LifecycleEvent{s.channelEvent(domain.EventAssignmentCompleted, updated,
		fmt.Sprintf("🎉 Assignment Completed: **%s** submitted by **%s**. Awaiting client review.", updated.Title, helper.Username))}
	if owner := s.lookupUser(ctx, updated.OwnerID); owner != nil {
		events = append(events, s.directEvent(domain.EventAssignmentCompleted, updated, owner, reviewInstructions(updated, helper)))
	}
	s.publish(events)
	return updated, nil
}

// ApproveWork moves reviewed work to ready_for_payout.
func (s *AssignmentService) ApproveWork(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
	a, err := s.loadForReview(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	updated, err := s.apply(ctx, a, ports.Transition{
		From:    []domain.AssignmentStatus{domain.StatusPendingClientReview},
		To:      domain.StatusReadyForPayout,
		History: domain.StatusHistoryEntry{ActorID: actor.ID},
	}, "assignment is no longer pending client review")
	if err != nil {
		return nil, err
	}

	events := []domain.LifecycleEvent{s.channelEvent(domain.EventWorkApproved, updated,
		fmt.Sprintf("👍 Assignment Approved: **%s** approved **%s**. Ready for admin payout to helper.", actor.Username, updated.Title))}
	if helper := s.lookupUser(ctx, updated.HelperID); helper != nil {
		events = append(events, s.directEvent(domain.EventWorkApproved, updated, helper,
			fmt.Sprintf("🎉 Your work for assignment **%s** has been approved by the client! It is now ready for payout.", updated.Title)))
	}
	s.publish(events)
	return updated, nil
}

// RequestRevision sends the work back to the helper and discards the
// submitted attachments. The feedback is forwarded to the helper and kept in
// the status history entry.
func (s *AssignmentService) RequestRevision(ctx context.Context, id string, actor *domain.User, feedback string) (*domain.Assignment, error) {
	a, err := s.loadForReview(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	feedback = strings.TrimSpace(feedback)
	cleared := []domain.Attachment{}
	updated, err := s.apply(ctx, a, ports.Transition{
		From:    []domain.AssignmentStatus{domain.StatusPendingClientReview},
		To:      domain.StatusAccepted,
		Set:     ports.AssignmentPatch{CompletedWork: &cleared},
		History: domain.StatusHistoryEntry{ActorID: actor.ID, Notes: feedback},
	}, "assignment is no longer pending client review")
	if err != nil {
		return nil, err
	}

	shown := feedback
	if shown == "" {
		shown = "No specific feedback provided."
	}
	events := []domain.LifecycleEvent{s.channelEvent(domain.EventRevisionRequested, updated,
		fmt.Sprintf("👎 Revision Requested: **%s** requested revisions for **%s**. Feedback: %q", actor.Username, updated.Title, shown))}
	if helper := s.lookupUser(ctx, updated.HelperID); helper != nil {
		events = append(events, s.directEvent(domain.EventRevisionRequested, updated, helper,
			fmt.Sprintf("⚠️ Revision Requested for **%s**. Feedback: %q. Please make the necessary changes and re-submit.", updated.Title, shown)))
	}
	s.publish(events)
	return updated, nil
}

// Cancel ends an assignment that has not been submitted for review yet.
func (s *AssignmentService) Cancel(ctx context.Context, id string, actor *domain.User, reason string) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsOwnerOrAdmin(actor, a) {
		return nil, domain.NewAuthorizationError("you are not authorized to perform this action for this assignment")
	}
	cancellable := []domain.AssignmentStatus{domain.StatusPending, domain.StatusAccepted, domain.StatusDue}
	if !slices.Contains(cancellable, a.Status) {
		return nil, domain.NewConflictError(a, "assignment can no longer be cancelled")
	}
	updated, err := s.apply(ctx, a, ports.Transition{
		From:    cancellable,
		To:      domain.StatusCancelled,
		History: domain.StatusHistoryEntry{ActorID: actor.ID, Notes: strings.TrimSpace(reason)},
	}, "assignment changed while cancelling")
	if err != nil {
		return nil, err
	}

	events := []domain.LifecycleEvent{s.channelEvent(domain.EventAssignmentCancelled, updated,
		fmt.Sprintf("🚫 Assignment Cancelled: **%s** by %s.", updated.Title, actor.Username))}
	if helper := s.lookupUser(ctx, updated.HelperID); helper != nil {
		events = append(events, s.directEvent(domain.EventAssignmentCancelled, updated, helper,
			fmt.Sprintf("Assignment **%s** has been cancelled.", updated.Title)))
	}
	s.publish(events)
	return updated, nil
}

// SetHelperPayout records the admin-determined helper payout and recomputes
// the platform fee split. It never changes the status; the last write wins.
func (s *AssignmentService) SetHelperPayout(ctx context.Context, id string, actor *domain.User, amount decimal.Decimal) (*domain.Assignment, error) {
	if !domain.IsAdmin(actor) {
		return nil, domain.NewAuthorizationError("admin role required")
	}
	if amount.IsNegative() {
		return nil, domain.NewValidationError("helper_payout_amount", "helper payout amount must be a non-negative number")
	}
	if err := checkMoney("helper_payout_amount", amount); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(a.PaymentAmount) {
		return nil, domain.NewValidationError("helper_payout_amount",
			fmt.Sprintf("helper payout %s exceeds payment amount %s", amount.StringFixed(2), a.PaymentAmount.StringFixed(2)))
	}
	if a.Status.IsTerminal() {
		return nil, domain.NewConflictError(a, "payout cannot change on a closed assignment")
	}

	payout := domain.SplitPayout(a.PaymentAmount, amount)
	updated, err := s.assignments.SetPayout(ctx, a.ID, payout)
	if err != nil {
		return nil, s.conflictOrStorage(ctx, a.ID, "payout cannot change on a closed assignment", "set payout", err)
	}

	s.logger.Info().
		Str("assignment_id", a.ID).
		Str("helper_payout", payout.HelperAmount.String()).
		Str("platform_fee", payout.PlatformFee.String()).
		Str("admin_id", actor.ID).
		Msg("helper payout set")
	return updated, nil
}

// Pay settles a ready_for_payout assignment. The ledger applies the status
// change, the transaction record and the earnings increment atomically; a
// repeated call fails with a ConflictError instead of crediting twice.
func (s *AssignmentService) Pay(ctx context.Context, id string, actor *domain.User, transactionID, notes string) (*domain.Assignment, *domain.PayoutTransaction, error) {
	if !domain.IsAdmin(actor) {
		return nil, nil, domain.NewAuthorizationError("admin role required")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, nil, domain.NewValidationError("transaction_id", "transaction ID is required to mark as paid")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a.Status != domain.StatusReadyForPayout {
		return nil, nil, domain.NewConflictError(a, "assignment is not ready for payout")
	}
	if !a.HasHelper() {
		return nil, nil, domain.NewConflictError(a, "cannot process payout: no helper assigned")
	}
	if a.Payout == nil {
		return nil, nil, domain.NewConflictError(a, "cannot process payout: helper payout amount has not been determined")
	}

	updated, txn, err := s.ledger.RecordPayout(ctx, ports.PayoutRecord{
		AssignmentID:  a.ID,
		HelperID:      a.HelperID,
		ActorID:       actor.ID,
		TransactionID: transactionID,
		Notes:         strings.TrimSpace(notes),
		PaidAt:        s.now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("assignment_id", a.ID).Msg("failed to record payout")
		return nil, nil, s.conflictOrStorage(ctx, a.ID, "payout already recorded or assignment changed", "record payout", err)
	}

	s.logger.Info().
		Str("assignment_id", a.ID).
		Str("helper_id", txn.HelperID).
		Str("amount", txn.Amount.String()).
		Str("transaction_id", transactionID).
		Msg("payout recorded")

	amount := "$" + txn.Amount.StringFixed(2)
	events := []domain.LifecycleEvent{}
	helper := s.lookupUser(ctx, updated.HelperID)
	helperName := updated.HelperID
	if helper != nil {
		helperName = helper.Username
		events = append(events, s.directEvent(domain.EventPayoutProcessed, updated, helper,
			fmt.Sprintf("💸 You have been paid %s for assignment **%s**. Transaction ID: %s", amount, updated.Title, transactionID)))
	}
	events = append(events, s.channelEvent(domain.EventPayoutProcessed, updated,
		fmt.Sprintf("💸 Payout Processed: **%s** paid to helper **%s** for assignment **%s**. Transaction ID: %s", amount, helperName, updated.Title, transactionID)))
	s.publish(events)
	return updated, txn, nil
}

// Summarize produces an on-demand summary of the description. A summarizer
// failure yields placeholder text rather than an error.
func (s *AssignmentService) Summarize(ctx context.Context, id string, actor *domain.User) (string, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if !domain.CanView(actor, a) && !browsable(actor, a) {
		return "", domain.NewAuthorizationError("you do not have permission to view this assignment")
	}
	return s.summarize(ctx, "description", []byte(a.Description), ""), nil
}

// --- helpers ---

// browsable reports whether a is in the open pool an active helper may look
// at before accepting: pending and not yet attached to anyone.
func browsable(actor *domain.User, a *domain.Assignment) bool {
	return actor != nil && actor.Active && actor.HasRole(domain.RoleHelper) &&
		a.Status == domain.StatusPending && !a.HasHelper()
}

func (s *AssignmentService) load(ctx context.Context, id string) (*domain.Assignment, error) {
	a, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, domain.WrapStorage("find assignment", err)
	}
	return a, nil
}

func (s *AssignmentService) loadForReview(ctx context.Context, id string, actor *domain.User) (*domain.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.IsOwnerOrAdmin(actor, a) {
		return nil, domain.NewAuthorizationError("you are not authorized to perform this action for this assignment")
	}
	if a.Status != domain.StatusPendingClientReview {
		return nil, domain.NewConflictError(a, "assignment is not pending client review")
	}
	return a, nil
}

// apply is the single validation point for status changes: the edge must be
// in the transition table and the last-read status must be one of t.From
// before the conditional update is attempted.
func (s *AssignmentService) apply(ctx context.Context, a *domain.Assignment, t ports.Transition, conflictReason string) (*domain.Assignment, error) {
	if !slices.Contains(t.From, a.Status) || !a.Status.CanTransitionTo(t.To) {
		return nil, domain.NewConflictError(a, fmt.Sprintf("illegal transition %s -> %s", a.Status, t.To))
	}
	t.AssignmentID = a.ID
	t.History.Status = t.To
	t.History.Timestamp = s.now()

	updated, err := s.assignments.Transition(ctx, t)
	if err != nil {
		return nil, s.conflictOrStorage(ctx, a.ID, conflictReason, "transition assignment", err)
	}

	s.logger.Info().
		Str("assignment_id", a.ID).
		Str("from", string(a.Status)).
		Str("to", string(t.To)).
		Str("actor_id", t.History.ActorID).
		Msg("assignment transitioned")
	return updated, nil
}

// conflictOrStorage turns a failed conditional write into a ConflictError
// carrying the current stored status, or a StorageError.
func (s *AssignmentService) conflictOrStorage(ctx context.Context, id, reason, op string, err error) error {
	if !errors.Is(err, domain.ErrConflict) {
		return domain.WrapStorage(op, err)
	}
	current, findErr := s.assignments.FindByID(ctx, id)
	if findErr != nil {
		current = &domain.Assignment{ID: id}
	}
	return domain.NewConflictError(current, reason)
}

func (s *AssignmentService) lookupUser(ctx context.Context, id string) *domain.User {
	if id == "" {
		return nil
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", id).Msg("user lookup for notification failed")
		return nil
	}
	return u
}

func (s *AssignmentService) summarize(ctx context.Context, what string, content []byte, hint string) string {
	if s.summarizer == nil {
		return fmt.Sprintf("(Could not generate summary for %s: summarizer unavailable)", what)
	}
	ctx, cancel := context.WithTimeout(ctx, s.summaryTimeout)
	defer cancel()

	summary, err := s.summarizer.Summarize(ctx, content, hint)
	if err != nil {
		s.logger.Warn().Err(err).Str("subject", what).Msg("summarizer degraded")
		return fmt.Sprintf("(Could not generate summary for %s: %v)", what, err)
	}
	return summary
}

func (s *AssignmentService) summarizeAttachments(ctx context.Context, uploads []ports.AttachmentUpload) ([]domain.Attachment, string) {
	attachments := make([]domain.Attachment, 0, len(uploads))
	var summaries []string
	for _, up := range uploads {
		attachments = append(attachments, domain.Attachment{Locator: up.Locator, Filename: up.Filename})
		if len(up.Content) == 0 {
			continue
		}
		hint := strings.TrimPrefix(strings.ToLower(filepath.Ext(up.Filename)), ".")
		summaries = append(summaries, up.Filename+": "+s.summarize(ctx, "attached file "+up.Filename, up.Content, hint))
	}
	return attachments, strings.Join(summaries, "\n")
}

func (s *AssignmentService) creationEvents(ctx context.Context, a *domain.Assignment, category *domain.Category, owner *domain.User) []domain.LifecycleEvent {
	posted := s.channelEvent(domain.EventAssignmentCreated, a,
		fmt.Sprintf("✨ New Assignment Posted: **%s** by %s - Category: %s, Payment: $%s",
			a.Title, owner.Username, a.Category, a.PaymentAmount.StringFixed(2)))
	posted.ChannelID = category.ChannelID
	events := []domain.LifecycleEvent{posted}

	helpers, err := s.users.FindHelpersFor(ctx, a.Category)
	if err != nil {
		s.logger.Warn().Err(err).Str("category", a.Category).Msg("helper lookup failed")
	}
	if len(helpers) == 0 {
		return append(events, s.channelEvent(domain.EventNoHelpersAvailable, a,
			fmt.Sprintf("⚠️ No active helpers found for category: **%s** for new assignment: **%s**.", a.Category, a.Title)))
	}
	alert := fmt.Sprintf("🔔 New Assignment Alert! A new assignment matching your specialization has been posted:\n\n"+
		"**Title:** %s\n**Category:** %s\n**Payment:** $%s\n**Deadline:** %s\n**Description Summary:** %s",
		a.Title, a.Category, a.PaymentAmount.StringFixed(2), a.Deadline.Format(time.RFC1123), a.DescriptionSummary)
	if a.AttachmentSummary != "" {
		alert += "\n**Attached Document Summary:** " + a.AttachmentSummary
	}
	// Helpers without a chat identity get the alert through the shared channel.
	for _, h := range helpers {
		events = append(events, s.directEvent(domain.EventAssignmentCreated, a, h, alert))
	}
	return events
}

func reviewInstructions(a *domain.Assignment, helper *domain.User) string {
	msg := fmt.Sprintf("🔔 Your assignment **%q** has been marked as complete by %s!\n\n", a.Title, helper.Username)
	if a.TicketChannelID != "" {
		msg += fmt.Sprintf("Please review the submitted work in your ticket channel: <#%s>\n\n", a.TicketChannelID)
	}
	return msg + fmt.Sprintf("You can approve it using `/approve_work %s` or request revisions with `/request_revision %s \"Your feedback here\"`.", a.ID, a.ID)
}

func (s *AssignmentService) channelEvent(kind domain.EventKind, a *domain.Assignment, msg string) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		ID:           uuid.NewString(),
		Kind:         kind,
		AssignmentID: a.ID,
		Message:      msg,
		OccurredAt:   s.now(),
	}
}

func (s *AssignmentService) directEvent(kind domain.EventKind, a *domain.Assignment, to *domain.User, msg string) domain.LifecycleEvent {
	e := s.channelEvent(kind, a, msg)
	e.Recipient = to.DiscordID
	if e.Recipient == "" {
		// No chat identity: fall back to the shared channel.
		e.Message = fmt.Sprintf("(for %s) %s", to.Username, msg)
	}
	return e
}

func (s *AssignmentService) publish(events []domain.LifecycleEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	s.events.Publish(events...)
}

func checkMoney(field string, amount decimal.Decimal) error {
	if amount.GreaterThan(maxPaymentAmount) {
		return domain.NewValidationError(field, fmt.Sprintf("amount must not exceed %s", maxPaymentAmount.String()))
	}
	if !amount.Equal(amount.Round(2)) {
		return domain.NewValidationError(field, "amount must have at most 2 decimal places")
	}
	return nil
}

func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.NewValidationError("deadline", "deadline is required")
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.NewValidationError("deadline", fmt.Sprintf("invalid deadline %q", raw))
}

package handler

import (
	"github.com/shopspring/decimal"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"current_status,omitempty"`
}

// --- Request / Response types ---

type attachmentUploadRequest struct {
	Locator  string `json:"locator"  validate:"required"`
	Filename string `json:"filename" validate:"required"`
	// Content is the base64-encoded file body, used only for summarization.
	Content []byte `json:"content,omitempty"`
}

type createAssignmentRequest struct {
	Title           string                    `json:"title"             validate:"required,max=200"`
	Description     string                    `json:"description"       validate:"required"`
	Category        string                    `json:"category"          validate:"required"`
	Complexity      string                    `json:"complexity"        validate:"required,oneof=low medium high"`
	PaymentAmount   decimal.Decimal           `json:"payment_amount"    swaggertype:"string"`
	Deadline        string                    `json:"deadline"          validate:"required"`
	TicketChannelID string                    `json:"ticket_channel_id"`
	Attachments     []attachmentUploadRequest `json:"attachments"       validate:"dive"`
}

type listAssignmentsQuery struct {
	Status       string `query:"status"`
	AssignedToMe bool   `query:"assigned_to_me"`
	OwnedByMe    bool   `query:"owned_by_me"`
	Page         int    `query:"page"`
	Limit        int    `query:"limit"`
}

type attachmentRequest struct {
	Locator  string `json:"locator"  validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

type completeAssignmentRequest struct {
	Attachments []attachmentRequest `json:"attachments" validate:"dive"`
}

type revisionRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type assignmentLinks struct {
	Self string `json:"self"`
}

type assignmentResponse struct {
	*domain.Assignment
	Links assignmentLinks `json:"_links"`
}

type listAssignmentsResponse struct {
	Items      []assignmentResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

type summaryResponse struct {
	AssignmentID string `json:"assignment_id"`
	Summary      string `json:"summary"`
}

// --- Mappers ---

func toCreateInput(req createAssignmentRequest) ports.CreateAssignmentInput {
	uploads := make([]ports.AttachmentUpload, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		uploads = append(uploads, ports.AttachmentUpload{
			Locator:  a.Locator,
			Filename: a.Filename,
			Content:  a.Content,
		})
	}
	return ports.CreateAssignmentInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Complexity:      req.Complexity,
		PaymentAmount:   req.PaymentAmount,
		Deadline:        req.Deadline,
		TicketChannelID: req.TicketChannelID,
		Attachments:     uploads,
	}
}

func toAttachments(reqs []attachmentRequest) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, domain.Attachment{Locator: r.Locator, Filename: r.Filename})
	}
	return out
}

func toAssignmentResponse(a *domain.Assignment) assignmentResponse {
	return assignmentResponse{
		Assignment: a,
		Links:      assignmentLinks{Self: "/v1/assignments/" + a.ID},
	}
}

func toListResponse(res *ports.ListAssignmentsResult) listAssignmentsResponse {
	items := make([]assignmentResponse, 0, len(res.Items))
	for _, a := range res.Items {
		items = append(items, toAssignmentResponse(a))
	}
	return listAssignmentsResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
}

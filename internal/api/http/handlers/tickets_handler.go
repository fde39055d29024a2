package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketsHandler serves ticket reads, creation and replies.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Subject:  req.Subject,
		Severity: req.Severity,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter, err := parseTicketListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewTicketResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": dto.PagedResponse[dto.TicketResponse]{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		Items:      items,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetailResponse(detail.Ticket, detail.Replies)})
}

// AddReply POST /tickets/:id/replies.
func (h *TicketsHandler) AddReply(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reply, err := h.service.AddReply(c.UserContext(), actor, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(reply)})
}

func parseTicketListQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	var (
		filter service.TicketListFilter
		err    error
	)
	if filter.Statuses, err = parseEnumList(c, domain.ParseTicketStatus, "status", "Status"); err != nil {
		return filter, err
	}
	if filter.Severities, err = parseEnumList(c, domain.ParseTicketSeverity, "severity", "Severity"); err != nil {
		return filter, err
	}
	if filter.AssignmentStates, err = parseEnumList(c, domain.ParseAssignmentState, "assignmentState", "AssignmentState"); err != nil {
		return filter, err
	}
	if filter.SLAStatuses, err = parseEnumList(c, domain.ParseSLAStatus, "slaStatus", "SlaStatus"); err != nil {
		return filter, err
	}
	if assignee := queryValue(c, "assigneeId", "AssigneeId"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	filter.Keyword = queryValue(c, "keyword", "q", "Keyword")
	if filter.Page, err = queryInt(c, "page", "Page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = queryInt(c, "pageSize", "PageSize"); err != nil {
		return filter, err
	}
	return filter, nil
}

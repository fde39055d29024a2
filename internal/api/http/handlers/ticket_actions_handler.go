package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketActionsHandler exposes the staff workflow transitions.
type TicketActionsHandler struct {
	workflow *service.TicketWorkflowService
}

// NewTicketActionsHandler builds handler.
func NewTicketActionsHandler(workflow *service.TicketWorkflowService) *TicketActionsHandler {
	return &TicketActionsHandler{workflow: workflow}
}

type transitionFunc func(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error)

// Assign POST /tickets/:id/assign.
func (h *TicketActionsHandler) Assign(c *fiber.Ctx) error {
	return h.apply(c, h.workflow.Assign)
}

// TransferToTechnical POST /tickets/:id/transfer-tech.
func (h *TicketActionsHandler) TransferToTechnical(c *fiber.Ctx) error {
	return h.apply(c, h.workflow.TransferToTechnical)
}

// Complete POST /tickets/:id/complete.
func (h *TicketActionsHandler) Complete(c *fiber.Ctx) error {
	return h.apply(c, h.workflow.Complete)
}

// Close POST /tickets/:id/close.
func (h *TicketActionsHandler) Close(c *fiber.Ctx) error {
	return h.apply(c, h.workflow.Close)
}

func (h *TicketActionsHandler) apply(c *fiber.Ctx, fn transitionFunc) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if _, err := fn(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AuditLogsHandler serves the audit trail.
type AuditLogsHandler struct {
	service *service.AuditLogService
}

// NewAuditLogsHandler builds handler.
func NewAuditLogsHandler(auditService *service.AuditLogService) *AuditLogsHandler {
	return &AuditLogsHandler{service: auditService}
}

// List GET /audit-logs. The keyword is read from the historical ActorEmail parameter.
func (h *AuditLogsHandler) List(c *fiber.Ctx) error {
	filter, err := parseAuditLogQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AuditLogItem, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewAuditLogItem(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": dto.PagedResponse[dto.AuditLogItem]{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		Items:      items,
	}})
}

// Get GET /audit-logs/:id.
func (h *AuditLogsHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewNotFound("audit log", map[string]any{"audit_id": c.Params("id")})
	}
	entry, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditLogDetail(entry)})
}

// Options GET /audit-logs/options.
func (h *AuditLogsHandler) Options(c *fiber.Ctx) error {
	opts, err := h.service.GetFilterOptions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditFilterOptionsResponse(opts)})
}

func parseAuditLogQuery(c *fiber.Ctx) (service.AuditLogFilter, error) {
	var (
		filter service.AuditLogFilter
		err    error
	)
	if filter.Page, err = queryInt(c, "Page", "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = queryInt(c, "PageSize", "pageSize"); err != nil {
		return filter, err
	}
	if filter.From, err = queryTime(c, false, "From", "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryTime(c, true, "To", "to"); err != nil {
		return filter, err
	}
	filter.Keyword = queryValue(c, "ActorEmail", "actorEmail", "keyword")
	filter.ActorRole = queryValue(c, "ActorRole", "actorRole")
	filter.Action = queryValue(c, "Action", "action")
	filter.EntityType = queryValue(c, "EntityType", "entityType")
	filter.SortBy = queryValue(c, "SortBy", "sortBy")
	filter.SortDirection = queryValue(c, "SortDirection", "sortDirection")
	return filter, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-desk/internal/auditdiff"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AuditLogService serves filtered, paginated views over the audit trail.
type AuditLogService struct {
	logs   repository.AuditLogRepository
	logger *zap.Logger
}

// AuditLogFilter is the listing request. SortBy and SortDirection use their
// public spellings and are parsed leniently.
type AuditLogFilter struct {
	From          *time.Time
	To            *time.Time
	Keyword       string
	ActorRole     string
	Action        string
	EntityType    string
	SortBy        string
	SortDirection string
	Page          int
	PageSize      int
}

// AuditLogEntry is an audit row with the field-level diff of its snapshots.
// DiffUnavailable is set when a snapshot could not be parsed.
type AuditLogEntry struct {
	domain.AuditLog
	Changes         []auditdiff.FieldChange
	DiffUnavailable bool
}

// AuditFilterOptions lists the values currently present for the dropdown filters.
type AuditFilterOptions struct {
	Actions     []string
	EntityTypes []string
	ActorRoles  []string
}

// NewAuditLogService constructs the service.
func NewAuditLogService(logs repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{logs: logs, logger: orNopLogger(logger)}
}

// List returns one page of matching audit entries with their diffs.
func (s *AuditLogService) List(ctx context.Context, filter AuditLogFilter) (*Page[AuditLogEntry], error) {
	paging := NewPagination(filter.Page, filter.PageSize)
	query := repository.AuditLogQuery{
		From:       filter.From,
		To:         filter.To,
		Keyword:    strings.TrimSpace(filter.Keyword),
		ActorRole:  strings.TrimSpace(filter.ActorRole),
		Action:     strings.TrimSpace(filter.Action),
		EntityType: strings.TrimSpace(filter.EntityType),
		SortBy:     domain.ParseAuditSortKey(filter.SortBy),
		Direction:  domain.ParseSortDirection(filter.SortDirection),
		Limit:      paging.PageSize,
		Offset:     paging.Offset(),
	}
	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return nil, apperrors.NewValidationError("from must not be after to", map[string]any{
			"from": query.From,
			"to":   query.To,
		})
	}

	var (
		total int
		rows  []domain.AuditLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.logs.Count(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.logs.List(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	items := make([]AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.withDiff(row))
	}
	return &Page[AuditLogEntry]{
		Page:       paging.Page,
		PageSize:   paging.PageSize,
		TotalItems: total,
		Items:      items,
	}, nil
}

// GetByID returns a single entry with its raw snapshots and diff.
func (s *AuditLogService) GetByID(ctx context.Context, id int64) (*AuditLogEntry, error) {
	row, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "audit log", map[string]any{"audit_id": id})
	}
	entry := s.withDiff(*row)
	return &entry, nil
}

// GetFilterOptions reads the distinct values live from the store.
func (s *AuditLogService) GetFilterOptions(ctx context.Context) (*AuditFilterOptions, error) {
	var opts AuditFilterOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		opts.Actions, err = s.logs.DistinctValues(gctx, repository.AuditOptionAction)
		return err
	})
	g.Go(func() (err error) {
		opts.EntityTypes, err = s.logs.DistinctValues(gctx, repository.AuditOptionEntityType)
		return err
	})
	g.Go(func() (err error) {
		opts.ActorRoles, err = s.logs.DistinctValues(gctx, repository.AuditOptionActorRole)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &opts, nil
}

func (s *AuditLogService) withDiff(row domain.AuditLog) AuditLogEntry {
	changes, err := auditdiff.Compute(row.BeforeDataJSON, row.AfterDataJSON)
	entry := AuditLogEntry{AuditLog: row, Changes: changes}
	if err != nil {
		entry.DiffUnavailable = true
		if errors.Is(err, auditdiff.ErrMalformedSnapshot) {
			s.logger.Debug("audit snapshot is not a JSON object",
				zap.Int64("audit_id", row.ID),
				zap.Error(err))
		}
	}
	return entry
}

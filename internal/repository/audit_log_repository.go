package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
)

// AuditLogQuery narrows and orders an audit listing. Empty strings and nil
// bounds do not filter.
type AuditLogQuery struct {
	From       *time.Time
	To         *time.Time
	Keyword    string
	ActorRole  string
	Action     string
	EntityType string
	SortBy     domain.AuditSortKey
	Direction  domain.SortDirection
	Limit      int
	Offset     int
}

// AuditOptionColumn names a column whose distinct values feed filter dropdowns.
type AuditOptionColumn int

const (
	AuditOptionAction AuditOptionColumn = iota
	AuditOptionEntityType
	AuditOptionActorRole
)

// AuditLogRepository reads and appends audit records. Rows are never updated.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	GetByID(ctx context.Context, id int64) (*domain.AuditLog, error)
	List(ctx context.Context, q AuditLogQuery) ([]domain.AuditLog, error)
	Count(ctx context.Context, q AuditLogQuery) (int, error)
	DistinctValues(ctx context.Context, column AuditOptionColumn) ([]string, error)
}

type auditLogRepository struct {
	db persistence.Querier
}

// NewAuditLogRepository returns repository.
func NewAuditLogRepository(db persistence.Querier) AuditLogRepository {
	return &auditLogRepository{db: db}
}

var auditColumns = []string{
	"id", "occurred_at", "actor_id", "actor_email", "actor_role", "session_id", "ip_address",
	"action", "entity_type", "entity_id", "before_data_json", "after_data_json",
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_logs (occurred_at, actor_id, actor_email, actor_role, session_id, ip_address,
            action, entity_type, entity_id, before_data_json, after_data_json)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id`
	return persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query,
		entry.OccurredAt,
		entry.ActorID,
		entry.ActorEmail,
		entry.ActorRole,
		entry.SessionID,
		entry.IPAddress,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.BeforeDataJSON,
		entry.AfterDataJSON,
	).Scan(&entry.ID)
}

func (r *auditLogRepository) GetByID(ctx context.Context, id int64) (*domain.AuditLog, error) {
	query, args, err := psql.Select(auditColumns...).From("audit_logs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}
	entry, err := scanAuditLog(persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return entry, nil
}

func (r *auditLogRepository) List(ctx context.Context, q AuditLogQuery) ([]domain.AuditLog, error) {
	query, args, err := BuildAuditListQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit list: %w", err)
	}
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.AuditLog{}
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

func (r *auditLogRepository) Count(ctx context.Context, q AuditLogQuery) (int, error) {
	query, args, err := applyAuditFilter(psql.Select("COUNT(*)").From("audit_logs"), q).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit count: %w", err)
	}
	var total int
	if err := persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

// DistinctValues returns the non-empty values of column in ascending order.
func (r *auditLogRepository) DistinctValues(ctx context.Context, column AuditOptionColumn) ([]string, error) {
	name, err := auditOptionColumnName(column)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select(name).Distinct().
		From("audit_logs").
		Where(sq.NotEq{name: ""}).
		OrderBy(name + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit options: %w", err)
	}
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return values, nil
}

// BuildAuditListQuery renders the page query. Ties on the sort column fall
// back to id in the same direction so pages are stable.
func BuildAuditListQuery(q AuditLogQuery) sq.SelectBuilder {
	dir := "DESC"
	if q.Direction == domain.SortAsc {
		dir = "ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return applyAuditFilter(psql.Select(auditColumns...).From("audit_logs"), q).
		OrderBy(auditSortColumn(q.SortBy)+" "+dir, "id "+dir).
		Limit(uint64(limit)).
		Offset(uint64(offset))
}

func applyAuditFilter(b sq.SelectBuilder, q AuditLogQuery) sq.SelectBuilder {
	if q.From != nil {
		b = b.Where(sq.GtOrEq{"occurred_at": *q.From})
	}
	if q.To != nil {
		b = b.Where(sq.LtOrEq{"occurred_at": *q.To})
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		pattern := containsPattern(kw)
		b = b.Where(sq.Or{
			sq.ILike{"actor_email": pattern},
			sq.ILike{"actor_role": pattern},
			sq.ILike{"action": pattern},
			sq.ILike{"entity_type": pattern},
			sq.ILike{"entity_id": pattern},
		})
	}
	if v := strings.TrimSpace(q.ActorRole); v != "" {
		b = b.Where(sq.Eq{"actor_role": v})
	}
	if v := strings.TrimSpace(q.Action); v != "" {
		b = b.Where(sq.Eq{"action": v})
	}
	if v := strings.TrimSpace(q.EntityType); v != "" {
		b = b.Where(sq.Eq{"entity_type": v})
	}
	return b
}

func auditSortColumn(key domain.AuditSortKey) string {
	switch key {
	case domain.AuditSortActorEmail:
		return "actor_email"
	case domain.AuditSortActorRole:
		return "actor_role"
	case domain.AuditSortAction:
		return "action"
	case domain.AuditSortEntityType:
		return "entity_type"
	case domain.AuditSortEntityID:
		return "entity_id"
	default:
		return "occurred_at"
	}
}

func auditOptionColumnName(column AuditOptionColumn) (string, error) {
	switch column {
	case AuditOptionAction:
		return "action", nil
	case AuditOptionEntityType:
		return "entity_type", nil
	case AuditOptionActorRole:
		return "actor_role", nil
	default:
		return "", fmt.Errorf("unknown audit option column %d", column)
	}
}

func scanAuditLog(row pgx.Row) (*domain.AuditLog, error) {
	var entry domain.AuditLog
	if err := row.Scan(
		&entry.ID,
		&entry.OccurredAt,
		&entry.ActorID,
		&entry.ActorEmail,
		&entry.ActorRole,
		&entry.SessionID,
		&entry.IPAddress,
		&entry.Action,
		&entry.EntityType,
		&entry.EntityID,
		&entry.BeforeDataJSON,
		&entry.AfterDataJSON,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

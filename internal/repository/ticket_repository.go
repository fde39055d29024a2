package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
)

// TicketFilter captures queue search parameters.
type TicketFilter struct {
	CustomerID       *string
	AssigneeID       *string
	Statuses         []domain.TicketStatus
	Severities       []domain.TicketSeverity
	AssignmentStates []domain.AssignmentState
	SLAStatuses      []domain.SLAStatus
	SearchTerm       *string
	Limit            int
	Offset           int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate row-locks the ticket until the ambient transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
}

type ticketRepository struct {
	db persistence.Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db persistence.Querier) TicketRepository {
	return &ticketRepository{db: db}
}

var ticketColumns = []string{
	"id", "code", "subject", "customer_id", "assignee_id", "status", "severity",
	"assignment_state", "sla_status", "created_at", "updated_at", "first_responded_at",
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, subject, customer_id, assignee_id, status, severity, assignment_state, sla_status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	err := persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query,
		ticket.Code,
		ticket.Subject,
		ticket.CustomerID,
		ticket.AssigneeID,
		ticket.Status,
		ticket.Severity,
		ticket.AssignmentState,
		ticket.SLAStatus,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
	return mapError(err)
}

// Update persists the mutable workflow fields. UpdatedAt comes from the caller's clock.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assignee_id=$1, status=$2, assignment_state=$3, sla_status=$4,
            first_responded_at=$5, updated_at=$6
        WHERE id=$7`
	cmd, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query,
		ticket.AssigneeID,
		ticket.Status,
		ticket.AssignmentState,
		ticket.SLAStatus,
		ticket.FirstRespondedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, psql.Select(ticketColumns...).From("tickets").Where(sq.Eq{"id": id}))
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, psql.Select(ticketColumns...).From("tickets").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *ticketRepository) fetchSingle(ctx context.Context, builder sq.SelectBuilder) (*domain.Ticket, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ticket query: %w", err)
	}
	ticket, err := scanTicket(persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	q := persistence.QuerierFromCtx(ctx, r.db)

	countSQL, countArgs, err := applyTicketFilter(psql.Select("COUNT(*)").From("tickets"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build ticket count: %w", err)
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	pageSQL, pageArgs, err := buildTicketListQuery(filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build ticket list: %w", err)
	}
	rows, err := q.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func buildTicketListQuery(filter TicketFilter) sq.SelectBuilder {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	return applyTicketFilter(psql.Select(ticketColumns...).From("tickets"), filter).
		OrderBy("updated_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
}

func applyTicketFilter(b sq.SelectBuilder, filter TicketFilter) sq.SelectBuilder {
	if filter.CustomerID != nil {
		b = b.Where(sq.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.AssigneeID != nil {
		b = b.Where(sq.Eq{"assignee_id": *filter.AssigneeID})
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": statusValues(filter.Statuses)})
	}
	if len(filter.Severities) > 0 {
		b = b.Where(sq.Eq{"severity": filter.Severities})
	}
	if len(filter.AssignmentStates) > 0 {
		b = b.Where(sq.Eq{"assignment_state": filter.AssignmentStates})
	}
	if len(filter.SLAStatuses) > 0 {
		b = b.Where(sq.Eq{"sla_status": filter.SLAStatuses})
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		pattern := containsPattern(*filter.SearchTerm)
		b = b.Where(sq.Or{
			sq.ILike{"code": pattern},
			sq.ILike{"subject": pattern},
		})
	}
	return b
}

// statusValues expands NEW to the legacy OPEN spelling still present in older rows.
func statusValues(statuses []domain.TicketStatus) []string {
	out := make([]string, 0, len(statuses)+1)
	for _, status := range statuses {
		status = domain.NormalizeTicketStatus(status)
		out = append(out, string(status))
		if status == domain.TicketStatusNew {
			out = append(out, string(domain.TicketStatusLegacyOpen))
		}
	}
	return out
}

// containsPattern builds an ILIKE pattern that treats the term literally.
func containsPattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(term))
	return "%" + escaped + "%"
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.Subject,
		&ticket.CustomerID,
		&ticket.AssigneeID,
		&ticket.Status,
		&ticket.Severity,
		&ticket.AssignmentState,
		&ticket.SLAStatus,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstRespondedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.NormalizeTicketStatus(ticket.Status)
	return &ticket, nil
}

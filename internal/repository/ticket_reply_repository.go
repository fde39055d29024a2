package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
)

// TicketReplyRepository manages ticket thread replies. Replies are never updated or deleted.
type TicketReplyRepository interface {
	Create(ctx context.Context, reply *domain.TicketReply) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketReply, error)
}

type ticketReplyRepository struct {
	db persistence.Querier
}

// NewTicketReplyRepository builds repository.
func NewTicketReplyRepository(db persistence.Querier) TicketReplyRepository {
	return &ticketReplyRepository{db: db}
}

func (r *ticketReplyRepository) Create(ctx context.Context, reply *domain.TicketReply) error {
	const query = `
        INSERT INTO ticket_replies (id, ticket_id, sender_id, message, is_staff_reply, sent_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query,
		reply.ID,
		reply.TicketID,
		reply.SenderID,
		reply.Message,
		reply.IsStaffReply,
		reply.SentAt,
	)
	return mapError(err)
}

// ListByTicket returns the thread oldest first; id breaks ties between replies sent in the same instant.
func (r *ticketReplyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketReply, error) {
	const query = `
        SELECT r.id, r.ticket_id, r.sender_id, COALESCE(u.full_name, ''), r.message, r.is_staff_reply, r.sent_at
        FROM ticket_replies r
        LEFT JOIN users u ON u.id = r.sender_id
        WHERE r.ticket_id=$1
        ORDER BY r.sent_at ASC, r.id ASC`
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx, query, ticketID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []domain.TicketReply{}
	for rows.Next() {
		var reply domain.TicketReply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.SenderID,
			&reply.SenderName,
			&reply.Message,
			&reply.IsStaffReply,
			&reply.SentAt,
		); err != nil {
			return nil, err
		}
		result = append(result, reply)
	}
	return result, mapError(rows.Err())
}

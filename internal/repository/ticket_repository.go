package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felipe-nonato/task-manager/internal/domain"
)

// TicketFilter captures listing parameters. Limit and Offset are expected to
// be sanitized by the caller.
type TicketFilter struct {
	UserID *int64
	Limit  int
	Offset int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	RecordForwardOutcome(ctx context.Context, ticketID int64, status int, response string, eventID *string) error
	GetByEventID(ctx context.Context, eventID string) (*domain.Ticket, error)
	UpdateATRByEventID(ctx context.Context, eventID string, payload string) (int64, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

var ticketColumns = []string{
	"id", "user_id", "priority", "label", "description", "value",
	"resource", "sub_resource", "origin", "env", "tower", "problem_type",
	"event_id", "external_status", "external_response", "atr_response",
	"created_at", "atr_received_at",
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (
            user_id, priority, label, description, value,
            resource, sub_resource, origin, env, tower, problem_type
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.Priority,
		ticket.Label,
		ticket.Description,
		ticket.Value,
		ticket.Resource,
		ticket.SubResource,
		ticket.Origin,
		ticket.Env,
		ticket.Tower,
		ticket.ProblemType,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

// RecordForwardOutcome stores the result of the most recent forwarding
// attempt. It deliberately runs outside any transaction with the insert; the
// local row is the source of truth even when this update never happens.
func (r *ticketRepository) RecordForwardOutcome(ctx context.Context, ticketID int64, status int, response string, eventID *string) error {
	const query = `
        UPDATE tickets SET external_status=$1, external_response=$2, event_id=$3
        WHERE id=$4`
	_, err := r.pool.Exec(ctx, query, status, response, eventID, ticketID)
	return err
}

func (r *ticketRepository) GetByEventID(ctx context.Context, eventID string) (*domain.Ticket, error) {
	query, args, err := sq.Select(ticketColumns...).
		From("tickets").
		Where(sq.Eq{"event_id": eventID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(scanTargets(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateATRByEventID attaches the ATR payload to every ticket holding the
// given event id and returns the number of rows touched. The schema does not
// make event_id unique, so multiple rows may match.
func (r *ticketRepository) UpdateATRByEventID(ctx context.Context, eventID string, payload string) (int64, error) {
	const query = `
        UPDATE tickets SET atr_response=$1, atr_received_at=NOW()
        WHERE event_id=$2`
	cmd, err := r.pool.Exec(ctx, query, payload, eventID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	builder := sq.Select(ticketColumns...).
		From("tickets").
		OrderBy("created_at DESC, id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		PlaceholderFormat(sq.Dollar)

	if filter.UserID != nil {
		builder = builder.Where(sq.Eq{"user_id": *filter.UserID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(scanTargets(&ticket)...); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func scanTargets(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.UserID,
		&t.Priority,
		&t.Label,
		&t.Description,
		&t.Value,
		&t.Resource,
		&t.SubResource,
		&t.Origin,
		&t.Env,
		&t.Tower,
		&t.ProblemType,
		&t.EventID,
		&t.ExternalStatus,
		&t.ExternalResponse,
		&t.ATRResponse,
		&t.CreatedAt,
		&t.ATRReceivedAt,
	}
}

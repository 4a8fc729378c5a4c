package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/felipe-nonato/task-manager/internal/domain"
	"github.com/felipe-nonato/task-manager/internal/events"
	"github.com/felipe-nonato/task-manager/internal/repository"
)

// eventIDPattern is the lexical contract tying external callbacks back to
// forwarded tickets: the first case-insensitive "Event-" token followed by
// alphanumerics, anywhere in the free-text short description. Do not
// generalize it.
var eventIDPattern = regexp.MustCompile(`(?i)Event-[A-Z0-9]+`)

// ATRService merges asynchronous external acknowledgments into stored
// tickets.
type ATRService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewATRService constructs the service.
func NewATRService(tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ATRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ATRService{tickets: tickets, dispatcher: dispatcher, logger: logger}
}

// Reconcile extracts the event id embedded in shortDescription, locates the
// ticket that was assigned that id during forwarding, and attaches the ATR
// payload to it. A missing payload defaults to an empty object.
func (s *ATRService) Reconcile(ctx context.Context, shortDescription string, payload json.RawMessage) (string, *domain.Ticket, error) {
	if strings.TrimSpace(shortDescription) == "" {
		return "", nil, ErrShortDescriptionRequired
	}

	eventID := eventIDPattern.FindString(shortDescription)
	if eventID == "" {
		return "", nil, ErrEventIDNotFound
	}

	if _, err := s.tickets.GetByEventID(ctx, eventID); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil, ErrTicketNotFound
		}
		return "", nil, fmt.Errorf("lookup ticket: %w", err)
	}

	body := payload
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}

	rows, err := s.tickets.UpdateATRByEventID(ctx, eventID, string(body))
	if err != nil {
		return "", nil, fmt.Errorf("update atr: %w", err)
	}
	if rows == 0 {
		// The ticket vanished or lost its event id between lookup and
		// update. Rare; surfaced, not retried.
		return "", nil, ErrATRUpdateFailed
	}

	ticket, err := s.tickets.GetByEventID(ctx, eventID)
	if err != nil {
		return "", nil, fmt.Errorf("reload ticket: %w", err)
	}

	s.logger.Info("atr reconciled",
		zap.String("event_id", eventID),
		zap.Int64("ticket_id", ticket.ID),
	)
	if s.dispatcher != nil {
		event := events.Event{
			Type:     events.EventATRReceived,
			TicketID: ticket.ID,
			UserID:   ticket.UserID,
			Payload:  events.ATRReceivedPayload{EventID: eventID},
		}
		stampEvent(&event)
		_ = s.dispatcher.Publish(ctx, event)
	}

	return eventID, ticket, nil
}

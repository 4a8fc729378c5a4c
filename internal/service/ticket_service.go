package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/felipe-nonato/task-manager/internal/config"
	"github.com/felipe-nonato/task-manager/internal/domain"
	"github.com/felipe-nonato/task-manager/internal/events"
	"github.com/felipe-nonato/task-manager/internal/external"
	"github.com/felipe-nonato/task-manager/internal/observability"
	"github.com/felipe-nonato/task-manager/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Forwarder sends a ticket payload to the external ticketing endpoint.
type Forwarder interface {
	Forward(ctx context.Context, payload external.Payload) (*external.Result, error)
}

// TicketService owns the save-then-forward-then-update workflow and ticket
// listing.
type TicketService struct {
	tickets    repository.TicketRepository
	forwarder  Forwarder
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.ForwarderConfig
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Forwarder  Forwarder
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// TicketCreateInput describes a ticket submission.
type TicketCreateInput struct {
	Priority    string
	Label       string
	Description string
	Value       string
	UserID      *int64
}

// ForwardOutcome reports the result of CreateTicket. The local row persists
// regardless of the external outcome, so TicketID is always set once the
// insert succeeded; Sent distinguishes the two paths.
type ForwardOutcome struct {
	TicketID      int64
	EventID       string
	Status        int
	Data          json.RawMessage
	Sent          bool
	FailureDetail json.RawMessage
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.ForwarderConfig, deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		forwarder:  deps.Forwarder,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// CreateTicket persists the ticket first, then makes a single best-effort
// forwarding attempt and records its outcome on the stored row. The insert is
// never rolled back on external failure; the row and its correlation tokens
// allow reconciliation or an out-of-band retry later.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*ForwardOutcome, error) {
	if !s.cfg.Configured() {
		return nil, ErrForwarderNotConfigured
	}

	triggerClock := strconv.FormatInt(time.Now().Unix(), 10)

	ticket := &domain.Ticket{
		UserID:      input.UserID,
		Priority:    input.Priority,
		Label:       input.Label,
		Description: input.Description,
		Value:       input.Value,
		Resource:    uuid.NewString(),
		SubResource: uuid.NewString(),
		Origin:      s.cfg.Origin,
		Env:         s.cfg.Env,
		Tower:       s.cfg.Tower,
		ProblemType: s.cfg.ProblemType,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTicketStorage, err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		UserID:   ticket.UserID,
	})

	payload := external.Payload{
		Origin:       ticket.Origin,
		UnixClock:    triggerClock,
		Priority:     ticket.Priority,
		Label:        ticket.Label,
		Description:  ticket.Description,
		ProblemValue: ticket.Value,
		Resource:     ticket.Resource,
		SubResource:  ticket.SubResource,
		Env:          ticket.Env,
		Tower:        ticket.Tower,
		ProblemType:  ticket.ProblemType,
	}

	result, err := s.forwarder.Forward(ctx, payload)
	if err != nil {
		return s.recordForwardFailure(ctx, ticket, err), nil
	}
	return s.recordForwardSuccess(ctx, ticket, result), nil
}

// ListTickets returns tickets newest-first, optionally scoped to one owner.
// The returned total is the page length, not a full row count.
func (s *TicketService) ListTickets(ctx context.Context, userID *int64, limit, offset int) ([]domain.Ticket, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, err
	}
	return tickets, len(tickets), nil
}

func (s *TicketService) recordForwardSuccess(ctx context.Context, ticket *domain.Ticket, result *external.Result) *ForwardOutcome {
	var eventID *string
	if result.EventID != "" {
		id := result.EventID
		eventID = &id
	}

	// Uses a detached context so the outcome still lands when the request
	// context expired during the external call.
	if err := s.tickets.RecordForwardOutcome(context.WithoutCancel(ctx), ticket.ID, result.Status, string(result.Body), eventID); err != nil {
		s.logger.Error("record forward outcome", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	s.metrics.RecordForward("sent")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketForwarded,
		TicketID: ticket.ID,
		UserID:   ticket.UserID,
		Payload:  events.TicketForwardedPayload{EventID: result.EventID, Status: result.Status},
	})

	return &ForwardOutcome{
		TicketID: ticket.ID,
		EventID:  result.EventID,
		Status:   result.Status,
		Data:     asRawJSON(result.Body),
		Sent:     true,
	}
}

func (s *TicketService) recordForwardFailure(ctx context.Context, ticket *domain.Ticket, cause error) *ForwardOutcome {
	detail := forwardFailureDetail(cause)
	stored, _ := json.Marshal(map[string]json.RawMessage{"error": detail})

	if err := s.tickets.RecordForwardOutcome(context.WithoutCancel(ctx), ticket.ID, domain.StatusForwardFailed, string(stored), nil); err != nil {
		s.logger.Error("record forward failure", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	s.logger.Warn("ticket forwarding failed",
		zap.Int64("ticket_id", ticket.ID),
		zap.Error(cause),
	)
	s.metrics.RecordForward("failed")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketForwardFailed,
		TicketID: ticket.ID,
		UserID:   ticket.UserID,
		Payload:  events.TicketForwardFailedPayload{Detail: cause.Error()},
	})

	return &ForwardOutcome{
		TicketID:      ticket.ID,
		Status:        domain.StatusForwardFailed,
		Sent:          false,
		FailureDetail: detail,
	}
}

// forwardFailureDetail prefers the upstream response body when one exists,
// falling back to the transport error message.
func forwardFailureDetail(err error) json.RawMessage {
	var statusErr *external.StatusError
	if errors.As(err, &statusErr) && len(statusErr.Body) > 0 {
		return asRawJSON(statusErr.Body)
	}
	quoted, _ := json.Marshal(err.Error())
	return quoted
}

func asRawJSON(body []byte) json.RawMessage {
	if json.Valid(body) && len(body) > 0 {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	stampEvent(&event)
	_ = s.dispatcher.Publish(ctx, event)
}

func stampEvent(event *events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
}

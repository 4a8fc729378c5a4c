package dto

import (
	"encoding/json"
	"time"

	"github.com/felipe-nonato/task-manager/internal/domain"
)

// CreateTicketRequest is the POST /tickets payload.
type CreateTicketRequest struct {
	Priority    string `json:"priority"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Value       string `json:"value"`
	UserID      *int64 `json:"userId"`
}

// ATRRequest is the POST /tickets/atr payload delivered by the external
// system's callback.
type ATRRequest struct {
	ShortDescription string          `json:"short_description"`
	ATRResponse      json.RawMessage `json:"atrResponse"`
}

// TicketResponse mirrors the stored ticket with the two JSON-valued columns
// deserialized for the front-end.
type TicketResponse struct {
	ID               int64           `json:"id"`
	UserID           *int64          `json:"user_id"`
	Priority         string          `json:"priority"`
	Label            string          `json:"label"`
	Description      string          `json:"description"`
	Value            string          `json:"value"`
	Resource         string          `json:"resource"`
	SubResource      string          `json:"sub_resource"`
	Origin           string          `json:"origin"`
	Env              string          `json:"env"`
	Tower            string          `json:"tower"`
	ProblemType      string          `json:"problem_type"`
	EventID          *string         `json:"event_id"`
	ExternalStatus   *int            `json:"external_status"`
	ExternalResponse json.RawMessage `json:"external_response"`
	ATRResponse      json.RawMessage `json:"atr_response"`
	CreatedAt        time.Time       `json:"created_at"`
	ATRReceivedAt    *time.Time      `json:"atr_received_at"`
}

// TicketFromDomain converts a stored ticket for the wire.
func TicketFromDomain(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		UserID:           t.UserID,
		Priority:         t.Priority,
		Label:            t.Label,
		Description:      t.Description,
		Value:            t.Value,
		Resource:         t.Resource,
		SubResource:      t.SubResource,
		Origin:           t.Origin,
		Env:              t.Env,
		Tower:            t.Tower,
		ProblemType:      t.ProblemType,
		EventID:          t.EventID,
		ExternalStatus:   t.ExternalStatus,
		ExternalResponse: parseStoredJSON(t.ExternalResponse),
		ATRResponse:      parseStoredJSON(t.ATRResponse),
		CreatedAt:        t.CreatedAt,
		ATRReceivedAt:    t.ATRReceivedAt,
	}
}

// TicketsFromDomain maps a page of tickets.
func TicketsFromDomain(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketFromDomain(t))
	}
	return out
}

// parseStoredJSON surfaces stored response columns as JSON when possible and
// as a quoted string otherwise; nil columns stay null.
func parseStoredJSON(stored *string) json.RawMessage {
	if stored == nil {
		return nil
	}
	if json.Valid([]byte(*stored)) {
		return json.RawMessage(*stored)
	}
	quoted, _ := json.Marshal(*stored)
	return quoted
}

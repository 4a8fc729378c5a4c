package events

import "time"

// EventType identifies domain events published by the services.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventTicketCreated       EventType = "ticket.created"
	EventTicketForwarded     EventType = "ticket.forwarded"
	EventTicketForwardFailed EventType = "ticket.forward_failed"
	EventATRReceived         EventType = "ticket.atr_received"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID        string
	Type      EventType
	TicketID  int64
	UserID    *int64
	Timestamp time.Time
	Payload   any
}

// TicketForwardedPayload accompanies EventTicketForwarded.
type TicketForwardedPayload struct {
	EventID string
	Status  int
}

// TicketForwardFailedPayload accompanies EventTicketForwardFailed.
type TicketForwardFailedPayload struct {
	Detail string
}

// ATRReceivedPayload accompanies EventATRReceived.
type ATRReceivedPayload struct {
	EventID string
}

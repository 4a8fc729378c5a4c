package domain

import "time"

// StatusForwardFailed is the sentinel recorded as external_status when the
// forwarding attempt fails for any reason (network error, timeout, non-2xx).
const StatusForwardFailed = 500

// Ticket is the durable record of a submitted ticket and its forwarding
// lifecycle. Resource and SubResource are correlation tokens generated exactly
// once at creation and echoed by the external system. EventID, the external
// outcome fields and the ATR fields stay nil until the corresponding step of
// the workflow completes.
type Ticket struct {
	ID               int64
	UserID           *int64
	Priority         string
	Label            string
	Description      string
	Value            string
	Resource         string
	SubResource      string
	Origin           string
	Env              string
	Tower            string
	ProblemType      string
	EventID          *string
	ExternalStatus   *int
	ExternalResponse *string
	ATRResponse      *string
	CreatedAt        time.Time
	ATRReceivedAt    *time.Time
}

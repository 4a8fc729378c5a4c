package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/felipe-nonato/task-manager/internal/api/dto"
	"github.com/felipe-nonato/task-manager/internal/service"
)

// TicketsHandler exposes ticket creation, listing and the ATR callback.
type TicketsHandler struct {
	tickets *service.TicketService
	atr     *service.ATRService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(ticketService *service.TicketService, atrService *service.ATRService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, atr: atrService}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid payload")
	}

	outcome, err := h.tickets.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Priority:    req.Priority,
		Label:       req.Label,
		Description: req.Description,
		Value:       req.Value,
		UserID:      req.UserID,
	})
	if err != nil {
		if errors.Is(err, service.ErrForwarderNotConfigured) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   service.ErrTicketStorage.Error(),
			"details": err.Error(),
		})
	}

	if !outcome.Sent {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success":  false,
			"message":  "ticket saved, but forwarding to the external API failed",
			"ticketId": outcome.TicketID,
			"error":    "failed to forward ticket",
			"details":  outcome.FailureDetail,
		})
	}

	response := fiber.Map{
		"success":  true,
		"message":  "ticket created and forwarded successfully",
		"ticketId": outcome.TicketID,
		"status":   outcome.Status,
		"data":     outcome.Data,
	}
	if outcome.EventID != "" {
		response["eventId"] = outcome.EventID
	}
	return c.JSON(response)
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	var userID *int64
	if raw := c.Query("userId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "userId must be an integer")
		}
		userID = &parsed
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	tickets, total, err := h.tickets.ListTickets(c.UserContext(), userID, limit, offset)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to fetch tickets",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"tickets": dto.TicketsFromDomain(tickets),
		"total":   total,
	})
}

// ReceiveATR handles POST /tickets/atr.
func (h *TicketsHandler) ReceiveATR(c *fiber.Ctx) error {
	var req dto.ATRRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid payload")
	}

	eventID, ticket, err := h.atr.Reconcile(c.UserContext(), req.ShortDescription, req.ATRResponse)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShortDescriptionRequired), errors.Is(err, service.ErrEventIDNotFound):
			return errorJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrATRUpdateFailed):
			return errorJSON(c, http.StatusNotFound, err.Error())
		default:
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error":   "failed to save ATR",
				"details": err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "ATR updated successfully",
		"eventId": eventID,
		"ticket":  dto.TicketFromDomain(*ticket),
	})
}

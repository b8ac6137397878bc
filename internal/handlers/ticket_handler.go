package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"bus-ticketing/internal/services"
	"bus-ticketing/internal/status"
)

type TicketHandler struct {
	ticketService *services.TicketService
}

func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// ValidateTicket - Validate a scanned code at boarding and consume one use.
// Unauthenticated: inspector devices do not carry user sessions.
func (h *TicketHandler) ValidateTicket(e *core.RequestEvent) error {
	var req struct {
		QRCode     string `json:"qr_code"`
		RouteID    string `json:"route_id"`
		ScheduleID string `json:"schedule_id,omitempty"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.QRCode == "" || req.RouteID == "" {
		return apis.NewBadRequestError("qr_code and route_id are required", nil)
	}

	result, err := h.ticketService.ValidateAndUse(e.Request.Context(), req.QRCode, req.RouteID, req.ScheduleID)
	if err != nil {
		if errors.Is(err, status.ErrInvalidTicket) {
			return e.JSON(http.StatusOK, services.ValidationResult{
				Valid:   false,
				Message: "Invalid ticket",
			})
		}
		slog.Error("validate ticket", "route_id", req.RouteID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// GetTicket - Get a single ticket
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticket, err := h.ticketService.GetTicket(e.Request.Context(), e.Request.PathValue("ticketId"))
	if err != nil {
		return apiError(err)
	}
	if ticket.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, ticket)
}

// GetTicketQR - Render the ticket code as a PNG for display in the app
func (h *TicketHandler) GetTicketQR(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.ticketService.GetTicket(e.Request.Context(), ticketID)
	if err != nil {
		return apiError(err)
	}
	if ticket.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	png, err := h.ticketService.TicketQRImage(e.Request.Context(), ticketID)
	if err != nil {
		return apiError(err)
	}

	return e.Blob(http.StatusOK, "image/png", png)
}

// ListTickets - List the caller's tickets
func (h *TicketHandler) ListTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	tickets, err := h.ticketService.ListTicketsByUser(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

// ListActiveTickets - List the caller's currently usable tickets
func (h *TicketHandler) ListActiveTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	tickets, err := h.ticketService.ListActiveTicketsByUser(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"tickets": tickets})
}

// CancelTicket - Cancel an unused ticket ahead of the cutoff
func (h *TicketHandler) CancelTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")
	ticket, err := h.ticketService.GetTicket(e.Request.Context(), ticketID)
	if err != nil {
		return apiError(err)
	}
	if ticket.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	ticket, err = h.ticketService.CancelTicket(e.Request.Context(), ticketID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

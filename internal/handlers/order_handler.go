package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"bus-ticketing/internal/services"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder - Create an order for one or more tickets
func (h *OrderHandler) CreateOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Tickets []services.TicketSpec `json:"tickets"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	order, err := h.orderService.CreateOrder(e.Request.Context(), e.Auth.Id, req.Tickets)
	if err != nil {
		slog.Error("create order", "user_id", e.Auth.Id, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, order)
}

// GetOrder - Get a single order with its tickets
func (h *OrderHandler) GetOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	order, err := h.orderService.GetOrder(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return apiError(err)
	}
	if order.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, order)
}

// ListOrders - List the caller's orders, newest first
func (h *OrderHandler) ListOrders(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orders, err := h.orderService.ListOrdersByUser(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"orders": orders})
}

// CancelOrder - Cancel an unpaid order and all its tickets
func (h *OrderHandler) CancelOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")
	ctx := e.Request.Context()

	order, err := h.orderService.GetOrder(ctx, orderID)
	if err != nil {
		return apiError(err)
	}
	if order.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	order, err = h.orderService.CancelOrder(ctx, orderID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, order)
}

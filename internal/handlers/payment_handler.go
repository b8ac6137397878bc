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

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePayment - Pay for a pending order
func (h *PaymentHandler) CreatePayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.CreatePaymentInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.UserID = e.Auth.Id

	payment, err := h.paymentService.CreatePayment(e.Request.Context(), req)
	if err != nil {
		// A declined charge still produced a FAILED payment record the
		// client can inspect and retry against.
		if errors.Is(err, status.ErrPaymentFailed) && payment != nil {
			return e.JSON(http.StatusPaymentRequired, map[string]any{
				"message": "Payment was declined",
				"payment": payment,
			})
		}
		slog.Error("create payment", "order_id", req.OrderID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, payment)
}

// GetPayment - Get payment details including its refunds
func (h *PaymentHandler) GetPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	payment, err := h.paymentService.GetPayment(e.Request.Context(), e.Request.PathValue("paymentId"))
	if err != nil {
		return apiError(err)
	}
	if payment.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, payment)
}

// GetPaymentByOrder - Get the latest payment attempt for an order
func (h *PaymentHandler) GetPaymentByOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	payment, err := h.paymentService.GetPaymentByOrder(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return apiError(err)
	}
	if payment.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, payment)
}

// ListPayments - List the caller's payments, newest first
func (h *PaymentHandler) ListPayments(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	payments, err := h.paymentService.ListPaymentsByUser(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"payments": payments})
}

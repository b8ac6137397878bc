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

type RefundHandler struct {
	refundService  *services.RefundService
	paymentService *services.PaymentService
}

func NewRefundHandler(refundService *services.RefundService, paymentService *services.PaymentService) *RefundHandler {
	return &RefundHandler{
		refundService:  refundService,
		paymentService: paymentService,
	}
}

// CreateRefund - Refund a completed payment, fully or partially
func (h *RefundHandler) CreateRefund(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.CreateRefundInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.ProcessedBy = e.Auth.Id

	payment, err := h.paymentService.GetPayment(e.Request.Context(), req.PaymentID)
	if err != nil {
		return apiError(err)
	}
	if payment.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	refund, err := h.refundService.CreateRefund(e.Request.Context(), req)
	if err != nil {
		// Provider declines leave a FAILED refund record behind; surface
		// it so the client can see the accumulated reasons.
		if errors.Is(err, status.ErrRefundFailed) && refund != nil {
			return e.JSON(http.StatusPaymentRequired, map[string]any{
				"message": "Refund was declined",
				"refund":  refund,
			})
		}
		slog.Error("create refund", "payment_id", req.PaymentID, "error", err)
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, refund)
}

// GetRefund - Get a single refund
func (h *RefundHandler) GetRefund(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	refund, err := h.refundService.GetRefund(e.Request.Context(), e.Request.PathValue("refundId"))
	if err != nil {
		return apiError(err)
	}

	payment, err := h.paymentService.GetPayment(e.Request.Context(), refund.PaymentID)
	if err != nil {
		return apiError(err)
	}
	if payment.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, refund)
}

// ListRefundsByPayment - List every refund attempt against a payment
func (h *RefundHandler) ListRefundsByPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	paymentID := e.Request.PathValue("paymentId")

	payment, err := h.paymentService.GetPayment(e.Request.Context(), paymentID)
	if err != nil {
		return apiError(err)
	}
	if payment.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	refunds, err := h.refundService.ListRefundsByPayment(e.Request.Context(), paymentID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"refunds": refunds})
}

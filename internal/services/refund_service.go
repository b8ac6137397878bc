package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"bus-ticketing/internal/services/provider"
	"bus-ticketing/internal/status"
	"bus-ticketing/internal/store"
	"bus-ticketing/models"
	"bus-ticketing/monitoring"
	"bus-ticketing/utils"
)

type RefundService struct {
	store    store.Store
	provider provider.Provider
	breaker  *utils.CircuitBreaker
	timeout  time.Duration
}

func NewRefundService(st store.Store, p provider.Provider, timeout time.Duration) *RefundService {
	return &RefundService{
		store:    st,
		provider: p,
		breaker:  utils.NewCircuitBreaker("refund-provider"),
		timeout:  timeout,
	}
}

type CreateRefundInput struct {
	PaymentID    string          `json:"payment_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundReason string          `json:"refund_reason,omitempty"`
	// IsPartial overrides the inferred scope when set.
	IsPartial   *bool  `json:"is_partial,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
}

// CreateRefund validates eligibility against the payment's refund history,
// records the refund and immediately drives it through the provider. The
// remaining-amount check and the refund row commit in one transaction so
// two concurrent requests cannot both fit into the same remainder.
func (s *RefundService) CreateRefund(ctx context.Context, input CreateRefundInput) (*models.Refund, error) {
	if !input.RefundAmount.IsPositive() {
		return nil, fmt.Errorf("%w: refund amount must be positive", status.ErrValidation)
	}

	refund := &models.Refund{
		PaymentID:    input.PaymentID,
		RefundAmount: input.RefundAmount,
		RefundReason: input.RefundReason,
		Status:       models.RefundPending,
		ProcessedBy:  input.ProcessedBy,
	}

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		payment, err := tx.GetPayment(ctx, input.PaymentID)
		if err != nil {
			return err
		}

		if !payment.CanBeRefunded() {
			return fmt.Errorf("%w: payment is %s or the refund window has expired",
				status.ErrNotRefundable, payment.Status)
		}

		remaining := payment.RemainingRefundable()
		if input.RefundAmount.GreaterThan(remaining) {
			return fmt.Errorf("%w: requested %s, remaining %s",
				status.ErrExceedsRemaining, input.RefundAmount, remaining)
		}

		if input.IsPartial != nil {
			refund.IsPartial = *input.IsPartial
		} else {
			refund.IsPartial = input.RefundAmount.LessThan(remaining)
		}

		return tx.CreateRefund(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	if err := s.process(ctx, refund); err != nil {
		return refund, err
	}
	return refund, nil
}

// process drives a PENDING refund to a terminal state: PROCESSING, then
// the provider attempt, then either the completion cascade or FAILED with
// the reason appended.
func (s *RefundService) process(ctx context.Context, refund *models.Refund) error {
	payment, err := s.store.GetPayment(ctx, refund.PaymentID)
	if err != nil {
		return err
	}

	refund.MarkAsProcessing()
	if err := s.store.SaveRefund(ctx, refund); err != nil {
		return err
	}

	attemptErr := s.attemptRefund(ctx, payment, refund)

	if attemptErr != nil {
		refund.MarkAsFailed(attemptErr.Error())
		if err := s.store.SaveRefund(ctx, refund); err != nil {
			return err
		}
		monitoring.TrackRefund("failed", refund.IsPartial)
		slog.Error("refund failed", "payment_id", payment.ID, "refund_id", refund.ID, "reason", attemptErr.Error())
		return fmt.Errorf("%w: %s", status.ErrRefundFailed, attemptErr.Error())
	}

	transactionID, err := s.uniqueTransactionID(ctx)
	if err != nil {
		return err
	}

	// Completion and any full-refund cascade across payment, order and
	// tickets commit atomically.
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		refund.MarkAsCompleted(transactionID, time.Now())
		if err := tx.SaveRefund(ctx, refund); err != nil {
			return err
		}

		fresh, err := tx.GetPayment(ctx, refund.PaymentID)
		if err != nil {
			return err
		}
		if fresh.TotalRefundedAmount().GreaterThanOrEqual(fresh.Amount) {
			return s.cascadeFullRefund(ctx, tx, fresh)
		}
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.TrackRefund("completed", refund.IsPartial)
	slog.Info("refund completed", "payment_id", payment.ID, "refund_id", refund.ID, "transaction_id", transactionID, "amount", refund.RefundAmount)
	return nil
}

// cascadeFullRefund marks the payment and its order REFUNDED and cancels
// every ticket that has not been used.
func (s *RefundService) cascadeFullRefund(ctx context.Context, tx store.Store, payment *models.Payment) error {
	payment.MarkAsRefunded()
	if err := tx.SavePayment(ctx, payment); err != nil {
		return err
	}

	if payment.OrderID == "" {
		return nil
	}
	order, err := tx.GetOrder(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	order.Status = models.OrderRefunded
	if err := tx.SaveOrder(ctx, order); err != nil {
		return err
	}
	for _, t := range order.Tickets {
		if t.Status == models.TicketUsed {
			continue
		}
		t.Status = models.TicketCancelled
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPendingRefunds re-drives refunds that were created but never
// reached a terminal state, e.g. after a crash between creation and
// processing. Returns how many were picked up.
func (s *RefundService) ProcessPendingRefunds(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingRefunds(ctx)
	if err != nil {
		return 0, err
	}

	for _, refund := range pending {
		if err := s.process(ctx, refund); err != nil {
			slog.Error("error processing pending refund", "refund_id", refund.ID, "error", err)
		}
	}

	if len(pending) > 0 {
		monitoring.TrackSweep("pending_refunds", len(pending))
		slog.Info("processed pending refunds", "count", len(pending))
	}
	return len(pending), nil
}

func (s *RefundService) GetRefund(ctx context.Context, id string) (*models.Refund, error) {
	return s.store.GetRefund(ctx, id)
}

func (s *RefundService) ListRefundsByPayment(ctx context.Context, paymentID string) ([]*models.Refund, error) {
	return s.store.ListRefundsByPayment(ctx, paymentID)
}

func (s *RefundService) attemptRefund(ctx context.Context, payment *models.Payment, refund *models.Refund) error {
	req := &provider.RefundRequest{
		Amount:        refund.RefundAmount,
		Currency:      payment.Currency,
		TransactionID: payment.TransactionID,
		Reason:        refund.RefundReason,
	}

	start := time.Now()
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.provider.AttemptRefund(attemptCtx, req)
	})
	monitoring.TrackProviderCall("refund", start, err)
	return err
}

func (s *RefundService) uniqueTransactionID(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		id, err := utils.TransactionID("REF")
		if err != nil {
			return "", err
		}
		exists, err := s.store.RefundTransactionIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique refund transaction id after %d attempts", maxCodeAttempts)
}

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

type PaymentService struct {
	store    store.Store
	provider provider.Provider
	breaker  *utils.CircuitBreaker
	orders   *OrderService
	currency string
	timeout  time.Duration
}

func NewPaymentService(st store.Store, p provider.Provider, orders *OrderService, currency string, timeout time.Duration) *PaymentService {
	return &PaymentService{
		store:    st,
		provider: p,
		breaker:  utils.NewCircuitBreaker("payment-provider"),
		orders:   orders,
		currency: currency,
		timeout:  timeout,
	}
}

type CreatePaymentInput struct {
	OrderID  string               `json:"order_id"`
	UserID   string               `json:"user_id"`
	Amount   decimal.Decimal      `json:"amount"`
	Method   models.PaymentMethod `json:"payment_method"`
	Currency string               `json:"currency,omitempty"`

	// Provider fields, method specific.
	CardNumber     string `json:"card_number,omitempty"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	PayPalEmail    string `json:"paypal_email,omitempty"`
}

// CreatePayment charges an order. All precondition checks run before the
// provider is called and before anything is persisted; the provider
// outcome is then bound to order and ticket state in one transaction.
//
// A FAILED payment on the order does not block a new attempt: failed rows
// are retained for audit and superseded by the new payment.
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	if !models.ValidPaymentMethod(input.Method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", status.ErrValidation, input.Method)
	}

	order, err := s.store.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListPaymentsByOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.Status != models.PaymentFailed {
			return nil, status.ErrPaymentExists
		}
	}

	if order.Status != models.OrderPending {
		return nil, fmt.Errorf("%w: order is %s", status.ErrInvalidState, order.Status)
	}

	if !input.Amount.Equal(order.TotalAmount) {
		return nil, fmt.Errorf("%w: got %s, order total is %s",
			status.ErrAmountMismatch, input.Amount, order.TotalAmount)
	}

	currency := input.Currency
	if currency == "" {
		currency = s.currency
	}

	payment := &models.Payment{
		OrderID:  order.ID,
		UserID:   input.UserID,
		Amount:   input.Amount,
		Method:   input.Method,
		Status:   models.PaymentPending,
		Currency: currency,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	attemptErr := s.attemptPayment(ctx, order, input)

	if attemptErr != nil {
		payment.MarkAsFailed(attemptErr.Error())
		if err := s.store.SavePayment(ctx, payment); err != nil {
			return nil, err
		}
		monitoring.TrackPayment(string(input.Method), "failed")
		slog.Error("payment failed", "order_number", order.OrderNumber, "method", input.Method, "reason", attemptErr.Error())
		return payment, fmt.Errorf("%w: %s", status.ErrPaymentFailed, attemptErr.Error())
	}

	transactionID, err := s.uniqueTransactionID(ctx)
	if err != nil {
		return nil, err
	}

	// Payment completion and the order/ticket flip commit together, so a
	// crash cannot leave a COMPLETED payment on a PENDING order.
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		payment.MarkAsCompleted(transactionID, time.Now())
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		_, err := s.orders.MarkOrderAsPaid(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackPayment(string(input.Method), "completed")
	slog.Info("payment completed", "order_number", order.OrderNumber, "transaction_id", transactionID, "amount", payment.Amount)

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

func (s *PaymentService) GetPaymentByTransaction(ctx context.Context, transactionID string) (*models.Payment, error) {
	return s.store.GetPaymentByTransaction(ctx, transactionID)
}

// GetPaymentByOrder returns the latest payment on the order.
func (s *PaymentService) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	payments, err := s.store.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, status.ErrPaymentNotFound
	}
	return payments[0], nil
}

func (s *PaymentService) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	return s.store.ListPaymentsByUser(ctx, userID)
}

// attemptPayment dispatches the external charge, bounded by the provider
// timeout and guarded by the circuit breaker. A timeout is a failure,
// never an assumed success.
func (s *PaymentService) attemptPayment(ctx context.Context, order *models.Order, input CreatePaymentInput) error {
	req := &provider.PaymentRequest{
		Amount:         input.Amount,
		Currency:       input.Currency,
		Method:         input.Method,
		Reference:      order.OrderNumber,
		CardNumber:     input.CardNumber,
		CardHolderName: input.CardHolderName,
		ExpiryDate:     input.ExpiryDate,
		CVV:            input.CVV,
		PayPalEmail:    input.PayPalEmail,
	}

	start := time.Now()
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.provider.AttemptPayment(attemptCtx, req)
	})
	monitoring.TrackProviderCall("payment", start, err)
	return err
}

func (s *PaymentService) uniqueTransactionID(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		id, err := utils.TransactionID("TXN")
		if err != nil {
			return "", err
		}
		exists, err := s.store.PaymentTransactionIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction id after %d attempts", maxCodeAttempts)
}

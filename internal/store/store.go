package store

import (
	"context"
	"time"

	"bus-ticketing/models"
)

// Store is the persistence boundary for the order/ticket/payment/refund
// aggregates. Every multi-aggregate cascade (payment completion into order
// and tickets, refund completion into payment, order and tickets) runs
// through RunInTransaction so a crash can never leave siblings
// inconsistent.
type Store interface {
	// RunInTransaction executes fn against a transactional view of the
	// store. Mutations made through tx are committed atomically when fn
	// returns nil and rolled back otherwise.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Orders. CreateOrder persists the order together with its owned
	// tickets and assigns their ids.
	CreateOrder(ctx context.Context, o *models.Order) error
	SaveOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error)
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)

	// Tickets
	SaveTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByQR(ctx context.Context, qrCode string) (*models.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID string) ([]*models.Ticket, error)
	ListActiveTicketsByUser(ctx context.Context, userID string, now time.Time) ([]*models.Ticket, error)
	ListExpiredTickets(ctx context.Context, now time.Time) ([]*models.Ticket, error)

	// Payments. GetPayment loads the owned refunds as well.
	CreatePayment(ctx context.Context, p *models.Payment) error
	SavePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByTransaction(ctx context.Context, transactionID string) (*models.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID string) ([]*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error)
	PaymentTransactionIDExists(ctx context.Context, transactionID string) (bool, error)

	// Refunds
	CreateRefund(ctx context.Context, r *models.Refund) error
	SaveRefund(ctx context.Context, r *models.Refund) error
	GetRefund(ctx context.Context, id string) (*models.Refund, error)
	ListRefundsByPayment(ctx context.Context, paymentID string) ([]*models.Refund, error)
	ListPendingRefunds(ctx context.Context) ([]*models.Refund, error)
	RefundTransactionIDExists(ctx context.Context, transactionID string) (bool, error)
}

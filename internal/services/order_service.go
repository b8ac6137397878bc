package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"bus-ticketing/internal/status"
	"bus-ticketing/internal/store"
	"bus-ticketing/models"
	"bus-ticketing/monitoring"
	"bus-ticketing/utils"
)

// maxCodeAttempts bounds the regenerate-and-recheck loops for order
// numbers and transaction ids. The codes are high entropy, so a second
// attempt is already rare.
const maxCodeAttempts = 5

type OrderService struct {
	store   store.Store
	pricing map[models.TicketType]decimal.Decimal
}

// NewOrderService takes the pricing table explicitly so tests can
// substitute pricing.
func NewOrderService(st store.Store, pricing map[models.TicketType]decimal.Decimal) *OrderService {
	return &OrderService{store: st, pricing: pricing}
}

// TicketSpec is one requested ticket within an order. Dates and the usage
// cap are optional; defaults derive from the ticket type.
type TicketSpec struct {
	Type          models.TicketType `json:"ticket_type"`
	RouteID       string            `json:"route_id"`
	ScheduleID    string            `json:"schedule_id,omitempty"`
	ValidFrom     *time.Time        `json:"valid_from,omitempty"`
	ValidUntil    *time.Time        `json:"valid_until,omitempty"`
	PassengerName string            `json:"passenger_name,omitempty"`
	MaxUsage      *int              `json:"max_usage,omitempty"`
}

// CreateOrder prices the requested tickets, locks the total and persists
// the order with its tickets in a provisional PENDING_PAYMENT state. QR
// codes are assigned in a second persist once ticket ids are known.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, specs []TicketSpec) (*models.Order, error) {
	if userID == "" || len(specs) == 0 {
		return nil, fmt.Errorf("%w: user id and at least one ticket are required", status.ErrValidation)
	}

	now := time.Now()
	total := decimal.Zero
	tickets := make([]*models.Ticket, 0, len(specs))
	for _, spec := range specs {
		t, err := s.buildTicket(userID, spec, now)
		if err != nil {
			return nil, err
		}
		total = total.Add(t.Price)
		tickets = append(tickets, t)
	}

	orderNumber, err := s.uniqueOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:      userID,
		OrderNumber: orderNumber,
		TotalAmount: total,
		Status:      models.OrderPending,
		Tickets:     tickets,
	}

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		// QR codes embed the ticket id, so they can only be derived after
		// the first persist allocated ids.
		for _, t := range order.Tickets {
			code, err := utils.TicketCode(t.ID, t.UserID)
			if err != nil {
				return err
			}
			t.QRCode = code
			if err := tx.SaveTicket(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackOrderCreated()
	slog.Info("order created", "order_number", order.OrderNumber, "user_id", userID, "tickets", len(order.Tickets), "total", order.TotalAmount)

	return order, nil
}

// MarkOrderAsPaid flips the order to PAID and activates its tickets.
// Called only by the payment workflow, inside the payment-completion
// transaction, which is why it operates on the caller's tx.
func (s *OrderService) MarkOrderAsPaid(ctx context.Context, tx store.Store, orderID string) (*models.Order, error) {
	order, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.MarkAsPaid(time.Now())

	if err := tx.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	for _, t := range order.Tickets {
		if err := tx.SaveTicket(ctx, t); err != nil {
			return nil, err
		}
	}

	slog.Info("order marked as paid", "order_id", orderID, "order_number", order.OrderNumber)
	return order, nil
}

// CancelOrder cancels an unpaid order and its non-used tickets. Paid
// orders are rejected; the money has to come back through a refund.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order *models.Order
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		if err := order.Cancel(); err != nil {
			if errors.Is(err, models.ErrOrderPaid) {
				return fmt.Errorf("%w: %s", status.ErrInvalidState, err)
			}
			return err
		}

		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
		for _, t := range order.Tickets {
			if err := tx.SaveTicket(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("order cancelled", "order_id", orderID, "order_number", order.OrderNumber)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.store.GetOrderByNumber(ctx, orderNumber)
}

func (s *OrderService) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

func (s *OrderService) buildTicket(userID string, spec TicketSpec, now time.Time) (*models.Ticket, error) {
	if !models.ValidTicketType(spec.Type) {
		return nil, fmt.Errorf("%w: unknown ticket type %q", status.ErrValidation, spec.Type)
	}
	if spec.RouteID == "" {
		return nil, fmt.Errorf("%w: route id is required", status.ErrValidation)
	}

	price, ok := s.pricing[spec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no price configured for ticket type %q", status.ErrValidation, spec.Type)
	}

	validFrom := now
	if spec.ValidFrom != nil {
		validFrom = *spec.ValidFrom
	}
	validUntil := validFrom.Add(models.DefaultValidityWindow(spec.Type))
	if spec.ValidUntil != nil {
		validUntil = *spec.ValidUntil
	}
	if !validUntil.After(validFrom) {
		return nil, fmt.Errorf("%w: valid_until must be after valid_from", status.ErrValidation)
	}

	maxUsage := models.DefaultMaxUsage(spec.Type)
	if spec.MaxUsage != nil {
		if *spec.MaxUsage <= 0 {
			return nil, fmt.Errorf("%w: max_usage must be positive", status.ErrValidation)
		}
		maxUsage = *spec.MaxUsage
	}

	// Placeholder code until the ticket id exists; replaced in the second
	// persist of CreateOrder.
	placeholder, err := utils.GenerateCode(12)
	if err != nil {
		return nil, err
	}

	return &models.Ticket{
		UserID:        userID,
		Type:          spec.Type,
		Price:         price,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
		Status:        models.TicketPendingPayment,
		UsageCount:    0,
		MaxUsage:      maxUsage,
		RouteID:       spec.RouteID,
		ScheduleID:    spec.ScheduleID,
		QRCode:        "PEND-" + placeholder,
		PassengerName: spec.PassengerName,
	}, nil
}

func (s *OrderService) uniqueOrderNumber(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		orderNumber, err := utils.OrderNumber()
		if err != nil {
			return "", err
		}
		exists, err := s.store.OrderNumberExists(ctx, orderNumber)
		if err != nil {
			return "", err
		}
		if !exists {
			return orderNumber, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique order number after %d attempts", maxCodeAttempts)
}

package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bus-ticketing/internal/status"
	"bus-ticketing/internal/store"
	"bus-ticketing/models"
)

// memStore is an in-memory store.Store used by the service tests. It
// copies records on the way in and out like the real store does, so
// services only observe state they explicitly saved.
type memStore struct {
	mu       sync.Mutex
	seq      int
	orders   map[string]*models.Order
	tickets  map[string]*models.Ticket
	payments map[string]*models.Payment
	refunds  map[string]*models.Refund
	inserted map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]*models.Order{},
		tickets:  map[string]*models.Ticket{},
		payments: map[string]*models.Payment{},
		refunds:  map[string]*models.Refund{},
		inserted: map[string]int{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	id := fmt.Sprintf("%s%04d", prefix, m.seq)
	m.inserted[id] = m.seq
	return id
}

// RunInTransaction runs fn against the store itself. Rollback is not
// modeled; tests assert on the happy-path and pre-validation failures,
// which never partially commit.
func (m *memStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

// ---- orders ----

func (m *memStore) CreateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o.ID = m.nextID("ord")
	o.CreatedAt = time.Now()
	for _, t := range o.Tickets {
		t.ID = m.nextID("tkt")
		t.OrderID = o.ID
		t.CreatedAt = time.Now()
		m.tickets[t.ID] = copyTicket(t)
	}
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (m *memStore) SaveOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[o.ID]; !ok {
		return status.ErrOrderNotFound
	}
	m.orders[o.ID] = copyOrder(o)
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, status.ErrOrderNotFound
	}
	return m.hydrateOrder(o), nil
}

func (m *memStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			return m.hydrateOrder(o), nil
		}
	}
	return nil, status.ErrOrderNotFound
}

func (m *memStore) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, m.hydrateOrder(o))
		}
	}
	sortNewestFirst(orders, m.inserted, func(o *models.Order) string { return o.ID })
	return orders, nil
}

func (m *memStore) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) hydrateOrder(o *models.Order) *models.Order {
	out := copyOrder(o)
	out.Tickets = nil
	var ids []string
	for id, t := range m.tickets {
		if t.OrderID == o.ID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return m.inserted[ids[i]] < m.inserted[ids[j]] })
	for _, id := range ids {
		out.Tickets = append(out.Tickets, copyTicket(m.tickets[id]))
	}
	return out
}

// ---- tickets ----

func (m *memStore) SaveTicket(ctx context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tickets[t.ID]; !ok {
		return status.ErrTicketNotFound
	}
	m.tickets[t.ID] = copyTicket(t)
	return nil
}

func (m *memStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, status.ErrTicketNotFound
	}
	return copyTicket(t), nil
}

func (m *memStore) GetTicketByQR(ctx context.Context, qrCode string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tickets {
		if t.QRCode == qrCode {
			return copyTicket(t), nil
		}
	}
	return nil, status.ErrTicketNotFound
}

func (m *memStore) ListTicketsByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tickets []*models.Ticket
	for _, t := range m.tickets {
		if t.UserID == userID {
			tickets = append(tickets, copyTicket(t))
		}
	}
	sortNewestFirst(tickets, m.inserted, func(t *models.Ticket) string { return t.ID })
	return tickets, nil
}

func (m *memStore) ListActiveTicketsByUser(ctx context.Context, userID string, now time.Time) ([]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tickets []*models.Ticket
	for _, t := range m.tickets {
		if t.UserID == userID && t.Status == models.TicketActive && t.ValidUntil.After(now) {
			tickets = append(tickets, copyTicket(t))
		}
	}
	return tickets, nil
}

func (m *memStore) ListExpiredTickets(ctx context.Context, now time.Time) ([]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tickets []*models.Ticket
	for _, t := range m.tickets {
		if t.Status == models.TicketActive && t.ValidUntil.Before(now) {
			tickets = append(tickets, copyTicket(t))
		}
	}
	return tickets, nil
}

// ---- payments ----

func (m *memStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.ID = m.nextID("pay")
	p.CreatedAt = time.Now()
	m.payments[p.ID] = copyPayment(p)
	return nil
}

func (m *memStore) SavePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[p.ID]; !ok {
		return status.ErrPaymentNotFound
	}
	m.payments[p.ID] = copyPayment(p)
	return nil
}

func (m *memStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, status.ErrPaymentNotFound
	}
	return m.hydratePayment(p), nil
}

func (m *memStore) GetPaymentByTransaction(ctx context.Context, transactionID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.payments {
		if p.TransactionID != "" && p.TransactionID == transactionID {
			return m.hydratePayment(p), nil
		}
	}
	return nil, status.ErrPaymentNotFound
}

func (m *memStore) ListPaymentsByOrder(ctx context.Context, orderID string) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payments []*models.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			payments = append(payments, m.hydratePayment(p))
		}
	}
	sortNewestFirst(payments, m.inserted, func(p *models.Payment) string { return p.ID })
	return payments, nil
}

func (m *memStore) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payments []*models.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			payments = append(payments, m.hydratePayment(p))
		}
	}
	sortNewestFirst(payments, m.inserted, func(p *models.Payment) string { return p.ID })
	return payments, nil
}

func (m *memStore) PaymentTransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.payments {
		if p.TransactionID != "" && p.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) hydratePayment(p *models.Payment) *models.Payment {
	out := copyPayment(p)
	out.Refunds = nil
	var ids []string
	for id, r := range m.refunds {
		if r.PaymentID == p.ID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return m.inserted[ids[i]] < m.inserted[ids[j]] })
	for _, id := range ids {
		out.Refunds = append(out.Refunds, copyRefund(m.refunds[id]))
	}
	return out
}

// ---- refunds ----

func (m *memStore) CreateRefund(ctx context.Context, r *models.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextID("ref")
	r.CreatedAt = time.Now()
	m.refunds[r.ID] = copyRefund(r)
	return nil
}

func (m *memStore) SaveRefund(ctx context.Context, r *models.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.refunds[r.ID]; !ok {
		return status.ErrRefundNotFound
	}
	m.refunds[r.ID] = copyRefund(r)
	return nil
}

func (m *memStore) GetRefund(ctx context.Context, id string) (*models.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.refunds[id]
	if !ok {
		return nil, status.ErrRefundNotFound
	}
	return copyRefund(r), nil
}

func (m *memStore) ListRefundsByPayment(ctx context.Context, paymentID string) ([]*models.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, r := range m.refunds {
		if r.PaymentID == paymentID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return m.inserted[ids[i]] < m.inserted[ids[j]] })
	refunds := make([]*models.Refund, 0, len(ids))
	for _, id := range ids {
		refunds = append(refunds, copyRefund(m.refunds[id]))
	}
	return refunds, nil
}

func (m *memStore) ListPendingRefunds(ctx context.Context) ([]*models.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var refunds []*models.Refund
	for _, r := range m.refunds {
		if r.Status == models.RefundPending {
			refunds = append(refunds, copyRefund(r))
		}
	}
	return refunds, nil
}

func (m *memStore) RefundTransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.refunds {
		if r.TransactionID != "" && r.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func sortNewestFirst[T any](items []T, seq map[string]int, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		return seq[id(items[i])] > seq[id(items[j])]
	})
}

// ---- copies ----

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.Tickets = nil
	for _, t := range o.Tickets {
		out.Tickets = append(out.Tickets, copyTicket(t))
	}
	return &out
}

func copyTicket(t *models.Ticket) *models.Ticket {
	out := *t
	if t.PurchaseDate != nil {
		d := *t.PurchaseDate
		out.PurchaseDate = &d
	}
	return &out
}

func copyPayment(p *models.Payment) *models.Payment {
	out := *p
	if p.PaymentDate != nil {
		d := *p.PaymentDate
		out.PaymentDate = &d
	}
	out.Refunds = nil
	for _, r := range p.Refunds {
		out.Refunds = append(out.Refunds, copyRefund(r))
	}
	return &out
}

func copyRefund(r *models.Refund) *models.Refund {
	out := *r
	if r.RefundDate != nil {
		d := *r.RefundDate
		out.RefundDate = &d
	}
	return &out
}

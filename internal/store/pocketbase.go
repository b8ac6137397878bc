package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"bus-ticketing/internal/status"
	"bus-ticketing/models"
)

const (
	collOrders   = "orders"
	collTickets  = "tickets"
	collPayments = "payments"
	collRefunds  = "refunds"
)

// PocketBase implements Store over pocketbase collections. Cascades rely
// on app.RunInTransaction (a single sqlite write transaction).
type PocketBase struct {
	app core.App
}

func NewPocketBase(app core.App) *PocketBase {
	return &PocketBase{app: app}
}

func (s *PocketBase) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PocketBase{app: txApp})
	})
}

// ---- orders ----

func (s *PocketBase) CreateOrder(ctx context.Context, o *models.Order) error {
	collection, err := s.app.FindCollectionByNameOrId(collOrders)
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	applyOrder(record, o)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.ID = record.Id
	o.CreatedAt = record.GetDateTime("created").Time()
	o.UpdatedAt = record.GetDateTime("updated").Time()

	ticketColl, err := s.app.FindCollectionByNameOrId(collTickets)
	if err != nil {
		return err
	}
	for _, t := range o.Tickets {
		t.OrderID = o.ID
		tr := core.NewRecord(ticketColl)
		applyTicket(tr, t)
		if err := s.app.Save(tr); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		t.ID = tr.Id
		t.CreatedAt = tr.GetDateTime("created").Time()
		t.UpdatedAt = tr.GetDateTime("updated").Time()
	}
	return nil
}

func (s *PocketBase) SaveOrder(ctx context.Context, o *models.Order) error {
	record, err := s.app.FindRecordById(collOrders, o.ID)
	if err != nil {
		return status.ErrOrderNotFound
	}
	applyOrder(record, o)
	return s.app.Save(record)
}

func (s *PocketBase) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	record, err := s.app.FindRecordById(collOrders, id)
	if err != nil {
		return nil, status.ErrOrderNotFound
	}
	return s.hydrateOrder(record)
}

func (s *PocketBase) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	record, err := s.app.FindFirstRecordByData(collOrders, "order_number", orderNumber)
	if err != nil {
		return nil, status.ErrOrderNotFound
	}
	return s.hydrateOrder(record)
}

func (s *PocketBase) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	records, err := s.app.FindRecordsByFilter(
		collOrders,
		"user_id = {:userId}",
		"-created",
		0, 0,
		dbx.Params{"userId": userID},
	)
	if err != nil {
		return nil, err
	}
	orders := make([]*models.Order, 0, len(records))
	for _, r := range records {
		o, err := s.hydrateOrder(r)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *PocketBase) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	_, err := s.app.FindFirstRecordByData(collOrders, "order_number", orderNumber)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *PocketBase) hydrateOrder(record *core.Record) (*models.Order, error) {
	o := orderFromRecord(record)
	records, err := s.app.FindRecordsByFilter(
		collTickets,
		"order = {:order}",
		"created",
		0, 0,
		dbx.Params{"order": o.ID},
	)
	if err != nil {
		return nil, err
	}
	for _, tr := range records {
		o.Tickets = append(o.Tickets, ticketFromRecord(tr))
	}
	return o, nil
}

// ---- tickets ----

func (s *PocketBase) SaveTicket(ctx context.Context, t *models.Ticket) error {
	record, err := s.app.FindRecordById(collTickets, t.ID)
	if err != nil {
		return status.ErrTicketNotFound
	}
	applyTicket(record, t)
	return s.app.Save(record)
}

func (s *PocketBase) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(collTickets, id)
	if err != nil {
		return nil, status.ErrTicketNotFound
	}
	return ticketFromRecord(record), nil
}

func (s *PocketBase) GetTicketByQR(ctx context.Context, qrCode string) (*models.Ticket, error) {
	record, err := s.app.FindFirstRecordByData(collTickets, "qr_code", qrCode)
	if err != nil {
		return nil, status.ErrTicketNotFound
	}
	return ticketFromRecord(record), nil
}

func (s *PocketBase) ListTicketsByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	return s.listTickets("user_id = {:userId}", "-created", dbx.Params{"userId": userID})
}

func (s *PocketBase) ListActiveTicketsByUser(ctx context.Context, userID string, now time.Time) ([]*models.Ticket, error) {
	return s.listTickets(
		"user_id = {:userId} && status = {:status} && valid_until > {:now}",
		"valid_until",
		dbx.Params{
			"userId": userID,
			"status": string(models.TicketActive),
			"now":    now.UTC().Format(types.DefaultDateLayout),
		},
	)
}

func (s *PocketBase) ListExpiredTickets(ctx context.Context, now time.Time) ([]*models.Ticket, error) {
	return s.listTickets(
		"status = {:status} && valid_until < {:now}",
		"valid_until",
		dbx.Params{
			"status": string(models.TicketActive),
			"now":    now.UTC().Format(types.DefaultDateLayout),
		},
	)
}

func (s *PocketBase) listTickets(filter, sort string, params dbx.Params) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(collTickets, filter, sort, 0, 0, params)
	if err != nil {
		return nil, err
	}
	tickets := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, ticketFromRecord(r))
	}
	return tickets, nil
}

// ---- payments ----

func (s *PocketBase) CreatePayment(ctx context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId(collPayments)
	if err != nil {
		return err
	}
	record := core.NewRecord(collection)
	applyPayment(record, p)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	p.ID = record.Id
	p.CreatedAt = record.GetDateTime("created").Time()
	p.UpdatedAt = record.GetDateTime("updated").Time()
	return nil
}

func (s *PocketBase) SavePayment(ctx context.Context, p *models.Payment) error {
	record, err := s.app.FindRecordById(collPayments, p.ID)
	if err != nil {
		return status.ErrPaymentNotFound
	}
	applyPayment(record, p)
	return s.app.Save(record)
}

func (s *PocketBase) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	record, err := s.app.FindRecordById(collPayments, id)
	if err != nil {
		return nil, status.ErrPaymentNotFound
	}
	return s.hydratePayment(record)
}

func (s *PocketBase) GetPaymentByTransaction(ctx context.Context, transactionID string) (*models.Payment, error) {
	record, err := s.app.FindFirstRecordByData(collPayments, "transaction_id", transactionID)
	if err != nil {
		return nil, status.ErrPaymentNotFound
	}
	return s.hydratePayment(record)
}

func (s *PocketBase) ListPaymentsByOrder(ctx context.Context, orderID string) ([]*models.Payment, error) {
	return s.listPayments("order = {:order}", dbx.Params{"order": orderID})
}

func (s *PocketBase) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	return s.listPayments("user_id = {:userId}", dbx.Params{"userId": userID})
}

func (s *PocketBase) listPayments(filter string, params dbx.Params) ([]*models.Payment, error) {
	records, err := s.app.FindRecordsByFilter(collPayments, filter, "-created", 0, 0, params)
	if err != nil {
		return nil, err
	}
	payments := make([]*models.Payment, 0, len(records))
	for _, r := range records {
		p, err := s.hydratePayment(r)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (s *PocketBase) PaymentTransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	_, err := s.app.FindFirstRecordByData(collPayments, "transaction_id", transactionID)
	return err == nil, nil
}

func (s *PocketBase) hydratePayment(record *core.Record) (*models.Payment, error) {
	p := paymentFromRecord(record)
	refunds, err := s.ListRefundsByPayment(context.Background(), p.ID)
	if err != nil {
		return nil, err
	}
	p.Refunds = refunds
	return p, nil
}

// ---- refunds ----

func (s *PocketBase) CreateRefund(ctx context.Context, r *models.Refund) error {
	collection, err := s.app.FindCollectionByNameOrId(collRefunds)
	if err != nil {
		return err
	}
	record := core.NewRecord(collection)
	applyRefund(record, r)
	if err := s.app.Save(record); err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	r.ID = record.Id
	r.CreatedAt = record.GetDateTime("created").Time()
	r.UpdatedAt = record.GetDateTime("updated").Time()
	return nil
}

func (s *PocketBase) SaveRefund(ctx context.Context, r *models.Refund) error {
	record, err := s.app.FindRecordById(collRefunds, r.ID)
	if err != nil {
		return status.ErrRefundNotFound
	}
	applyRefund(record, r)
	return s.app.Save(record)
}

func (s *PocketBase) GetRefund(ctx context.Context, id string) (*models.Refund, error) {
	record, err := s.app.FindRecordById(collRefunds, id)
	if err != nil {
		return nil, status.ErrRefundNotFound
	}
	return refundFromRecord(record), nil
}

func (s *PocketBase) ListRefundsByPayment(ctx context.Context, paymentID string) ([]*models.Refund, error) {
	records, err := s.app.FindRecordsByFilter(
		collRefunds,
		"payment = {:payment}",
		"created",
		0, 0,
		dbx.Params{"payment": paymentID},
	)
	if err != nil {
		return nil, err
	}
	refunds := make([]*models.Refund, 0, len(records))
	for _, r := range records {
		refunds = append(refunds, refundFromRecord(r))
	}
	return refunds, nil
}

func (s *PocketBase) ListPendingRefunds(ctx context.Context) ([]*models.Refund, error) {
	records, err := s.app.FindRecordsByFilter(
		collRefunds,
		"status = {:status}",
		"created",
		0, 0,
		dbx.Params{"status": string(models.RefundPending)},
	)
	if err != nil {
		return nil, err
	}
	refunds := make([]*models.Refund, 0, len(records))
	for _, r := range records {
		refunds = append(refunds, refundFromRecord(r))
	}
	return refunds, nil
}

func (s *PocketBase) RefundTransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	_, err := s.app.FindFirstRecordByData(collRefunds, "transaction_id", transactionID)
	return err == nil, nil
}

// ---- record mapping ----

func applyOrder(record *core.Record, o *models.Order) {
	record.Set("user_id", o.UserID)
	record.Set("order_number", o.OrderNumber)
	record.Set("total_amount", o.TotalAmount.InexactFloat64())
	record.Set("status", string(o.Status))
}

func orderFromRecord(record *core.Record) *models.Order {
	return &models.Order{
		ID:          record.Id,
		UserID:      record.GetString("user_id"),
		OrderNumber: record.GetString("order_number"),
		TotalAmount: decimal.NewFromFloat(record.GetFloat("total_amount")),
		Status:      models.OrderStatus(record.GetString("status")),
		CreatedAt:   record.GetDateTime("created").Time(),
		UpdatedAt:   record.GetDateTime("updated").Time(),
	}
}

func applyTicket(record *core.Record, t *models.Ticket) {
	record.Set("order", t.OrderID)
	record.Set("user_id", t.UserID)
	record.Set("ticket_type", string(t.Type))
	record.Set("price", t.Price.InexactFloat64())
	record.Set("valid_from", t.ValidFrom)
	record.Set("valid_until", t.ValidUntil)
	record.Set("status", string(t.Status))
	record.Set("usage_count", t.UsageCount)
	record.Set("max_usage", t.MaxUsage)
	record.Set("route_id", t.RouteID)
	record.Set("schedule_id", t.ScheduleID)
	record.Set("qr_code", t.QRCode)
	record.Set("passenger_name", t.PassengerName)
	if t.PurchaseDate != nil {
		record.Set("purchase_date", *t.PurchaseDate)
	}
}

func ticketFromRecord(record *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:            record.Id,
		OrderID:       record.GetString("order"),
		UserID:        record.GetString("user_id"),
		Type:          models.TicketType(record.GetString("ticket_type")),
		Price:         decimal.NewFromFloat(record.GetFloat("price")),
		PurchaseDate:  optionalTime(record, "purchase_date"),
		ValidFrom:     record.GetDateTime("valid_from").Time(),
		ValidUntil:    record.GetDateTime("valid_until").Time(),
		Status:        models.TicketStatus(record.GetString("status")),
		UsageCount:    record.GetInt("usage_count"),
		MaxUsage:      record.GetInt("max_usage"),
		RouteID:       record.GetString("route_id"),
		ScheduleID:    record.GetString("schedule_id"),
		QRCode:        record.GetString("qr_code"),
		PassengerName: record.GetString("passenger_name"),
		CreatedAt:     record.GetDateTime("created").Time(),
		UpdatedAt:     record.GetDateTime("updated").Time(),
	}
}

func applyPayment(record *core.Record, p *models.Payment) {
	record.Set("order", p.OrderID)
	record.Set("subscription_id", p.SubscriptionID)
	record.Set("user_id", p.UserID)
	record.Set("amount", p.Amount.InexactFloat64())
	record.Set("payment_method", string(p.Method))
	record.Set("transaction_id", p.TransactionID)
	record.Set("status", string(p.Status))
	record.Set("currency", p.Currency)
	record.Set("provider_response", p.ProviderResponse)
	if p.PaymentDate != nil {
		record.Set("payment_date", *p.PaymentDate)
	}
}

func paymentFromRecord(record *core.Record) *models.Payment {
	return &models.Payment{
		ID:               record.Id,
		OrderID:          record.GetString("order"),
		SubscriptionID:   record.GetString("subscription_id"),
		UserID:           record.GetString("user_id"),
		Amount:           decimal.NewFromFloat(record.GetFloat("amount")),
		Method:           models.PaymentMethod(record.GetString("payment_method")),
		TransactionID:    record.GetString("transaction_id"),
		Status:           models.PaymentStatus(record.GetString("status")),
		PaymentDate:      optionalTime(record, "payment_date"),
		Currency:         record.GetString("currency"),
		ProviderResponse: record.GetString("provider_response"),
		CreatedAt:        record.GetDateTime("created").Time(),
		UpdatedAt:        record.GetDateTime("updated").Time(),
	}
}

func applyRefund(record *core.Record, r *models.Refund) {
	record.Set("payment", r.PaymentID)
	record.Set("refund_amount", r.RefundAmount.InexactFloat64())
	record.Set("refund_reason", r.RefundReason)
	record.Set("status", string(r.Status))
	record.Set("transaction_id", r.TransactionID)
	record.Set("is_partial", r.IsPartial)
	record.Set("processed_by", r.ProcessedBy)
	if r.RefundDate != nil {
		record.Set("refund_date", *r.RefundDate)
	}
}

func refundFromRecord(record *core.Record) *models.Refund {
	return &models.Refund{
		ID:            record.Id,
		PaymentID:     record.GetString("payment"),
		RefundAmount:  decimal.NewFromFloat(record.GetFloat("refund_amount")),
		RefundReason:  record.GetString("refund_reason"),
		Status:        models.RefundStatus(record.GetString("status")),
		TransactionID: record.GetString("transaction_id"),
		IsPartial:     record.GetBool("is_partial"),
		RefundDate:    optionalTime(record, "refund_date"),
		ProcessedBy:   record.GetString("processed_by"),
		CreatedAt:     record.GetDateTime("created").Time(),
		UpdatedAt:     record.GetDateTime("updated").Time(),
	}
}

func optionalTime(record *core.Record, field string) *time.Time {
	dt := record.GetDateTime(field)
	if dt.IsZero() {
		return nil
	}
	t := dt.Time()
	return &t
}

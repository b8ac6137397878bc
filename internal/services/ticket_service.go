package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bus-ticketing/internal/status"
	"bus-ticketing/internal/store"
	"bus-ticketing/models"
	"bus-ticketing/monitoring"
	"bus-ticketing/utils"
)

// TicketLocker serializes validate-and-use attempts for one ticket. The
// redis implementation lives in utils; tests use an in-process one.
type TicketLocker interface {
	Acquire(ctx context.Context, ticketID string) (release func(), err error)
}

type TicketService struct {
	store  store.Store
	locker TicketLocker
}

func NewTicketService(st store.Store, locker TicketLocker) *TicketService {
	return &TicketService{store: st, locker: locker}
}

// ValidationResult is what the inspector's device gets back. Rejections
// are results, not errors: "this ticket doesn't work here" is an expected
// outcome at a turnstile.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Message string         `json:"message"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
}

// ValidateAndUse checks a scanned code against the route and consumes one
// ride on success. Unknown and malformed codes are the same error, so the
// endpoint never reveals which it was. The usage increment is serialized
// per ticket: the lock plus the transaction guarantee that two concurrent
// scans cannot both cross the usage cap.
func (s *TicketService) ValidateAndUse(ctx context.Context, qrCode, routeID, scheduleID string) (*ValidationResult, error) {
	ticket, err := s.store.GetTicketByQR(ctx, qrCode)
	if err != nil {
		monitoring.TrackValidation(false, "unknown_code")
		return nil, status.ErrInvalidTicket
	}

	if ticket.RouteID != routeID {
		monitoring.TrackValidation(false, "wrong_route")
		return &ValidationResult{Valid: false, Message: "Ticket is not valid for this route", Ticket: ticket}, nil
	}
	if scheduleID != "" && ticket.ScheduleID != "" && ticket.ScheduleID != scheduleID {
		monitoring.TrackValidation(false, "wrong_schedule")
		return &ValidationResult{Valid: false, Message: "Ticket is not valid for this schedule", Ticket: ticket}, nil
	}

	if !ticket.IsValid() {
		monitoring.TrackValidation(false, "not_valid")
		return &ValidationResult{Valid: false, Message: invalidTicketMessage(ticket), Ticket: ticket}, nil
	}

	release, err := s.locker.Acquire(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, status.ErrLockContended) {
			monitoring.TrackValidation(false, "contended")
			return &ValidationResult{Valid: false, Message: "Ticket is being validated, please retry", Ticket: ticket}, nil
		}
		return nil, err
	}
	defer release()

	var result *ValidationResult
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		// Re-read under the lock: another scan may have consumed the
		// last ride between our check and here.
		fresh, err := tx.GetTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}

		if err := fresh.Use(); err != nil {
			if errors.Is(err, models.ErrTicketNotUsable) {
				result = &ValidationResult{Valid: false, Message: invalidTicketMessage(fresh), Ticket: fresh}
				return nil
			}
			return err
		}

		if err := tx.SaveTicket(ctx, fresh); err != nil {
			return err
		}
		result = &ValidationResult{Valid: true, Message: "Ticket validated and used successfully", Ticket: fresh}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackValidation(result.Valid, "")
	if result.Valid {
		slog.Info("ticket used", "ticket_id", result.Ticket.ID, "route_id", routeID, "usage_count", result.Ticket.UsageCount)
	}
	return result, nil
}

// CancelTicket cancels a single unused ticket ahead of the cancellation
// cutoff.
func (s *TicketService) CancelTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		ticket, err = tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		if !ticket.CanBeCancelled() {
			return fmt.Errorf("%w: ticket cannot be cancelled, it may have been used or the cancellation period has expired",
				status.ErrInvalidState)
		}
		if err := ticket.Cancel(); err != nil {
			return fmt.Errorf("%w: %s", status.ErrInvalidState, err)
		}
		return tx.SaveTicket(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ticket cancelled", "ticket_id", ticketID)
	return ticket, nil
}

// ExpireOldTickets flips every ACTIVE ticket past its validity window to
// EXPIRED. Idempotent and safe to run concurrently with validation.
func (s *TicketService) ExpireOldTickets(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredTickets(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, t := range expired {
		t.Status = models.TicketExpired
		if err := s.store.SaveTicket(ctx, t); err != nil {
			return 0, err
		}
	}

	if len(expired) > 0 {
		monitoring.TrackSweep("expired_tickets", len(expired))
		slog.Info("expired tickets", "count", len(expired))
	}
	return len(expired), nil
}

// TicketQRImage renders the ticket's code as a PNG.
func (s *TicketService) TicketQRImage(ctx context.Context, ticketID string) ([]byte, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return utils.RenderCodeImage(ticket.QRCode)
}

func (s *TicketService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

func (s *TicketService) GetTicketByQR(ctx context.Context, qrCode string) (*models.Ticket, error) {
	return s.store.GetTicketByQR(ctx, qrCode)
}

func (s *TicketService) ListTicketsByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	return s.store.ListTicketsByUser(ctx, userID)
}

func (s *TicketService) ListActiveTicketsByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	return s.store.ListActiveTicketsByUser(ctx, userID, time.Now())
}

// invalidTicketMessage explains a failed validity check. Status beats
// expiry beats the usage cap.
func invalidTicketMessage(t *models.Ticket) string {
	if t.Status != models.TicketActive {
		return "Ticket is " + strings.ToLower(string(t.Status))
	}
	if !time.Now().Before(t.ValidUntil) {
		return "Ticket has expired"
	}
	if t.UsageCount >= t.MaxUsage {
		return "Ticket has reached maximum usage limit"
	}
	return "Ticket is not valid"
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/utils"
)

// mailSender is the part of *gomail.Dialer the notifier uses.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailNotifier struct {
	sender  mailSender
	from    string
	timeout time.Duration
}

// NewEmailNotifier sends reservation notices over SMTP. With an empty host it
// returns a notifier that drops every message. A send that takes longer than
// timeout is abandoned and reported as failed.
func NewEmailNotifier(host string, port int, username, password, from string, timeout time.Duration) Notifier {
	if host == "" {
		return NoopNotifier{}
	}
	return &emailNotifier{
		sender:  gomail.NewDialer(host, port, username, password),
		from:    from,
		timeout: timeout,
	}
}

func (s *emailNotifier) ReservationCreated(ctx context.Context, r *domain.Reservation) error {
	body := fmt.Sprintf("Hello %s,\n\nYour reservation for %s at %s is confirmed.\nTotal: %s\n\nPlease pay before %s or the reservation will be released.",
		r.Customer.Name, r.Date, utils.FormatSlot(r.Slots[0]), formatCents(r.TotalPriceCents),
		r.PaymentDeadline.Format("2006-01-02 15:04 MST"))
	return s.send(ctx, r, "Reservation confirmed", body)
}

func (s *emailNotifier) ReservationCanceled(ctx context.Context, r *domain.Reservation, refunded bool) error {
	body := fmt.Sprintf("Hello %s,\n\nYour reservation for %s has been canceled.", r.Customer.Name, r.Date)
	if refunded {
		body += fmt.Sprintf("\nA refund of %s will be issued.", formatCents(r.RefundAmountCents))
	} else if r.PaymentStatus == domain.PaymentStatusPaid {
		body += "\nThe cancellation deadline had passed, so no refund applies."
	}
	return s.send(ctx, r, "Reservation canceled", body)
}

func (s *emailNotifier) StormRefundIssued(ctx context.Context, r *domain.Reservation) error {
	body := fmt.Sprintf("Hello %s,\n\nYour reservation for %s was called off due to a storm.\nA refund of %s will be issued.",
		r.Customer.Name, r.Date, formatCents(r.RefundAmountCents))
	return s.send(ctx, r, "Storm refund issued", body)
}

func (s *emailNotifier) ReservationExpired(ctx context.Context, r *domain.Reservation) error {
	body := fmt.Sprintf("Hello %s,\n\nYour reservation for %s was not paid before the deadline and has been released.",
		r.Customer.Name, r.Date)
	return s.send(ctx, r, "Reservation expired", body)
}

func (s *emailNotifier) send(ctx context.Context, r *domain.Reservation, subject, body string) error {
	// Contacts may be phone numbers; only addresses get mail.
	if !strings.Contains(r.Customer.Contact, "@") {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", r.Customer.Contact)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body+"\n\nBest regards,\nThe Beach Rental Team")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.ExternalServiceCall("SMTP", "DialAndSend", "reservation_id", r.ID, "subject", subject)
	// gomail has no context support; a stalled server leaves the goroutine
	// running until its own dial and I/O give up.
	done := make(chan error, 1)
	go func() { done <- s.sender.DialAndSend(m) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	logger.ExternalServiceResult("SMTP", "DialAndSend", err, "reservation_id", r.ID)
	if err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}
	return nil
}

func formatCents(c int32) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

// NoopNotifier discards notifications.
type NoopNotifier struct{}

func (NoopNotifier) ReservationCreated(context.Context, *domain.Reservation) error        { return nil }
func (NoopNotifier) ReservationCanceled(context.Context, *domain.Reservation, bool) error { return nil }
func (NoopNotifier) StormRefundIssued(context.Context, *domain.Reservation) error         { return nil }
func (NoopNotifier) ReservationExpired(context.Context, *domain.Reservation) error        { return nil }

package payments

import (
	"context"
	"fmt"
	"hbs/src/models"
	"hbs/src/store"
	"hbs/src/types"
	"log"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// PaymentEvent is the normalized form of an inbound provider webhook.
type PaymentEvent struct {
	Event         string
	LinkID        string
	Reference     string
	ReservationID uint
	TransactionID string
	Amount        float64
}

// ParsePaymentEvent reads the provider payload. Bold posts
// {event, data: {payment_link, reference, metadata, ...}}; the link id is
// the primary correlation key, the RES- reference the fallback.
func ParsePaymentEvent(raw []byte) (*PaymentEvent, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("payment webhook payload is not valid json")
	}
	body := gjson.ParseBytes(raw)
	event := body.Get("event").String()
	if event == "" {
		event = body.Get("type").String()
	}
	if event == "" {
		return nil, fmt.Errorf("payment webhook payload carries no event type")
	}
	data := body.Get("data")

	parsed := &PaymentEvent{
		Event:         event,
		LinkID:        data.Get("payment_link").String(),
		Reference:     data.Get("reference").String(),
		TransactionID: data.Get("transaction_id").String(),
		Amount:        data.Get("amount.total").Float(),
	}
	if parsed.LinkID == "" {
		parsed.LinkID = data.Get("id").String()
	}
	if id := data.Get("metadata.reservation_id"); id.Exists() {
		parsed.ReservationID = uint(id.Uint())
	} else if strings.HasPrefix(parsed.Reference, "RES-") {
		// reference format is RES-<id>-<timestamp>
		parts := strings.Split(parsed.Reference, "-")
		if len(parts) >= 2 {
			if id, err := strconv.ParseUint(parts[1], 10, 64); err == nil {
				parsed.ReservationID = uint(id)
			}
		}
	}
	return parsed, nil
}

// eventStatuses maps provider event names onto the canonical payment
// state. Events absent here leave the reservation untouched.
var eventStatuses = map[string]types.PaymentStatus{
	"payment.paid":           types.PAYMENT_PAID,
	"payment.completed":      types.PAYMENT_PAID,
	"SALE_APPROVED":          types.PAYMENT_PAID,
	"payment.partially_paid": types.PAYMENT_PARTIALLY_PAID,
	"payment.refunded":       types.PAYMENT_REFUNDED,
	"VOID_APPROVED":          types.PAYMENT_REFUNDED,
	"payment.failed":         types.PAYMENT_FAILED,
	"SALE_REJECTED":          types.PAYMENT_FAILED,
}

// WebhookReconciler correlates inbound payment events to reservations and
// updates payment state. It never errors toward the webhook caller; the
// HTTP handler acknowledges regardless of what happens here.
type WebhookReconciler struct {
	reservations store.Reservations
	enqueue      func(ctx context.Context, reservationID uint, notificationType types.NotificationType)
}

func NewWebhookReconciler(reservations store.Reservations, enqueue func(ctx context.Context, reservationID uint, notificationType types.NotificationType)) *WebhookReconciler {
	return &WebhookReconciler{reservations: reservations, enqueue: enqueue}
}

// HandlePaymentEvent resolves the reservation and applies the status
// mapped from the event. Only payment fields are written. A completed
// payment queues a confirmation notification; the dispatcher's
// idempotency check absorbs redeliveries.
func (w *WebhookReconciler) HandlePaymentEvent(ctx context.Context, event *PaymentEvent) error {
	reservation, err := w.resolve(ctx, event)
	if err != nil {
		return err
	}
	if reservation == nil {
		log.Printf("[PaymentWebhook] no reservation matches link %q reference %q, acknowledging anyway\n", event.LinkID, event.Reference)
		return nil
	}

	status, ok := eventStatuses[event.Event]
	if !ok {
		log.Printf("[PaymentWebhook] ignoring event %q for reservation %d\n", event.Event, reservation.ID)
		return nil
	}
	if reservation.PaymentStatus == status {
		return nil
	}

	if err := w.reservations.Update(ctx, reservation.ID, map[string]any{"payment_status": status}); err != nil {
		return err
	}
	log.Printf("[PaymentWebhook] reservation %d payment status %s -> %s (%s)\n", reservation.ID, reservation.PaymentStatus, status, event.Event)

	if status == types.PAYMENT_PAID && w.enqueue != nil {
		w.enqueue(ctx, reservation.ID, types.NOTIFY_PAYMENT_CONFIRMATION)
	}
	return nil
}

func (w *WebhookReconciler) resolve(ctx context.Context, event *PaymentEvent) (*models.Reservation, error) {
	if event.LinkID != "" {
		reservation, err := w.reservations.FindByPaymentLinkToken(ctx, event.LinkID)
		if err != nil {
			return nil, err
		}
		if reservation != nil {
			return reservation, nil
		}
	}
	if event.ReservationID != 0 {
		return w.reservations.FindByID(ctx, event.ReservationID)
	}
	return nil, nil
}

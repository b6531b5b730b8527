package notify

import (
	"context"
	"errors"
	"fmt"
	"hbs/src/models"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/utils"
	"hbs/src/vault"
	"log"
	"slices"
	"time"
)

// TextSender delivers a plain text message to a phone number.
type TextSender interface {
	Send(ctx context.Context, to, body string) error
}

// MailSender delivers an html email.
type MailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// PaymentLinker lazily provides the payment link used in invitations.
type PaymentLinker interface {
	EnsureLink(ctx context.Context, tenant types.Tenant, reservation *models.Reservation) (string, error)
}

// Result summarizes one dispatch call.
type Result struct {
	Sent    int
	Skipped int
	Failed  int
}

// Dispatcher sends guest notifications. It never retries on its own: a
// failed channel is recorded and re-attempted by whichever later run
// invokes dispatch again, with the success-log check preventing
// duplicate sends.
type Dispatcher struct {
	reservations store.Reservations
	logs         store.NotificationLogs
	vault        *vault.Vault
	links        PaymentLinker
	email        MailSender

	// whatsappFor builds the per-tenant sender; swapped in tests.
	whatsappFor func(settings *types.MessagingSettings, tenant types.Tenant) TextSender
}

func NewDispatcher(s *store.Store, v *vault.Vault, links PaymentLinker, email MailSender) *Dispatcher {
	return &Dispatcher{
		reservations: s.Reservations,
		logs:         s.NotificationLogs,
		vault:        v,
		links:        links,
		email:        email,
		whatsappFor: func(settings *types.MessagingSettings, tenant types.Tenant) TextSender {
			return NewWhatsAppSender(settings, tenant)
		},
	}
}

// Dispatch sends one notification type for one reservation across every
// configured, eligible channel. Exactly one log row is written per
// channel attempt; channels with an existing success row are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, reservationID uint, notificationType types.NotificationType) (*Result, error) {
	reservation, err := d.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, fmt.Errorf("reservation %d not found", reservationID)
	}
	tenant := types.Tenant{OrganizationID: reservation.OrganizationID, BranchID: reservation.BranchID}

	channels := []string{"email"}
	tenantDefault := ""
	if pmsSettings, err := d.vault.ResolvePms(ctx, tenant); err == nil {
		if len(pmsSettings.NotificationChannels) > 0 {
			channels = pmsSettings.NotificationChannels
		}
		tenantDefault = pmsSettings.DefaultLanguage
	}

	language := utils.GuestLanguage(stringOrEmpty(reservation.GuestNationality), stringOrEmpty(reservation.GuestPhone), tenantDefault)
	checkInLink := CheckInLink(reservation, language)

	paymentLink := ""
	if notificationType == types.NOTIFY_INVITATION && d.links != nil {
		paymentLink, err = d.links.EnsureLink(ctx, tenant, reservation)
		if err != nil {
			// invitation still goes out without the payment section
			log.Printf("[Dispatch] payment link unavailable for reservation %d: %s\n", reservation.ID, err.Error())
			paymentLink = ""
		}
	}

	message := d.render(reservation, notificationType, language, checkInLink, paymentLink)

	result := &Result{}
	// whatsapp is preferred when both channels are configured
	if slices.Contains(channels, string(types.CHANNEL_WHATSAPP)) {
		d.dispatchWhatsApp(ctx, reservation, tenant, notificationType, message, checkInLink, paymentLink, result)
	}
	if slices.Contains(channels, string(types.CHANNEL_EMAIL)) {
		d.dispatchEmail(ctx, reservation, notificationType, message, checkInLink, paymentLink, result)
	}

	if result.Sent == 0 && result.Failed == 0 {
		if result.Skipped == 0 {
			log.Printf("[Dispatch] no eligible channel for reservation %d type %s\n", reservation.ID, notificationType)
		}
		return result, nil
	}

	if result.Sent > 0 && notificationType == types.NOTIFY_INVITATION && reservation.InvitationSentAt == nil {
		now := time.Now().UTC()
		if err := d.reservations.Update(ctx, reservation.ID, map[string]any{"invitation_sent_at": now}); err != nil {
			log.Printf("[Dispatch] failed to stamp invitation time on reservation %d: %s\n", reservation.ID, err.Error())
		}
	}
	return result, nil
}

func (d *Dispatcher) render(reservation *models.Reservation, notificationType types.NotificationType, language, checkInLink, paymentLink string) Message {
	switch notificationType {
	case types.NOTIFY_PAYMENT_CONFIRMATION:
		return RenderPaymentConfirmation(reservation.GuestName, language)
	case types.NOTIFY_CHECKIN_CONFIRMATION:
		return RenderCheckInConfirmation(reservation.GuestName, language, stringOrEmpty(reservation.RoomNumber), stringOrEmpty(reservation.RoomDescription))
	default:
		return RenderInvitation(reservation.GuestName, language, checkInLink, paymentLink)
	}
}

func (d *Dispatcher) dispatchWhatsApp(ctx context.Context, reservation *models.Reservation, tenant types.Tenant, notificationType types.NotificationType, message Message, checkInLink, paymentLink string, result *Result) {
	if reservation.GuestPhone == nil || *reservation.GuestPhone == "" {
		result.Skipped++
		return
	}
	settings, err := d.vault.ResolveMessaging(ctx, tenant)
	if err != nil {
		if !errors.Is(err, types.ErrNotConfigured) {
			log.Printf("[Dispatch] messaging settings unavailable for reservation %d: %s\n", reservation.ID, err.Error())
		}
		result.Skipped++
		return
	}
	if !settings.Enabled {
		result.Skipped++
		return
	}

	done, err := d.logs.HasSuccess(ctx, reservation.ID, notificationType, types.CHANNEL_WHATSAPP)
	if err != nil {
		log.Printf("[Dispatch] idempotency check failed for reservation %d: %s\n", reservation.ID, err.Error())
		return
	}
	if done {
		result.Skipped++
		return
	}

	sendErr := d.whatsappFor(settings, tenant).Send(ctx, *reservation.GuestPhone, message.Text)
	d.record(ctx, reservation.ID, notificationType, types.CHANNEL_WHATSAPP, *reservation.GuestPhone, message.Text, checkInLink, paymentLink, sendErr, result)
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, reservation *models.Reservation, notificationType types.NotificationType, message Message, checkInLink, paymentLink string, result *Result) {
	if reservation.GuestEmail == nil || *reservation.GuestEmail == "" {
		result.Skipped++
		return
	}

	done, err := d.logs.HasSuccess(ctx, reservation.ID, notificationType, types.CHANNEL_EMAIL)
	if err != nil {
		log.Printf("[Dispatch] idempotency check failed for reservation %d: %s\n", reservation.ID, err.Error())
		return
	}
	if done {
		result.Skipped++
		return
	}

	sendErr := d.email.Send(ctx, *reservation.GuestEmail, message.Subject, message.Html)
	d.record(ctx, reservation.ID, notificationType, types.CHANNEL_EMAIL, *reservation.GuestEmail, message.Subject, checkInLink, paymentLink, sendErr, result)
}

func (d *Dispatcher) record(ctx context.Context, reservationID uint, notificationType types.NotificationType, channel types.Channel, sentTo, message, checkInLink, paymentLink string, sendErr error, result *Result) {
	entry := &models.ReservationNotificationLog{
		ReservationID:    reservationID,
		NotificationType: notificationType,
		Channel:          channel,
		Success:          sendErr == nil,
		SentTo:           sentTo,
		Message:          &message,
		CheckInLink:      &checkInLink,
	}
	if paymentLink != "" {
		entry.PaymentLink = &paymentLink
	}
	if sendErr != nil {
		errorMessage := sendErr.Error()
		entry.ErrorMessage = &errorMessage
		result.Failed++
		log.Printf("[Dispatch] %s send failed for reservation %d: %s\n", channel, reservationID, errorMessage)
	} else {
		result.Sent++
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		log.Printf("[Dispatch] failed to append notification log for reservation %d: %s\n", reservationID, err.Error())
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package notify

import (
	"context"
	"fmt"
	"hbs/src/models"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/utils"
	"hbs/src/vault"
	"log"
	"strings"
)

// ReservationCreator records a reservation first seen through an inbound
// guest message. Implemented by the reconciler.
type ReservationCreator interface {
	CreateFromInboundMessage(ctx context.Context, tenant types.Tenant, guestName, guestPhone string) (*models.Reservation, error)
}

type guestTexts struct {
	paymentPending string
	checkInPending string
	bothPending    string
	noReservation  string
	seeYou         string
}

var guestReplies = map[string]guestTexts{
	"es": {
		paymentPending: "Por favor, realiza el pago:",
		checkInPending: "Realiza el check-in en línea:",
		bothPending:    "Por favor, completa el pago y el check-in antes de tu llegada.",
		noReservation:  "No encontramos una reserva activa para este número. Nuestro equipo te contactará pronto.",
		seeYou:         "¡Te esperamos!",
	},
	"en": {
		paymentPending: "Please make the payment:",
		checkInPending: "Complete the online check-in:",
		bothPending:    "Please complete payment and check-in before your arrival.",
		noReservation:  "We could not find an active reservation for this number. Our team will contact you shortly.",
		seeYou:         "We look forward to seeing you!",
	},
	"de": {
		paymentPending: "Bitte zahle:",
		checkInPending: "Führe den Check-in online durch:",
		bothPending:    "Bitte schließe Zahlung und Check-in vor deiner Ankunft ab.",
		noReservation:  "Wir konnten keine aktive Reservierung für diese Nummer finden. Unser Team meldet sich in Kürze.",
		seeYou:         "Wir freuen uns auf dich!",
	},
}

func guestRepliesFor(language string) guestTexts {
	if t, ok := guestReplies[language]; ok {
		return t
	}
	return guestReplies["es"]
}

// GuestResponder answers inbound guest messages: it identifies the guest
// by phone, replies with the pending payment and check-in links, and
// records a placeholder reservation when no booking matches.
type GuestResponder struct {
	reservations store.Reservations
	vault        *vault.Vault
	links        PaymentLinker
	creator      ReservationCreator

	whatsappFor func(settings *types.MessagingSettings, tenant types.Tenant) TextSender
}

func NewGuestResponder(reservations store.Reservations, v *vault.Vault, links PaymentLinker, creator ReservationCreator) *GuestResponder {
	return &GuestResponder{
		reservations: reservations,
		vault:        v,
		links:        links,
		creator:      creator,
		whatsappFor: func(settings *types.MessagingSettings, tenant types.Tenant) TextSender {
			return NewWhatsAppSender(settings, tenant)
		},
	}
}

// HandleInboundMessage processes one text message from the messaging
// webhook. Runs on a worker, never on the request path.
func (g *GuestResponder) HandleInboundMessage(ctx context.Context, tenant types.Tenant, from, text, profileName string) error {
	settings, err := g.vault.ResolveMessaging(ctx, tenant)
	if err != nil {
		return err
	}
	if !settings.Enabled {
		log.Printf("[Guest] messaging disabled for org %d, dropping inbound message\n", tenant.OrganizationID)
		return nil
	}

	phone := NormalizePhone(from)
	reservation, err := g.reservations.FindByGuestPhone(ctx, tenant.OrganizationID, phone)
	if err != nil {
		return err
	}

	language := utils.GuestLanguage("", phone, "")
	texts := guestRepliesFor(language)
	sender := g.whatsappFor(settings, tenant)

	if reservation == nil {
		if g.creator != nil {
			name := profileName
			if name == "" {
				name = "Guest"
			}
			if _, err := g.creator.CreateFromInboundMessage(ctx, tenant, name, phone); err != nil {
				log.Printf("[Guest] could not record inbound reservation for %s: %s\n", phone, err.Error())
			}
		}
		return sender.Send(ctx, phone, texts.noReservation)
	}

	language = utils.GuestLanguage(stringOrEmpty(reservation.GuestNationality), phone, "")
	texts = guestRepliesFor(language)
	return sender.Send(ctx, phone, g.statusMessage(ctx, tenant, reservation, language, texts))
}

// statusMessage mirrors what a guest needs before arrival: greeting,
// outstanding payment link, outstanding check-in link, booking code.
func (g *GuestResponder) statusMessage(ctx context.Context, tenant types.Tenant, reservation *models.Reservation, language string, texts guestTexts) string {
	t := templatesFor(language)
	var b strings.Builder
	fmt.Fprintf(&b, t.greeting+"\n\n", reservation.GuestName)

	needsPayment := reservation.PaymentStatus != types.PAYMENT_PAID
	needsCheckIn := !reservation.OnlineCheckInCompleted

	if needsPayment && g.links != nil {
		link, err := g.links.EnsureLink(ctx, tenant, reservation)
		if err != nil {
			log.Printf("[Guest] payment link unavailable for reservation %d: %s\n", reservation.ID, err.Error())
		} else if link != "" {
			b.WriteString(texts.paymentPending + "\n" + link + "\n\n")
		}
	}
	if needsCheckIn {
		b.WriteString(texts.checkInPending + "\n" + CheckInLink(reservation, language) + "\n\n")
	}
	if needsPayment && needsCheckIn {
		b.WriteString(texts.bothPending + "\n\n")
	}
	b.WriteString(texts.seeYou)
	return b.String()
}

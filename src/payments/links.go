package payments

import (
	"context"
	"errors"
	"hbs/src/models"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/vault"
	"log"
)

// defaultAmountCOP is used when the tenant settings carry no amount.
// TODO: pull the actual outstanding balance from the PMS v2 payment
// endpoints instead of a flat prepayment amount.
const defaultAmountCOP = 100000

// LinkService hands out the payment link for a reservation, creating one
// through the tenant's provider on first use and persisting it.
type LinkService struct {
	reservations store.Reservations
	vault        *vault.Vault
	forSettings  func(settings *types.PaymentSettings, tenant types.Tenant) (Provider, error)
}

func NewLinkService(reservations store.Reservations, v *vault.Vault) *LinkService {
	return &LinkService{reservations: reservations, vault: v, forSettings: ForSettings}
}

// EnsureLink returns the stored link when present. Otherwise it creates
// one and writes it back onto the reservation. A tenant without payment
// settings yields an empty link, not an error: invitations still go out,
// just without the payment section.
func (s *LinkService) EnsureLink(ctx context.Context, tenant types.Tenant, reservation *models.Reservation) (string, error) {
	if reservation.PaymentLink != nil && *reservation.PaymentLink != "" {
		return *reservation.PaymentLink, nil
	}
	if reservation.PaymentStatus == types.PAYMENT_PAID {
		return "", nil
	}

	settings, err := s.vault.ResolvePayment(ctx, tenant)
	if err != nil {
		if errors.Is(err, types.ErrNotConfigured) {
			return "", nil
		}
		return "", err
	}
	provider, err := s.forSettings(settings, tenant)
	if err != nil {
		return "", err
	}

	amount := float64(defaultAmountCOP)
	currency := settings.Currency
	link, err := provider.CreatePaymentLink(ctx, reservation, amount, currency, "")
	if err != nil {
		return "", err
	}
	if err := s.reservations.Update(ctx, reservation.ID, map[string]any{"payment_link": link.URL}); err != nil {
		log.Printf("[Payments] created link %s but failed to persist it on reservation %d: %s\n", link.LinkID, reservation.ID, err.Error())
		return link.URL, err
	}
	reservation.PaymentLink = &link.URL
	return link.URL, nil
}

package payments

import (
	"context"
	"fmt"
	"hbs/src/models"
	"hbs/src/types"
)

// LinkResult is what a provider hands back after creating a payment link.
// LinkID is the token later matched against webhook events.
type LinkResult struct {
	URL    string
	LinkID string
}

// LinkStatus is the provider-side state of a payment link.
type LinkStatus struct {
	LinkID        string
	Status        types.PaymentStatus
	Amount        float64
	Currency      string
	TransactionID string
}

// Provider creates hosted payment links and answers status queries.
type Provider interface {
	CreatePaymentLink(ctx context.Context, reservation *models.Reservation, amount float64, currency, description string) (*LinkResult, error)
	GetPaymentStatus(ctx context.Context, linkID string) (*LinkStatus, error)
}

// ForSettings picks the provider implementation from resolved tenant
// settings. Bold is the default when the settings carry no provider tag,
// matching how existing tenants are configured.
func ForSettings(settings *types.PaymentSettings, tenant types.Tenant) (Provider, error) {
	switch settings.Provider {
	case "", "bold", "boldPayment":
		return NewBoldClient(settings, tenant), nil
	case "stripe":
		return NewStripeProvider(settings, tenant), nil
	}
	return nil, fmt.Errorf("unsupported payment provider %q", settings.Provider)
}

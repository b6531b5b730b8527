package payments

import (
	"context"
	"fmt"
	"hbs/src/models"
	"hbs/src/types"
	"log"

	"github.com/stripe/stripe-go/v82"
)

// StripeProvider creates hosted checkout sessions for tenants whose
// settings select stripe instead of Bold. The session id doubles as the
// link token for webhook correlation.
type StripeProvider struct {
	client *stripe.Client
	tenant types.Tenant
}

func NewStripeProvider(settings *types.PaymentSettings, tenant types.Tenant) *StripeProvider {
	return &StripeProvider{
		client: stripe.NewClient(settings.ApiKey),
		tenant: tenant,
	}
}

func (p *StripeProvider) CreatePaymentLink(ctx context.Context, reservation *models.Reservation, amount float64, currency, description string) (*LinkResult, error) {
	if currency == "" {
		currency = "usd"
	}
	if description == "" {
		description = fmt.Sprintf("Reserva %s", reservation.GuestName)
	}
	metadata := map[string]string{
		"reservation_id": fmt.Sprint(reservation.ID),
	}
	if reservation.ExternalID != nil {
		metadata["external_id"] = *reservation.ExternalID
	}
	params := stripe.CheckoutSessionCreateParams{
		UIMode: stripe.String("hosted"),
		Mode:   stripe.String("payment"),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(amount * 100)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
		Metadata: metadata,
	}
	session, err := p.client.V1CheckoutSessions.Create(ctx, &params)
	if err != nil {
		return nil, &types.IntegrationError{
			Integration: types.INTEGRATION_PAYMENT,
			Tenant:      p.tenant,
			Endpoint:    "checkout.sessions.create",
			Err:         err,
		}
	}
	log.Printf("[Stripe] CheckoutSessionID: %s\n", session.ID)
	return &LinkResult{URL: session.URL, LinkID: session.ID}, nil
}

func (p *StripeProvider) GetPaymentStatus(ctx context.Context, linkID string) (*LinkStatus, error) {
	session, err := p.client.V1CheckoutSessions.Retrieve(ctx, linkID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, &types.IntegrationError{
			Integration: types.INTEGRATION_PAYMENT,
			Tenant:      p.tenant,
			Endpoint:    "checkout.sessions.retrieve",
			Err:         err,
		}
	}
	status := types.PAYMENT_PENDING
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = types.PAYMENT_PAID
	}
	return &LinkStatus{
		LinkID:   linkID,
		Status:   status,
		Amount:   float64(session.AmountTotal) / 100,
		Currency: string(session.Currency),
	}, nil
}

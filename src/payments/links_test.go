package payments

import (
	"context"
	"hbs/src/models"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/vault"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	created int
	result  *LinkResult
	err     error
}

func (s *stubProvider) CreatePaymentLink(context.Context, *models.Reservation, float64, string, string) (*LinkResult, error) {
	s.created++
	return s.result, s.err
}

func (s *stubProvider) GetPaymentStatus(context.Context, string) (*LinkStatus, error) {
	return nil, nil
}

func linkFixture(t *testing.T, provider *stubProvider) (*LinkService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.SeedOrganization(&models.Organization{
		ID: 1,
		Settings: &types.JSONB{
			"boldPayment": map[string]any{"apiKey": "k"},
		},
	})
	s := NewLinkService(mem, vault.New(mem.Ports().Tenants, nil))
	s.forSettings = func(*types.PaymentSettings, types.Tenant) (Provider, error) {
		return provider, nil
	}
	return s, mem
}

func TestEnsureLinkCreatesAndPersists(t *testing.T) {
	provider := &stubProvider{result: &LinkResult{URL: "https://checkout.bold.co/payment/LNK_1", LinkID: "LNK_1"}}
	s, mem := linkFixture(t, provider)

	reservation := &models.Reservation{OrganizationID: 1, GuestName: "Ana"}
	require.NoError(t, mem.Create(context.Background(), reservation))

	link, err := s.EnsureLink(context.Background(), types.Tenant{OrganizationID: 1}, reservation)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.bold.co/payment/LNK_1", link)
	assert.Equal(t, 1, provider.created)

	stored, _ := mem.FindByID(context.Background(), reservation.ID)
	require.NotNil(t, stored.PaymentLink)
	assert.Equal(t, link, *stored.PaymentLink)

	// second call returns the stored link without touching the provider
	again, err := s.EnsureLink(context.Background(), types.Tenant{OrganizationID: 1}, reservation)
	require.NoError(t, err)
	assert.Equal(t, link, again)
	assert.Equal(t, 1, provider.created)
}

func TestEnsureLinkSkipsPaidReservation(t *testing.T) {
	provider := &stubProvider{result: &LinkResult{URL: "u", LinkID: "l"}}
	s, mem := linkFixture(t, provider)

	reservation := &models.Reservation{OrganizationID: 1, PaymentStatus: types.PAYMENT_PAID}
	require.NoError(t, mem.Create(context.Background(), reservation))

	link, err := s.EnsureLink(context.Background(), types.Tenant{OrganizationID: 1}, reservation)
	require.NoError(t, err)
	assert.Empty(t, link)
	assert.Zero(t, provider.created)
}

func TestEnsureLinkUnconfiguredTenantIsNotAnError(t *testing.T) {
	mem := store.NewMemoryStore()
	mem.SeedOrganization(&models.Organization{ID: 2})
	s := NewLinkService(mem, vault.New(mem.Ports().Tenants, nil))

	reservation := &models.Reservation{OrganizationID: 2}
	require.NoError(t, mem.Create(context.Background(), reservation))

	link, err := s.EnsureLink(context.Background(), types.Tenant{OrganizationID: 2}, reservation)
	require.NoError(t, err)
	assert.Empty(t, link)
}

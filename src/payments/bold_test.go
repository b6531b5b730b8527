package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"hbs/src/models"
	"hbs/src/types"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func boldSettings(url string) *types.PaymentSettings {
	return &types.PaymentSettings{
		ApiKey:      "identity-key",
		ApiUrl:      url,
		CallbackUrl: "https://hotel.example.com/gracias",
	}
}

func TestCreatePaymentLink(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/online/link/v1", r.URL.Path)
		assert.Equal(t, "x-api-key identity-key", r.Header.Get("Authorization"))
		captured, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"payload": {"payment_link": "LNK_NEW1", "url": "https://checkout.bold.co/payment/LNK_NEW1"}}`)
	}))
	defer server.Close()

	c := NewBoldClient(boldSettings(server.URL), types.Tenant{OrganizationID: 1})
	reservation := &models.Reservation{ID: 42, GuestName: "Ana Gomez"}

	link, err := c.CreatePaymentLink(context.Background(), reservation, 450000, "", "")
	require.NoError(t, err)
	assert.Equal(t, "LNK_NEW1", link.LinkID)
	assert.Equal(t, "https://checkout.bold.co/payment/LNK_NEW1", link.URL)

	body := gjson.ParseBytes(captured)
	assert.Equal(t, "CLOSE", body.Get("amount_type").String())
	assert.Equal(t, "COP", body.Get("amount.currency").String())
	assert.Equal(t, float64(450000), body.Get("amount.total_amount").Float())
	assert.Equal(t, "Reserva Ana Gomez", body.Get("description").String())
	assert.Equal(t, "https://hotel.example.com/gracias", body.Get("callback_url").String())

	reference := body.Get("reference").String()
	assert.True(t, strings.HasPrefix(reference, "RES-42-"), "reference %q", reference)
	assert.LessOrEqual(t, len(reference), 60)
}

func TestCreatePaymentLinkMerchantIdWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "x-api-key merchant-id", r.Header.Get("Authorization"))
		// plain-http callbacks must be dropped from the payload
		body, _ := io.ReadAll(r.Body)
		assert.False(t, gjson.GetBytes(body, "callback_url").Exists())
		fmt.Fprint(w, `{"payload": {"payment_link": "LNK_2", "url": "https://checkout.bold.co/payment/LNK_2"}}`)
	}))
	defer server.Close()

	settings := &types.PaymentSettings{ApiKey: "fallback", MerchantID: "merchant-id", ApiUrl: server.URL, CallbackUrl: "http://insecure.example.com"}
	c := NewBoldClient(settings, types.Tenant{OrganizationID: 1})

	_, err := c.CreatePaymentLink(context.Background(), &models.Reservation{ID: 1, GuestName: "G"}, 1000, "COP", "Pago reserva")
	require.NoError(t, err)
}

func TestCreatePaymentLinkRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"code": "AMOUNT_TOO_LOW"}]}`)
	}))
	defer server.Close()

	c := NewBoldClient(boldSettings(server.URL), types.Tenant{OrganizationID: 1})
	_, err := c.CreatePaymentLink(context.Background(), &models.Reservation{ID: 1, GuestName: "G"}, 1, "COP", "x")

	var ierr *types.IntegrationError
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Err.Error(), "AMOUNT_TOO_LOW")
}

func TestCreatePaymentLinkHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "invalid identity key"}`)
	}))
	defer server.Close()

	c := NewBoldClient(boldSettings(server.URL), types.Tenant{OrganizationID: 1})
	_, err := c.CreatePaymentLink(context.Background(), &models.Reservation{ID: 1, GuestName: "G"}, 1000, "COP", "x")

	var ierr *types.IntegrationError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, http.StatusForbidden, ierr.StatusCode)
}

func TestGetPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/online/link/v1/LNK_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"status": "PAID", "total": 450000, "transaction_id": "TX-1"})
	}))
	defer server.Close()

	c := NewBoldClient(boldSettings(server.URL), types.Tenant{OrganizationID: 1})
	status, err := c.GetPaymentStatus(context.Background(), "LNK_1")
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PAID, status.Status)
	assert.Equal(t, float64(450000), status.Amount)
	assert.Equal(t, "TX-1", status.TransactionID)
}

func TestMapBoldStatus(t *testing.T) {
	assert.Equal(t, types.PAYMENT_PAID, mapBoldStatus("PAID"))
	assert.Equal(t, types.PAYMENT_FAILED, mapBoldStatus("REJECTED"))
	assert.Equal(t, types.PAYMENT_FAILED, mapBoldStatus("EXPIRED"))
	assert.Equal(t, types.PAYMENT_PENDING, mapBoldStatus("ACTIVE"))
	assert.Equal(t, types.PAYMENT_PENDING, mapBoldStatus("PROCESSING"))
}

func TestForSettings(t *testing.T) {
	bold, err := ForSettings(&types.PaymentSettings{ApiKey: "k"}, types.Tenant{})
	require.NoError(t, err)
	assert.IsType(t, &BoldClient{}, bold)

	stripe, err := ForSettings(&types.PaymentSettings{Provider: "stripe", ApiKey: "sk"}, types.Tenant{})
	require.NoError(t, err)
	assert.IsType(t, &StripeProvider{}, stripe)

	_, err = ForSettings(&types.PaymentSettings{Provider: "paypal"}, types.Tenant{})
	assert.Error(t, err)
}

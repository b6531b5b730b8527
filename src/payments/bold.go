package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hbs/src/models"
	"hbs/src/types"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const boldApiUrl = "https://integrations.api.bold.co"

// BoldClient talks to the Bold "link de pagos" API. Authentication is the
// identity key passed as "x-api-key <key>" in the Authorization header.
type BoldClient struct {
	http       *http.Client
	apiUrl     string
	identity   string
	tenant     types.Tenant
	sandbox    bool
	callbackTo string
}

func NewBoldClient(settings *types.PaymentSettings, tenant types.Tenant) *BoldClient {
	identity := settings.MerchantID
	if identity == "" {
		identity = settings.ApiKey
	}
	apiUrl := settings.ApiUrl
	if apiUrl == "" {
		apiUrl = boldApiUrl
	}
	return &BoldClient{
		http:       &http.Client{Timeout: 30 * time.Second},
		apiUrl:     strings.TrimRight(apiUrl, "/"),
		identity:   identity,
		tenant:     tenant,
		sandbox:    settings.Environment != "production",
		callbackTo: settings.CallbackUrl,
	}
}

type boldAmount struct {
	Currency    string    `json:"currency"`
	TotalAmount float64   `json:"total_amount"`
	Subtotal    float64   `json:"subtotal"`
	Taxes       []float64 `json:"taxes"`
	TipAmount   float64   `json:"tip_amount"`
}

type boldLinkRequest struct {
	AmountType  string     `json:"amount_type"`
	Amount      boldAmount `json:"amount"`
	Reference   string     `json:"reference"`
	Description string     `json:"description"`
	CallbackUrl string     `json:"callback_url,omitempty"`
}

// CreatePaymentLink creates a closed-amount link. The reference carries
// the reservation id plus a timestamp so provider-side duplicates never
// collide; the returned LNK_ id is what webhook correlation matches on.
func (c *BoldClient) CreatePaymentLink(ctx context.Context, reservation *models.Reservation, amount float64, currency, description string) (*LinkResult, error) {
	if currency == "" {
		currency = "COP"
	}
	if description == "" {
		description = fmt.Sprintf("Reserva %s", reservation.GuestName)
	}
	if len(description) > 100 {
		description = description[:100]
	}

	reference := fmt.Sprintf("RES-%d-%d", reservation.ID, time.Now().UnixMilli())
	if len(reference) > 60 {
		reference = reference[:60]
	}

	req := boldLinkRequest{
		AmountType: "CLOSE",
		Amount: boldAmount{
			Currency:    currency,
			TotalAmount: amount,
			Subtotal:    amount,
			Taxes:       []float64{},
		},
		Reference:   reference,
		Description: description,
	}
	// callback must be https; the API rejects plain http
	if strings.HasPrefix(c.callbackTo, "https://") {
		req.CallbackUrl = c.callbackTo
	}

	body, err := c.post(ctx, "/online/link/v1", req)
	if err != nil {
		return nil, err
	}

	payload := gjson.GetBytes(body, "payload")
	url := payload.Get("url").String()
	linkID := payload.Get("payment_link").String()
	if url == "" {
		if errs := gjson.GetBytes(body, "errors"); errs.Exists() && len(errs.Array()) > 0 {
			return nil, &types.IntegrationError{
				Integration: types.INTEGRATION_PAYMENT,
				Tenant:      c.tenant,
				Endpoint:    "/online/link/v1",
				Err:         fmt.Errorf("link creation rejected: %s", errs.Raw),
			}
		}
		return nil, &types.IntegrationError{
			Integration: types.INTEGRATION_PAYMENT,
			Tenant:      c.tenant,
			Endpoint:    "/online/link/v1",
			Err:         fmt.Errorf("response carries no link url"),
		}
	}
	log.Printf("[Bold] created link %s for reservation %d\n", linkID, reservation.ID)
	return &LinkResult{URL: url, LinkID: linkID}, nil
}

// GetPaymentStatus reads GET /online/link/v1/{id}. Bold reports ACTIVE,
// PROCESSING, PAID, REJECTED, CANCELLED or EXPIRED.
func (c *BoldClient) GetPaymentStatus(ctx context.Context, linkID string) (*LinkStatus, error) {
	body, err := c.get(ctx, "/online/link/v1/"+linkID)
	if err != nil {
		return nil, err
	}
	result := gjson.ParseBytes(body)
	return &LinkStatus{
		LinkID:        linkID,
		Status:        mapBoldStatus(result.Get("status").String()),
		Amount:        result.Get("total").Float(),
		Currency:      "COP",
		TransactionID: result.Get("transaction_id").String(),
	}, nil
}

func mapBoldStatus(status string) types.PaymentStatus {
	switch status {
	case "PAID":
		return types.PAYMENT_PAID
	case "REJECTED":
		return types.PAYMENT_FAILED
	case "CANCELLED", "EXPIRED":
		return types.PAYMENT_FAILED
	default:
		return types.PAYMENT_PENDING
	}
}

func (c *BoldClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiUrl+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *BoldClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiUrl+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, path)
}

func (c *BoldClient) do(req *http.Request, path string) ([]byte, error) {
	req.Header.Set("Authorization", fmt.Sprintf("x-api-key %s", c.identity))
	res, err := c.http.Do(req)
	if err != nil {
		return nil, &types.IntegrationError{
			Integration: types.INTEGRATION_PAYMENT,
			Tenant:      c.tenant,
			Endpoint:    path,
			Err:         err,
		}
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		return nil, &types.IntegrationError{
			Integration: types.INTEGRATION_PAYMENT,
			Tenant:      c.tenant,
			Endpoint:    path,
			StatusCode:  res.StatusCode,
			Err:         fmt.Errorf("bold api returned %d: %s", res.StatusCode, truncate(string(body), 200)),
		}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

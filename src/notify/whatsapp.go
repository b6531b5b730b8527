package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hbs/src/types"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const graphApiUrl = "https://graph.facebook.com/v18.0"

// WhatsAppSender sends text messages through the WhatsApp Business
// (Graph) API using the tenant's access token and phone number id.
type WhatsAppSender struct {
	http          *http.Client
	apiUrl        string
	accessToken   string
	phoneNumberID string
	tenant        types.Tenant
}

func NewWhatsAppSender(settings *types.MessagingSettings, tenant types.Tenant) *WhatsAppSender {
	return &WhatsAppSender{
		http:          &http.Client{Timeout: 30 * time.Second},
		apiUrl:        graphApiUrl,
		accessToken:   settings.ApiKey,
		phoneNumberID: settings.PhoneNumberID,
		tenant:        tenant,
	}
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

// Send pushes one text message. The returned error carries the tenant
// and endpoint so dispatch failures can be traced per property.
func (s *WhatsAppSender) Send(ctx context.Context, to, body string) error {
	if s.phoneNumberID == "" {
		return &types.DispatchFailure{Channel: types.CHANNEL_WHATSAPP, Reason: "phone number id not configured"}
	}
	payload := whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               NormalizePhone(to),
		Type:             "text",
		Text:             whatsAppText{Body: body},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/%s/messages", s.apiUrl, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return &types.IntegrationError{
			Integration: types.INTEGRATION_MESSAGING,
			Tenant:      s.tenant,
			Endpoint:    "/messages",
			Err:         err,
		}
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return &types.IntegrationError{
			Integration: types.INTEGRATION_MESSAGING,
			Tenant:      s.tenant,
			Endpoint:    "/messages",
			StatusCode:  res.StatusCode,
			Err:         fmt.Errorf("graph api returned %d: %s", res.StatusCode, truncate(string(resBody), 200)),
		}
	}
	log.Printf("[WhatsApp] sent message to %s via phone number id %s\n", payload.To, s.phoneNumberID)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// NormalizePhone strips spaces and dashes and makes sure the number
// carries a leading +.
func NormalizePhone(phone string) string {
	normalized := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	if normalized != "" && !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	return normalized
}

package types

import "encoding/json"

// Integration names the per-tenant settings sections. The JSON keys match
// the blobs the administrative surface writes.
type Integration string

const (
	INTEGRATION_PMS       Integration = "lobbyPms"
	INTEGRATION_PAYMENT   Integration = "boldPayment"
	INTEGRATION_MESSAGING Integration = "whatsapp"
)

// PmsSettings is the parsed lobbyPms section of a tenant settings blob.
type PmsSettings struct {
	ApiKey               string   `json:"apiKey"`
	ApiUrl               string   `json:"apiUrl,omitempty"`
	PropertyID           string   `json:"propertyId,omitempty"`
	SyncEnabled          bool     `json:"syncEnabled,omitempty"`
	SyncIntervalMinutes  int      `json:"syncIntervalMinutes,omitempty"`
	LateCheckInThreshold string   `json:"lateCheckInThreshold,omitempty"`
	NotificationChannels []string `json:"notificationChannels,omitempty"`
	DefaultLanguage      string   `json:"defaultLanguage,omitempty"`
}

type PaymentSettings struct {
	Provider    string `json:"provider,omitempty"` // "bold" (default) or "stripe"
	ApiKey      string `json:"apiKey"`
	MerchantID  string `json:"merchantId,omitempty"`
	Environment string `json:"environment,omitempty"` // "sandbox" or "production"
	ApiUrl      string `json:"apiUrl,omitempty"`
	CallbackUrl string `json:"callbackUrl,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

type MessagingSettings struct {
	Provider          string `json:"provider,omitempty"`
	ApiKey            string `json:"apiKey"`
	ApiSecret         string `json:"apiSecret,omitempty"`
	PhoneNumberID     string `json:"phoneNumberId,omitempty"`
	BusinessAccountID string `json:"businessAccountId,omitempty"`
	Enabled           bool   `json:"enabled,omitempty"`
}

// secretFields lists, per integration, which settings fields are stored
// encrypted. Everything else in the blob is plaintext configuration.
var secretFields = map[Integration][]string{
	INTEGRATION_PMS:       {"apiKey"},
	INTEGRATION_PAYMENT:   {"apiKey", "merchantId"},
	INTEGRATION_MESSAGING: {"apiKey", "apiSecret"},
}

func SecretFields(integration Integration) []string {
	return secretFields[integration]
}

// Section extracts one integration object from a raw settings blob.
// Returns nil when the section is absent or not an object.
func Section(settings JSONB, integration Integration) JSONB {
	if settings == nil {
		return nil
	}
	raw, ok := settings[string(integration)]
	if !ok {
		return nil
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return JSONB(section)
}

func decodeSection(section JSONB, out any) error {
	b, err := json.Marshal(section)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (s JSONB) AsPmsSettings() (*PmsSettings, error) {
	var out PmsSettings
	if err := decodeSection(s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s JSONB) AsPaymentSettings() (*PaymentSettings, error) {
	var out PaymentSettings
	if err := decodeSection(s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s JSONB) AsMessagingSettings() (*MessagingSettings, error) {
	var out MessagingSettings
	if err := decodeSection(s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

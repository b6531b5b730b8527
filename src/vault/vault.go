package vault

import (
	"context"
	"fmt"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/utils"
	"log"
	"strings"
	"sync"
)

// Vault resolves decrypted integration settings through the tenant
// cascade: branch settings win when they carry the primary credential,
// organization settings are the fallback. It never persists a decrypted
// value.
type Vault struct {
	tenants store.Tenants
	key     []byte
}

func New(tenants store.Tenants, key []byte) *Vault {
	return &Vault{tenants: tenants, key: key}
}

// Resolve returns the decrypted section for one integration, or
// types.ErrNotConfigured when neither branch nor organization carries a
// usable credential.
func (v *Vault) Resolve(ctx context.Context, tenant types.Tenant, integration types.Integration) (types.JSONB, error) {
	if tenant.BranchID != nil {
		branch, err := v.tenants.Branch(ctx, *tenant.BranchID)
		if err != nil {
			return nil, err
		}
		if branch != nil && branch.Settings != nil {
			section := types.Section(*branch.Settings, integration)
			decrypted := v.decryptSection(section, integration)
			if primaryCredential(decrypted) != "" {
				return decrypted, nil
			}
		}
	}

	org, err := v.tenants.Organization(ctx, tenant.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil || org.Settings == nil {
		return nil, types.ErrNotConfigured
	}
	section := types.Section(*org.Settings, integration)
	decrypted := v.decryptSection(section, integration)
	if primaryCredential(decrypted) == "" {
		return nil, types.ErrNotConfigured
	}
	return decrypted, nil
}

func (v *Vault) ResolvePms(ctx context.Context, tenant types.Tenant) (*types.PmsSettings, error) {
	section, err := v.Resolve(ctx, tenant, types.INTEGRATION_PMS)
	if err != nil {
		return nil, err
	}
	settings, err := section.AsPmsSettings()
	if err != nil {
		return nil, err
	}
	settings.ApiUrl = NormalizeApiUrl(settings.ApiUrl)
	return settings, nil
}

func (v *Vault) ResolvePayment(ctx context.Context, tenant types.Tenant) (*types.PaymentSettings, error) {
	section, err := v.Resolve(ctx, tenant, types.INTEGRATION_PAYMENT)
	if err != nil {
		return nil, err
	}
	return section.AsPaymentSettings()
}

func (v *Vault) ResolveMessaging(ctx context.Context, tenant types.Tenant) (*types.MessagingSettings, error) {
	section, err := v.Resolve(ctx, tenant, types.INTEGRATION_MESSAGING)
	if err != nil {
		return nil, err
	}
	return section.AsMessagingSettings()
}

// decryptSection decrypts the secret-bearing fields of one section copy.
// A field that fails to decrypt keeps its stored value; callers detect a
// missing or wrong key by the iv:authTag:ciphertext shape surviving.
func (v *Vault) decryptSection(section types.JSONB, integration types.Integration) types.JSONB {
	if section == nil {
		return nil
	}
	out := make(types.JSONB, len(section))
	for k, val := range section {
		out[k] = val
	}
	for _, field := range types.SecretFields(integration) {
		raw, ok := out[field].(string)
		if !ok || raw == "" {
			continue
		}
		out[field] = utils.DecryptSecret(v.key, raw)
	}
	return out
}

// EncryptSettings seals the secret fields of a full settings blob in
// place, section by section. Used by the administrative update path so
// reads and writes share one field list.
func (v *Vault) EncryptSettings(settings types.JSONB) (types.JSONB, error) {
	if settings == nil {
		return nil, nil
	}
	out := make(types.JSONB, len(settings))
	for k, val := range settings {
		out[k] = val
	}
	for _, integration := range []types.Integration{types.INTEGRATION_PMS, types.INTEGRATION_PAYMENT, types.INTEGRATION_MESSAGING} {
		section := types.Section(out, integration)
		if section == nil {
			continue
		}
		sealed := make(map[string]any, len(section))
		for k, val := range section {
			sealed[k] = val
		}
		for _, field := range types.SecretFields(integration) {
			raw, ok := sealed[field].(string)
			if !ok || raw == "" || utils.LooksEncrypted(raw) {
				continue
			}
			enc, err := utils.EncryptSecret(v.key, raw)
			if err != nil {
				return nil, fmt.Errorf("encrypting %s.%s: %w", integration, field, err)
			}
			sealed[field] = enc
		}
		out[string(integration)] = sealed
	}
	return out, nil
}

// FindBranchByMessagingPhoneID walks every branch settings blob and
// returns the branch whose whatsapp section carries the given phone
// number id. Decryption failures on unrelated branches are skipped.
func (v *Vault) FindBranchByMessagingPhoneID(ctx context.Context, phoneNumberID string) (*uint, uint, error) {
	branches, err := v.tenants.BranchesWithSettings(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, branch := range branches {
		section := types.Section(*branch.Settings, types.INTEGRATION_MESSAGING)
		if section == nil {
			continue
		}
		if id, ok := section["phoneNumberId"].(string); ok && id == phoneNumberID {
			branchID := branch.ID
			return &branchID, branch.OrganizationID, nil
		}
	}
	return nil, 0, nil
}

// FindTenantByMessagingPhoneID resolves the tenant an inbound message
// belongs to: branch settings first, then organization-level settings.
// A zero OrganizationID on the result means no tenant matched.
func (v *Vault) FindTenantByMessagingPhoneID(ctx context.Context, phoneNumberID string) (types.Tenant, error) {
	branchID, orgID, err := v.FindBranchByMessagingPhoneID(ctx, phoneNumberID)
	if err != nil {
		return types.Tenant{}, err
	}
	if orgID != 0 {
		return types.Tenant{OrganizationID: orgID, BranchID: branchID}, nil
	}
	orgs, err := v.tenants.Organizations(ctx)
	if err != nil {
		return types.Tenant{}, err
	}
	for _, org := range orgs {
		if org.Settings == nil {
			continue
		}
		section := types.Section(*org.Settings, types.INTEGRATION_MESSAGING)
		if section == nil {
			continue
		}
		if id, ok := section["phoneNumberId"].(string); ok && id == phoneNumberID {
			return types.Tenant{OrganizationID: org.ID}, nil
		}
	}
	return types.Tenant{}, nil
}

// FindBranchByPropertyID matches a PMS property id to a branch.
func (v *Vault) FindBranchByPropertyID(ctx context.Context, propertyID string) (*uint, uint, error) {
	branches, err := v.tenants.BranchesWithSettings(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, branch := range branches {
		section := types.Section(*branch.Settings, types.INTEGRATION_PMS)
		if section == nil {
			continue
		}
		if id, ok := section["propertyId"].(string); ok && id == propertyID {
			branchID := branch.ID
			return &branchID, branch.OrganizationID, nil
		}
	}
	return nil, 0, nil
}

// NormalizeApiUrl rewrites the dashboard host to the API host and strips
// a trailing /api segment; the per-endpoint paths add it back.
func NormalizeApiUrl(apiUrl string) string {
	if apiUrl == "" {
		return "https://api.lobbypms.com"
	}
	if strings.Contains(apiUrl, "app.lobbypms.com") {
		apiUrl = strings.Replace(apiUrl, "app.lobbypms.com", "api.lobbypms.com", 1)
	}
	apiUrl = strings.TrimSuffix(apiUrl, "/")
	apiUrl = strings.TrimSuffix(apiUrl, "/api")
	return apiUrl
}

// RunCache memoizes vault lookups for the lifetime of one reconciliation
// run. Settings can change between runs, so a cache never outlives one.
type RunCache struct {
	vault *Vault

	mu    sync.Mutex
	pms   map[string]*types.PmsSettings
	debug bool
}

func (v *Vault) NewRunCache() *RunCache {
	return &RunCache{vault: v, pms: make(map[string]*types.PmsSettings)}
}

func (c *RunCache) ResolvePms(ctx context.Context, tenant types.Tenant) (*types.PmsSettings, error) {
	key := cacheKey(tenant)
	c.mu.Lock()
	cached, ok := c.pms[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	settings, err := c.vault.ResolvePms(ctx, tenant)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pms[key] = settings
	c.mu.Unlock()
	if c.debug {
		log.Printf("[Vault] cached pms settings for %s\n", key)
	}
	return settings, nil
}

func cacheKey(tenant types.Tenant) string {
	if tenant.BranchID != nil {
		return fmt.Sprintf("org-%d-branch-%d", tenant.OrganizationID, *tenant.BranchID)
	}
	return fmt.Sprintf("org-%d", tenant.OrganizationID)
}

func primaryCredential(section types.JSONB) string {
	if section == nil {
		return ""
	}
	key, _ := section["apiKey"].(string)
	return key
}

package syncer

import (
	"context"
	"errors"
	"hbs/src/lib"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/vault"
	"log"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSyncIntervalMinutes = 15
	defaultLateThreshold       = "22:00"
	// windowed sync pulls the next week of arrivals
	syncWindowDays = 7
	// nightly invitation pass, tenant-local server time
	invitationHour   = 20
	invitationMinute = 0
)

// Jobs registers the periodic per-tenant work on the process scheduler:
// one reconciliation loop per sync-enabled tenant, a daily catch-up run
// and the nightly late-arrival invitation pass.
type Jobs struct {
	tenants    store.Tenants
	vault      *vault.Vault
	reconciler *Reconciler
	newClient  ClientFactory
	enqueue    Enqueuer
}

func NewJobs(s *store.Store, v *vault.Vault, reconciler *Reconciler, newClient ClientFactory, enqueue Enqueuer) *Jobs {
	if newClient == nil {
		newClient = reconciler.newClient
	}
	return &Jobs{
		tenants:    s.Tenants,
		vault:      v,
		reconciler: reconciler,
		newClient:  newClient,
		enqueue:    enqueue,
	}
}

// Register walks every sync-enabled tenant and creates its jobs. Tenants
// added later need a process restart or an explicit re-register; settings
// changes within the interval are picked up because credentials are
// re-resolved on every run.
func (j *Jobs) Register(ctx context.Context) error {
	tenants, err := j.syncEnabledTenants(ctx)
	if err != nil {
		return err
	}
	for _, tc := range tenants {
		tenant := tc.tenant
		interval := time.Duration(tc.settings.SyncIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = defaultSyncIntervalMinutes * time.Minute
		}
		if _, err := lib.CreateCronJob(func() {
			j.RunWindowSync(context.Background(), tenant)
		}, interval); err != nil {
			log.Printf("[Jobs] failed to schedule sync for %s: %s\n", tenantKey(tenant), err.Error())
			continue
		}
		log.Printf("[Jobs] scheduled sync for %s every %s\n", tenantKey(tenant), interval)
	}

	if _, err := lib.CreateDailyJob(func() {
		j.RunLateCheckInInvitations(context.Background())
	}, invitationHour, invitationMinute); err != nil {
		return err
	}
	if _, err := lib.CreateDailyJob(func() {
		j.RunCatchUpAll(context.Background())
	}, 3, 30); err != nil {
		return err
	}
	return nil
}

type tenantConfig struct {
	tenant   types.Tenant
	settings *types.PmsSettings
}

// syncEnabledTenants resolves every organization and branch whose PMS
// section has syncEnabled set. A branch with its own settings gets its
// own entry; branches without settings ride on the organization job.
func (j *Jobs) syncEnabledTenants(ctx context.Context) ([]tenantConfig, error) {
	var out []tenantConfig

	orgs, err := j.tenants.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	for _, org := range orgs {
		tenant := types.Tenant{OrganizationID: org.ID}
		settings, err := j.vault.ResolvePms(ctx, tenant)
		if err != nil {
			if !errors.Is(err, types.ErrNotConfigured) {
				log.Printf("[Jobs] failed to resolve settings for org %d: %s\n", org.ID, err.Error())
			}
			continue
		}
		if settings.SyncEnabled {
			out = append(out, tenantConfig{tenant: tenant, settings: settings})
		}
	}

	branches, err := j.tenants.BranchesWithSettings(ctx)
	if err != nil {
		return nil, err
	}
	for _, branch := range branches {
		branchID := branch.ID
		tenant := types.Tenant{OrganizationID: branch.OrganizationID, BranchID: &branchID}
		section := types.Section(*branch.Settings, types.INTEGRATION_PMS)
		if section == nil {
			continue
		}
		settings, err := j.vault.ResolvePms(ctx, tenant)
		if err != nil {
			continue
		}
		if settings.SyncEnabled {
			out = append(out, tenantConfig{tenant: tenant, settings: settings})
		}
	}
	return out, nil
}

// RunWindowSync reconciles the upcoming arrival window for one tenant.
func (j *Jobs) RunWindowSync(ctx context.Context, tenant types.Tenant) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	window := types.SyncWindow{
		Start: today,
		End:   today.AddDate(0, 0, syncWindowDays),
	}
	synced, err := j.reconciler.Reconcile(ctx, tenant, window)
	if err != nil && !errors.Is(err, ErrRunInFlight) && !errors.Is(err, types.ErrNotConfigured) {
		log.Printf("[Jobs] window sync for %s failed: %s\n", tenantKey(tenant), err.Error())
		return
	}
	if synced > 0 {
		log.Printf("[Jobs] window sync for %s: %d reservations synced\n", tenantKey(tenant), synced)
	}
}

// RunCatchUpAll reconciles every tenant against a checkout cutoff of
// today, picking up stays that are still in-house but whose arrival
// window has scrolled past.
func (j *Jobs) RunCatchUpAll(ctx context.Context) {
	tenants, err := j.syncEnabledTenants(ctx)
	if err != nil {
		log.Printf("[Jobs] catch-up run could not list tenants: %s\n", err.Error())
		return
	}
	cutoff := time.Now().UTC().Truncate(24 * time.Hour)
	for _, tc := range tenants {
		j.RunCatchUp(ctx, tc.tenant, cutoff)
	}
}

// RunCatchUp reconciles one tenant with a checkout-on-or-after filter.
func (j *Jobs) RunCatchUp(ctx context.Context, tenant types.Tenant, cutoff time.Time) {
	window := types.SyncWindow{CheckoutOnAfter: cutoff}
	synced, err := j.reconciler.Reconcile(ctx, tenant, window)
	if err != nil && !errors.Is(err, ErrRunInFlight) && !errors.Is(err, types.ErrNotConfigured) {
		log.Printf("[Jobs] catch-up for %s failed: %s\n", tenantKey(tenant), err.Error())
		return
	}
	if synced > 0 {
		log.Printf("[Jobs] catch-up for %s: %d reservations synced\n", tenantKey(tenant), synced)
	}
}

// RunLateCheckInInvitations finds tomorrow's arrivals past each tenant's
// late threshold, reconciles them and queues invitations for those not
// yet invited. Runs nightly.
func (j *Jobs) RunLateCheckInInvitations(ctx context.Context) {
	log.Println("[Jobs] starting late check-in invitation run")
	tenants, err := j.syncEnabledTenants(ctx)
	if err != nil {
		log.Printf("[Jobs] invitation run could not list tenants: %s\n", err.Error())
		return
	}
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	for _, tc := range tenants {
		threshold := tc.settings.LateCheckInThreshold
		if !validThreshold(threshold) {
			threshold = defaultLateThreshold
		}
		client := j.newClient(tc.settings, tc.tenant)
		arrivals, err := client.FetchArrivalsForDate(ctx, tomorrow, threshold)
		if err != nil {
			log.Printf("[Jobs] arrival fetch for %s failed: %s\n", tenantKey(tc.tenant), err.Error())
			continue
		}
		log.Printf("[Jobs] %s: %d late arrivals tomorrow after %s\n", tenantKey(tc.tenant), len(arrivals), threshold)
		for i := range arrivals {
			reservation, err := j.reconciler.ReconcileExternal(ctx, tc.tenant, &arrivals[i])
			if err != nil || reservation == nil {
				continue
			}
			if reservation.InvitationSentAt != nil {
				continue
			}
			if j.enqueue != nil {
				j.enqueue(ctx, reservation.ID, types.NOTIFY_INVITATION)
			}
		}
	}
}

// validThreshold accepts HH:MM.
func validThreshold(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return false
	}
	return true
}

package store

import (
	"context"
	"hbs/src/models"
	"hbs/src/types"
)

// Reservations is the canonical-store port the sync and dispatch paths
// depend on. Lookups return (nil, nil) when no row matches.
type Reservations interface {
	FindByExternalID(ctx context.Context, organizationID uint, externalID string) (*models.Reservation, error)
	FindByID(ctx context.Context, id uint) (*models.Reservation, error)
	// FindByPaymentLinkToken matches a payment-link identifier by string
	// containment against the stored paymentLink. Weak coupling, but the
	// link id is the only correlation the provider's webhook carries.
	FindByPaymentLinkToken(ctx context.Context, token string) (*models.Reservation, error)
	FindByGuestPhone(ctx context.Context, organizationID uint, phone string) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	// Update applies a field-level patch. Columns not present in fields
	// are left untouched.
	Update(ctx context.Context, id uint, fields map[string]any) error
}

// SyncLedger appends reservation sync attempts. Rows are never mutated.
type SyncLedger interface {
	Append(ctx context.Context, entry *models.ReservationSyncHistory) error
	ForReservation(ctx context.Context, reservationID uint, limit int) ([]models.ReservationSyncHistory, error)
}

// NotificationLogs records dispatch attempts and answers the idempotency
// check.
type NotificationLogs interface {
	HasSuccess(ctx context.Context, reservationID uint, notificationType types.NotificationType, channel types.Channel) (bool, error)
	Append(ctx context.Context, entry *models.ReservationNotificationLog) error
}

// Tenants reads organizations and branches with their settings blobs.
type Tenants interface {
	Organization(ctx context.Context, id uint) (*models.Organization, error)
	Branch(ctx context.Context, id uint) (*models.Branch, error)
	// BranchesWithSettings returns every branch carrying a settings blob.
	// Callers that need to match on an encrypted field decrypt per branch.
	BranchesWithSettings(ctx context.Context) ([]models.Branch, error)
	Organizations(ctx context.Context) ([]models.Organization, error)
}

// Store bundles the ports for wiring in boot.
type Store struct {
	Reservations     Reservations
	Ledger           SyncLedger
	NotificationLogs NotificationLogs
	Tenants          Tenants
}

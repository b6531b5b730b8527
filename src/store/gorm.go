package store

import (
	"context"
	"errors"
	"fmt"
	"hbs/src/models"
	"hbs/src/types"

	"gorm.io/gorm"
)

// GormStore implements every port on a single gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *Store {
	g := &GormStore{db: db}
	return &Store{
		Reservations:     g,
		Ledger:           &gormLedger{db: db},
		NotificationLogs: &gormNotificationLogs{db: db},
		Tenants:          g,
	}
}

type gormLedger struct {
	db *gorm.DB
}

type gormNotificationLogs struct {
	db *gorm.DB
}

func (g *GormStore) FindByExternalID(ctx context.Context, organizationID uint, externalID string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := g.db.WithContext(ctx).
		Where("organization_id = ? AND external_id = ?", organizationID, externalID).
		First(&reservation).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (g *GormStore) FindByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := g.db.WithContext(ctx).
		Where(&models.Reservation{ID: id}).
		First(&reservation).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (g *GormStore) FindByPaymentLinkToken(ctx context.Context, token string) (*models.Reservation, error) {
	if token == "" {
		return nil, nil
	}
	var reservation models.Reservation
	err := g.db.WithContext(ctx).
		Where("payment_link LIKE ?", fmt.Sprintf("%%%s%%", token)).
		First(&reservation).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (g *GormStore) FindByGuestPhone(ctx context.Context, organizationID uint, phone string) (*models.Reservation, error) {
	if phone == "" {
		return nil, nil
	}
	var reservation models.Reservation
	err := g.db.WithContext(ctx).
		Where("organization_id = ? AND guest_phone = ?", organizationID, phone).
		Order("check_in_date DESC").
		First(&reservation).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (g *GormStore) Create(ctx context.Context, reservation *models.Reservation) error {
	return g.db.WithContext(ctx).Create(reservation).Error
}

func (g *GormStore) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		Updates(fields).
		Error
}

func (g *gormLedger) Append(ctx context.Context, entry *models.ReservationSyncHistory) error {
	return g.db.WithContext(ctx).Create(entry).Error
}

func (g *gormLedger) ForReservation(ctx context.Context, reservationID uint, limit int) ([]models.ReservationSyncHistory, error) {
	var entries []models.ReservationSyncHistory
	q := g.db.WithContext(ctx).
		Where(&models.ReservationSyncHistory{ReservationID: reservationID}).
		Order("synced_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

func (g *gormNotificationLogs) HasSuccess(ctx context.Context, reservationID uint, notificationType types.NotificationType, channel types.Channel) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.ReservationNotificationLog{}).
		Where("reservation_id = ? AND notification_type = ? AND channel = ? AND success = ?",
			reservationID, notificationType, channel, true).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (g *gormNotificationLogs) Append(ctx context.Context, entry *models.ReservationNotificationLog) error {
	return g.db.WithContext(ctx).Create(entry).Error
}

func (g *GormStore) Organization(ctx context.Context, id uint) (*models.Organization, error) {
	var organization models.Organization
	err := g.db.WithContext(ctx).
		Where(&models.Organization{ID: id}).
		First(&organization).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &organization, nil
}

func (g *GormStore) Branch(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	err := g.db.WithContext(ctx).
		Where(&models.Branch{ID: id}).
		First(&branch).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (g *GormStore) BranchesWithSettings(ctx context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	err := g.db.WithContext(ctx).
		Where("settings IS NOT NULL").
		Order("id ASC").
		Find(&branches).
		Error
	return branches, err
}

func (g *GormStore) Organizations(ctx context.Context) ([]models.Organization, error) {
	var organizations []models.Organization
	err := g.db.WithContext(ctx).
		Order("id ASC").
		Find(&organizations).
		Error
	return organizations, err
}

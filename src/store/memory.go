package store

import (
	"context"
	"hbs/src/models"
	"hbs/src/types"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of every port, used by tests
// and as a scratch backend when no database is wired.
type MemoryStore struct {
	mu sync.RWMutex

	reservations  map[uint]*models.Reservation
	ledger        []models.ReservationSyncHistory
	notifications []models.ReservationNotificationLog
	organizations map[uint]*models.Organization
	branches      map[uint]*models.Branch

	nextReservationID uint
	nextLedgerID      uint
	nextLogID         uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations:      make(map[uint]*models.Reservation),
		organizations:     make(map[uint]*models.Organization),
		branches:          make(map[uint]*models.Branch),
		nextReservationID: 1,
		nextLedgerID:      1,
		nextLogID:         1,
	}
}

// Ports returns the MemoryStore wrapped as the port bundle.
func (m *MemoryStore) Ports() *Store {
	return &Store{
		Reservations:     m,
		Ledger:           (*memoryLedger)(m),
		NotificationLogs: (*memoryNotificationLogs)(m),
		Tenants:          m,
	}
}

func (m *MemoryStore) SeedOrganization(org *models.Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizations[org.ID] = org
}

func (m *MemoryStore) SeedBranch(branch *models.Branch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches[branch.ID] = branch
}

func cloneReservation(r *models.Reservation) *models.Reservation {
	clone := *r
	return &clone
}

func (m *MemoryStore) FindByExternalID(_ context.Context, organizationID uint, externalID string) (*models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reservations {
		if r.OrganizationID == organizationID && r.ExternalID != nil && *r.ExternalID == externalID {
			return cloneReservation(r), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindByID(_ context.Context, id uint) (*models.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	return cloneReservation(r), nil
}

func (m *MemoryStore) FindByPaymentLinkToken(_ context.Context, token string) (*models.Reservation, error) {
	if token == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reservations {
		if r.PaymentLink != nil && strings.Contains(*r.PaymentLink, token) {
			return cloneReservation(r), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindByGuestPhone(_ context.Context, organizationID uint, phone string) (*models.Reservation, error) {
	if phone == "" {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.Reservation
	for _, r := range m.reservations {
		if r.OrganizationID != organizationID || r.GuestPhone == nil || *r.GuestPhone != phone {
			continue
		}
		if latest == nil || r.CheckInDate.After(latest.CheckInDate) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneReservation(latest), nil
}

func (m *MemoryStore) Create(_ context.Context, reservation *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reservation.ID == 0 {
		reservation.ID = m.nextReservationID
		m.nextReservationID++
	}
	reservation.CreatedAt = time.Now()
	reservation.UpdatedAt = reservation.CreatedAt
	m.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil
	}
	for column, value := range fields {
		applyReservationField(r, column, value)
	}
	r.UpdatedAt = time.Now()
	return nil
}

func applyReservationField(r *models.Reservation, column string, value any) {
	switch column {
	case "guest_name":
		r.GuestName, _ = value.(string)
	case "guest_email":
		r.GuestEmail = asStringPtr(value)
	case "guest_phone":
		r.GuestPhone = asStringPtr(value)
	case "guest_nationality":
		r.GuestNationality = asStringPtr(value)
	case "check_in_date":
		if t, ok := value.(time.Time); ok {
			r.CheckInDate = t
		}
	case "check_out_date":
		if t, ok := value.(time.Time); ok {
			r.CheckOutDate = t
		}
	case "arrival_time":
		if t, ok := value.(*time.Time); ok {
			r.ArrivalTime = t
		} else if t, ok := value.(time.Time); ok {
			r.ArrivalTime = &t
		}
	case "room_number":
		r.RoomNumber = asStringPtr(value)
	case "room_description":
		r.RoomDescription = asStringPtr(value)
	case "status":
		if s, ok := value.(types.ReservationStatus); ok {
			r.Status = s
		}
	case "payment_status":
		if s, ok := value.(types.PaymentStatus); ok {
			r.PaymentStatus = s
		}
	case "payment_link":
		r.PaymentLink = asStringPtr(value)
	case "online_check_in_completed":
		r.OnlineCheckInCompleted, _ = value.(bool)
	case "online_check_in_completed_at":
		if t, ok := value.(time.Time); ok {
			r.OnlineCheckInCompletedAt = &t
		}
	case "invitation_sent_at":
		if t, ok := value.(time.Time); ok {
			r.InvitationSentAt = &t
		}
	}
}

func asStringPtr(value any) *string {
	switch v := value.(type) {
	case string:
		return &v
	case *string:
		return v
	}
	return nil
}

type memoryLedger MemoryStore

func (m *memoryLedger) Append(_ context.Context, entry *models.ReservationSyncHistory) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextLedgerID
	s.nextLedgerID++
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now()
	}
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (m *memoryLedger) ForReservation(_ context.Context, reservationID uint, limit int) ([]models.ReservationSyncHistory, error) {
	s := (*MemoryStore)(m)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ReservationSyncHistory
	for _, entry := range s.ledger {
		if entry.ReservationID == reservationID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SyncedAt.After(out[j].SyncedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LedgerEntries exposes the full ledger for test assertions.
func (m *MemoryStore) LedgerEntries() []models.ReservationSyncHistory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ReservationSyncHistory, len(m.ledger))
	copy(out, m.ledger)
	return out
}

type memoryNotificationLogs MemoryStore

func (m *memoryNotificationLogs) HasSuccess(_ context.Context, reservationID uint, notificationType types.NotificationType, channel types.Channel) (bool, error) {
	s := (*MemoryStore)(m)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.notifications {
		if entry.ReservationID == reservationID &&
			entry.NotificationType == notificationType &&
			entry.Channel == channel &&
			entry.Success {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryNotificationLogs) Append(_ context.Context, entry *models.ReservationNotificationLog) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextLogID
	s.nextLogID++
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	s.notifications = append(s.notifications, *entry)
	return nil
}

// NotificationEntries exposes the notification log for test assertions.
func (m *MemoryStore) NotificationEntries() []models.ReservationNotificationLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ReservationNotificationLog, len(m.notifications))
	copy(out, m.notifications)
	return out
}

func (m *MemoryStore) Organization(_ context.Context, id uint) (*models.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, nil
	}
	clone := *org
	return &clone, nil
}

func (m *MemoryStore) Branch(_ context.Context, id uint) (*models.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	branch, ok := m.branches[id]
	if !ok {
		return nil, nil
	}
	clone := *branch
	return &clone, nil
}

func (m *MemoryStore) BranchesWithSettings(_ context.Context) ([]models.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Branch
	for _, branch := range m.branches {
		if branch.Settings != nil {
			out = append(out, *branch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Organizations(_ context.Context) ([]models.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Organization
	for _, org := range m.organizations {
		out = append(out, *org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

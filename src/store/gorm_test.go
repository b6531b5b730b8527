package store

import (
	"context"
	"hbs/src/models"
	"hbs/src/types"
	"log"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{ConnPool: sqlDB})
	require.NoError(t, err)
	return NewGormStore(gormDB), mock
}

func TestFindByExternalIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WithArgs(uint(1), "500", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	reservation, err := s.Reservations.FindByExternalID(context.Background(), 1, "500")
	require.NoError(t, err)
	assert.Nil(t, reservation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByExternalIDFound(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "external_id", "organization_id", "guest_name", "status", "payment_status"}).
		AddRow(9, "500", 1, "Ana Gomez", "confirmed", "pending")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WithArgs(uint(1), "500", 1).
		WillReturnRows(rows)

	reservation, err := s.Reservations.FindByExternalID(context.Background(), 1, "500")
	require.NoError(t, err)
	require.NotNil(t, reservation)
	assert.Equal(t, uint(9), reservation.ID)
	assert.Equal(t, types.RESERVATION_CONFIRMED, reservation.Status)
}

func TestFindByPaymentLinkTokenUsesContainment(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "payment_link"}).
		AddRow(3, "https://checkout.bold.co/payment/LNK_ABC")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations" WHERE payment_link LIKE`)).
		WithArgs("%LNK_ABC%", 1).
		WillReturnRows(rows)

	reservation, err := s.Reservations.FindByPaymentLinkToken(context.Background(), "LNK_ABC")
	require.NoError(t, err)
	require.NotNil(t, reservation)
	assert.Equal(t, uint(3), reservation.ID)

	// empty token short-circuits without a query
	reservation, err = s.Reservations.FindByPaymentLinkToken(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, reservation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAppliesPatchOnly(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reservations" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Reservations.Update(context.Background(), 9, map[string]any{"payment_status": types.PAYMENT_PAID})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	// empty patch is a no-op
	require.NoError(t, s.Reservations.Update(context.Background(), 9, nil))
}

func TestHasSuccessCountsSuccessfulRowsOnly(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "reservation_notification_logs"`)).
		WithArgs(uint(9), "invitation", "whatsapp", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	done, err := s.NotificationLogs.HasSuccess(context.Background(), 9, types.NOTIFY_INVITATION, types.CHANNEL_WHATSAPP)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestLedgerForReservationOrdersByTime(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "reservation_id", "sync_type", "synced_at"}).
		AddRow(2, 9, "updated", now).
		AddRow(1, 9, "created", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservation_sync_histories"`)).
		WithArgs(uint(9), 50).
		WillReturnRows(rows)

	entries, err := s.Ledger.ForReservation(context.Background(), 9, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, types.SYNC_UPDATED, entries[0].SyncType)
}

func TestBranchesWithSettingsFiltersNulls(t *testing.T) {
	s, mock := newMockStore(t)
	settings := []byte(`{"lobbyPms": {"apiKey": "k"}}`)
	rows := sqlmock.NewRows([]string{"id", "organization_id", "settings"}).
		AddRow(10, 1, settings)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "branches" WHERE settings IS NOT NULL`)).
		WillReturnRows(rows)

	branches, err := s.Tenants.BranchesWithSettings(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 1)
	require.NotNil(t, branches[0].Settings)
	section := types.Section(*branches[0].Settings, types.INTEGRATION_PMS)
	assert.Equal(t, "k", section["apiKey"])
}

func TestMemoryStoreMatchesPortSemantics(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()

	reservation := &models.Reservation{OrganizationID: 1, GuestName: "G"}
	require.NoError(t, mem.Create(ctx, reservation))
	require.NotZero(t, reservation.ID)

	found, err := mem.FindByID(ctx, reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	missing, err := mem.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

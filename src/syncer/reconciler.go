package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hbs/src/models"
	"hbs/src/pms"
	"hbs/src/store"
	"hbs/src/types"
	"hbs/src/vault"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientFactory builds a PMS client from resolved tenant settings. The
// indirection keeps the reconciler testable against a local HTTP server.
type ClientFactory func(settings *types.PmsSettings, tenant types.Tenant) *pms.Client

// Enqueuer hands follow-up notification work to the dispatch queue. The
// reconciler never sends inline.
type Enqueuer func(ctx context.Context, reservationID uint, notificationType types.NotificationType)

// Reconciler pulls external reservation state and merges it into the
// canonical store, one ledger row per external record per attempt.
type Reconciler struct {
	reservations store.Reservations
	ledger       store.SyncLedger
	vault        *vault.Vault
	newClient    ClientFactory
	enqueue      Enqueuer

	// inflight serializes runs per tenant: a run that finds a prior run
	// still going is skipped, not queued.
	inflight sync.Map
}

func New(s *store.Store, v *vault.Vault, newClient ClientFactory, enqueue Enqueuer) *Reconciler {
	if newClient == nil {
		newClient = pms.NewClient
	}
	return &Reconciler{
		reservations: s.Reservations,
		ledger:       s.Ledger,
		vault:        v,
		newClient:    newClient,
		enqueue:      enqueue,
	}
}

// ErrRunInFlight reports that a reconciliation for the same tenant was
// already running and this one was skipped.
var ErrRunInFlight = errors.New("reconciliation already in flight for tenant")

func tenantKey(tenant types.Tenant) string {
	if tenant.BranchID != nil {
		return fmt.Sprintf("org-%d-branch-%d", tenant.OrganizationID, *tenant.BranchID)
	}
	return fmt.Sprintf("org-%d", tenant.OrganizationID)
}

// Reconcile fetches the window and upserts every record. Returns the
// count of created+updated reservations. Per-record failures are written
// to the ledger and never abort the batch; only configuration failures
// for the whole tenant stop the run early.
func (r *Reconciler) Reconcile(ctx context.Context, tenant types.Tenant, window types.SyncWindow) (int, error) {
	key := tenantKey(tenant)
	if _, loaded := r.inflight.LoadOrStore(key, struct{}{}); loaded {
		log.Printf("[Sync] %s: run already in flight, skipping\n", key)
		return 0, ErrRunInFlight
	}
	defer r.inflight.Delete(key)

	cache := r.vault.NewRunCache()
	settings, err := cache.ResolvePms(ctx, tenant)
	if err != nil {
		if errors.Is(err, types.ErrNotConfigured) {
			log.Printf("[Sync] %s: pms not configured, skipping\n", key)
			return 0, err
		}
		return 0, err
	}

	runID := uuid.NewString()
	client := r.newClient(settings, tenant)
	externals, err := client.ListReservations(ctx, window)
	if err != nil {
		// records already fetched before the failure are still
		// reconciled below; the error is reported after.
		log.Printf("[Sync] %s: list failed after %d records: %s\n", key, len(externals), err.Error())
	}

	synced := 0
	for i := range externals {
		// per-record failures land in the ledger and never abort the batch
		out, _ := r.reconcileOne(ctx, tenant, runID, &externals[i])
		if out == outcomeCreated || out == outcomeUpdated {
			synced++
		}
	}
	return synced, err
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
	outcomeFailed
)

// reconcileOne upserts one external record. A second pass over an
// unchanged record writes nothing at all, not even an "updated" ledger
// row, so the ledger stays meaningful.
func (r *Reconciler) reconcileOne(ctx context.Context, tenant types.Tenant, runID string, ext *pms.ExternalReservation) (outcome, error) {
	existing, err := r.reservations.FindByExternalID(ctx, tenant.OrganizationID, ext.BookingID)
	if err != nil {
		return outcomeFailed, err
	}

	if existing == nil {
		reservation := newFromExternal(tenant, ext)
		if err := r.reservations.Create(ctx, reservation); err != nil {
			r.appendError(ctx, 0, runID, ext, err)
			return outcomeFailed, err
		}
		r.append(ctx, reservation.ID, runID, types.SYNC_CREATED, ext)
		if r.enqueue != nil {
			r.enqueue(ctx, reservation.ID, types.NOTIFY_INVITATION)
		}
		return outcomeCreated, nil
	}

	fields := mergeFields(existing, ext)
	if len(fields) == 0 {
		return outcomeUnchanged, nil
	}
	if err := r.reservations.Update(ctx, existing.ID, fields); err != nil {
		r.appendError(ctx, existing.ID, runID, ext, err)
		return outcomeFailed, err
	}
	r.append(ctx, existing.ID, runID, types.SYNC_UPDATED, ext)
	return outcomeUpdated, nil
}

// ReconcileExternal runs the upsert for one record outside a windowed
// run, e.g. after a direct GetReservation fetch. Used by the operator
// resync endpoint.
func (r *Reconciler) ReconcileExternal(ctx context.Context, tenant types.Tenant, ext *pms.ExternalReservation) (*models.Reservation, error) {
	if _, err := r.reconcileOne(ctx, tenant, uuid.NewString(), ext); err != nil {
		return nil, err
	}
	return r.reservations.FindByExternalID(ctx, tenant.OrganizationID, ext.BookingID)
}

// CreateFromInboundMessage records a reservation first seen through an
// inbound guest message: no external id yet, minimal guest identity, and
// a whatsapp_created ledger row.
func (r *Reconciler) CreateFromInboundMessage(ctx context.Context, tenant types.Tenant, guestName, guestPhone string) (*models.Reservation, error) {
	now := time.Now().UTC()
	reservation := &models.Reservation{
		OrganizationID: tenant.OrganizationID,
		BranchID:       tenant.BranchID,
		GuestName:      guestName,
		GuestPhone:     &guestPhone,
		CheckInDate:    now.Truncate(24 * time.Hour),
		CheckOutDate:   now.Truncate(24 * time.Hour).AddDate(0, 0, 1),
		Status:         types.RESERVATION_CONFIRMED,
		PaymentStatus:  types.PAYMENT_PENDING,
	}
	if err := r.reservations.Create(ctx, reservation); err != nil {
		return nil, err
	}
	entry := &models.ReservationSyncHistory{
		ReservationID: reservation.ID,
		RunID:         uuid.NewString(),
		SyncType:      types.SYNC_WHATSAPP_CREATED,
		SyncData:      &types.JSONB{"guest_phone": guestPhone, "guest_name": guestName},
	}
	if err := r.ledger.Append(ctx, entry); err != nil {
		log.Printf("[Sync] failed to append whatsapp_created ledger row: %s\n", err.Error())
	}
	return reservation, nil
}

func newFromExternal(tenant types.Tenant, ext *pms.ExternalReservation) *models.Reservation {
	reservation := &models.Reservation{
		ExternalID:     &ext.BookingID,
		OrganizationID: tenant.OrganizationID,
		BranchID:       tenant.BranchID,
		GuestName:      ext.GuestName,
		CheckInDate:    ext.CheckInDate,
		CheckOutDate:   ext.CheckOutDate,
		ArrivalTime:    ext.ArrivalTime,
		Status:         ext.Status,
		PaymentStatus:  ext.PaymentStatus,
	}
	if ext.GuestEmail != "" {
		reservation.GuestEmail = &ext.GuestEmail
	}
	if ext.GuestPhone != "" {
		reservation.GuestPhone = &ext.GuestPhone
	}
	if ext.GuestNationality != "" {
		reservation.GuestNationality = &ext.GuestNationality
	}
	if ext.RoomNumber != "" {
		reservation.RoomNumber = &ext.RoomNumber
	}
	if ext.RoomDescription != "" {
		reservation.RoomDescription = &ext.RoomDescription
	}
	return reservation
}

// mergeFields builds the patch for an existing reservation. The external
// system owns dates, status, payment and room fields; guest contact is
// only filled when previously empty; locally-owned fields (online
// check-in state, invitation stamp, payment link) are never touched.
func mergeFields(existing *models.Reservation, ext *pms.ExternalReservation) map[string]any {
	fields := map[string]any{}

	if !existing.CheckInDate.Equal(ext.CheckInDate) {
		fields["check_in_date"] = ext.CheckInDate
	}
	if !existing.CheckOutDate.Equal(ext.CheckOutDate) {
		fields["check_out_date"] = ext.CheckOutDate
	}
	if ext.ArrivalTime != nil && (existing.ArrivalTime == nil || !existing.ArrivalTime.Equal(*ext.ArrivalTime)) {
		fields["arrival_time"] = ext.ArrivalTime
	}
	if existing.Status != ext.Status {
		fields["status"] = ext.Status
	}
	if existing.PaymentStatus != ext.PaymentStatus {
		fields["payment_status"] = ext.PaymentStatus
	}
	if ext.RoomNumber != "" && (existing.RoomNumber == nil || *existing.RoomNumber != ext.RoomNumber) {
		fields["room_number"] = ext.RoomNumber
	}
	if ext.RoomDescription != "" && (existing.RoomDescription == nil || *existing.RoomDescription != ext.RoomDescription) {
		fields["room_description"] = ext.RoomDescription
	}
	if ext.GuestName != "" && ext.GuestName != "Unknown" && existing.GuestName == "" {
		fields["guest_name"] = ext.GuestName
	}
	if ext.GuestEmail != "" && (existing.GuestEmail == nil || *existing.GuestEmail == "") {
		fields["guest_email"] = ext.GuestEmail
	}
	if ext.GuestPhone != "" && (existing.GuestPhone == nil || *existing.GuestPhone == "") {
		fields["guest_phone"] = ext.GuestPhone
	}
	if ext.GuestNationality != "" && (existing.GuestNationality == nil || *existing.GuestNationality == "") {
		fields["guest_nationality"] = ext.GuestNationality
	}
	return fields
}

func (r *Reconciler) append(ctx context.Context, reservationID uint, runID string, syncType types.SyncType, ext *pms.ExternalReservation) {
	entry := &models.ReservationSyncHistory{
		ReservationID: reservationID,
		RunID:         runID,
		SyncType:      syncType,
		SyncData:      snapshot(ext),
	}
	if err := r.ledger.Append(ctx, entry); err != nil {
		log.Printf("[Sync] failed to append %s ledger row for reservation %d: %s\n", syncType, reservationID, err.Error())
	}
}

func (r *Reconciler) appendError(ctx context.Context, reservationID uint, runID string, ext *pms.ExternalReservation, cause error) {
	message := cause.Error()
	entry := &models.ReservationSyncHistory{
		ReservationID: reservationID,
		RunID:         runID,
		SyncType:      types.SYNC_ERROR,
		ErrorMessage:  &message,
		SyncData:      snapshot(ext),
	}
	if err := r.ledger.Append(ctx, entry); err != nil {
		log.Printf("[Sync] failed to append error ledger row: %s\n", err.Error())
	}
}

// snapshot keeps the externally-relevant payload fields with the ledger
// row so a failure can be inspected without re-fetching.
func snapshot(ext *pms.ExternalReservation) *types.JSONB {
	var raw map[string]any
	if err := json.Unmarshal([]byte(ext.Raw), &raw); err != nil {
		raw = map[string]any{"booking_id": ext.BookingID}
	}
	data := types.JSONB(raw)
	return &data
}

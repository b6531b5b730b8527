package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type ReservationStatus string

const (
	RESERVATION_CONFIRMED   ReservationStatus = "confirmed"
	RESERVATION_CHECKED_IN  ReservationStatus = "checked_in"
	RESERVATION_CHECKED_OUT ReservationStatus = "checked_out"
	RESERVATION_CANCELLED   ReservationStatus = "cancelled"
	RESERVATION_NO_SHOW     ReservationStatus = "no_show"
)

type PaymentStatus string

const (
	PAYMENT_PENDING        PaymentStatus = "pending"
	PAYMENT_PAID           PaymentStatus = "paid"
	PAYMENT_PARTIALLY_PAID PaymentStatus = "partially_paid"
	PAYMENT_FAILED         PaymentStatus = "failed"
	PAYMENT_REFUNDED       PaymentStatus = "refunded"
)

type SyncType string

const (
	SYNC_CREATED          SyncType = "created"
	SYNC_UPDATED          SyncType = "updated"
	SYNC_ERROR            SyncType = "error"
	SYNC_WHATSAPP_CREATED SyncType = "whatsapp_created"
)

type NotificationType string

const (
	NOTIFY_INVITATION           NotificationType = "invitation"
	NOTIFY_PAYMENT_CONFIRMATION NotificationType = "payment_confirmation"
	NOTIFY_CHECKIN_CONFIRMATION NotificationType = "checkin_confirmation"
)

type Channel string

const (
	CHANNEL_WHATSAPP Channel = "whatsapp"
	CHANNEL_EMAIL    Channel = "email"
)

// Tenant identifies the settings scope for a run: an organization,
// optionally narrowed to one of its branches.
type Tenant struct {
	OrganizationID uint
	BranchID       *uint
}

// SyncWindow is either an absolute check-in range or a checkout cutoff
// for the catch-up job. Exactly one form is used per call.
type SyncWindow struct {
	Start time.Time
	End   time.Time

	// CheckoutOnAfter, when non-zero, switches the fetch to the
	// checkout-date variant: every reservation with a checkout on or
	// after the cutoff is in scope.
	CheckoutOnAfter time.Time
}

func (w SyncWindow) IsCheckoutCutoff() bool {
	return !w.CheckoutOnAfter.IsZero()
}

type SyncRunRequestBody struct {
	StartDate string `json:"start_date" binding:"required,localdate"`
	EndDate   string `json:"end_date" binding:"required,localdate"`
	BranchID  *uint  `json:"branch_id,omitempty"`
}

type CatchUpRunRequestBody struct {
	CheckoutOnAfter string `json:"checkout_on_after" binding:"required,localdate"`
	BranchID        *uint  `json:"branch_id,omitempty"`
}

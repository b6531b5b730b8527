package models

import (
	"hbs/src/types"
	"time"
)

type Reservation struct {
	ID uint `gorm:"primarykey" json:"id"`

	// ExternalID is the PMS booking id, the idempotency key for the sync
	// path. Null only for manually created records (e.g. from an inbound
	// guest message with no matching booking).
	ExternalID *string `gorm:"uniqueIndex:org_external_id" json:"external_id,omitempty"`

	OrganizationID uint  `gorm:"uniqueIndex:org_external_id" json:"organization_id"`
	BranchID       *uint `gorm:"index" json:"branch_id,omitempty"`

	GuestName        string  `json:"guest_name,omitempty"`
	GuestEmail       *string `json:"guest_email,omitempty"`
	GuestPhone       *string `json:"guest_phone,omitempty"`
	GuestNationality *string `json:"guest_nationality,omitempty"`

	CheckInDate  time.Time  `json:"check_in_date"`
	CheckOutDate time.Time  `json:"check_out_date"`
	ArrivalTime  *time.Time `json:"arrival_time,omitempty"`

	RoomNumber      *string `json:"room_number,omitempty"`
	RoomDescription *string `json:"room_description,omitempty"`

	Status        types.ReservationStatus `gorm:"default:'confirmed'" json:"status,omitempty"`
	PaymentStatus types.PaymentStatus     `gorm:"default:'pending'" json:"payment_status,omitempty"`
	PaymentLink   *string                 `json:"payment_link,omitempty"`

	OnlineCheckInCompleted   bool       `gorm:"default:false" json:"online_check_in_completed,omitempty"`
	OnlineCheckInCompletedAt *time.Time `json:"online_check_in_completed_at,omitempty"`
	InvitationSentAt         *time.Time `json:"invitation_sent_at,omitempty"`

	Organization Organization `json:"-"`

	types.Timestamps
}

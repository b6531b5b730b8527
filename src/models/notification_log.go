package models

import (
	"hbs/src/types"
	"time"
)

// ReservationNotificationLog is append-only: one row per channel attempt.
// A successful row for (reservation, type, channel) is the idempotency
// barrier the dispatcher checks before sending.
type ReservationNotificationLog struct {
	ID               uint                   `gorm:"primarykey" json:"id"`
	ReservationID    uint                   `gorm:"index" json:"reservation_id"`
	NotificationType types.NotificationType `json:"notification_type"`
	Channel          types.Channel          `json:"channel"`
	Success          bool                   `json:"success"`
	SentTo           string                 `json:"sent_to,omitempty"`
	SentAt           time.Time              `gorm:"autoCreateTime" json:"sent_at"`
	ErrorMessage     *string                `json:"error_message,omitempty"`
	Message          *string                `json:"message,omitempty"`
	PaymentLink      *string                `json:"payment_link,omitempty"`
	CheckInLink      *string                `json:"check_in_link,omitempty"`

	Reservation Reservation `json:"-"`
}

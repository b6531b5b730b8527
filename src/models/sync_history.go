package models

import (
	"hbs/src/types"
	"time"
)

// ReservationSyncHistory is append-only: one row per external record per
// sync attempt, including failures. Never mutated or deleted.
type ReservationSyncHistory struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	ReservationID uint           `gorm:"index" json:"reservation_id"`
	RunID         string         `gorm:"index" json:"run_id,omitempty"`
	SyncType      types.SyncType `json:"sync_type"`
	SyncedAt      time.Time      `gorm:"autoCreateTime" json:"synced_at"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	SyncData      *types.JSONB   `gorm:"type:jsonb" json:"sync_data,omitempty"`

	Reservation Reservation `json:"-"`
}

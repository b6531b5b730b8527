package models

import (
	"hbs/src/types"
)

type Branch struct {
	ID             uint         `gorm:"primarykey" json:"id"`
	OrganizationID uint         `gorm:"index" json:"organization_id"`
	Name           string       `json:"name,omitempty"`
	Settings       *types.JSONB `gorm:"type:jsonb" json:"-"`

	Organization Organization `json:"-"`

	types.Timestamps
}

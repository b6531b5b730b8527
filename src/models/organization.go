package models

import (
	"hbs/src/types"
)

type Organization struct {
	ID           uint         `gorm:"primarykey" json:"id"`
	Name         string       `json:"name,omitempty"`
	Country      string       `json:"country,omitempty"`
	ContactEmail string       `json:"email,omitempty"`
	Settings     *types.JSONB `gorm:"type:jsonb" json:"-"`

	Branches []Branch `gorm:"foreignKey:organization_id" json:"-"`

	types.Timestamps
}

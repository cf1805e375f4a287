package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a menu entry. The catalog owns it; orders only read it.
type Item struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	IsAvailable     bool            `gorm:"not null;default:true" json:"is_available"`
	PreparationTime int             `gorm:"not null;default:0" json:"preparation_time"` // minutes
	Options         []ItemOption    `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ItemOption is a named price modifier scoped to one item. Modifiers may be
// negative.
type ItemOption struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	PriceModifier decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price_modifier"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	Discount    decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	Tax         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"tax"`
	Notes       *string         `gorm:"type:text" json:"notes,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	OrderItems  []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
	Payment     *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// OrderItem is the priced snapshot of one line at checkout time.
type OrderItem struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemID    uuid.UUID         `gorm:"type:uuid;not null" json:"item_id"`
	Quantity  int               `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Notes     *string           `gorm:"type:text" json:"notes,omitempty"`
	Options   []OrderItemOption `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE" json:"options"`
}

// LineTotal is (unit price + captured modifiers) × quantity.
func (oi OrderItem) LineTotal() decimal.Decimal {
	per := oi.UnitPrice
	for _, o := range oi.Options {
		per = per.Add(o.PriceModifier)
	}
	return per.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

type OrderItemOption struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderItemID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_item_id"`
	ItemOptionID  uuid.UUID       `gorm:"type:uuid;not null" json:"item_option_id"`
	PriceModifier decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_modifier"`
}

type OrderListResponse struct {
	Orders []Order  `json:"orders"`
	Meta   MetaData `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// NewMetaData builds pagination metadata for a page of results.
func NewMetaData(page, limit int, total int64) MetaData {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return MetaData{
		Page:        page,
		Limit:       limit,
		TotalOrders: total,
		TotalPages:  totalPages,
		HasMore:     int64(page) < totalPages,
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a mutable pre-checkout selection. It is never priced at rest.
type CartItem struct {
	LineID    string      `json:"line_id"`
	ItemID    uuid.UUID   `json:"item_id"`
	Quantity  int         `json:"quantity"`
	Notes     string      `json:"notes,omitempty"`
	OptionIDs []uuid.UUID `json:"option_ids,omitempty"`
	AddedAt   time.Time   `json:"added_at"`
}

type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLineView is a cart line priced against the current catalog.
type CartLineView struct {
	CartItem
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
	Problem   string          `json:"problem,omitempty"`
}

type CartView struct {
	UserID    string          `json:"user_id"`
	Lines     []CartLineView  `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

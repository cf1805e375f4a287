package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OptionRef struct {
	ID uuid.UUID `json:"id" binding:"required"`
}

type OrderLineRequest struct {
	ID       uuid.UUID   `json:"id" binding:"required"`
	Quantity int         `json:"quantity" binding:"required,min=1"`
	Options  []OptionRef `json:"options" binding:"omitempty,dive"`
	Notes    *string     `json:"notes" binding:"omitempty,max=500"`
}

type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" binding:"dive"`
	Notes *string            `json:"notes" binding:"omitempty,max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

type CheckoutRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=1000"`
}

type CreatePaymentRequest struct {
	OrderID       uuid.UUID       `json:"orderId" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" binding:"required"`
	TransactionID *string         `json:"transactionId"`
}

type UpdatePaymentRequest struct {
	Status        PaymentStatus `json:"status" binding:"required"`
	TransactionID *string       `json:"transactionId"`
	PaymentDate   *time.Time    `json:"paymentDate"`
}

type AddCartItemRequest struct {
	ItemID    uuid.UUID   `json:"item_id" binding:"required"`
	Quantity  int         `json:"quantity" binding:"required,min=1"`
	Notes     string      `json:"notes" binding:"max=500"`
	OptionIDs []uuid.UUID `json:"option_ids"`
}

type UpdateCartItemRequest struct {
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Notes    *string `json:"notes" binding:"omitempty,max=500"`
}

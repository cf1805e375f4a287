package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentUpdated     = "payment.updated"
)

type OrderCreatedEvent struct {
	EventType   string          `json:"event_type"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	EventType string      `json:"event_type"`
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Timestamp time.Time   `json:"timestamp"`
}

type PaymentUpdatedEvent struct {
	EventType   string        `json:"event_type"`
	PaymentID   string        `json:"payment_id"`
	OrderID     string        `json:"order_id"`
	UserID      string        `json:"user_id"`
	Status      PaymentStatus `json:"status"`
	OrderStatus OrderStatus   `json:"order_status"`
	Timestamp   time.Time     `json:"timestamp"`
}

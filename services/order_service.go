package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/events"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	awspkg "github.com/nathangtg/coffee-single-tenant-sub000/pkg/aws"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
)

const checkoutIdempotencyTTL = 24 * time.Hour

// errNumberCollision restarts order composition with a fresh number.
var errNumberCollision = errors.New("order number collision")

type OrderService struct {
	store   repository.Store
	carts   repository.CartRepository
	pricer  *PriceCalculator
	numbers *OrderNumberGenerator
	notifier
}

func NewOrderService(
	store repository.Store,
	carts repository.CartRepository,
	pricer *PriceCalculator,
	numbers *OrderNumberGenerator,
	publisher events.Publisher,
	metrics Metrics,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		store:    store,
		carts:    carts,
		pricer:   pricer,
		numbers:  numbers,
		notifier: notifier{publisher: publisher, metrics: metrics, logger: logger},
	}
}

// CreateOrder prices the requested lines and persists the order, its items
// and item options in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, p auth.Principal, req *models.CreateOrderRequest) (*models.Order, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, apperrors.Validation("At least one item is required")
	}

	lines := make([]PriceLineInput, 0, len(req.Items))
	for i, it := range req.Items {
		if it.ID == uuid.Nil {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d]: id is required", i))
		}
		if it.Quantity < 1 {
			return nil, apperrors.Validation(fmt.Sprintf("items[%d]: quantity must be at least 1", i))
		}
		line := PriceLineInput{ItemID: it.ID, Quantity: it.Quantity, Notes: it.Notes}
		for _, o := range it.Options {
			line.OptionIDs = append(line.OptionIDs, o.ID)
		}
		lines = append(lines, line)
	}

	return s.compose(ctx, p.ID, lines, req.Notes)
}

func (s *OrderService) compose(ctx context.Context, userID uuid.UUID, lines []PriceLineInput, notes *string) (*models.Order, error) {
	log := logger.For(ctx, s.logger)
	used := 0

	for {
		var created *models.Order
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			quote, err := s.pricer.Calculate(ctx, tx.Catalog(), lines)
			if err != nil {
				return err
			}

			number, err := s.numbers.Next(ctx, &used, tx.Orders().ExistsByNumber)
			if err != nil {
				return err
			}

			order := buildOrder(userID, number, quote, notes, s.pricer)
			if err := tx.Orders().Create(ctx, order); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return errNumberCollision
				}
				return apperrors.Internal("Failed to create order", err)
			}

			created, err = tx.Orders().FindByID(ctx, order.ID)
			if err != nil {
				return apperrors.Internal("Failed to load order", err)
			}
			return nil
		})

		switch {
		case errors.Is(err, errNumberCollision):
			log.Warn("order number collided on insert, retrying", zap.Int("attempt", used))
			if used >= s.numbers.MaxAttempts() {
				return nil, apperrors.ErrNumberGenerationExhausted
			}
			continue
		case err != nil:
			if apperrors.IsKind(err, apperrors.KindInternal) || !isAppError(err) {
				log.Error("order creation failed", zap.String("user_id", userID.String()), zap.Error(err))
			}
			return nil, asAppError(err, "Failed to create order")
		}

		log.Info("order created",
			zap.String("order_id", created.ID.String()),
			zap.String("order_number", created.OrderNumber),
			zap.String("user_id", userID.String()),
			zap.String("total_amount", created.TotalAmount.StringFixed(2)),
		)
		s.afterCreate(ctx, created)
		return created, nil
	}
}

func buildOrder(userID uuid.UUID, number string, quote *PriceQuote, notes *string, pricer *PriceCalculator) *models.Order {
	tax, total := pricer.Totals(quote.Subtotal)
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		UserID:      userID,
		Status:      models.OrderStatusPending,
		TotalAmount: total,
		Discount:    decimal.Zero,
		Tax:         tax,
		Notes:       notes,
		OrderItems:  make([]models.OrderItem, 0, len(quote.Lines)),
	}
	for _, l := range quote.Lines {
		item := models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Notes:     l.Notes,
			Options:   make([]models.OrderItemOption, 0, len(l.Options)),
		}
		for _, o := range l.Options {
			item.Options = append(item.Options, models.OrderItemOption{
				ID:            uuid.New(),
				OrderItemID:   item.ID,
				ItemOptionID:  o.OptionID,
				PriceModifier: o.PriceModifier,
			})
		}
		order.OrderItems = append(order.OrderItems, item)
	}
	return order
}

func (s *OrderService) afterCreate(ctx context.Context, o *models.Order) {
	s.publish(ctx, events.Event{
		Type: models.EventOrderCreated,
		Key:  o.ID.String(),
		Payload: models.OrderCreatedEvent{
			EventType:   models.EventOrderCreated,
			OrderID:     o.ID.String(),
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID.String(),
			TotalAmount: o.TotalAmount,
			ItemCount:   len(o.OrderItems),
			CreatedAt:   o.CreatedAt,
		},
	})
	s.count(ctx, awspkg.MetricOrdersCreated, map[string]string{"Service": "coffee"})
	s.value(ctx, awspkg.MetricOrderAmount, o.TotalAmount.InexactFloat64(), map[string]string{"Service": "coffee"})
}

// CheckoutCart turns the caller's cart into an order and clears the cart.
// A repeated idempotency key returns the order created the first time.
func (s *OrderService) CheckoutCart(ctx context.Context, p auth.Principal, notes *string, idempotencyKey string) (*models.Order, error) {
	log := logger.For(ctx, s.logger)
	owner := p.ID.String()

	if idempotencyKey != "" {
		prev, err := s.carts.GetIdempotency(ctx, owner+":"+idempotencyKey)
		if err != nil {
			log.Warn("idempotency lookup failed", zap.Error(err))
		} else if prev != "" {
			if id, err := uuid.Parse(prev); err == nil {
				return s.GetOrder(ctx, p, id)
			}
		}
	}

	cart, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		return nil, apperrors.Internal("Failed to read cart", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.Validation("Cart is empty")
	}

	lines := make([]PriceLineInput, 0, len(cart.Items))
	for _, ci := range cart.Items {
		var lineNotes *string
		if ci.Notes != "" {
			n := ci.Notes
			lineNotes = &n
		}
		lines = append(lines, PriceLineInput{ItemID: ci.ItemID, Quantity: ci.Quantity, OptionIDs: ci.OptionIDs, Notes: lineNotes})
	}

	order, err := s.compose(ctx, p.ID, lines, notes)
	if err != nil {
		return nil, err
	}

	if err := s.carts.DeleteCart(ctx, owner); err != nil {
		log.Warn("failed to clear cart after checkout", zap.String("user_id", owner), zap.Error(err))
	}
	if idempotencyKey != "" {
		if err := s.carts.SetIdempotency(ctx, owner+":"+idempotencyKey, order.ID.String(), checkoutIdempotencyTTL); err != nil {
			log.Warn("failed to store idempotency key", zap.Error(err))
		}
	}
	s.count(ctx, awspkg.MetricCartCheckouts, map[string]string{"Service": "coffee"})
	return order, nil
}

// ListOrders returns the caller's orders, or every order for admins.
func (s *OrderService) ListOrders(ctx context.Context, p auth.Principal, page, limit int) (*models.OrderListResponse, error) {
	var owner *uuid.UUID
	if !p.IsAdmin() {
		owner = &p.ID
	}

	orders, total, err := s.store.Orders().List(ctx, owner, page, limit)
	if err != nil {
		logger.For(ctx, s.logger).Error("failed to fetch orders", zap.String("user_id", p.ID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to fetch orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &models.OrderListResponse{Orders: orders, Meta: models.NewMetaData(page, limit, total)}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrOrderNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch order", err)
	}
	if err := auth.Authorize(p, order.UserID, apperrors.ErrOrderNotFound); err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteOrderItem removes one line and its options, then recomputes the
// order totals. Non-admins may only do this while the order is PENDING.
func (s *OrderService) DeleteOrderItem(ctx context.Context, p auth.Principal, itemID uuid.UUID) (*models.Order, error) {
	var updated *models.Order
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		item, err := tx.Orders().FindItem(ctx, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrOrderItemNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to fetch order item", err)
		}

		order, err := tx.Orders().FindByIDForUpdate(ctx, item.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrOrderItemNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to fetch order", err)
		}
		if err := auth.Authorize(p, order.UserID, apperrors.ErrOrderItemNotFound); err != nil {
			return err
		}
		if !p.IsAdmin() && order.Status != models.OrderStatusPending {
			return apperrors.Forbidden("Order items can only be removed while the order is pending")
		}

		// A bound payment was amounted against the current total.
		_, err = tx.Payments().FindByOrderID(ctx, order.ID)
		if err == nil {
			return apperrors.Conflict("Order items cannot be removed once a payment exists")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.Internal("Failed to check order payment", err)
		}

		if err := tx.Orders().DeleteItem(ctx, itemID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.ErrOrderItemNotFound
			}
			return apperrors.Internal("Failed to delete order item", err)
		}

		updated, err = tx.Orders().FindByID(ctx, order.ID)
		if err != nil {
			return apperrors.Internal("Failed to reload order", err)
		}
		subtotal := decimal.Zero
		for _, oi := range updated.OrderItems {
			subtotal = subtotal.Add(oi.LineTotal())
		}
		tax := s.pricer.Tax(subtotal.Round(2))
		total := subtotal.Add(tax).Sub(updated.Discount).Round(2)
		if err := tx.Orders().UpdateTotals(ctx, order.ID, total, tax); err != nil {
			return apperrors.Internal("Failed to update order totals", err)
		}
		updated.TotalAmount = total
		updated.Tax = tax
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Failed to delete order item")
	}

	logger.For(ctx, s.logger).Info("order item deleted",
		zap.String("order_item_id", itemID.String()),
		zap.String("order_id", updated.ID.String()),
		zap.String("total_amount", updated.TotalAmount.StringFixed(2)),
	)
	return updated, nil
}

// UpdateOrderStatus is the staff fulfillment write. Any known status is
// accepted; COMPLETED stamps completed_at. Only admins may move an order out
// of COMPLETED or CANCELLED.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, p auth.Principal, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("Unknown order status %q", status))
	}
	if err := auth.RequireRole(p, auth.RoleAdmin, auth.RoleStaff); err != nil {
		return nil, err
	}

	var (
		from    models.OrderStatus
		updated *models.Order
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrOrderNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to fetch order", err)
		}
		from = order.Status
		if !p.IsAdmin() && from.Terminal() && from != status {
			return apperrors.Forbidden(fmt.Sprintf("Order is %s and can only be changed by an administrator", from))
		}

		if from != status {
			var completedAt *time.Time
			if status == models.OrderStatusCompleted {
				now := time.Now().UTC()
				completedAt = &now
			}
			if err := tx.Orders().UpdateStatus(ctx, orderID, status, completedAt); err != nil {
				return apperrors.Internal("Failed to update order status", err)
			}
		}

		updated, err = tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Internal("Failed to reload order", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Failed to update order status")
	}

	if from != status {
		logger.For(ctx, s.logger).Info("order status changed",
			zap.String("order_id", orderID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(status)),
			zap.String("actor", p.ID.String()),
		)
		s.publish(ctx, events.Event{
			Type: models.EventOrderStatusChanged,
			Key:  orderID.String(),
			Payload: models.OrderStatusChangedEvent{
				EventType: models.EventOrderStatusChanged,
				OrderID:   orderID.String(),
				UserID:    updated.UserID.String(),
				From:      from,
				To:        status,
				Timestamp: time.Now().UTC(),
			},
		})
	}
	return updated, nil
}

func isAppError(err error) bool {
	var appErr *apperrors.Error
	return errors.As(err, &appErr)
}

// asAppError passes application errors through and hides anything else
// behind an internal error with msg.
func asAppError(err error, msg string) error {
	if isAppError(err) {
		return err
	}
	return apperrors.Internal(msg, err)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/events"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	awspkg "github.com/nathangtg/coffee-single-tenant-sub000/pkg/aws"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
)

// errPaymentSettled is returned to the webhook path when a concurrent delivery
// already moved the payment out of PENDING.
var errPaymentSettled = errors.New("payment already settled")

type PaymentService struct {
	store    repository.Store
	gateway  PaymentGateway
	currency string
	notifier
}

// NewPaymentService builds the service. gateway may be nil, in which case
// card payments are recorded without a processor intent.
func NewPaymentService(store repository.Store, gateway PaymentGateway, currency string, publisher events.Publisher, metrics Metrics, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		gateway:  gateway,
		currency: currency,
		notifier: notifier{publisher: publisher, metrics: metrics, logger: logger},
	}
}

// CreatePayment binds a PENDING payment to the order. The order row stays
// locked until commit, so concurrent calls for one order serialize and all
// but the first see PaymentAlreadyExists.
func (s *PaymentService) CreatePayment(ctx context.Context, p auth.Principal, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if req == nil || req.OrderID == uuid.Nil {
		return nil, apperrors.Validation("orderId is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be greater than zero")
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("Unknown payment method %q", req.PaymentMethod))
	}

	var payment *models.Payment
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, req.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrOrderNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to fetch order", err)
		}
		if !auth.CanAccess(p, order.UserID) {
			return apperrors.ErrForbidden
		}

		_, err = tx.Payments().FindByOrderID(ctx, order.ID)
		if err == nil {
			return apperrors.ErrPaymentAlreadyExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.Internal("Failed to check existing payment", err)
		}

		if order.Status == models.OrderStatusCancelled {
			return apperrors.Validation("Cannot pay for a cancelled order")
		}
		if !req.Amount.Round(2).Equal(order.TotalAmount) {
			return apperrors.Validation(fmt.Sprintf("amount must equal the order total %s", order.TotalAmount.StringFixed(2)))
		}

		payment = &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Amount:        order.TotalAmount,
			PaymentMethod: req.PaymentMethod,
			Status:        models.PaymentStatusPending,
			TransactionID: req.TransactionID,
		}

		if req.PaymentMethod == models.PaymentMethodCard && s.gateway != nil {
			intentID, secret, err := s.gateway.CreatePaymentIntent(ctx, order.TotalAmount, s.currency, map[string]string{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
				"payment_id":   payment.ID.String(),
				"user_id":      order.UserID.String(),
			})
			if err != nil {
				return apperrors.New(http.StatusBadGateway, apperrors.KindUpstreamUnavailable, "Payment processor unavailable", err)
			}
			payment.TransactionID = &intentID
			payment.ClientSecret = &secret
		}

		if err := tx.Payments().Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.ErrPaymentAlreadyExists
			}
			return apperrors.Internal("Failed to create payment", err)
		}
		return nil
	})
	if err != nil {
		if !isAppError(err) || apperrors.IsKind(err, apperrors.KindInternal) {
			logger.For(ctx, s.logger).Error("payment creation failed", zap.String("order_id", req.OrderID.String()), zap.Error(err))
		}
		return nil, asAppError(err, "Failed to create payment")
	}

	logger.For(ctx, s.logger).Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.String("method", string(payment.PaymentMethod)),
	)
	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, p auth.Principal, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.store.Payments().FindByID(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch payment", err)
	}
	order, err := s.store.Orders().FindByID(ctx, payment.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch order", err)
	}
	if err := auth.Authorize(p, order.UserID, apperrors.ErrPaymentNotFound); err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePayment applies a status change. Owners may only move PENDING to
// PAID; admins may set any status and the transaction details. A PAID result
// advances a PENDING order to PREPARING in the same transaction.
func (s *PaymentService) UpdatePayment(ctx context.Context, p auth.Principal, paymentID uuid.UUID, req *models.UpdatePaymentRequest) (*models.Payment, error) {
	if req == nil || !req.Status.Valid() {
		return nil, apperrors.Validation("status must be one of PENDING, PAID, FAILED, REFUNDED")
	}
	log := logger.For(ctx, s.logger)

	var (
		payment  *models.Payment
		order    *models.Order
		prev     models.PaymentStatus
		advanced bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Payments().FindByID(ctx, paymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrPaymentNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to fetch payment", err)
		}

		// Lock order then payment; CreatePayment takes the order lock first too.
		order, err = tx.Orders().FindByIDForUpdate(ctx, current.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrPaymentNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to fetch order", err)
		}
		if err := auth.Authorize(p, order.UserID, apperrors.ErrPaymentNotFound); err != nil {
			return err
		}

		payment, err = tx.Payments().FindByIDForUpdate(ctx, paymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrPaymentNotFound
		}
		if err != nil {
			return apperrors.Internal("Failed to lock payment", err)
		}
		prev = payment.Status
		now := time.Now().UTC()

		if p == auth.SystemPrincipal && prev != models.PaymentStatusPending {
			return errPaymentSettled
		}
		if req.Status == models.PaymentStatusPaid && prev != models.PaymentStatusPaid && !payment.Amount.Equal(order.TotalAmount) {
			return apperrors.Conflict(fmt.Sprintf("Payment amount %s no longer matches the order total %s",
				payment.Amount.StringFixed(2), order.TotalAmount.StringFixed(2)))
		}

		if p.IsAdmin() {
			if prev != req.Status && !prev.CanTransitionTo(req.Status) {
				log.Warn("admin payment status override",
					zap.String("payment_id", payment.ID.String()),
					zap.String("from", string(prev)),
					zap.String("to", string(req.Status)),
					zap.String("actor", p.ID.String()),
				)
			}
			if req.TransactionID != nil {
				payment.TransactionID = req.TransactionID
			}
			if req.PaymentDate != nil {
				payment.PaymentDate = req.PaymentDate
			}
			if req.Status == models.PaymentStatusPaid && payment.PaymentDate == nil {
				payment.PaymentDate = &now
			}
		} else {
			if req.TransactionID != nil || req.PaymentDate != nil {
				return apperrors.Forbidden("Only administrators may set transaction details")
			}
			if prev != models.PaymentStatusPending || req.Status != models.PaymentStatusPaid {
				return apperrors.Forbidden("Payments can only be marked PAID while PENDING")
			}
			payment.PaymentDate = &now
		}
		payment.Status = req.Status

		if err := tx.Payments().Update(ctx, payment); err != nil {
			return apperrors.Internal("Failed to update payment", err)
		}

		if payment.Status == models.PaymentStatusPaid && order.Status == models.OrderStatusPending {
			if err := tx.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusPreparing, nil); err != nil {
				return apperrors.Internal("Failed to advance order", err)
			}
			order.Status = models.OrderStatusPreparing
			advanced = true
		}
		return nil
	})
	if errors.Is(err, errPaymentSettled) {
		return nil, err
	}
	if err != nil {
		if !isAppError(err) || apperrors.IsKind(err, apperrors.KindInternal) {
			log.Error("payment update failed", zap.String("payment_id", paymentID.String()), zap.Error(err))
		}
		return nil, asAppError(err, "Failed to update payment")
	}

	log.Info("payment updated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(payment.Status)),
		zap.Bool("order_advanced", advanced),
	)
	s.afterUpdate(ctx, payment, order, prev, advanced)
	return payment, nil
}

func (s *PaymentService) afterUpdate(ctx context.Context, payment *models.Payment, order *models.Order, prev models.PaymentStatus, advanced bool) {
	if prev == payment.Status {
		return
	}
	now := time.Now().UTC()
	s.publish(ctx, events.Event{
		Type: models.EventPaymentUpdated,
		Key:  order.ID.String(),
		Payload: models.PaymentUpdatedEvent{
			EventType:   models.EventPaymentUpdated,
			PaymentID:   payment.ID.String(),
			OrderID:     order.ID.String(),
			UserID:      order.UserID.String(),
			Status:      payment.Status,
			OrderStatus: order.Status,
			Timestamp:   now,
		},
	})
	if advanced {
		s.publish(ctx, events.Event{
			Type: models.EventOrderStatusChanged,
			Key:  order.ID.String(),
			Payload: models.OrderStatusChangedEvent{
				EventType: models.EventOrderStatusChanged,
				OrderID:   order.ID.String(),
				UserID:    order.UserID.String(),
				From:      models.OrderStatusPending,
				To:        models.OrderStatusPreparing,
				Timestamp: now,
			},
		})
	}

	dims := map[string]string{"Method": string(payment.PaymentMethod)}
	switch payment.Status {
	case models.PaymentStatusPaid:
		s.count(ctx, awspkg.MetricPaymentSucceeded, dims)
	case models.PaymentStatusFailed:
		s.count(ctx, awspkg.MetricPaymentFailed, dims)
	}
}

func (s *PaymentService) DeletePayment(ctx context.Context, p auth.Principal, paymentID uuid.UUID) error {
	if err := auth.RequireRole(p, auth.RoleAdmin); err != nil {
		return err
	}
	err := s.store.Payments().Delete(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrPaymentNotFound
	}
	if err != nil {
		return apperrors.Internal("Failed to delete payment", err)
	}
	logger.For(ctx, s.logger).Info("payment deleted", zap.String("payment_id", paymentID.String()), zap.String("actor", p.ID.String()))
	return nil
}

// HandleStripeEvent applies payment_intent outcomes to the payment whose
// transaction id is the intent id. Payments already out of PENDING are left
// alone, so redelivered events are harmless.
func (s *PaymentService) HandleStripeEvent(ctx context.Context, event stripe.Event) error {
	var target models.PaymentStatus
	switch event.Type {
	case "payment_intent.succeeded":
		target = models.PaymentStatusPaid
	case "payment_intent.payment_failed":
		target = models.PaymentStatusFailed
	default:
		s.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		return nil
	}
	if event.Data == nil {
		return apperrors.Validation("webhook event has no data")
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return apperrors.Validation("invalid payment intent payload")
	}

	payment, err := s.store.Payments().FindByTransactionID(ctx, pi.ID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("Payment not found for PaymentIntent", zap.String("payment_intent_id", pi.ID))
		return nil
	}
	if err != nil {
		return apperrors.Internal("Failed to fetch payment", err)
	}
	if payment.Status != models.PaymentStatusPending {
		s.logger.Info("Skipping duplicate payment webhook",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return nil
	}

	_, err = s.UpdatePayment(ctx, auth.SystemPrincipal, payment.ID, &models.UpdatePaymentRequest{Status: target})
	if errors.Is(err, errPaymentSettled) {
		s.logger.Info("Skipping duplicate payment webhook", zap.String("payment_id", payment.ID.String()))
		return nil
	}
	return err
}

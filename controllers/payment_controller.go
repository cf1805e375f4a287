package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

const maxWebhookBodyBytes = 65536

type PaymentController struct {
	payments PaymentService
	webhooks WebhookVerifier
	logger   *zap.Logger
}

// NewPaymentController wires the payment handlers. webhooks may be nil when
// Stripe is not configured.
func NewPaymentController(payments PaymentService, webhooks WebhookVerifier, logger *zap.Logger) *PaymentController {
	return &PaymentController{payments: payments, webhooks: webhooks, logger: logger}
}

// CreatePayment handles POST /payments
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := pc.payments.CreatePayment(c.Request.Context(), p, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /payments/:id
func (pc *PaymentController) GetPayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", apperrors.ErrPaymentNotFound)
	if !ok {
		return
	}

	payment, err := pc.payments.GetPayment(c.Request.Context(), p, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// UpdatePayment handles PUT /payments/:id
func (pc *PaymentController) UpdatePayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", apperrors.ErrPaymentNotFound)
	if !ok {
		return
	}
	var req models.UpdatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := pc.payments.UpdatePayment(c.Request.Context(), p, id, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// DeletePayment handles DELETE /payments/:id
func (pc *PaymentController) DeletePayment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", apperrors.ErrPaymentNotFound)
	if !ok {
		return
	}

	if err := pc.payments.DeletePayment(c.Request.Context(), p, id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}

// StripeWebhook handles POST /stripe/webhook
func (pc *PaymentController) StripeWebhook(c *gin.Context) {
	log := logger.For(c.Request.Context(), pc.logger)
	if pc.webhooks == nil {
		apperrors.Respond(c, apperrors.New(http.StatusServiceUnavailable, apperrors.KindUpstreamUnavailable, "Stripe webhooks are not configured", nil))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("Invalid webhook body"))
		return
	}
	event, err := pc.webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn("Stripe webhook signature verification failed", zap.Error(err))
		apperrors.Respond(c, apperrors.Validation("invalid webhook"))
		return
	}

	log.Info("Processing Stripe webhook", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	if err := pc.payments.HandleStripeEvent(c.Request.Context(), event); err != nil {
		log.Error("Stripe webhook handling failed", zap.String("event_id", event.ID), zap.Error(err))
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

package controllers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/middleware"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

// OrderService is the order surface the HTTP layer depends on.
type OrderService interface {
	CreateOrder(ctx context.Context, p auth.Principal, req *models.CreateOrderRequest) (*models.Order, error)
	CheckoutCart(ctx context.Context, p auth.Principal, notes *string, idempotencyKey string) (*models.Order, error)
	ListOrders(ctx context.Context, p auth.Principal, page, limit int) (*models.OrderListResponse, error)
	GetOrder(ctx context.Context, p auth.Principal, orderID uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, p auth.Principal, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error)
	DeleteOrderItem(ctx context.Context, p auth.Principal, itemID uuid.UUID) (*models.Order, error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, p auth.Principal, req *models.CreatePaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, p auth.Principal, paymentID uuid.UUID) (*models.Payment, error)
	UpdatePayment(ctx context.Context, p auth.Principal, paymentID uuid.UUID, req *models.UpdatePaymentRequest) (*models.Payment, error)
	DeletePayment(ctx context.Context, p auth.Principal, paymentID uuid.UUID) error
	HandleStripeEvent(ctx context.Context, event stripe.Event) error
}

// WebhookVerifier checks a webhook signature and decodes the event.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

type CartService interface {
	GetCart(ctx context.Context, p auth.Principal, ownerID uuid.UUID) (*models.CartView, error)
	AddItem(ctx context.Context, p auth.Principal, ownerID uuid.UUID, req *models.AddCartItemRequest) (*models.CartView, error)
	UpdateItem(ctx context.Context, p auth.Principal, ownerID uuid.UUID, lineID string, req *models.UpdateCartItemRequest) (*models.CartView, error)
	RemoveItem(ctx context.Context, p auth.Principal, ownerID uuid.UUID, lineID string) (*models.CartView, error)
	ClearCart(ctx context.Context, p auth.Principal, ownerID uuid.UUID) error
}

type CatalogService interface {
	ListMenu(ctx context.Context) ([]models.Item, error)
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		apperrors.Respond(c, apperrors.ErrUnauthenticated)
	}
	return p, ok
}

// uuidParam reads a path id. Malformed ids answer with notFound so they look
// the same as ids outside the caller's scope.
func uuidParam(c *gin.Context, name string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apperrors.Respond(c, notFound)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperrors.Respond(c, apperrors.Validation("Invalid request: "+err.Error()))
		return false
	}
	return true
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(c *gin.Context) (int, int) {
	const maxLimit = 100
	page, limit := 1, 10
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limit = l
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

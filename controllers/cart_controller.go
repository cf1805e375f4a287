package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

var errCartNotFound = apperrors.NotFoundOrForbidden("Cart not found")

type CartController struct {
	carts  CartService
	orders OrderService
}

func NewCartController(carts CartService, orders OrderService) *CartController {
	return &CartController{carts: carts, orders: orders}
}

// GetCart handles GET /cart
func (cc *CartController) GetCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	view, err := cc.carts.GetCart(c.Request.Context(), p, p.ID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetUserCart handles GET /admin/carts/:user_id
func (cc *CartController) GetUserCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	owner, ok := uuidParam(c, "user_id", errCartNotFound)
	if !ok {
		return
	}
	view, err := cc.carts.GetCart(c.Request.Context(), p, owner)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /cart/items
func (cc *CartController) AddItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := cc.carts.AddItem(c.Request.Context(), p, p.ID, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateItem handles PUT /cart/items/:line_id
func (cc *CartController) UpdateItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := cc.carts.UpdateItem(c.Request.Context(), p, p.ID, c.Param("line_id"), &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveItem handles DELETE /cart/items/:line_id
func (cc *CartController) RemoveItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	view, err := cc.carts.RemoveItem(c.Request.Context(), p, p.ID, c.Param("line_id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /cart
func (cc *CartController) ClearCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := cc.carts.ClearCart(c.Request.Context(), p, p.ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// Checkout handles POST /cart/checkout. The body is optional.
func (cc *CartController) Checkout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.CheckoutRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	order, err := cc.orders.CheckoutCart(c.Request.Context(), p, req.Notes, c.GetHeader("Idempotency-Key"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

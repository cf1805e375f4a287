package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

type OrderController struct {
	orders OrderService
}

func NewOrderController(orders OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// CreateOrder handles POST /orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req models.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := oc.orders.CreateOrder(c.Request.Context(), p, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders handles GET /orders
func (oc *OrderController) ListOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(c)

	resp, err := oc.orders.ListOrders(c.Request.Context(), p, page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", apperrors.ErrOrderNotFound)
	if !ok {
		return
	}

	order, err := oc.orders.GetOrder(c.Request.Context(), p, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /orders/:id/status
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", apperrors.ErrOrderNotFound)
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := oc.orders.UpdateOrderStatus(c.Request.Context(), p, id, req.Status)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrderItem handles DELETE /order-items/:id and returns the re-totalled order.
func (oc *OrderController) DeleteOrderItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", apperrors.ErrOrderItemNotFound)
	if !ok {
		return
	}

	order, err := oc.orders.DeleteOrderItem(c.Request.Context(), p, id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

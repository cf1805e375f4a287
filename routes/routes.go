package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	"github.com/nathangtg/coffee-single-tenant-sub000/controllers"
	"github.com/nathangtg/coffee-single-tenant-sub000/middleware"
)

type Controllers struct {
	Menu     *controllers.MenuController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
}

// RegisterRoutes mounts the API. Everything except the Stripe webhook
// requires an authenticated principal.
func RegisterRoutes(r *gin.Engine, c Controllers, tokens *auth.TokenParser) {
	r.POST("/stripe/webhook", c.Payments.StripeWebhook)

	api := r.Group("")
	api.Use(middleware.AuthMiddleware(tokens))

	api.GET("/menu", c.Menu.ListMenu)

	cartRoutes := api.Group("/cart")
	cartRoutes.GET("", c.Cart.GetCart)
	cartRoutes.DELETE("", c.Cart.ClearCart)
	cartRoutes.POST("/items", c.Cart.AddItem)
	cartRoutes.PUT("/items/:line_id", c.Cart.UpdateItem)
	cartRoutes.DELETE("/items/:line_id", c.Cart.RemoveItem)
	cartRoutes.POST("/checkout", c.Cart.Checkout)

	adminRoutes := api.Group("/admin")
	adminRoutes.Use(middleware.RequireRole(auth.RoleAdmin))
	adminRoutes.GET("/carts/:user_id", c.Cart.GetUserCart)

	orderRoutes := api.Group("/orders")
	orderRoutes.POST("", c.Orders.CreateOrder)
	orderRoutes.GET("", c.Orders.ListOrders)
	orderRoutes.GET("/:id", c.Orders.GetOrder)
	orderRoutes.PUT("/:id/status", c.Orders.UpdateOrderStatus)

	api.DELETE("/order-items/:id", c.Orders.DeleteOrderItem)

	paymentRoutes := api.Group("/payments")
	paymentRoutes.POST("", c.Payments.CreatePayment)
	paymentRoutes.GET("/:id", c.Payments.GetPayment)
	paymentRoutes.PUT("/:id", c.Payments.UpdatePayment)
	paymentRoutes.DELETE("/:id", c.Payments.DeletePayment)
}

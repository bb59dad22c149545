package routes

import (
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/middleware"
	"checkout-service/controllers"

	"github.com/gin-gonic/gin"
)

// Controllers groups every handler the router needs.
type Controllers struct {
	Checkout    *controllers.CheckoutController
	Webhook     *controllers.WebhookController
	Newsletter  *controllers.NewsletterController
	Placeholder *controllers.PlaceholderController
	Pages       *controllers.PagesController
	Health      gin.HandlerFunc
}

// RegisterRoutes wires the pages and the JSON API. paymentLimiter guards
// every /api/payments route.
func RegisterRoutes(r *gin.Engine, ctrl Controllers, paymentLimiter gin.HandlerFunc) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, apperrors.ErrMethodNotAllowed.Body(false))
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apperrors.ErrNotFound.Body(false))
	})

	r.GET("/health", ctrl.Health)

	// Pages
	r.GET("/", ctrl.Pages.Index)
	r.GET("/success", ctrl.Pages.Success)
	r.GET("/canceled", ctrl.Pages.Canceled)

	api := r.Group("/api")
	api.Use(middleware.NoStore())

	payments := api.Group("/payments")
	payments.Use(paymentLimiter)
	{
		payments.POST("/create-checkout-session", ctrl.Checkout.CreateCheckoutSession)
		payments.GET("/verify-session", ctrl.Checkout.VerifySession)
		payments.POST("/create-payment-intent", ctrl.Checkout.CreatePaymentIntent)
		payments.GET("/config", ctrl.Checkout.Config)
		payments.POST("/webhook", ctrl.Webhook.StripeWebhook)
	}

	api.POST("/newsletter", ctrl.Newsletter.Subscribe)

	// Placeholder artwork is cacheable, so it sits outside the no-store group.
	r.GET("/api/placeholder/:width/:height", ctrl.Placeholder.Image)
}

// Health reports liveness for load balancers.
func Health(serviceName, environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName, "environment": environment})
	}
}

package controllers

import (
	"context"
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
)

// CheckoutService is implemented by services.CheckoutService.
type CheckoutService interface {
	CreateSession(ctx context.Context, product models.ProductDescriptor) (*models.CheckoutResult, error)
	VerifySession(ctx context.Context, sessionID string) (*models.SessionSummary, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*models.PaymentIntentResult, error)
}

type CheckoutController struct {
	checkout       CheckoutService
	publishableKey string
}

func NewCheckoutController(svc CheckoutService, publishableKey string) *CheckoutController {
	return &CheckoutController{checkout: svc, publishableKey: publishableKey}
}

// CreateCheckoutSession handles POST /api/payments/create-checkout-session
func (cc *CheckoutController) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ErrInvalidBody.Wrap(err))
		return
	}

	result, err := cc.checkout.CreateSession(c.Request.Context(), req.Descriptor())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifySession handles GET /api/payments/verify-session?session_id=
func (cc *CheckoutController) VerifySession(c *gin.Context) {
	summary, err := cc.checkout.VerifySession(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": summary})
}

// CreatePaymentIntent handles POST /api/payments/create-payment-intent
func (cc *CheckoutController) CreatePaymentIntent(c *gin.Context) {
	var req models.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ErrInvalidBody.Wrap(err))
		return
	}

	result, err := cc.checkout.CreatePaymentIntent(c.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Config handles GET /api/payments/config
func (cc *CheckoutController) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publishableKey": cc.publishableKey})
}

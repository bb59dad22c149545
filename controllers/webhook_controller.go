package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	apperrors "checkout-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = int64(65536)

type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (*stripe.Event, error)
}

type WebhookController struct {
	webhooks WebhookService
}

func NewWebhookController(svc WebhookService) *WebhookController {
	return &WebhookController{webhooks: svc}
}

// StripeWebhook handles POST /api/payments/webhook. The raw body is needed
// for signature verification, so it is never bound as JSON.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(apperrors.ErrBodyTooLarge.Wrap(err))
			return
		}
		_ = c.Error(apperrors.ErrInvalidBody.Wrap(err))
		return
	}

	if _, err := wc.webhooks.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

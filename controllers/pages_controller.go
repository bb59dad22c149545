package controllers

import (
	"context"
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionVerifier interface {
	VerifySession(ctx context.Context, sessionID string) (*models.SessionSummary, error)
}

// PagesController renders the landing page and the post-checkout screens.
type PagesController struct {
	verifier       SessionVerifier
	product        models.ProductDescriptor
	publishableKey string
	logger         *zap.Logger
}

func NewPagesController(verifier SessionVerifier, product models.ProductDescriptor, publishableKey string, log *zap.Logger) *PagesController {
	return &PagesController{verifier: verifier, product: product, publishableKey: publishableKey, logger: log}
}

// Index handles GET /
func (pc *PagesController) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Product":        pc.product,
		"Price":          services.FormatAmount(pc.product.Amount, pc.product.Currency),
		"PublishableKey": pc.publishableKey,
	})
}

// Success handles GET /success?session_id=. The session is verified before
// anything is shown, the redirect alone proves nothing.
func (pc *PagesController) Success(c *gin.Context) {
	sessionID := c.Query("session_id")

	summary, err := pc.verifier.VerifySession(c.Request.Context(), sessionID)
	if err != nil {
		appErr := apperrors.As(err)
		logger.FromContext(c, pc.logger).Warn("Confirmation page could not verify session",
			zap.String("session_id", sessionID),
			zap.Int("status", appErr.Code),
		)
		c.HTML(appErr.Code, "success.html", gin.H{
			"State":     models.StateError,
			"Message":   appErr.Message,
			"SessionID": sessionID,
		})
		return
	}

	c.HTML(http.StatusOK, "success.html", gin.H{
		"State":     summary.State,
		"Session":   summary,
		"SessionID": summary.ID,
		"Amount":    services.FormatAmount(summary.AmountTotal, summary.Currency),
	})
}

// Canceled handles GET /canceled. No provider call is made.
func (pc *PagesController) Canceled(c *gin.Context) {
	c.HTML(http.StatusOK, "canceled.html", gin.H{
		"Product": pc.product,
	})
}

package controllers

import (
	"context"
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
)

type NewsletterService interface {
	Subscribe(ctx context.Context, email string) (*models.Subscriber, bool, error)
}

type NewsletterController struct {
	newsletter NewsletterService
}

func NewNewsletterController(svc NewsletterService) *NewsletterController {
	return &NewsletterController{newsletter: svc}
}

// Subscribe handles POST /api/newsletter
func (nc *NewsletterController) Subscribe(c *gin.Context) {
	var req models.NewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ErrInvalidBody.Wrap(err))
		return
	}

	_, created, err := nc.newsletter.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{"subscribed": true, "status": "already_subscribed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscribed": true, "status": "subscribed"})
}

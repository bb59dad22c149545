package services

import (
	"context"
	"net/http"
	"strings"

	apperrors "checkout-service/common/errors"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNewsletterUnavailable = apperrors.New(http.StatusServiceUnavailable, "Newsletter signup is unavailable", nil)

type NewsletterService struct {
	repo     repository.SubscriberRepository
	metrics  awspkg.MetricsRecorder
	logger   *zap.Logger
	validate *validator.Validate
}

// NewNewsletterService accepts a nil repo when no database is configured;
// Subscribe then reports the signup as unavailable.
func NewNewsletterService(repo repository.SubscriberRepository, metrics awspkg.MetricsRecorder, logger *zap.Logger) *NewsletterService {
	if metrics == nil {
		metrics = awspkg.NopMetrics{}
	}
	return &NewsletterService{repo: repo, metrics: metrics, logger: logger, validate: validator.New()}
}

// Subscribe stores email once. created is false when the address was
// already on the list.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (subscriber *models.Subscriber, created bool, err error) {
	if s.repo == nil {
		return nil, false, ErrNewsletterUnavailable
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email,max=320"); err != nil {
		return nil, false, apperrors.ErrInvalidEmail
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, apperrors.ErrInternalServer.Wrap(err)
	}
	if existing != nil {
		return existing, false, nil
	}

	subscriber = &models.Subscriber{ID: uuid.New(), Email: email, Source: "landing"}
	if err := s.repo.Create(ctx, subscriber); err != nil {
		// Lost a race against a concurrent signup for the same address.
		if existing, findErr := s.repo.FindByEmail(ctx, email); findErr == nil && existing != nil {
			return existing, false, nil
		}
		s.logger.Error("Failed to save subscriber", zap.Error(err))
		return nil, false, apperrors.ErrInternalServer.Wrap(err)
	}

	s.logger.Info("Newsletter subscriber added", zap.String("subscriber_id", subscriber.ID.String()))
	_ = s.metrics.RecordCount(ctx, awspkg.MetricNewsletterSignups, nil)
	return subscriber, true, nil
}

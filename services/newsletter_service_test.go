package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscribe_New(t *testing.T) {
	repo := &mockSubscriberRepo{}
	metrics := newMockMetrics()
	svc := services.NewNewsletterService(repo, metrics, zap.NewNop())

	sub, created, err := svc.Subscribe(context.Background(), "  Reader@Example.com ")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "reader@example.com", sub.Email)
	assert.Equal(t, "landing", sub.Source)
	require.Len(t, repo.created, 1)
	assert.Equal(t, 1, metrics.count(awspkg.MetricNewsletterSignups))
}

func TestSubscribe_AlreadySubscribed(t *testing.T) {
	existing := &models.Subscriber{ID: uuid.New(), Email: "reader@example.com"}
	repo := &mockSubscriberRepo{existing: existing}
	svc := services.NewNewsletterService(repo, nil, zap.NewNop())

	sub, created, err := svc.Subscribe(context.Background(), "reader@example.com")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, sub.ID)
	assert.Empty(t, repo.created)
}

func TestSubscribe_ConcurrentDuplicate(t *testing.T) {
	winner := &models.Subscriber{ID: uuid.New(), Email: "reader@example.com"}
	repo := &mockSubscriberRepo{createErr: errors.New("duplicate key"), afterCreateFail: winner}
	svc := services.NewNewsletterService(repo, nil, zap.NewNop())

	sub, created, err := svc.Subscribe(context.Background(), "reader@example.com")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, sub.ID)
}

func TestSubscribe_Errors(t *testing.T) {
	t.Run("invalid email", func(t *testing.T) {
		svc := services.NewNewsletterService(&mockSubscriberRepo{}, nil, zap.NewNop())
		_, _, err := svc.Subscribe(context.Background(), "not-an-email")
		requireAppError(t, err, http.StatusBadRequest, "A valid email address is required")
	})

	t.Run("no database", func(t *testing.T) {
		svc := services.NewNewsletterService(nil, nil, zap.NewNop())
		_, _, err := svc.Subscribe(context.Background(), "reader@example.com")
		requireAppError(t, err, http.StatusServiceUnavailable, "Newsletter signup is unavailable")
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc := services.NewNewsletterService(&mockSubscriberRepo{findErr: errors.New("db down")}, nil, zap.NewNop())
		_, _, err := svc.Subscribe(context.Background(), "reader@example.com")
		requireAppError(t, err, http.StatusInternalServerError, "Internal server error")
	})
}

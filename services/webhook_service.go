package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "checkout-service/common/errors"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// Checkout events forwarded to the payment topic.
var forwardedEvents = map[stripe.EventType]bool{
	stripe.EventTypeCheckoutSessionCompleted:             true,
	stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded: true,
	stripe.EventTypeCheckoutSessionAsyncPaymentFailed:    true,
	stripe.EventTypeCheckoutSessionExpired:               true,
}

type WebhookService struct {
	provider  PaymentProvider
	publisher awspkg.SNSPublisher
	topicArn  string
	metrics   awspkg.MetricsRecorder
	logger    *zap.Logger
}

// NewWebhookService builds the receiver. publisher may be nil, in which case
// events are only logged.
func NewWebhookService(provider PaymentProvider, publisher awspkg.SNSPublisher, topicArn string, metrics awspkg.MetricsRecorder, logger *zap.Logger) *WebhookService {
	if metrics == nil {
		metrics = awspkg.NopMetrics{}
	}
	return &WebhookService{
		provider:  provider,
		publisher: publisher,
		topicArn:  topicArn,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleEvent verifies and acknowledges a webhook delivery. Publishing
// problems are logged and never fail the delivery.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) (*stripe.Event, error) {
	event, err := s.provider.ConstructWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, ErrWebhookSecretMissing) {
			s.logger.Error("Webhook received but no signing secret is configured")
			return nil, apperrors.ErrWebhookSecret
		}
		s.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return nil, apperrors.ErrWebhookSignature.Wrap(err)
	}

	s.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)
	_ = s.metrics.RecordCount(ctx, awspkg.MetricWebhookEvents, map[string]string{"Type": string(event.Type)})

	if forwardedEvents[event.Type] {
		s.forwardCheckoutEvent(ctx, event)
	}
	return &event, nil
}

func (s *WebhookService) forwardCheckoutEvent(ctx context.Context, event stripe.Event) {
	if event.Data == nil {
		return
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		s.logger.Error("Failed to unmarshal checkout session", zap.String("event_id", event.ID), zap.Error(err))
		return
	}

	summary := Summarize(&sess)
	s.logger.Info("Checkout session event",
		zap.String("event_type", string(event.Type)),
		zap.String("session_id", sess.ID),
		zap.String("payment_status", summary.PaymentStatus),
	)

	if s.publisher == nil || s.topicArn == "" {
		return
	}

	msg, err := json.Marshal(models.PaymentEvent{
		Type:          string(event.Type),
		EventID:       event.ID,
		SessionID:     sess.ID,
		PaymentStatus: summary.PaymentStatus,
		Amount:        sess.AmountTotal,
		Currency:      string(sess.Currency),
		CustomerEmail: summary.CustomerEmail,
		Timestamp:     time.Unix(event.Created, 0).UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to marshal payment event", zap.Error(err))
		return
	}

	err = s.publisher.Publish(ctx, s.topicArn, awspkg.PaymentMessage{
		EventType: string(event.Type),
		EventID:   event.ID,
		SessionID: sess.ID,
		Body:      msg,
	})
	if err != nil {
		s.logger.Error("Failed to publish payment event",
			zap.String("event_id", event.ID),
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Payment event published to SNS",
		zap.String("event_type", string(event.Type)),
		zap.String("session_id", sess.ID),
	)
}

package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// ---- mock payment provider ----

type mockProvider struct {
	mu sync.Mutex

	createCalls  int
	lastProduct  models.ProductDescriptor
	lastSuccess  string
	lastCancel   string
	createErr    error
	session      *stripe.CheckoutSession
	getErr       error
	intent       *stripe.PaymentIntent
	intentErr    error
	intentCalls  int
	event        stripe.Event
	constructErr error
}

func (m *mockProvider) CreateCheckoutSession(_ context.Context, product models.ProductDescriptor, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.lastProduct = product
	m.lastSuccess = successURL
	m.lastCancel = cancelURL
	if m.createErr != nil {
		return nil, m.createErr
	}
	id := fmt.Sprintf("cs_test_%d", m.createCalls)
	return &stripe.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

func (m *mockProvider) GetCheckoutSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	return m.session, m.getErr
}

func (m *mockProvider) CreatePaymentIntent(_ context.Context, _ int64, _ string) (*stripe.PaymentIntent, error) {
	m.intentCalls++
	return m.intent, m.intentErr
}

func (m *mockProvider) ConstructWebhookEvent(_ []byte, _ string) (stripe.Event, error) {
	return m.event, m.constructErr
}

// ---- mock SNS publisher ----

type mockSNS struct {
	publishErr error
	topics     []string
	messages   [][]byte
	sent       []awspkg.PaymentMessage
}

func (m *mockSNS) Publish(_ context.Context, topic string, msg awspkg.PaymentMessage) error {
	m.topics = append(m.topics, topic)
	m.messages = append(m.messages, msg.Body)
	m.sent = append(m.sent, msg)
	return m.publishErr
}

// ---- mock metrics ----

type mockMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMockMetrics() *mockMetrics { return &mockMetrics{counts: map[string]int{}} }

func (m *mockMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}

func (m *mockMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (m *mockMetrics) IsEnabled() bool { return true }

func (m *mockMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// ---- mock subscriber repository ----

type mockSubscriberRepo struct {
	existing  *models.Subscriber
	findErr   error
	createErr error
	created   []*models.Subscriber
	// afterCreateFail is returned by FindByEmail once Create has failed.
	afterCreateFail *models.Subscriber
}

func (m *mockSubscriberRepo) Create(_ context.Context, s *models.Subscriber) error {
	if m.createErr != nil {
		if m.afterCreateFail != nil {
			m.existing = m.afterCreateFail
		}
		return m.createErr
	}
	m.created = append(m.created, s)
	return nil
}

func (m *mockSubscriberRepo) FindByEmail(_ context.Context, _ string) (*models.Subscriber, error) {
	return m.existing, m.findErr
}

func nopLogger() *zap.Logger { return zap.NewNop() }

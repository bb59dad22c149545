package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"checkout-service/models"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// ErrWebhookSecretMissing is returned by ConstructWebhookEvent when no
// signing secret is configured.
var ErrWebhookSecretMissing = errors.New("stripe webhook secret is not configured")

// PaymentProvider is the hosted-payments provider used by the checkout flow.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, product models.ProductDescriptor, successURL, cancelURL string) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*stripe.PaymentIntent, error)
	ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error)
}

type StripeService struct {
	api        *client.API
	WebhookKey string
}

// StripeOptions configures the Stripe backend. APIBase is only set in tests
// and local mocks.
type StripeOptions struct {
	SecretKey  string
	WebhookKey string
	APIBase    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewStripeService builds a client bound to opts.SecretKey. The package-level
// stripe.Key is never touched, and network retries are disabled.
func NewStripeService(opts StripeOptions) *StripeService {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	}
	if opts.APIBase != "" {
		cfg.URL = stripe.String(strings.TrimSuffix(opts.APIBase, "/"))
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	if opts.Logger != nil {
		cfg.LeveledLogger = opts.Logger.Named("stripe").Sugar()
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	api := client.New(opts.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeService{api: api, WebhookKey: opts.WebhookKey}
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, product models.ProductDescriptor, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	lineItem := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if product.PriceID != "" {
		lineItem.Price = stripe.String(product.PriceID)
	} else {
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(product.Currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(product.Name),
			},
			UnitAmount: stripe.Int64(product.Amount),
		}
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{lineItem},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
	}
	if product.Name != "" {
		params.AddMetadata("product_name", product.Name)
	}
	params.Context = ctx

	return s.api.CheckoutSessions.New(params)
}

func (s *StripeService) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return s.api.CheckoutSessions.Get(sessionID, params)
}

func (s *StripeService) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	return s.api.PaymentIntents.New(params)
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the
// configured secret and decodes the event.
func (s *StripeService) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.WebhookKey == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEventWithOptions(payload, signature, s.WebhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// isResourceMissing reports whether err is Stripe's "No such ..." error.
func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound
}

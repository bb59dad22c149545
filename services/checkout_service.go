package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "checkout-service/common/errors"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// MissingSessionMessage is shown when the buyer lands on /success without a
// session reference.
const MissingSessionMessage = "No payment reference was provided. Please keep your payment confirmation email and contact support so we can look up your order."

// VerificationFailedMessage keeps the session id verbatim so support can find
// the payment by hand.
func VerificationFailedMessage(sessionID string) string {
	return fmt.Sprintf("We could not verify your payment (session_id=%s). Please keep this reference and contact support.", sessionID)
}

type CheckoutService struct {
	provider        PaymentProvider
	frontendURL     string
	defaultCurrency string
	metrics         awspkg.MetricsRecorder
	logger          *zap.Logger
	validate        *validator.Validate
}

func NewCheckoutService(provider PaymentProvider, frontendURL, defaultCurrency string, metrics awspkg.MetricsRecorder, logger *zap.Logger) *CheckoutService {
	if metrics == nil {
		metrics = awspkg.NopMetrics{}
	}
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &CheckoutService{
		provider:        provider,
		frontendURL:     strings.TrimSuffix(frontendURL, "/"),
		defaultCurrency: strings.ToLower(defaultCurrency),
		metrics:         metrics,
		logger:          logger,
		validate:        validator.New(),
	}
}

// SuccessURL is the redirect target after a completed payment. Stripe
// substitutes {CHECKOUT_SESSION_ID}.
func (s *CheckoutService) SuccessURL() string {
	return s.frontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"
}

func (s *CheckoutService) CancelURL() string {
	return s.frontendURL + "/canceled"
}

// normalizeCurrency applies the default, lower-cases and checks ISO 4217.
func (s *CheckoutService) normalizeCurrency(currency string) (string, *apperrors.Error) {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		currency = s.defaultCurrency
	}
	if err := s.validate.Var(strings.ToUpper(currency), "len=3,iso4217"); err != nil {
		return "", apperrors.ErrInvalidCurrency.WithField("currency", currency)
	}
	return strings.ToLower(currency), nil
}

func validateAmount(amount int64) *apperrors.Error {
	switch {
	case amount == 0:
		return apperrors.ErrMissingFields
	case amount < 0:
		return apperrors.ErrInvalidAmount
	}
	return nil
}

// CreateSession opens a hosted checkout session for a single product. Invalid
// input is rejected before any provider call.
func (s *CheckoutService) CreateSession(ctx context.Context, product models.ProductDescriptor) (*models.CheckoutResult, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.PriceID = strings.TrimSpace(product.PriceID)

	if product.PriceID == "" {
		if product.Name == "" {
			return nil, apperrors.ErrMissingFields
		}
		if appErr := validateAmount(product.Amount); appErr != nil {
			return nil, appErr
		}
	}

	currency, appErr := s.normalizeCurrency(product.Currency)
	if appErr != nil {
		return nil, appErr
	}
	product.Currency = currency

	start := time.Now()
	session, err := s.provider.CreateCheckoutSession(ctx, product, s.SuccessURL(), s.CancelURL())
	if err != nil {
		s.logger.Error("Failed to create checkout session",
			zap.String("product", product.Name),
			zap.Int64("amount", product.Amount),
			zap.String("currency", product.Currency),
			zap.Error(err),
		)
		_ = s.metrics.RecordCount(ctx, awspkg.MetricCheckoutSessionsFailed, nil)
		return nil, apperrors.ErrCheckoutFailed.Wrap(err)
	}

	s.logger.Info("Checkout session created",
		zap.String("session_id", session.ID),
		zap.String("product", product.Name),
		zap.Int64("amount", product.Amount),
		zap.String("currency", product.Currency),
		zap.Duration("latency", time.Since(start)),
	)
	_ = s.metrics.RecordCount(ctx, awspkg.MetricCheckoutSessionsCreated, map[string]string{"Currency": product.Currency})

	return &models.CheckoutResult{URL: session.URL, SessionID: session.ID}, nil
}

// VerifySession looks the session up at the provider and normalizes it. It
// never mutates anything.
func (s *CheckoutService) VerifySession(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperrors.New(http.StatusBadRequest, MissingSessionMessage, nil)
	}

	session, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricSessionVerifyFailed, nil)
		code := http.StatusInternalServerError
		if isResourceMissing(err) {
			code = http.StatusNotFound
			s.logger.Warn("Checkout session not found", zap.String("session_id", sessionID))
		} else {
			s.logger.Error("Failed to retrieve checkout session", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, apperrors.New(code, VerificationFailedMessage(sessionID), err).WithField("session_id", sessionID)
	}

	summary := Summarize(session)
	_ = s.metrics.RecordCount(ctx, awspkg.MetricSessionsVerified, map[string]string{"State": summary.State})
	return summary, nil
}

// CreatePaymentIntent starts an embedded payment for amount minor units.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (*models.PaymentIntentResult, error) {
	if appErr := validateAmount(amount); appErr != nil {
		return nil, appErr
	}
	currency, appErr := s.normalizeCurrency(currency)
	if appErr != nil {
		return nil, appErr
	}

	pi, err := s.provider.CreatePaymentIntent(ctx, amount, currency)
	if err != nil {
		s.logger.Error("Failed to create payment intent",
			zap.Int64("amount", amount),
			zap.String("currency", currency),
			zap.Error(err),
		)
		return nil, apperrors.ErrPaymentIntentFailed.Wrap(err)
	}

	_ = s.metrics.RecordCount(ctx, awspkg.MetricPaymentIntentsCreated, map[string]string{"Currency": currency})
	return &models.PaymentIntentResult{ClientSecret: pi.ClientSecret, PaymentIntentID: pi.ID}, nil
}

// Summarize maps a provider session onto the confirmation view model.
func Summarize(session *stripe.CheckoutSession) *models.SessionSummary {
	summary := &models.SessionSummary{
		ID:            session.ID,
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
		CustomerEmail: session.CustomerEmail,
		CreatedAt:     time.Unix(session.Created, 0).UTC(),
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		summary.CustomerEmail = session.CustomerDetails.Email
	}

	switch {
	case session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		summary.State = models.StateSuccess
	case session.Status == stripe.CheckoutSessionStatusExpired:
		summary.State = models.StateError
	default:
		summary.State = models.StateProcessing
	}
	return summary
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	aws_pkg "checkout-service/pkg/aws"

	"github.com/joho/godotenv"
)

// Secret names read when AWS_USE_SECRETS=true.
const (
	SecretStripeKey     = "checkout/STRIPE_SECRET_KEY"
	SecretWebhookSecret = "checkout/STRIPE_WEBHOOK_SECRET"
)

type Config struct {
	Port        string
	Environment string
	ServiceName string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripeAPIBase        string // optional, points the Stripe client at a mock

	FrontendURL     string
	AllowedOrigins  []string
	TrustedProxies  []string // empty means the socket address is the client IP
	DefaultCurrency string

	// Product shown on the landing page
	ProductName     string
	ProductPrice    int64
	ProductCurrency string

	RateLimitWindow time.Duration
	RateLimitMax    int
	RedisURL        string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	UseAWSSecrets       bool
	PaymentSNSTopicARN  string // SNS topic for webhook fan-out, empty disables it
	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DatabaseConfigured reports whether the newsletter store can be opened.
func (c *Config) DatabaseConfigured() bool {
	return c.PostgresHost != "" && c.PostgresUser != "" && c.PostgresDB != ""
}

// PostgresDSN builds the gorm/pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

// LoadConfig reads configuration from the environment (and a local .env file
// when present), with optional Secrets Manager override of the Stripe keys.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var secrets SecretSource
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		secrets = aws_pkg.NewSecretsClient(awsCfg)
	}
	return Load(context.Background(), secrets)
}

// SecretSource is satisfied by aws_pkg.SecretsClient.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Load builds a Config from the current environment. secrets may be nil.
func Load(ctx context.Context, secrets SecretSource) (*Config, error) {
	env := getEnv("APP_ENV", getEnv("NODE_ENV", "development"))

	cfg := &Config{
		Port:        getEnv("PORT", "4000"),
		Environment: env,
		ServiceName: getEnv("SERVICE_NAME", "checkout-service"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIBase:        os.Getenv("STRIPE_API_BASE"),

		FrontendURL:     strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		DefaultCurrency: strings.ToLower(getEnv("DEFAULT_CURRENCY", "usd")),

		ProductName:  getEnv("PRODUCT_NAME", "Journal de 21 Días de Desescolarización"),
		ProductPrice: getEnvInt64("PRODUCT_PRICE", 1500),

		RateLimitWindow: time.Duration(getEnvInt64("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
		RateLimitMax:    int(getEnvInt64("RATE_LIMIT_MAX_REQUESTS", 100)),
		RedisURL:        os.Getenv("REDIS_URL"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		UseAWSSecrets:       os.Getenv("AWS_USE_SECRETS") == "true",
		PaymentSNSTopicARN:  os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "LandingCheckout"),
		CloudWatchLogGroup:  os.Getenv("CLOUDWATCH_LOG_GROUP"),
	}
	cfg.ProductCurrency = strings.ToLower(getEnv("PRODUCT_CURRENCY", cfg.DefaultCurrency))
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", cfg.FrontendURL))
	cfg.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))

	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = 15 * time.Minute
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 100
	}

	if secrets != nil {
		if v, err := secrets.GetSecret(ctx, SecretStripeKey); err == nil && v != "" {
			cfg.StripeSecretKey = v
		}
		if v, err := secrets.GetSecret(ctx, SecretWebhookSecret); err == nil && v != "" {
			cfg.StripeWebhookSecret = v
		}
	}

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("missing required environment variable STRIPE_SECRET_KEY")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

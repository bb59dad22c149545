package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"
	"checkout-service/common/middleware"
	"checkout-service/config"
	"checkout-service/controllers"
	"checkout-service/database"
	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"
	"checkout-service/repository"
	"checkout-service/routes"
	"checkout-service/services"
	"checkout-service/views"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// AWS is optional. Each integration is enabled by its own setting.
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())

	var sinks []io.Writer
	if awsErr == nil && cfg.CloudWatchLogGroup != "" {
		cw, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, cfg.CloudWatchLogGroup, cfg.ServiceName)
		if err != nil {
			log.Printf("CloudWatch Logs disabled: %v", err)
		} else {
			sinks = append(sinks, cw)
		}
	}

	zapLogger, err := logger.New(cfg.Environment, sinks...)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	var snsClient aws_pkg.SNSPublisher
	var metrics aws_pkg.MetricsRecorder = aws_pkg.NopMetrics{}
	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, SNS and CloudWatch disabled", zap.Error(awsErr))
	} else {
		if cfg.PaymentSNSTopicARN != "" {
			snsClient = aws_pkg.NewSNSClient(awsCfg)
		}
		if cfg.CloudWatchEnabled {
			metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
		}
	}

	// Newsletter storage is optional
	var subscriberRepo repository.SubscriberRepository
	if cfg.DatabaseConfigured() {
		connectCtx, cancelConnect := context.WithTimeout(context.Background(), 2*time.Minute)
		db, err := database.ConnectPostgres(connectCtx, cfg.PostgresDSN(), database.DefaultConnectOptions, zapLogger, &models.Subscriber{})
		cancelConnect()
		if err != nil {
			zapLogger.Error("Newsletter database unavailable", zap.Error(err))
		} else {
			subscriberRepo = repository.NewGormSubscriberRepo(db)
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close() //nolint:errcheck
			}
		}
	}

	// Rate limit store: Redis when shared across replicas, memory otherwise
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var store middleware.RateLimitStore
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close() //nolint:errcheck
		store = middleware.NewRedisStore(rdb, "ratelimit:payments:", cfg.RateLimitMax, cfg.RateLimitWindow)
		zapLogger.Info("Rate limiting backed by Redis")
	} else {
		mem := middleware.NewMemoryStore(cfg.RateLimitMax, cfg.RateLimitWindow)
		mem.StartSweeper(ctx)
		store = mem
	}

	// Provider and DI chain
	stripeSvc := services.NewStripeService(services.StripeOptions{
		SecretKey:  cfg.StripeSecretKey,
		WebhookKey: cfg.StripeWebhookSecret,
		APIBase:    cfg.StripeAPIBase,
		Logger:     zapLogger,
	})
	checkoutSvc := services.NewCheckoutService(stripeSvc, cfg.FrontendURL, cfg.DefaultCurrency, metrics, zapLogger)
	webhookSvc := services.NewWebhookService(stripeSvc, snsClient, cfg.PaymentSNSTopicARN, metrics, zapLogger)
	newsletterSvc := services.NewNewsletterService(subscriberRepo, metrics, zapLogger)

	product := models.ProductDescriptor{
		Name:     cfg.ProductName,
		Amount:   cfg.ProductPrice,
		Currency: cfg.ProductCurrency,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		zapLogger.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}

	tmpl, err := views.Templates()
	if err != nil {
		zapLogger.Fatal("Failed to parse templates", zap.Error(err))
	}
	r.SetHTMLTemplate(tmpl)

	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(zapLogger))
	r.Use(middleware.MetricsMiddleware(metrics, cfg.ServiceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(apperrors.ErrorMiddleware(!cfg.IsProduction()))

	routes.RegisterRoutes(r, routes.Controllers{
		Checkout:    controllers.NewCheckoutController(checkoutSvc, cfg.StripePublishableKey),
		Webhook:     controllers.NewWebhookController(webhookSvc),
		Newsletter:  controllers.NewNewsletterController(newsletterSvc),
		Placeholder: controllers.NewPlaceholderController(),
		Pages:       controllers.NewPagesController(checkoutSvc, product, cfg.StripePublishableKey, zapLogger),
		Health:      routes.Health(cfg.ServiceName, cfg.Environment),
	}, middleware.RateLimitMiddleware(store, zapLogger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Checkout service started",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("frontend_url", cfg.FrontendURL),
	)
	<-quit
	zapLogger.Info("Shutting down checkout service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited cleanly")
}

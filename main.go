package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/middleware"
	"github.com/nathangtg/coffee-single-tenant-sub000/config"
	"github.com/nathangtg/coffee-single-tenant-sub000/controllers"
	"github.com/nathangtg/coffee-single-tenant-sub000/database"
	"github.com/nathangtg/coffee-single-tenant-sub000/events"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	awspkg "github.com/nathangtg/coffee-single-tenant-sub000/pkg/aws"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
	"github.com/nathangtg/coffee-single-tenant-sub000/routes"
	"github.com/nathangtg/coffee-single-tenant-sub000/services"
)

const serviceName = "coffee-service"

func main() {
	log := logger.Initialize(os.Getenv("APP_ENV"))
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database ---
	db, err := database.ConnectPostgres(cfg.PostgresDSN(), log,
		&models.Item{}, &models.ItemOption{},
		&models.Order{}, &models.OrderItem{}, &models.OrderItemOption{},
		&models.Payment{},
	)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}

	rdb, err := database.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}

	// --- AWS setup ---
	awsCfg, err := awspkg.LoadAWSConfig(context.Background())
	if err != nil {
		log.Fatal("Failed to load AWS config", zap.Error(err))
	}
	metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	publisher := buildPublisher(cfg, awspkg.NewSNSClient(awsCfg), log)

	// --- Dependency injection ---
	store := repository.NewGormStore(db)
	carts := repository.NewRedisCartRepository(rdb, cfg.CartTTL)
	pricer := services.NewPriceCalculator(cfg.StrictOptions, cfg.TaxRate)
	numbers := services.NewOrderNumberGenerator(cfg.OrderNumberMaxAttempts)

	var gateway services.PaymentGateway
	var webhooks controllers.WebhookVerifier
	if cfg.StripeEnabled() {
		sc := services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookKey)
		gateway = sc
		if cfg.StripeWebhookKey != "" {
			webhooks = sc
		}
	} else {
		log.Warn("STRIPE_API_KEY not set; card payments are recorded without a payment intent")
	}

	orderService := services.NewOrderService(store, carts, pricer, numbers, publisher, metricsClient, log)
	paymentService := services.NewPaymentService(store, gateway, cfg.Currency, publisher, metricsClient, log)
	cartService := services.NewCartService(carts, store.Catalog(), pricer, log)
	catalogService := services.NewCatalogService(store.Catalog(), log)

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimitMiddleware(300, 50))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})

	routes.RegisterRoutes(r, routes.Controllers{
		Menu:     controllers.NewMenuController(catalogService),
		Cart:     controllers.NewCartController(cartService, orderService),
		Orders:   controllers.NewOrderController(orderService),
		Payments: controllers.NewPaymentController(paymentService, webhooks, log),
	}, auth.NewTokenParser(cfg.JWTSecret))

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("Coffee service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Initiating graceful shutdown...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	closeAll(log, db, rdb, publisher)
	log.Info("Coffee service stopped gracefully")
}

// buildPublisher fans events out to every configured sink.
func buildPublisher(cfg *config.Config, sns awspkg.SNSPublisher, log *zap.Logger) events.Publisher {
	var pubs []events.Publisher
	if cfg.EventsSNSTopicARN != "" {
		pubs = append(pubs, events.NewSNSPublisher(sns, cfg.EventsSNSTopicARN))
	}
	if cfg.KafkaBrokers != "" {
		pubs = append(pubs, events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic))
	}
	switch len(pubs) {
	case 0:
		log.Info("no event sinks configured; domain events are dropped")
		return events.NoopPublisher{}
	case 1:
		return pubs[0]
	default:
		return events.NewFanout(log, pubs...)
	}
}

func closeAll(log *zap.Logger, db *gorm.DB, rdb *redis.Client, publisher events.Publisher) {
	if err := publisher.Close(); err != nil {
		log.Error("Event publisher close error", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		log.Error("Redis close error", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Error("Database close error", zap.Error(err))
	}
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	awspkg "github.com/nathangtg/coffee-single-tenant-sub000/pkg/aws"
)

type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string
	CartTTL  time.Duration

	JWTSecret string

	TaxRate                decimal.Decimal
	Currency               string
	StrictOptions          bool
	OrderNumberMaxAttempts int

	StripeSecretKey  string
	StripeWebhookKey string

	EventsSNSTopicARN string
	KafkaBrokers      string
	KafkaTopic        string

	AllowedOrigins    string
	CloudWatchEnabled bool
	MetricsNamespace  string
	RequestTimeout    time.Duration
}

// secretGetter is satisfied by *awspkg.SecretsClient.
type secretGetter interface {
	GetSecretValues(ctx context.Context, name string) (map[string]string, error)
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		AppEnv:                 getEnv("APP_ENV", "development"),
		PostgresUser:           os.Getenv("POSTGRES_USER"),
		PostgresPassword:       os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:             os.Getenv("POSTGRES_DB"),
		PostgresHost:           os.Getenv("POSTGRES_HOST"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:       getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartTTL:                getDuration("CART_TTL", 7*24*time.Hour),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		Currency:               strings.ToLower(getEnv("CURRENCY", "usd")),
		StrictOptions:          getBool("PRICING_STRICT_OPTIONS", true),
		OrderNumberMaxAttempts: getInt("ORDER_NUMBER_MAX_ATTEMPTS", 5),
		StripeSecretKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey:       os.Getenv("STRIPE_WEBHOOK_SECRET"),
		EventsSNSTopicARN:      os.Getenv("EVENTS_SNS_TOPIC_ARN"),
		KafkaBrokers:           os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:             getEnv("KAFKA_TOPIC", "coffee.orders"),
		AllowedOrigins:         getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		CloudWatchEnabled:      getBool("CLOUDWATCH_ENABLED", false),
		MetricsNamespace:       getEnv("METRICS_NAMESPACE", "CoffeeShop"),
		RequestTimeout:         getDuration("REQUEST_TIMEOUT", 30*time.Second),
	}

	rate, err := decimal.NewFromString(getEnv("TAX_RATE", "0"))
	if err != nil || rate.IsNegative() {
		return nil, fmt.Errorf("invalid TAX_RATE %q", os.Getenv("TAX_RATE"))
	}
	cfg.TaxRate = rate

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			applySecrets(context.Background(), cfg, awspkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.OrderNumberMaxAttempts < 1 {
		return fmt.Errorf("ORDER_NUMBER_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func (c *Config) StripeEnabled() bool { return c.StripeSecretKey != "" }

// applySecrets overlays DB credentials and Stripe keys stored as JSON objects
// in Secrets Manager. Missing secrets leave the environment values in place.
func applySecrets(ctx context.Context, cfg *Config, sm secretGetter) {
	if m := secretMap(ctx, sm, "coffee/DB_CREDENTIALS"); m != nil {
		setIf(&cfg.PostgresUser, m["POSTGRES_USER"])
		setIf(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
		setIf(&cfg.PostgresDB, m["POSTGRES_DB"])
		setIf(&cfg.PostgresHost, m["POSTGRES_HOST"])
		setIf(&cfg.PostgresPort, m["POSTGRES_PORT"])
	}
	if m := secretMap(ctx, sm, "coffee/STRIPE"); m != nil {
		setIf(&cfg.StripeSecretKey, m["STRIPE_API_KEY"])
		setIf(&cfg.StripeWebhookKey, m["STRIPE_WEBHOOK_SECRET"])
	}
	if m := secretMap(ctx, sm, "coffee/JWT"); m != nil {
		setIf(&cfg.JWTSecret, m["JWT_SECRET"])
	}
}

func secretMap(ctx context.Context, sm secretGetter, name string) map[string]string {
	m, err := sm.GetSecretValues(ctx, name)
	if err != nil {
		return nil
	}
	return m
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

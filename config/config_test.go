package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetSecretValues(_ context.Context, name string) (map[string]string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return nil, errors.New("not found")
}

func setDBEnv(t *testing.T) {
	t.Setenv("POSTGRES_USER", "coffee")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "coffee")
	t.Setenv("POSTGRES_HOST", "localhost")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setDBEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.StrictOptions)
	assert.Equal(t, 5, cfg.OrderNumberMaxAttempts)
	assert.Equal(t, 7*24*time.Hour, cfg.CartTTL)
	assert.True(t, cfg.TaxRate.IsZero())
	assert.False(t, cfg.StripeEnabled())
	assert.Contains(t, cfg.PostgresDSN(), "host=localhost")
}

func TestLoadConfig_Overrides(t *testing.T) {
	setDBEnv(t)
	t.Setenv("TAX_RATE", "0.08")
	t.Setenv("PRICING_STRICT_OPTIONS", "false")
	t.Setenv("CART_TTL", "2h")
	t.Setenv("ORDER_NUMBER_MAX_ATTEMPTS", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.08", cfg.TaxRate.String())
	assert.False(t, cfg.StrictOptions)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, 3, cfg.OrderNumberMaxAttempts)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_HOST", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_InvalidTaxRate(t *testing.T) {
	setDBEnv(t)
	t.Setenv("TAX_RATE", "ten percent")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{PostgresUser: "env-user", PostgresHost: "env-host", StripeSecretKey: ""}
	applySecrets(context.Background(), cfg, fakeSecrets{
		"coffee/DB_CREDENTIALS": {"POSTGRES_USER": "sm-user", "POSTGRES_PASSWORD": "sm-pw"},
		"coffee/STRIPE":         {"STRIPE_API_KEY": "sk_test_x"},
	})

	assert.Equal(t, "sm-user", cfg.PostgresUser)
	assert.Equal(t, "sm-pw", cfg.PostgresPassword)
	assert.Equal(t, "env-host", cfg.PostgresHost)
	assert.Equal(t, "sk_test_x", cfg.StripeSecretKey)
	assert.Empty(t, cfg.JWTSecret)
}

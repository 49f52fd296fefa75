package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.Service.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, int64(30000), cfg.Checkout.ShippingFee)
	assert.False(t, cfg.Checkout.AllowUnclaimedVouchers)
	assert.False(t, cfg.Stripe.Enabled())
	assert.False(t, cfg.PubSub.Enabled())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("CHECKOUT_SHIPPING_FEE", "15000")
	t.Setenv("CHECKOUT_ALLOW_UNCLAIMED_VOUCHERS", "true")
	t.Setenv("STRIPE_API_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, int64(15000), cfg.Checkout.ShippingFee)
	assert.True(t, cfg.Checkout.AllowUnclaimedVouchers)
	assert.True(t, cfg.Stripe.Enabled())
}

func TestParseValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"bad driver":       {"AUTH_JWT_SECRET": "s", "DATABASE_DRIVER": "mongo"},
		"negative fee":     {"AUTH_JWT_SECRET": "s", "CHECKOUT_SHIPPING_FEE": "-1"},
		"stripe no secret": {"AUTH_JWT_SECRET": "s", "STRIPE_API_KEY": "sk"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

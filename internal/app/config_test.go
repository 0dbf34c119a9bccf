package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmart/storefront/internal/pricing"
)

func TestLoadConfig_RequiresAPIBaseURL(t *testing.T) {
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API base URL is required")
}

func TestLoadConfig_EnvPrefix(t *testing.T) {
	t.Setenv("SHOP_API_BASE_URL", "https://api.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoadConfig_PlatformEnvFallback(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://fallback.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://fallback.example.com", cfg.APIBaseURL)
}

func TestPricingConfig_Defaults(t *testing.T) {
	t.Setenv("SHOP_API_BASE_URL", "https://api.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	policy, err := cfg.Pricing.Policy()
	require.NoError(t, err)
	assert.True(t, pricing.DefaultFreeShippingThreshold.Equal(policy.FreeShippingThreshold))
	assert.True(t, pricing.DefaultFlatShippingFee.Equal(policy.FlatShippingFee))
	assert.True(t, pricing.DefaultDiscountThreshold.Equal(policy.DiscountThreshold))
	assert.True(t, pricing.DefaultDiscountRate.Equal(policy.DiscountRate))
}

func TestPricingConfig_Overrides(t *testing.T) {
	c := PricingConfig{
		FreeShippingThreshold: "25",
		FlatShippingFee:       "2.50",
		DiscountThreshold:     "80",
		DiscountRate:          "0.05",
	}

	policy, err := c.Policy()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(policy.FreeShippingThreshold))
	assert.True(t, decimal.RequireFromString("0.05").Equal(policy.DiscountRate))
}

func TestPricingConfig_InvalidValue(t *testing.T) {
	c := PricingConfig{
		FreeShippingThreshold: "not-a-number",
		FlatShippingFee:       "5.99",
		DiscountThreshold:     "100",
		DiscountRate:          "0.10",
	}

	_, err := c.Policy()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "free shipping threshold")
}

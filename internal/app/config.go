package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/veilmart/storefront/internal/pricing"
)

// Config holds the complete storefront configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	APIBaseURL string `usage:"Storefront API base URL (SHOP_API_BASE_URL or API_BASE_URL)" flag:"api-base-url"`
	StateDir   string `default:"" usage:"Directory for persisted cart state (defaults to the user config dir)" flag:"state-dir"`
	CouponPack string `default:"" usage:"Path to a compiled promo code pack" flag:"coupon-pack"`
	Pricing    PricingConfig
	HTTP       HTTPConfig
	Backend    BackendConfig
}

// PricingConfig overrides the storefront pricing thresholds. Values are
// decimal strings so they parse exactly.
type PricingConfig struct {
	FreeShippingThreshold string `default:"50"   usage:"Subtotal granting free shipping" flag:"free-shipping-threshold"`
	FlatShippingFee       string `default:"5.99" usage:"Shipping fee below the free-shipping threshold" flag:"flat-shipping-fee"`
	DiscountThreshold     string `default:"100"  usage:"Subtotal granting the order-value discount" flag:"discount-threshold"`
	DiscountRate          string `default:"0.10" usage:"Order-value discount rate" flag:"discount-rate"`
}

// Policy parses the configured thresholds into a pricing.Policy.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	var (
		p   pricing.Policy
		err error
	)
	if p.FreeShippingThreshold, err = decimal.NewFromString(c.FreeShippingThreshold); err != nil {
		return p, errors.Wrap(err, "parse free shipping threshold")
	}
	if p.FlatShippingFee, err = decimal.NewFromString(c.FlatShippingFee); err != nil {
		return p, errors.Wrap(err, "parse flat shipping fee")
	}
	if p.DiscountThreshold, err = decimal.NewFromString(c.DiscountThreshold); err != nil {
		return p, errors.Wrap(err, "parse discount threshold")
	}
	if p.DiscountRate, err = decimal.NewFromString(c.DiscountRate); err != nil {
		return p, errors.Wrap(err, "parse discount rate")
	}
	return p, nil
}

// HTTPConfig controls the outbound HTTP client.
type HTTPConfig struct {
	Timeout        time.Duration `default:"10s"   usage:"Per-request timeout"`
	RetryAttempts  int           `default:"3"     usage:"Total attempts for idempotent requests" flag:"retry-attempts"`
	RetryBaseDelay time.Duration `default:"200ms" usage:"Backoff base delay" flag:"retry-base-delay"`
	ThrottleMax    int           `default:"60"    usage:"Max outbound requests per throttle window" flag:"throttle-max"`
	ThrottleWindow time.Duration `default:"1m"    usage:"Throttle window duration" flag:"throttle-window"`
}

// BackendConfig controls the backend availability monitor.
type BackendConfig struct {
	ProbeInterval time.Duration `default:"30s" usage:"Availability probe interval" flag:"probe-interval"`
	ProbeTimeout  time.Duration `default:"5s"  usage:"Availability probe timeout" flag:"probe-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, and applies platform defaults. Flags are left to the subcommands.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		SkipFlags: true,
		Files:     []string{"storefront.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyDefaults()

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API base URL is required: set SHOP_API_BASE_URL or API_BASE_URL")
	}

	return &cfg, nil
}

// applyDefaults maps unprefixed platform environment variables and fills the
// state directory from the user config dir.
func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		if v := os.Getenv("API_BASE_URL"); v != "" {
			c.APIBaseURL = v
		}
	}
	if c.StateDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.StateDir = filepath.Join(dir, "veilmart")
		} else {
			c.StateDir = ".veilmart"
		}
	}
}

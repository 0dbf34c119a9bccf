// Package app assembles the storefront: persisted cart, pricing policy,
// promo validation, the backend API client, and the availability monitor.
// It is the single wiring point; one App per session.
package app

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/veilmart/storefront/internal/domain/cart"
	"github.com/veilmart/storefront/internal/domain/checkout"
	"github.com/veilmart/storefront/internal/domain/coupon"
	"github.com/veilmart/storefront/internal/pricing"
	"github.com/veilmart/storefront/internal/restapi"
	storagefile "github.com/veilmart/storefront/internal/storage/file"
	"github.com/veilmart/storefront/pkg/availability"
	"github.com/veilmart/storefront/pkg/httpclient"
)

// App holds the assembled storefront components.
type App struct {
	Config   *Config
	Pricing  pricing.Policy
	Cart     *cart.Store
	API      *restapi.Client
	Checkout *checkout.Service
	Monitor  *availability.Monitor

	lg *zap.Logger
}

// New builds an App from cfg. The cart is hydrated from the state directory;
// the availability monitor is configured but not started (call
// StartMonitor for long-lived sessions).
func New(cfg *Config, lg *zap.Logger) (*App, error) {
	policy, err := cfg.Pricing.Policy()
	if err != nil {
		return nil, errors.Wrap(err, "pricing config")
	}

	kv, err := storagefile.New(cfg.StateDir)
	if err != nil {
		return nil, errors.Wrap(err, "open state dir")
	}
	cartStore := cart.NewStore(kv, cart.WithLogger(lg.Named("cart")))

	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout,
		Transport: httpclient.Wrap(nil,
			httpclient.Throttle(httpclient.ThrottleConfig{
				Max:    cfg.HTTP.ThrottleMax,
				Window: cfg.HTTP.ThrottleWindow,
			}),
			httpclient.Retry(httpclient.RetryConfig{
				MaxAttempts: cfg.HTTP.RetryAttempts,
				BaseDelay:   cfg.HTTP.RetryBaseDelay,
			}),
			httpclient.RequestID(),
			httpclient.LogRequests(),
			httpclient.Instrument("storefront-api"),
		),
	}
	api := restapi.New(cfg.APIBaseURL, restapi.WithHTTPClient(httpClient))

	// A missing or unreadable pack only disables offline promo validation;
	// the backend still validates codes at order placement.
	var validator coupon.Validator
	if cfg.CouponPack != "" {
		pack, err := coupon.OpenPack(cfg.CouponPack)
		if err != nil {
			lg.Warn("promo pack unavailable, promo codes disabled", zap.Error(err))
		} else {
			validator = coupon.NewPackValidator(pack)
		}
	}

	monitor := availability.NewMonitor()
	monitor.AddCheck("api", cfg.Backend.ProbeTimeout,
		availability.HTTPCheck(httpClient, api.ReadyURL()))

	return &App{
		Config:   cfg,
		Pricing:  policy,
		Cart:     cartStore,
		API:      api,
		Checkout: checkout.NewService(cartStore, policy, validator, api),
		Monitor:  monitor,
		lg:       lg,
	}, nil
}

// StartMonitor begins periodic backend probing for long-lived sessions.
func (a *App) StartMonitor(ctx context.Context) {
	a.Monitor.Start(ctx, a.Config.Backend.ProbeInterval)
}

// Close stops background work.
func (a *App) Close() {
	a.Monitor.Stop()
}

// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"realestate-payments/internal/config"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/domain/ports/repository"
	payAdapters "realestate-payments/internal/infra/adapters/payment"
	"realestate-payments/internal/infra/api"
	pg "realestate-payments/internal/infra/db/postgres"
	"realestate-payments/internal/infra/logging"
	"realestate-payments/internal/infra/metrics"
	red "realestate-payments/internal/infra/redis"
	"realestate-payments/internal/infra/sched"
	"realestate-payments/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("payments service stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	tm := pg.NewTxManager(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	var planRepo repository.PlanRepository = pg.NewPostgresPlanRepo(pool)

	// ---- Redis (optional) ----
	var (
		notifier adapter.PaymentNotifier = red.NopNotifier{}
		locker   adapter.Locker
		limiter  api.RateLimiter
	)
	if cfg.Redis.Enabled() {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		notifier = red.NewPaymentPublisher(rc)
		locker = red.NewLocker(rc)
		limiter = red.NewRateLimiter(rc)
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, rc, cfg.Redis.TTL, logger)
		logger.Info().Msg("redis enabled: webhook locks, status rate limit, plan cache, payment events")
	} else {
		logger.Info().Msg("redis disabled")
	}

	// ---- Payment provider ----
	gateway, verifier, err := newGateway(cfg)
	if err != nil {
		return err
	}
	logger.Info().Str("provider", gateway.Name()).Bool("signature_check", cfg.Payment.MercadoPago.WebhookSecret != "").Msg("payment provider ready")

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(subRepo, tm, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	transitions := usecase.NewPaymentTransitioner(paymentRepo, subUC, tm, notifier, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, planRepo, gateway, transitions, usecase.PaymentOptions{
		Currency:            cfg.Payment.Currency,
		PreferenceTTL:       cfg.Payment.PreferenceTTL,
		FallbackEmailDomain: cfg.Payment.FallbackEmailDomain,
		NotificationURL:     cfg.Payment.NotificationURL,
		BackURLs: adapter.BackURLs{
			Success: cfg.Payment.BackURLs.Success,
			Failure: cfg.Payment.BackURLs.Failure,
			Pending: cfg.Payment.BackURLs.Pending,
		},
		LatestPendingFallback: cfg.Debug.LatestPendingFallback,
		Dev:                   cfg.Runtime.Dev,
	}, logger)
	webhookUC := usecase.NewWebhookUseCase(eventRepo, paymentRepo, gateway, verifier, locker, transitions,
		usecase.WebhookOptions{LockTTL: cfg.API.WebhookLockTTL}, logger)

	if err := subUC.RefreshGauges(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial subscription gauges")
	}

	// ---- Reconciler ----
	if cfg.Reconciler.Enabled {
		rec := sched.NewPaymentReconciler(paymentUC, subUC, paymentRepo,
			cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.BatchSize, cfg.Reconciler.Concurrency, logger)
		go func() { _ = rec.Run(ctx) }()
	}

	// ---- HTTP ----
	var auth *api.AuthManager
	if cfg.Admin.JWTSecret != "" {
		auth = api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	}
	srv := api.NewServer(api.Deps{
		Payments:      paymentUC,
		Webhooks:      webhookUC,
		Plans:         planUC,
		Subscriptions: subUC,
		Auth:          auth,
		Limiter:       limiter,
		Ready:         pool.Ping,
	}, api.Options{
		DeepLinkScheme:   cfg.App.DeepLinkScheme,
		RequestTimeout:   cfg.Server.RequestTimeout,
		StatusRateLimit:  cfg.API.StatusRateLimit,
		StatusRateWindow: cfg.API.StatusRateWindow,
	}, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info().Msg("bye")
	return nil
}

func newGateway(cfg *config.Config) (adapter.PreferenceGateway, adapter.NotificationVerifier, error) {
	if cfg.Payment.Provider == "noop" {
		return payAdapters.NewNoopPaymentGateway(), nil, nil
	}
	gw, err := payAdapters.NewMercadoPagoGateway(cfg.Payment.MercadoPago)
	if err != nil {
		return nil, nil, fmt.Errorf("mercadopago gateway: %w", err)
	}
	return gw, payAdapters.NewMercadoPagoSignatureVerifier(cfg.Payment.MercadoPago.WebhookSecret), nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/responses"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/api/routes"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/accounts"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/cart"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/catalog"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/checkout"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/notifications"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/orders"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/reconcile"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/shipping"
	stripewebhook "github.com/thefreewebsitewizards/moroz-ksenia--sub000/internal/webhooks/stripe"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/config"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/db"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/logger"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/mailer"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/metrics"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/migrate"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/money"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/redis"
	"github.com/thefreewebsitewizards/moroz-ksenia--sub000/pkg/stripe"
	"go.uber.org/multierr"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	responses.SetProduction(cfg.App.IsProd())

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}
	gateway := stripe.NewGateway(stripeClient)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(registry)

	gdb := dbClient.DB()
	threshold := money.FromDecimal(cfg.Storefront.ShippingThreshold())

	catalogService, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		return err
	}
	quoter, err := cart.NewQuoter(catalog.NewRepository(gdb), threshold)
	if err != nil {
		return err
	}
	shippingService, err := shipping.NewService(gateway, shipping.Options{
		PlaceholderAccount: cfg.Stripe.PlaceholderAccount,
		Threshold:          threshold,
	}, logg)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(gateway, shippingService, checkout.Options{
		FeePercent:         cfg.Storefront.FeePercent(),
		Currency:           cfg.Storefront.Currency,
		FrontendURL:        cfg.Storefront.FrontendBase(),
		PlaceholderAccount: cfg.Stripe.PlaceholderAccount,
		ShippingCountries:  []string{cfg.Stripe.ConnectCountry},
	}, storefrontMetrics, logg)
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(orders.NewRepository(gdb), gateway, storefrontMetrics, logg)
	if err != nil {
		return err
	}
	reconciler, err := reconcile.New(ordersService, redisClient, cfg.Storefront.ProcessedSessionTTL, storefrontMetrics, logg)
	if err != nil {
		return err
	}
	accountsService, err := accounts.NewService(gateway, accounts.NewArtistRepository(gdb), accounts.Options{
		FrontendURL:        cfg.Storefront.FrontendBase(),
		DefaultCountry:     cfg.Stripe.ConnectCountry,
		PlaceholderAccount: cfg.Stripe.PlaceholderAccount,
		AllowDelete:        !cfg.App.IsProd(),
	}, logg)
	if err != nil {
		return err
	}
	notificationsService, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:          ordersService,
		Accounts:        accountsService,
		Mailer:          mailer.New(cfg.Sendgrid, logg),
		Notifications:   notificationsService,
		Events:          stripewebhook.NewEventLog(gdb),
		SellerEmail:     cfg.Sendgrid.SellerEmail,
		SellerRecipient: notifications.SellerRecipient,
		Metrics:         storefrontMetrics,
		Logger:          logg,
	})
	if err != nil {
		return err
	}
	guard, err := stripewebhook.NewEventGuard(redisClient, cfg.Webhooks.IdempotencyTTL)
	if err != nil {
		return err
	}
	dispatcher, err := stripewebhook.NewDispatcher(webhookService, guard, cfg.Webhooks.HandlerTimeout, logg)
	if err != nil {
		return err
	}

	router := routes.NewRouter(cfg, logg, routes.Deps{
		DB:                dbClient,
		Redis:             redisClient,
		Metrics:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Catalog:           catalogService,
		Cart:              quoter,
		Shipping:          shippingService,
		Checkout:          checkoutService,
		Orders:            ordersService,
		Confirmer:         reconciler,
		Accounts:          accountsService,
		Notifications:     notificationsService,
		WebhookGuard:      guard,
		WebhookDispatcher: dispatcher,
		SellerRecipient:   notifications.SellerRecipient,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logg.Info(logCtx, "shutting down api server: "+sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return multierr.Combine(
		server.Shutdown(shutdownCtx),
		dispatcher.Shutdown(shutdownCtx),
	)
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rhobart/minimart/internal"
	"github.com/rhobart/minimart/internal/bootstrap"
	"github.com/rhobart/minimart/internal/events"
	"github.com/rhobart/minimart/internal/handler"
	adminhandler "github.com/rhobart/minimart/internal/handler/admin"
	"github.com/rhobart/minimart/internal/handler/storefront"
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/payment/nets"
	"github.com/rhobart/minimart/internal/payment/paypal"
	"github.com/rhobart/minimart/internal/postgres"
	"github.com/rhobart/minimart/internal/router"
	"github.com/rhobart/minimart/internal/routes"
	"github.com/rhobart/minimart/internal/service"
	"github.com/rhobart/minimart/internal/session"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed")

	// pgx connection pool for the application
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Stores
	productStore := postgres.NewProductStore(pool)
	orderStore := postgres.NewOrderStore(pool)
	userStore := postgres.NewUserStore(pool)
	wishlistStore := postgres.NewWishlistStore(pool)

	// Seed admin account
	if err := bootstrap.EnsureAdmin(ctx, userStore, bootstrap.AdminSeed{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, logger); err != nil {
		return fmt.Errorf("admin seed failed: %w", err)
	}

	// Payment providers
	paypalProvider, err := paypal.NewClient(paypal.Config{
		BaseURL:  cfg.PayPal.BaseURL,
		ClientID: cfg.PayPal.ClientID,
		Secret:   cfg.PayPal.Secret,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize paypal provider: %w", err)
	}

	netsProvider := nets.NewClient(nets.Config{
		RequestURL: cfg.Nets.RequestURL,
		QueryURL:   cfg.Nets.QueryURL,
		APIKey:     cfg.Nets.APIKey,
		ProjectID:  cfg.Nets.ProjectID,
		TxnID:      cfg.Nets.TxnID,
	}, logger)

	// Order events publisher; without a broker configured, events are
	// dropped and settlement proceeds unaffected.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	// Services
	cartService := service.NewCartService(productStore, logger)
	checkoutService := service.NewCheckoutService(
		productStore, orderStore, userStore,
		paypalProvider, netsProvider, publisher, logger,
	)

	// Sessions
	sessions := session.NewManager(cfg.SessionTTL, cfg.Env == "prod")
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions.Sweep()
			}
		}
	}()

	// Templates
	logger.Info("Loading templates...")
	renderer, err := handler.NewRenderer("web/templates")
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	// Prometheus metrics
	metrics := middleware.NewMetrics("minimart")

	// Route dependencies
	storefrontDeps := routes.StorefrontDeps{
		ProductHandler:  storefront.NewProductHandler(productStore, renderer),
		CartHandler:     storefront.NewCartHandler(cartService, renderer),
		AuthHandler:     storefront.NewAuthHandler(userStore, sessions, renderer),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService, metrics, renderer),
		PayPalHandler:   storefront.NewPayPalHandler(checkoutService, cfg.PayPal.ClientID, cfg.BaseURL, metrics, renderer),
		NetsHandler:     storefront.NewNetsHandler(checkoutService, netsProvider, metrics, renderer),
		OrderHandler:    storefront.NewOrderHandler(orderStore, renderer),
		WishlistHandler: storefront.NewWishlistHandler(wishlistStore, renderer),
	}

	adminDeps := routes.AdminDeps{
		ProductHandler: adminhandler.NewProductHandler(productStore, renderer),
		OrderHandler:   adminhandler.NewOrderHandler(orderStore, renderer),
		UserHandler:    adminhandler.NewUserHandler(userStore, renderer),
	}

	// Router with the global middleware chain. The request timeout is
	// applied per route group so the payment status stream can stay open.
	r := router.New(
		middleware.Recover,
		middleware.RequestID,
		metrics.Middleware,
		middleware.SecurityHeaders,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.WithRequestLogger(logger),
		middleware.WithSession(sessions),
	)

	r.Static("/static/", "./web/static")

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterStorefrontRoutes(r, storefrontDeps)
	routes.RegisterAdminRoutes(r, adminDeps)
	routes.RegisterOpsRoutes(r, routes.OpsDeps{MetricsHandler: metrics.Handler()})

	// Serve
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rachelmorley/tutorpay-backend/api/routes"
	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/internal/auth"
	"github.com/rachelmorley/tutorpay-backend/internal/balance"
	"github.com/rachelmorley/tutorpay-backend/internal/checkout"
	"github.com/rachelmorley/tutorpay-backend/internal/dashboard"
	"github.com/rachelmorley/tutorpay-backend/internal/ledger"
	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	stripewebhook "github.com/rachelmorley/tutorpay-backend/internal/webhooks/stripe"
	"github.com/rachelmorley/tutorpay-backend/pkg/auth/session"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
	"github.com/rachelmorley/tutorpay-backend/pkg/migrate"
	"github.com/rachelmorley/tutorpay-backend/pkg/redis"
	pkgstripe "github.com/rachelmorley/tutorpay-backend/pkg/stripe"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	accountRepo := accounts.NewRepository(dbClient.DB())
	lessonRepo := lessons.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	balanceService, err := balance.NewService(ledgerRepo, lessonRepo, accountRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create balance service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	lessonService, err := lessons.NewService(lessonRepo, accountRepo, ledgerService, balanceService, dbClient, cfg.Lessons, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lesson service", err)
		os.Exit(1)
	}

	accountService, err := accounts.NewService(accountRepo, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		AccountRepo:    accountRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.NewStripeClient(stripeClient), accountRepo, cfg.Billing, cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		LedgerRepo:        ledgerRepo,
		Recalculator:      balanceService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.WebhookEventTTL, cfg.Stripe.Environment())
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(accountRepo, lessonRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			accountService,
			lessonService,
			ledgerService,
			balanceService,
			checkoutService,
			dashboardService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

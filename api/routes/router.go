package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rachelmorley/tutorpay-backend/api/controllers"
	webhookcontrollers "github.com/rachelmorley/tutorpay-backend/api/controllers/webhooks"
	"github.com/rachelmorley/tutorpay-backend/api/middleware"
	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/internal/auth"
	checkoutsvc "github.com/rachelmorley/tutorpay-backend/internal/checkout"
	"github.com/rachelmorley/tutorpay-backend/internal/dashboard"
	"github.com/rachelmorley/tutorpay-backend/internal/ledger"
	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	stripewebhook "github.com/rachelmorley/tutorpay-backend/internal/webhooks/stripe"
	"github.com/rachelmorley/tutorpay-backend/pkg/auth/session"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
	"github.com/rachelmorley/tutorpay-backend/pkg/redis"
	"github.com/rachelmorley/tutorpay-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService auth.Service,
	accountService accounts.Service,
	lessonService lessons.Service,
	ledgerService ledger.Service,
	balanceService controllers.Recalculator,
	checkoutService checkoutsvc.Service,
	dashboardService dashboard.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(authService, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/me", controllers.Profile(accountService, balanceService, logg))

			r.Route("/lessons", func(r chi.Router) {
				r.Get("/", controllers.LessonListMine(lessonService, logg))
				r.Get("/{lessonId}", controllers.LessonDetail(lessonService, logg))
				r.Post("/{lessonId}/reschedule", controllers.LessonReschedule(lessonService, logg))
				r.Post("/{lessonId}/cancel", controllers.LessonCancel(lessonService, logg))
			})

			r.Get("/transactions", controllers.TransactionListMine(ledgerService, logg))
			r.Post("/balance/recalculate", controllers.BalanceRecalculateMine(balanceService, logg))
			r.Post("/checkout/deposit", controllers.CheckoutDeposit(checkoutService, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.AccountRoleAdmin), logg))

			r.Get("/dashboard", controllers.DashboardStats(dashboardService, logg))

			r.Route("/students", func(r chi.Router) {
				r.Post("/", controllers.StudentCreate(accountService, logg))
				r.Get("/", controllers.StudentList(accountService, logg))
				r.Get("/{accountId}", controllers.StudentDetail(accountService, logg))
				r.Patch("/{accountId}", controllers.StudentUpdate(accountService, logg))
				r.Post("/{accountId}/deactivate", controllers.StudentSetActive(accountService, false, logg))
				r.Post("/{accountId}/reactivate", controllers.StudentSetActive(accountService, true, logg))
				r.Post("/{accountId}/reset-password", controllers.StudentResetPassword(accountService, logg))
				r.Get("/{accountId}/lessons", controllers.LessonListForAccount(lessonService, logg))
				r.Get("/{accountId}/transactions", controllers.TransactionListForAccount(ledgerService, logg))
				r.Post("/{accountId}/balance/recalculate", controllers.BalanceRecalculateForAccount(balanceService, logg))
			})

			r.Route("/lessons", func(r chi.Router) {
				r.Post("/", controllers.LessonBook(lessonService, logg))
				r.Get("/calendar", controllers.LessonCalendar(lessonService, logg))
				r.Get("/{lessonId}", controllers.LessonDetail(lessonService, logg))
				r.Patch("/{lessonId}", controllers.LessonUpdate(lessonService, logg))
				r.Post("/{lessonId}/reschedule", controllers.LessonReschedule(lessonService, logg))
				r.Post("/{lessonId}/cancel", controllers.LessonCancel(lessonService, logg))
				r.Post("/{lessonId}/cancel-series", controllers.LessonCancelSeries(lessonService, logg))
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/", controllers.TransactionRecordDeposit(ledgerService, balanceService, logg))
				r.Delete("/{transactionId}", controllers.TransactionDeleteManual(ledgerService, balanceService, logg))
			})
		})
	})

	return r
}

package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/internal/auth"
	"github.com/rachelmorley/tutorpay-backend/internal/checkout"
	"github.com/rachelmorley/tutorpay-backend/internal/dashboard"
	"github.com/rachelmorley/tutorpay-backend/internal/ledger"
	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	pkgAuth "github.com/rachelmorley/tutorpay-backend/pkg/auth"
	"github.com/rachelmorley/tutorpay-backend/pkg/auth/session"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
	"github.com/rachelmorley/tutorpay-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) ChangePassword(ctx context.Context, accountID uuid.UUID, req auth.ChangePasswordRequest) error {
	return nil
}

type stubAccountService struct{}

func (stubAccountService) CreateStudent(ctx context.Context, input accounts.CreateStudentInput) (*models.Account, string, error) {
	panic("unimplemented")
}

func (stubAccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return &models.Account{ID: id, Role: enums.AccountRoleStudent}, nil
}

func (stubAccountService) ListStudents(ctx context.Context) ([]models.Account, error) {
	return []models.Account{}, nil
}

func (stubAccountService) Update(ctx context.Context, input accounts.UpdateAccountInput) (*models.Account, error) {
	panic("unimplemented")
}

func (stubAccountService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func (stubAccountService) ResetPassword(ctx context.Context, id uuid.UUID) (string, error) {
	return "", nil
}

type stubLessonService struct {
	listByAccount func(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error)
}

func (stubLessonService) Book(ctx context.Context, input lessons.BookInput) (*lessons.BookResult, error) {
	panic("unimplemented")
}

func (stubLessonService) Get(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	panic("unimplemented")
}

func (s stubLessonService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error) {
	if s.listByAccount != nil {
		return s.listByAccount(ctx, accountID)
	}
	return []models.Lesson{}, nil
}

func (stubLessonService) ListCalendar(ctx context.Context, from, to time.Time) ([]models.Lesson, error) {
	return []models.Lesson{}, nil
}

func (stubLessonService) Update(ctx context.Context, input lessons.UpdateInput) (*models.Lesson, error) {
	panic("unimplemented")
}

func (stubLessonService) Reschedule(ctx context.Context, input lessons.RescheduleInput) (*models.Lesson, error) {
	panic("unimplemented")
}

func (stubLessonService) Cancel(ctx context.Context, input lessons.CancelInput) (*models.Lesson, error) {
	panic("unimplemented")
}

func (stubLessonService) CancelSeriesRest(ctx context.Context, input lessons.CancelInput) ([]models.Lesson, error) {
	panic("unimplemented")
}

type stubLedgerService struct{}

func (stubLedgerService) RecordDeposit(ctx context.Context, input ledger.RecordDepositInput) (*models.Transaction, error) {
	panic("unimplemented")
}

func (stubLedgerService) RecordDepositTx(ctx context.Context, tx *gorm.DB, input ledger.RecordDepositInput) (*models.Transaction, error) {
	panic("unimplemented")
}

func (stubLedgerService) RecordRefundTx(ctx context.Context, tx *gorm.DB, accountID, lessonID uuid.UUID, amount decimal.Decimal, description string) error {
	panic("unimplemented")
}

func (stubLedgerService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

func (stubLedgerService) FindByStripePaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	panic("unimplemented")
}

func (stubLedgerService) DeleteManualEntry(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	panic("unimplemented")
}

type stubRecalculator struct{}

func (stubRecalculator) Recalculate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) CreateDepositSession(ctx context.Context, input checkout.DepositSessionInput) (*checkout.DepositSessionResult, error) {
	panic("unimplemented")
}

type stubDashboardService struct{}

func (stubDashboardService) Stats(ctx context.Context) (*dashboard.Stats, error) {
	return &dashboard.Stats{EarningsMonthToDate: decimal.Zero}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},         // db.Pinger
		(*redis.Client)(nil), // *redis.Client
		stubSessionChecker{},
		stubAuthService{},
		stubAccountService{},
		stubLessonService{},
		stubLedgerService{},
		stubRecalculator{},
		stubCheckoutService{},
		stubDashboardService{},
		nil, // *stripe.Client
		nil, // *stripewebhook.Service
		nil, // *stripewebhook.IdempotencyGuard
	)
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPortalGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lessons", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPortalGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lessons", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AccountRoleStudent))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for lesson list got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	student := httptest.NewRequest(http.MethodGet, "/api/admin/v1/dashboard", nil)
	student.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AccountRoleStudent))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, student)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student on admin route got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/dashboard", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AccountRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin dashboard got %d", resp.Code)
	}
}

func TestProfileDerivesBalanceBeforeRead(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AccountRoleStudent))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for profile got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestWebhookRouteIsPublicButGuarded(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader("{}"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	// The unsigned payload is rejected by the handler itself, not by the
	// auth middleware.
	if resp.Code == http.StatusUnauthorized {
		t.Fatalf("webhook route must not require a bearer token, got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.AccountRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AccountID: uuid.New(),
		Role:      role,
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

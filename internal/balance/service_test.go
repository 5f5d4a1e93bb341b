package balance

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/internal/ledger"
	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

type fakeLedgerRepo struct {
	ledger.Repository
	listCreditsFn func(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) ListCreditsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	if f.listCreditsFn != nil {
		return f.listCreditsFn(ctx, accountID)
	}
	return nil, nil
}

type fakeLessonRepo struct {
	lessons.Repository
	listByAccountFn func(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error)
}

func (f *fakeLessonRepo) WithTx(tx *gorm.DB) lessons.Repository { return f }

func (f *fakeLessonRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error) {
	if f.listByAccountFn != nil {
		return f.listByAccountFn(ctx, accountID)
	}
	return nil, nil
}

type fakeAccountRepo struct {
	accounts.Repository
	updateBalanceFn func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

func (f *fakeAccountRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountRepo) UpdateCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if f.updateBalanceFn != nil {
		return f.updateBalanceFn(ctx, id, balance)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, ledgerRepo *fakeLedgerRepo, lessonRepo *fakeLessonRepo, accountRepo *fakeAccountRepo) Service {
	t.Helper()
	svc, err := NewService(ledgerRepo, lessonRepo, accountRepo, testLogger())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_RecalculateOverwritesCachedBalance(t *testing.T) {
	accountID := uuid.New()
	now := time.Now()

	ledgerRepo := &fakeLedgerRepo{
		listCreditsFn: func(ctx context.Context, id uuid.UUID) ([]models.Transaction, error) {
			if id != accountID {
				t.Fatalf("unexpected account id %s", id)
			}
			return []models.Transaction{
				{Type: enums.TransactionTypeDeposit, Amount: decimal.RequireFromString("80.00")},
			}, nil
		},
	}
	lessonRepo := &fakeLessonRepo{
		listByAccountFn: func(ctx context.Context, id uuid.UUID) ([]models.Lesson, error) {
			return []models.Lesson{
				{
					StartTime:       now.Add(-2 * time.Hour),
					EndTime:         now.Add(-time.Hour),
					Status:          enums.LessonStatusCompleted,
					Cost:            decimal.RequireFromString("25.00"),
					DurationMinutes: 60,
				},
			}, nil
		},
	}

	var persisted *decimal.Decimal
	var persistCalls int
	accountRepo := &fakeAccountRepo{
		updateBalanceFn: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			persisted = &balance
			persistCalls++
			return nil
		},
	}

	svc := newTestService(t, ledgerRepo, lessonRepo, accountRepo)

	got, err := svc.Recalculate(context.Background(), accountID)
	if err != nil {
		t.Fatalf("Recalculate error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("55.00")) {
		t.Fatalf("expected 55.00, got %s", got)
	}
	if persisted == nil || !persisted.Equal(got) {
		t.Fatalf("derived value must be written back, got %v", persisted)
	}

	// second run with identical data writes the identical value
	again, err := svc.Recalculate(context.Background(), accountID)
	if err != nil {
		t.Fatalf("second Recalculate error: %v", err)
	}
	if !again.Equal(got) {
		t.Fatalf("recalculation must be idempotent: %s vs %s", again, got)
	}
	if persistCalls != 2 {
		t.Fatalf("expected 2 persist calls, got %d", persistCalls)
	}
}

func TestService_RecalculateAbortsWithoutWriteOnFetchError(t *testing.T) {
	fetchErr := errors.New("credits unavailable")
	ledgerRepo := &fakeLedgerRepo{
		listCreditsFn: func(ctx context.Context, id uuid.UUID) ([]models.Transaction, error) {
			return nil, fetchErr
		},
	}
	accountRepo := &fakeAccountRepo{
		updateBalanceFn: func(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
			t.Fatal("cached balance must not be written when a fetch fails")
			return nil
		},
	}

	svc := newTestService(t, ledgerRepo, &fakeLessonRepo{}, accountRepo)

	if _, err := svc.Recalculate(context.Background(), uuid.New()); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error to bubble up, got %v", err)
	}
}

func TestService_RecalculateRequiresAccountID(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, &fakeLessonRepo{}, &fakeAccountRepo{})
	if _, err := svc.Recalculate(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected error for nil account id")
	}
}

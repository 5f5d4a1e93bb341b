package lessons

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

type fakeRepo struct {
	Repository
	getFn             func(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	createBatchFn     func(ctx context.Context, lessons []models.Lesson) error
	listOverlappingFn func(ctx context.Context, start, end time.Time) ([]models.Lesson, error)
	listGroupFn       func(ctx context.Context, groupID uuid.UUID, after time.Time) ([]models.Lesson, error)
	updateFn          func(ctx context.Context, lesson *models.Lesson) error
	updateStatusFn    func(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateBatch(ctx context.Context, lessons []models.Lesson) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, lessons)
	}
	return nil
}

func (f *fakeRepo) ListOverlapping(ctx context.Context, start, end time.Time) ([]models.Lesson, error) {
	if f.listOverlappingFn != nil {
		return f.listOverlappingFn(ctx, start, end)
	}
	return nil, nil
}

func (f *fakeRepo) ListFutureScheduledInGroup(ctx context.Context, groupID uuid.UUID, after time.Time) ([]models.Lesson, error) {
	if f.listGroupFn != nil {
		return f.listGroupFn(ctx, groupID, after)
	}
	return nil, nil
}

func (f *fakeRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, lesson)
	}
	return nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}

type fakeAccounts struct {
	accounts.Repository
	getFn func(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

func (f *fakeAccounts) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeRefunds struct {
	recorded []decimal.Decimal
	lessons  []uuid.UUID
}

func (f *fakeRefunds) RecordRefundTx(ctx context.Context, tx *gorm.DB, accountID, lessonID uuid.UUID, amount decimal.Decimal, description string) error {
	f.recorded = append(f.recorded, amount)
	f.lessons = append(f.lessons, lessonID)
	return nil
}

type fakeRecalc struct {
	calls []uuid.UUID
}

func (f *fakeRecalc) RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error) {
	f.calls = append(f.calls, accountID)
	return decimal.Zero, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type serviceFixture struct {
	repo     *fakeRepo
	accounts *fakeAccounts
	refunds  *fakeRefunds
	recalc   *fakeRecalc
	cfg      config.LessonsConfig
	now      time.Time
}

func defaultCfg() config.LessonsConfig {
	return config.LessonsConfig{
		RecurringWeeks:     52,
		RecurringCadence:   1,
		CancelGraceHours:   24,
		DefaultDurationMin: 60,
	}
}

func newFixtureService(t *testing.T, fx *serviceFixture) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(fx.repo, fx.accounts, fx.refunds, fx.recalc, fakeTxRunner{}, fx.cfg, logg)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if !fx.now.IsZero() {
		svc.(*service).now = func() time.Time { return fx.now }
	}
	return svc
}

func activeStudent(id uuid.UUID, rate string) *models.Account {
	return &models.Account{
		ID:         id,
		Role:       enums.AccountRoleStudent,
		HourlyRate: decimal.RequireFromString(rate),
		IsActive:   true,
	}
}

func TestService_BookSingleLesson(t *testing.T) {
	accountID := uuid.New()
	start := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	var created []models.Lesson
	fx := &serviceFixture{
		repo: &fakeRepo{
			createBatchFn: func(ctx context.Context, lessons []models.Lesson) error {
				created = lessons
				return nil
			},
		},
		accounts: &fakeAccounts{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
				return activeStudent(id, "30.00"), nil
			},
		},
		refunds: &fakeRefunds{},
		recalc:  &fakeRecalc{},
		cfg:     defaultCfg(),
	}
	svc := newFixtureService(t, fx)

	result, err := svc.Book(context.Background(), BookInput{
		AccountID:       accountID,
		Title:           "A-level Physics",
		StartTime:       start,
		DurationMinutes: 90,
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if len(created) != 1 || len(result.Lessons) != 1 {
		t.Fatalf("expected one lesson, got %d", len(created))
	}
	lesson := created[0]
	if !lesson.EndTime.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("end time mismatch: %s", lesson.EndTime)
	}
	if !lesson.Cost.Equal(decimal.RequireFromString("45.00")) {
		t.Fatalf("cost should be priced from the account rate, got %s", lesson.Cost)
	}
	if len(fx.recalc.calls) != 1 || fx.recalc.calls[0] != accountID {
		t.Fatalf("booking must trigger a balance recompute, got %v", fx.recalc.calls)
	}
}

func TestService_BookRejectsConflict(t *testing.T) {
	accountID := uuid.New()
	start := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)
	existing := models.Lesson{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTime: start.Add(30 * time.Minute),
		EndTime:   start.Add(90 * time.Minute),
		Status:    enums.LessonStatusScheduled,
	}

	fx := &serviceFixture{
		repo: &fakeRepo{
			listOverlappingFn: func(ctx context.Context, from, to time.Time) ([]models.Lesson, error) {
				return []models.Lesson{existing}, nil
			},
		},
		accounts: &fakeAccounts{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
				return activeStudent(id, "30.00"), nil
			},
		},
		refunds: &fakeRefunds{},
		recalc:  &fakeRecalc{},
		cfg:     defaultCfg(),
	}
	svc := newFixtureService(t, fx)

	input := BookInput{AccountID: accountID, StartTime: start, DurationMinutes: 60}

	_, err := svc.Book(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if typed.Details() == nil {
		t.Fatal("conflict error should carry the overlapping lesson details")
	}

	// the admin can override the advisory warning
	input.AllowConflict = true
	result, err := svc.Book(context.Background(), input)
	if err != nil {
		t.Fatalf("override should book anyway: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("override result should still surface conflicts, got %d", len(result.Conflicts))
	}
}

func TestService_BookStrictModeIgnoresOverride(t *testing.T) {
	start := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)
	cfg := defaultCfg()
	cfg.StrictConflicts = true

	fx := &serviceFixture{
		repo: &fakeRepo{
			listOverlappingFn: func(ctx context.Context, from, to time.Time) ([]models.Lesson, error) {
				return []models.Lesson{{
					ID:        uuid.New(),
					StartTime: start,
					EndTime:   start.Add(time.Hour),
					Status:    enums.LessonStatusScheduled,
				}}, nil
			},
		},
		accounts: &fakeAccounts{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
				return activeStudent(id, "30.00"), nil
			},
		},
		refunds: &fakeRefunds{},
		recalc:  &fakeRecalc{},
		cfg:     cfg,
	}
	svc := newFixtureService(t, fx)

	_, err := svc.Book(context.Background(), BookInput{
		AccountID:     uuid.New(),
		StartTime:     start,
		AllowConflict: true,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("strict mode must reject regardless of override, got %v", err)
	}
}

func TestService_BookRecurringCreatesFullSeries(t *testing.T) {
	start := time.Date(2026, 4, 1, 16, 0, 0, 0, time.UTC)

	var created []models.Lesson
	fx := &serviceFixture{
		repo: &fakeRepo{
			createBatchFn: func(ctx context.Context, lessons []models.Lesson) error {
				created = lessons
				return nil
			},
		},
		accounts: &fakeAccounts{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Account, error) {
				return activeStudent(id, "30.00"), nil
			},
		},
		refunds: &fakeRefunds{},
		recalc:  &fakeRecalc{},
		cfg:     defaultCfg(),
	}
	svc := newFixtureService(t, fx)

	result, err := svc.Book(context.Background(), BookInput{
		AccountID: uuid.New(),
		StartTime: start,
		Recurring: true,
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if len(created) != 52 {
		t.Fatalf("expected 52 occurrences, got %d", len(created))
	}
	if result.RecurringGroupID == nil {
		t.Fatal("recurring booking should report its group id")
	}
}

func TestService_CancelEndedLessonWritesRefundAudit(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	lesson := &models.Lesson{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTime: now.Add(-3 * time.Hour),
		EndTime:   now.Add(-2 * time.Hour),
		Status:    enums.LessonStatusCompleted,
		Cost:      decimal.RequireFromString("25.00"),
	}

	var statusSet enums.LessonStatus
	fx := &serviceFixture{
		repo: &fakeRepo{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
				copy := *lesson
				return &copy, nil
			},
			updateStatusFn: func(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error {
				statusSet = status
				return nil
			},
		},
		accounts: &fakeAccounts{},
		refunds:  &fakeRefunds{},
		recalc:   &fakeRecalc{},
		cfg:      defaultCfg(),
		now:      now,
	}
	svc := newFixtureService(t, fx)

	got, err := svc.Cancel(context.Background(), CancelInput{LessonID: lesson.ID})
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if statusSet != enums.LessonStatusCancelled || got.Status != enums.LessonStatusCancelled {
		t.Fatalf("lesson should be cancelled, got %s", statusSet)
	}
	if len(fx.refunds.recorded) != 1 || !fx.refunds.recorded[0].Equal(lesson.Cost) {
		t.Fatalf("charged lesson cancellation must record a refund audit row, got %v", fx.refunds.recorded)
	}
	if len(fx.recalc.calls) != 1 || fx.recalc.calls[0] != lesson.AccountID {
		t.Fatalf("cancellation must recompute the balance, got %v", fx.recalc.calls)
	}
}

func TestService_CancelFutureLessonSkipsRefundAudit(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	lesson := &models.Lesson{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTime: now.Add(24 * time.Hour),
		EndTime:   now.Add(25 * time.Hour),
		Status:    enums.LessonStatusScheduled,
		Cost:      decimal.RequireFromString("25.00"),
	}

	fx := &serviceFixture{
		repo: &fakeRepo{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
				copy := *lesson
				return &copy, nil
			},
		},
		accounts: &fakeAccounts{},
		refunds:  &fakeRefunds{},
		recalc:   &fakeRecalc{},
		cfg:      defaultCfg(),
		now:      now,
	}
	svc := newFixtureService(t, fx)

	if _, err := svc.Cancel(context.Background(), CancelInput{LessonID: lesson.ID}); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if len(fx.refunds.recorded) != 0 {
		t.Fatal("never-charged lesson must not produce a refund row")
	}
}

func TestService_CancelOutsideGraceWindow(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	lesson := &models.Lesson{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTime: now.Add(-49 * time.Hour),
		EndTime:   now.Add(-48 * time.Hour),
		Status:    enums.LessonStatusCompleted,
		Cost:      decimal.RequireFromString("25.00"),
	}

	fx := &serviceFixture{
		repo: &fakeRepo{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
				copy := *lesson
				return &copy, nil
			},
		},
		accounts: &fakeAccounts{},
		refunds:  &fakeRefunds{},
		recalc:   &fakeRecalc{},
		cfg:      defaultCfg(),
		now:      now,
	}
	svc := newFixtureService(t, fx)

	_, err := svc.Cancel(context.Background(), CancelInput{LessonID: lesson.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict past the grace window, got %v", err)
	}
}

func TestService_CancelSeriesRestOnlyFutureScheduled(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	groupID := uuid.New()
	accountID := uuid.New()

	anchor := &models.Lesson{
		ID:               uuid.New(),
		AccountID:        accountID,
		RecurringGroupID: &groupID,
		StartTime:        now.Add(2 * time.Hour),
		EndTime:          now.Add(3 * time.Hour),
		Status:           enums.LessonStatusScheduled,
	}
	future := models.Lesson{
		ID:               uuid.New(),
		AccountID:        accountID,
		RecurringGroupID: &groupID,
		StartTime:        now.Add(7 * 24 * time.Hour),
		EndTime:          now.Add(7*24*time.Hour + time.Hour),
		Status:           enums.LessonStatusScheduled,
	}

	var cancelled []uuid.UUID
	fx := &serviceFixture{
		repo: &fakeRepo{
			getFn: func(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
				copy := *anchor
				return &copy, nil
			},
			listGroupFn: func(ctx context.Context, gid uuid.UUID, after time.Time) ([]models.Lesson, error) {
				if gid != groupID {
					t.Fatalf("unexpected group id %s", gid)
				}
				return []models.Lesson{*anchor, future}, nil
			},
			updateStatusFn: func(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error {
				cancelled = append(cancelled, id)
				return nil
			},
		},
		accounts: &fakeAccounts{},
		refunds:  &fakeRefunds{},
		recalc:   &fakeRecalc{},
		cfg:      defaultCfg(),
		now:      now,
	}
	svc := newFixtureService(t, fx)

	got, err := svc.CancelSeriesRest(context.Background(), CancelInput{LessonID: anchor.ID})
	if err != nil {
		t.Fatalf("CancelSeriesRest error: %v", err)
	}
	if len(got) != 2 || len(cancelled) != 2 {
		t.Fatalf("expected both future occurrences cancelled, got %d", len(cancelled))
	}
	if len(fx.recalc.calls) != 1 {
		t.Fatalf("series cancellation must recompute once, got %v", fx.recalc.calls)
	}
}

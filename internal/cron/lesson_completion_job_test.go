package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

type fakeLessonRepo struct {
	ended     []models.Lesson
	listErr   error
	statusErr map[uuid.UUID]error
	updated   []uuid.UUID
}

func (f *fakeLessonRepo) ListScheduledEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Lesson, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ended, nil
}

func (f *fakeLessonRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error {
	if err, ok := f.statusErr[id]; ok {
		return err
	}
	if status != enums.LessonStatusCompleted {
		return errors.New("unexpected status")
	}
	f.updated = append(f.updated, id)
	return nil
}

type fakeRecalc struct {
	calls []uuid.UUID
	errs  map[uuid.UUID]error
}

func (f *fakeRecalc) RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error) {
	if err, ok := f.errs[accountID]; ok {
		return decimal.Zero, err
	}
	f.calls = append(f.calls, accountID)
	return decimal.Zero, nil
}

func newTestJob(t *testing.T, repo *fakeLessonRepo, recalc *fakeRecalc) Job {
	t.Helper()
	job, err := NewLessonCompletionJob(LessonCompletionJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Lessons:      repo,
		Recalculator: recalc,
	})
	if err != nil {
		t.Fatalf("unexpected job error: %v", err)
	}
	return job
}

func endedLesson(accountID uuid.UUID) models.Lesson {
	return models.Lesson{
		ID:        uuid.New(),
		AccountID: accountID,
		Status:    enums.LessonStatusScheduled,
		EndTime:   time.Now().Add(-time.Hour),
	}
}

func TestLessonCompletionJob_CompletesAndRecomputesOncePerAccount(t *testing.T) {
	accountA := uuid.New()
	accountB := uuid.New()
	repo := &fakeLessonRepo{
		ended: []models.Lesson{endedLesson(accountA), endedLesson(accountA), endedLesson(accountB)},
	}
	recalc := &fakeRecalc{}
	job := newTestJob(t, repo, recalc)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(repo.updated) != 3 {
		t.Fatalf("expected 3 lessons completed, got %d", len(repo.updated))
	}
	if len(recalc.calls) != 2 {
		t.Fatalf("each account must be recomputed exactly once, got %d", len(recalc.calls))
	}
}

func TestLessonCompletionJob_ContinuesPastLessonFailures(t *testing.T) {
	accountID := uuid.New()
	bad := endedLesson(accountID)
	good := endedLesson(accountID)
	repo := &fakeLessonRepo{
		ended:     []models.Lesson{bad, good},
		statusErr: map[uuid.UUID]error{bad.ID: errors.New("deadlock")},
	}
	recalc := &fakeRecalc{}
	job := newTestJob(t, repo, recalc)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error to surface the failure")
	}
	if len(repo.updated) != 1 || repo.updated[0] != good.ID {
		t.Fatalf("sweep must continue past a failed lesson, updated %v", repo.updated)
	}
	if len(recalc.calls) != 1 {
		t.Fatalf("account touched by the surviving lesson must still be recomputed, got %d", len(recalc.calls))
	}
}

func TestLessonCompletionJob_ContinuesPastRecomputeFailures(t *testing.T) {
	accountA := uuid.New()
	accountB := uuid.New()
	repo := &fakeLessonRepo{
		ended: []models.Lesson{endedLesson(accountA), endedLesson(accountB)},
	}
	recalc := &fakeRecalc{
		errs: map[uuid.UUID]error{accountA: errors.New("db down")},
	}
	job := newTestJob(t, repo, recalc)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error to surface the failure")
	}
	if len(recalc.calls) != 1 || recalc.calls[0] != accountB {
		t.Fatalf("other accounts must still be recomputed, got %v", recalc.calls)
	}
}

func TestLessonCompletionJob_EmptySweepIsNoop(t *testing.T) {
	repo := &fakeLessonRepo{}
	recalc := &fakeRecalc{}
	job := newTestJob(t, repo, recalc)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(repo.updated) != 0 || len(recalc.calls) != 0 {
		t.Fatal("empty sweep must not touch anything")
	}
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// LessonCompletionJobParams configure the lesson completion sweep.
type LessonCompletionJobParams struct {
	Logger       *logger.Logger
	Lessons      endedLessonRepo
	Recalculator recalculator
}

type endedLessonRepo interface {
	ListScheduledEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Lesson, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LessonStatus) error
}

type recalculator interface {
	RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error)
}

// NewLessonCompletionJob builds the sweep that marks ended lessons as
// completed and refreshes the affected balances. Completion is bookkeeping:
// the balance derivation already charges any ended lesson, so a missed
// sweep never loses money.
func NewLessonCompletionJob(params LessonCompletionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lessons == nil {
		return nil, fmt.Errorf("lesson repository required")
	}
	if params.Recalculator == nil {
		return nil, fmt.Errorf("balance recalculator required")
	}
	return &lessonCompletionJob{
		logg:    params.Logger,
		lessons: params.Lessons,
		recalc:  params.Recalculator,
		now:     time.Now,
	}, nil
}

type lessonCompletionJob struct {
	logg    *logger.Logger
	lessons endedLessonRepo
	recalc  recalculator
	now     func() time.Time
}

func (j *lessonCompletionJob) Name() string { return "lesson-completion" }

// Run flips every ended scheduled lesson to completed, then recomputes each
// touched account once. A failure on one lesson or account is logged and the
// sweep moves on; the next cycle retries whatever was left behind.
func (j *lessonCompletionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	ended, err := j.lessons.ListScheduledEndedBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("query ended lessons: %w", err)
	}

	var errs []error
	touched := map[uuid.UUID]struct{}{}
	completed := 0

	for _, lesson := range ended {
		if err := j.lessons.UpdateStatus(ctx, lesson.ID, enums.LessonStatusCompleted); err != nil {
			lessonCtx := j.logg.WithField(ctx, "lesson_id", lesson.ID.String())
			j.logg.Error(lessonCtx, "failed to mark lesson completed", err)
			errs = append(errs, fmt.Errorf("lesson %s: %w", lesson.ID, err))
			continue
		}
		completed++
		touched[lesson.AccountID] = struct{}{}
	}

	recomputed := 0
	for accountID := range touched {
		if _, err := j.recalc.RecalculateTx(ctx, nil, accountID); err != nil {
			accountCtx := j.logg.WithAccountID(ctx, accountID.String())
			j.logg.Error(accountCtx, "failed to recompute balance", err)
			errs = append(errs, fmt.Errorf("account %s: %w", accountID, err))
			continue
		}
		recomputed++
	}

	meta := map[string]any{"ended": len(ended), "completed": completed, "accounts_recomputed": recomputed}
	j.logg.Info(j.logg.WithFields(ctx, meta), "lesson completion sweep finished")

	return multierr.Combine(errs...)
}

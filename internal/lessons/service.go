package lessons

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// Recalculator recomputes an account's cached balance after lesson writes.
// Satisfied by the balance service.
type Recalculator interface {
	RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error)
}

// Service owns the lesson lifecycle: booking, rescheduling, and cancellation.
type Service interface {
	Book(ctx context.Context, input BookInput) (*BookResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error)
	ListCalendar(ctx context.Context, from, to time.Time) ([]models.Lesson, error)
	Update(ctx context.Context, input UpdateInput) (*models.Lesson, error)
	Reschedule(ctx context.Context, input RescheduleInput) (*models.Lesson, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Lesson, error)
	CancelSeriesRest(ctx context.Context, input CancelInput) ([]models.Lesson, error)
}

// BookInput describes a single lesson or the first occurrence of a weekly
// series.
type BookInput struct {
	AccountID       uuid.UUID
	Title           string
	StartTime       time.Time
	DurationMinutes int
	Recurring       bool
	AllowConflict   bool
	Notes           *string
}

// BookResult reports what was created plus any overridden conflicts.
type BookResult struct {
	Lessons          []models.Lesson
	RecurringGroupID *uuid.UUID
	Conflicts        []ConflictDetail
}

// UpdateInput is the staff-side lesson edit. Zero-valued fields are left
// untouched.
type UpdateInput struct {
	LessonID        uuid.UUID
	AccountID       uuid.UUID
	Title           *string
	StartTime       *time.Time
	DurationMinutes *int
	Notes           *string
	AllowConflict   bool
}

// RescheduleInput moves a single not-yet-started lesson.
type RescheduleInput struct {
	LessonID        uuid.UUID
	NewStart        time.Time
	DurationMinutes int
	AllowConflict   bool
}

// CancelInput voids a lesson, or a whole series tail via CancelSeriesRest.
type CancelInput struct {
	LessonID uuid.UUID
	Reason   string
}

// ConflictDetail surfaces an overlapping booking to the caller.
type ConflictDetail struct {
	LessonID  uuid.UUID `json:"lesson_id"`
	AccountID uuid.UUID `json:"account_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type service struct {
	repo        Repository
	accountRepo accounts.Repository
	ledger      RefundRecorder
	recalc      Recalculator
	client      db.TxRunner
	cfg         config.LessonsConfig
	logg        *logger.Logger
	now         func() time.Time
}

// RefundRecorder appends a refund audit row when a charged lesson is voided.
// Satisfied by the ledger service.
type RefundRecorder interface {
	RecordRefundTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, lessonID uuid.UUID, amount decimal.Decimal, description string) error
}

// NewService wires the lesson service.
func NewService(
	repo Repository,
	accountRepo accounts.Repository,
	refunds RefundRecorder,
	recalc Recalculator,
	client db.TxRunner,
	cfg config.LessonsConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("lesson repository required")
	}
	if accountRepo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if refunds == nil {
		return nil, fmt.Errorf("refund recorder required")
	}
	if recalc == nil {
		return nil, fmt.Errorf("balance recalculator required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		accountRepo: accountRepo,
		ledger:      refunds,
		recalc:      recalc,
		client:      client,
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) Book(ctx context.Context, input BookInput) (*BookResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.StartTime.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start time is required")
	}
	if input.DurationMinutes <= 0 {
		input.DurationMinutes = s.cfg.DefaultDurationMin
	}
	if input.DurationMinutes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}

	account, err := s.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "account is deactivated")
	}

	cost := Cost(input.DurationMinutes, account.HourlyRate)

	var created []models.Lesson
	var groupID *uuid.UUID
	if input.Recurring {
		series, gid, err := ExpandSeries(SeriesSpec{
			AccountID:       input.AccountID,
			Title:           input.Title,
			FirstStart:      input.StartTime,
			DurationMinutes: input.DurationMinutes,
			Cost:            cost,
			Notes:           input.Notes,
		}, s.cfg.RecurringWeeks, s.cfg.RecurringCadence)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recurring series")
		}
		created = series
		groupID = &gid
	} else {
		end := input.StartTime.Add(time.Duration(input.DurationMinutes) * time.Minute)
		created = []models.Lesson{{
			AccountID:       input.AccountID,
			Title:           input.Title,
			StartTime:       input.StartTime,
			EndTime:         end,
			DurationMinutes: input.DurationMinutes,
			Status:          enums.LessonStatusScheduled,
			Cost:            cost,
			Notes:           input.Notes,
		}}
	}

	conflicts, err := s.conflictsFor(ctx, created, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		if s.cfg.StrictConflicts {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested time overlaps an existing lesson").
				WithDetails(conflicts)
		}
		if !input.AllowConflict {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested time overlaps an existing lesson").
				WithDetails(conflicts)
		}
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateBatch(ctx, created); err != nil {
			return fmt.Errorf("creating lessons: %w", err)
		}
		if _, err := s.recalc.RecalculateTx(ctx, tx, input.AccountID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"account_id": input.AccountID.String(), "count": len(created), "recurring": input.Recurring}
	s.logg.Info(s.logg.WithFields(ctx, meta), "lessons booked")

	return &BookResult{Lessons: created, RecurringGroupID: groupID, Conflicts: conflicts}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	lesson, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lesson not found")
		}
		return nil, err
	}
	return lesson, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Lesson, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *service) ListCalendar(ctx context.Context, from, to time.Time) ([]models.Lesson, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "calendar range end must follow start")
	}
	return s.repo.ListBetween(ctx, from, to)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Lesson, error) {
	lesson, err := s.Get(ctx, input.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Status == enums.LessonStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled lessons cannot be edited")
	}

	previousAccount := lesson.AccountID
	accountChanged := input.AccountID != uuid.Nil && input.AccountID != lesson.AccountID
	if accountChanged {
		lesson.AccountID = input.AccountID
	}
	if input.Title != nil {
		lesson.Title = *input.Title
	}
	if input.StartTime != nil {
		lesson.StartTime = *input.StartTime
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
		}
		lesson.DurationMinutes = *input.DurationMinutes
	}
	if input.Notes != nil {
		lesson.Notes = input.Notes
	}
	lesson.EndTime = lesson.StartTime.Add(time.Duration(lesson.DurationMinutes) * time.Minute)

	// reprice when the student or the duration changed
	if accountChanged || input.DurationMinutes != nil {
		account, err := s.accountRepo.GetByID(ctx, lesson.AccountID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			return nil, fmt.Errorf("fetching account: %w", err)
		}
		lesson.Cost = Cost(lesson.DurationMinutes, account.HourlyRate)
	}

	conflicts, err := s.conflictsFor(ctx, []models.Lesson{*lesson}, lesson.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 && (s.cfg.StrictConflicts || !input.AllowConflict) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested time overlaps an existing lesson").
			WithDetails(conflicts)
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, lesson); err != nil {
			return fmt.Errorf("updating lesson: %w", err)
		}
		if _, err := s.recalc.RecalculateTx(ctx, tx, lesson.AccountID); err != nil {
			return err
		}
		if accountChanged {
			if _, err := s.recalc.RecalculateTx(ctx, tx, previousAccount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lesson, nil
}

func (s *service) Reschedule(ctx context.Context, input RescheduleInput) (*models.Lesson, error) {
	lesson, err := s.Get(ctx, input.LessonID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !CanReschedule(*lesson, now) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only lessons that have not started can be rescheduled")
	}
	if input.NewStart.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new start time is required")
	}

	duration := lesson.DurationMinutes
	if input.DurationMinutes > 0 {
		duration = input.DurationMinutes
	}

	lesson.StartTime = input.NewStart
	lesson.DurationMinutes = duration
	lesson.EndTime = input.NewStart.Add(time.Duration(duration) * time.Minute)

	conflicts, err := s.conflictsFor(ctx, []models.Lesson{*lesson}, lesson.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 && (s.cfg.StrictConflicts || !input.AllowConflict) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested time overlaps an existing lesson").
			WithDetails(conflicts)
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, lesson); err != nil {
			return fmt.Errorf("rescheduling lesson: %w", err)
		}
		if _, err := s.recalc.RecalculateTx(ctx, tx, lesson.AccountID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lesson, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Lesson, error) {
	lesson, err := s.Get(ctx, input.LessonID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if lesson.Status == enums.LessonStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lesson is already cancelled")
	}
	grace := time.Duration(s.cfg.CancelGraceHours) * time.Hour
	if !CanCancel(*lesson, now, grace) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation window has closed")
	}

	wasCharged := IsEnded(*lesson, now)

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, lesson.ID, enums.LessonStatusCancelled); err != nil {
			return fmt.Errorf("cancelling lesson: %w", err)
		}
		if wasCharged && lesson.Cost.IsPositive() {
			description := fmt.Sprintf("Lesson cancelled: %s", lesson.StartTime.Format("2 Jan 2006 15:04"))
			if input.Reason != "" {
				description = fmt.Sprintf("%s (%s)", description, input.Reason)
			}
			if err := s.ledger.RecordRefundTx(ctx, tx, lesson.AccountID, lesson.ID, lesson.Cost, description); err != nil {
				return err
			}
		}
		if _, err := s.recalc.RecalculateTx(ctx, tx, lesson.AccountID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lesson.Status = enums.LessonStatusCancelled

	meta := map[string]any{"lesson_id": lesson.ID.String(), "account_id": lesson.AccountID.String()}
	s.logg.Info(s.logg.WithFields(ctx, meta), "lesson cancelled")

	return lesson, nil
}

// CancelSeriesRest cancels the given lesson plus every future scheduled
// occurrence in its series. Past occurrences keep their status and their
// charges.
func (s *service) CancelSeriesRest(ctx context.Context, input CancelInput) ([]models.Lesson, error) {
	lesson, err := s.Get(ctx, input.LessonID)
	if err != nil {
		return nil, err
	}
	if lesson.RecurringGroupID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lesson is not part of a series")
	}

	now := s.now()
	rest, err := s.repo.ListFutureScheduledInGroup(ctx, *lesson.RecurringGroupID, now)
	if err != nil {
		return nil, fmt.Errorf("listing series tail: %w", err)
	}

	targets := rest
	if lesson.Status == enums.LessonStatusScheduled && !containsLesson(rest, lesson.ID) {
		grace := time.Duration(s.cfg.CancelGraceHours) * time.Hour
		if CanCancel(*lesson, now, grace) {
			targets = append([]models.Lesson{*lesson}, rest...)
		}
	}
	if len(targets) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no cancellable lessons remain in this series")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range targets {
			if err := repo.UpdateStatus(ctx, targets[i].ID, enums.LessonStatusCancelled); err != nil {
				return fmt.Errorf("cancelling lesson %s: %w", targets[i].ID, err)
			}
			targets[i].Status = enums.LessonStatusCancelled
		}
		if _, err := s.recalc.RecalculateTx(ctx, tx, lesson.AccountID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"group_id": lesson.RecurringGroupID.String(), "count": len(targets)}
	s.logg.Info(s.logg.WithFields(ctx, meta), "series tail cancelled")

	return targets, nil
}

// conflictsFor checks each candidate against the stored calendar in one
// query spanning the candidates' full range.
func (s *service) conflictsFor(ctx context.Context, candidates []models.Lesson, excludeID uuid.UUID) ([]ConflictDetail, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	spanStart := candidates[0].StartTime
	spanEnd := candidates[0].EndTime
	for _, c := range candidates[1:] {
		if c.StartTime.Before(spanStart) {
			spanStart = c.StartTime
		}
		if c.EndTime.After(spanEnd) {
			spanEnd = c.EndTime
		}
	}

	existing, err := s.repo.ListOverlapping(ctx, spanStart, spanEnd)
	if err != nil {
		return nil, fmt.Errorf("checking conflicts: %w", err)
	}

	var out []ConflictDetail
	for _, candidate := range candidates {
		if hit := FindConflict(existing, candidate.StartTime, candidate.EndTime, excludeID); hit != nil {
			out = append(out, ConflictDetail{
				LessonID:  hit.ID,
				AccountID: hit.AccountID,
				StartTime: hit.StartTime,
				EndTime:   hit.EndTime,
			})
		}
	}
	return out, nil
}

func containsLesson(list []models.Lesson, id uuid.UUID) bool {
	for _, l := range list {
		if l.ID == id {
			return true
		}
	}
	return false
}

package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

const upcomingWindow = 7 * 24 * time.Hour

// Stats is the admin landing-page summary.
type Stats struct {
	ActiveStudents       int             `json:"active_students"`
	InactiveStudents     int             `json:"inactive_students"`
	EarningsMonthToDate  decimal.Decimal `json:"earnings_month_to_date"`
	LessonsTaughtMTD     int             `json:"lessons_taught_mtd"`
	UpcomingLessons      []models.Lesson `json:"upcoming_lessons"`
	UpcomingLessonsCount int             `json:"upcoming_lessons_count"`
}

type accountLister interface {
	ListByRole(ctx context.Context, role enums.AccountRole) ([]models.Account, error)
}

type lessonLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Lesson, error)
}

// Service aggregates roster and calendar figures for the admin dashboard.
type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	accounts accountLister
	lessons  lessonLister
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the dashboard service.
func NewService(accounts accountLister, lessonRepo lessonLister, logg *logger.Logger) (Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if lessonRepo == nil {
		return nil, fmt.Errorf("lesson repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		accounts: accounts,
		lessons:  lessonRepo,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Stats derives the summary from the roster and the calendar. Earnings are
// the cost of lessons already held this month, using the same ended test as
// the balance derivation, so the two figures never disagree.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	students, err := s.accounts.ListByRole(ctx, enums.AccountRoleStudent)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}

	stats := &Stats{EarningsMonthToDate: decimal.Zero}
	for _, student := range students {
		if student.IsActive {
			stats.ActiveStudents++
		} else {
			stats.InactiveStudents++
		}
	}

	held, err := s.lessons.ListBetween(ctx, monthStart, now)
	if err != nil {
		return nil, fmt.Errorf("listing month lessons: %w", err)
	}
	for _, lesson := range held {
		if lessons.IsEnded(lesson, now) {
			stats.EarningsMonthToDate = stats.EarningsMonthToDate.Add(lesson.Cost)
			stats.LessonsTaughtMTD++
		}
	}

	upcoming, err := s.lessons.ListBetween(ctx, now, now.Add(upcomingWindow))
	if err != nil {
		return nil, fmt.Errorf("listing upcoming lessons: %w", err)
	}
	for _, lesson := range upcoming {
		if lesson.Status == enums.LessonStatusScheduled {
			stats.UpcomingLessons = append(stats.UpcomingLessons, lesson)
		}
	}
	stats.UpcomingLessonsCount = len(stats.UpcomingLessons)

	return stats, nil
}

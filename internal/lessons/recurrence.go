package lessons

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// SeriesSpec describes the first occurrence of a weekly series.
type SeriesSpec struct {
	AccountID       uuid.UUID
	Title           string
	FirstStart      time.Time
	DurationMinutes int
	Cost            decimal.Decimal
	Notes           *string
}

// ExpandSeries materializes a weekly series as individual lessons sharing a
// fresh group ID. Every occurrence carries the same duration and the cost
// captured at booking time; later rate changes do not touch the series.
func ExpandSeries(spec SeriesSpec, occurrences, cadenceWeeks int) ([]models.Lesson, uuid.UUID, error) {
	if spec.AccountID == uuid.Nil {
		return nil, uuid.Nil, fmt.Errorf("account id is required")
	}
	if spec.DurationMinutes <= 0 {
		return nil, uuid.Nil, fmt.Errorf("duration must be positive")
	}
	if occurrences <= 0 {
		return nil, uuid.Nil, fmt.Errorf("occurrence count must be positive")
	}
	if cadenceWeeks <= 0 {
		cadenceWeeks = 1
	}

	groupID := uuid.New()
	duration := time.Duration(spec.DurationMinutes) * time.Minute
	step := time.Duration(cadenceWeeks) * 7 * 24 * time.Hour

	out := make([]models.Lesson, 0, occurrences)
	for i := 0; i < occurrences; i++ {
		start := spec.FirstStart.Add(time.Duration(i) * step)
		out = append(out, models.Lesson{
			AccountID:        spec.AccountID,
			Title:            spec.Title,
			StartTime:        start,
			EndTime:          start.Add(duration),
			DurationMinutes:  spec.DurationMinutes,
			IsRecurring:      true,
			RecurringGroupID: &groupID,
			Status:           enums.LessonStatusScheduled,
			Cost:             spec.Cost,
			Notes:            spec.Notes,
		})
	}
	return out, groupID, nil
}

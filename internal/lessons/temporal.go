package lessons

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

var minutesPerHour = decimal.NewFromInt(60)

// IsEnded reports whether a lesson has finished and counts against the
// account balance. Cancelled lessons never end for billing purposes, and a
// lesson ending exactly at the reference instant has not ended yet.
func IsEnded(lesson models.Lesson, now time.Time) bool {
	if lesson.Status == enums.LessonStatusCancelled {
		return false
	}
	return lesson.EndTime.Before(now)
}

// CanCancel reports whether a lesson is still inside its cancellation window.
// Lessons stay cancellable until the grace period past their end time has
// elapsed, so a lesson that just finished can still be voided.
func CanCancel(lesson models.Lesson, now time.Time, grace time.Duration) bool {
	if lesson.Status == enums.LessonStatusCancelled {
		return false
	}
	return now.Before(lesson.EndTime.Add(grace))
}

// CanReschedule reports whether a lesson may still be moved. Only lessons
// that have not started yet qualify.
func CanReschedule(lesson models.Lesson, now time.Time) bool {
	if lesson.Status == enums.LessonStatusCancelled {
		return false
	}
	return lesson.StartTime.After(now)
}

// Cost prices a lesson from its duration and the account's hourly rate,
// pro-rated to the minute and rounded to pence.
func Cost(durationMinutes int, hourlyRate decimal.Decimal) decimal.Decimal {
	if durationMinutes <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(durationMinutes)).
		Div(minutesPerHour).
		Mul(hourlyRate).
		Round(2)
}

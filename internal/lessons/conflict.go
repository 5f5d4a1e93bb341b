package lessons

import (
	"time"

	"github.com/google/uuid"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back bookings where one ends exactly
// when the other starts do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflict returns the first existing lesson whose time range overlaps
// the candidate interval. Cancelled lessons and the lesson identified by
// excludeID (the lesson being edited) are skipped. The tutor teaches one
// student at a time, so conflicts are checked across all accounts.
func FindConflict(existing []models.Lesson, candidateStart, candidateEnd time.Time, excludeID uuid.UUID) *models.Lesson {
	for i := range existing {
		lesson := existing[i]
		if lesson.Status == enums.LessonStatusCancelled {
			continue
		}
		if excludeID != uuid.Nil && lesson.ID == excludeID {
			continue
		}
		if Overlaps(candidateStart, candidateEnd, lesson.StartTime, lesson.EndTime) {
			return &lesson
		}
	}
	return nil
}

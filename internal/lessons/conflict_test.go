package lessons

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	hour := time.Hour

	tests := []struct {
		name                   string
		aStart, aEnd, bStart, bEnd time.Time
		want                   bool
	}{
		{"identical intervals", base, base.Add(hour), base, base.Add(hour), true},
		{"partial overlap", base, base.Add(hour), base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"containment", base, base.Add(2 * hour), base.Add(30 * time.Minute), base.Add(hour), true},
		{"back to back", base, base.Add(hour), base.Add(hour), base.Add(2 * hour), false},
		{"disjoint", base, base.Add(hour), base.Add(3 * hour), base.Add(4 * hour), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
			if got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
			// symmetry
			if Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd) != got {
				t.Fatal("Overlaps must be symmetric")
			}
		})
	}
}

func TestFindConflict(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	booked := models.Lesson{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTime: base,
		EndTime:   base.Add(time.Hour),
		Status:    enums.LessonStatusScheduled,
	}
	cancelled := models.Lesson{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		StartTime: base,
		EndTime:   base.Add(time.Hour),
		Status:    enums.LessonStatusCancelled,
	}
	existing := []models.Lesson{cancelled, booked}

	t.Run("detects overlap", func(t *testing.T) {
		hit := FindConflict(existing, base.Add(30*time.Minute), base.Add(90*time.Minute), uuid.Nil)
		if hit == nil || hit.ID != booked.ID {
			t.Fatalf("expected conflict with booked lesson, got %v", hit)
		}
	})

	t.Run("cancelled lessons never conflict", func(t *testing.T) {
		if hit := FindConflict([]models.Lesson{cancelled}, base, base.Add(time.Hour), uuid.Nil); hit != nil {
			t.Fatalf("cancelled lesson should not conflict, got %v", hit)
		}
	})

	t.Run("edited lesson is excluded from its own check", func(t *testing.T) {
		if hit := FindConflict(existing, base, base.Add(time.Hour), booked.ID); hit != nil {
			t.Fatalf("lesson being edited should not conflict with itself, got %v", hit)
		}
	})

	t.Run("back to back bookings allowed", func(t *testing.T) {
		if hit := FindConflict(existing, base.Add(time.Hour), base.Add(2*time.Hour), uuid.Nil); hit != nil {
			t.Fatalf("adjacent booking should not conflict, got %v", hit)
		}
	})
}

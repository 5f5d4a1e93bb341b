package enums

import "fmt"

// LessonStatus maps to the lesson_status enum in Postgres.
//
// Transitions: scheduled -> completed (time-driven, via the completion job)
// and scheduled -> cancelled (user-driven). Completed and cancelled are
// terminal.
type LessonStatus string

const (
	LessonStatusScheduled LessonStatus = "scheduled"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusCancelled LessonStatus = "cancelled"
)

var validLessonStatuses = []LessonStatus{
	LessonStatusScheduled,
	LessonStatusCompleted,
	LessonStatusCancelled,
}

// IsValid reports whether the value matches the canonical status enum.
func (s LessonStatus) IsValid() bool {
	for _, candidate := range validLessonStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s LessonStatus) IsTerminal() bool {
	return s == LessonStatusCompleted || s == LessonStatusCancelled
}

// ParseLessonStatus converts raw input into LessonStatus.
func ParseLessonStatus(value string) (LessonStatus, error) {
	for _, candidate := range validLessonStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lesson status %q", value)
}

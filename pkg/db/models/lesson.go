package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// Lesson is one scheduled (or past) tutoring session.
//
// EndTime is always StartTime + DurationMinutes. Cost is fixed at creation
// from the account's hourly rate and never recomputed when the rate changes;
// editing a lesson must set cost explicitly to alter it.
type Lesson struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID        uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index"`
	Title            string             `gorm:"column:title;not null"`
	StartTime        time.Time          `gorm:"column:start_time;not null;index"`
	EndTime          time.Time          `gorm:"column:end_time;not null;index"`
	DurationMinutes  int                `gorm:"column:duration_minutes;not null"`
	IsRecurring      bool               `gorm:"column:is_recurring;not null;default:false"`
	RecurringGroupID *uuid.UUID         `gorm:"column:recurring_group_id;type:uuid;index"`
	Status           enums.LessonStatus `gorm:"column:status;type:lesson_status;not null;default:'scheduled'"`
	Cost             decimal.Decimal    `gorm:"column:cost;type:numeric(12,2);not null"`
	Notes            *string            `gorm:"column:notes"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Account *Account `gorm:"foreignKey:AccountID"`
}

func (Lesson) TableName() string {
	return "lessons"
}

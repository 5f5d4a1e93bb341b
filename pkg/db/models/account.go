package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// Account is one billing entity: a parent/family unit paying for a student.
//
// Balance is a denormalized cache of the derived balance. It is advisory
// only and single-writer: nothing outside the balance service may touch it,
// and it is always overwritten from a full recomputation, never incremented.
type Account struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string            `gorm:"column:email;not null;unique"`
	Role            enums.AccountRole `gorm:"column:role;type:account_role;not null;default:'student'"`
	ParentName      string            `gorm:"column:parent_name;not null"`
	StudentName     string            `gorm:"column:student_name;not null"`
	HourlyRate      decimal.Decimal   `gorm:"column:hourly_rate;type:numeric(12,2);not null;default:0"`
	Balance         decimal.Decimal   `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	Timezone        string            `gorm:"column:timezone;not null;default:'Europe/London'"`
	PasswordHash    string            `gorm:"column:password_hash;not null"`
	PasswordChanged bool              `gorm:"column:password_changed;not null;default:false"`
	IsActive        bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}

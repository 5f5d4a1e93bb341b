package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// Transaction is one append-only money movement against an account.
//
// Amount is always stored positive; Type discriminates direction. A non-nil
// StripePaymentID marks money settled by the payment processor, which makes
// the row immutable to staff and carries the uniqueness used for webhook
// idempotency.
type Transaction struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID       uuid.UUID             `gorm:"column:account_id;type:uuid;not null;index"`
	Type            enums.TransactionType `gorm:"column:type;type:transaction_type;not null"`
	Amount          decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Description     string                `gorm:"column:description;not null"`
	LessonID        *uuid.UUID            `gorm:"column:lesson_id;type:uuid;index"`
	StripePaymentID *string               `gorm:"column:stripe_payment_id;unique"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`

	Account *Account `gorm:"foreignKey:AccountID"`
	Lesson  *Lesson  `gorm:"foreignKey:LessonID"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Locked reports whether the entry reflects externally settled money and must
// not be edited or deleted by staff.
func (t Transaction) Locked() bool {
	return t.StripePaymentID != nil && *t.StripePaymentID != ""
}

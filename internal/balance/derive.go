package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// SumCredits totals the deposit entries. Only deposits count as credit;
// refunds and lesson charges in the ledger are audit rows.
func SumCredits(entries []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		if entry.Type != enums.TransactionTypeDeposit {
			continue
		}
		total = total.Add(entry.Amount)
	}
	return total
}

// SumEndedLessonCosts totals the cost of every lesson that has ended as of
// the reference instant. Cancelled lessons never charge, and a lesson ending
// exactly at now is not yet chargeable.
func SumEndedLessonCosts(list []models.Lesson, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, lesson := range list {
		if !lessons.IsEnded(lesson, now) {
			continue
		}
		total = total.Add(lesson.Cost)
	}
	return total
}

// Derive computes the account balance from first principles:
//
//	balance = sum(deposits) - sum(cost of ended, non-cancelled lessons)
//
// The result is a pure function of its inputs and the reference instant. It
// is negative when a student has consumed more tuition than they have paid
// for. Persisted balances are always produced by this function; nothing in
// the system increments a stored balance.
func Derive(entries []models.Transaction, list []models.Lesson, now time.Time) decimal.Decimal {
	return SumCredits(entries).Sub(SumEndedLessonCosts(list, now))
}

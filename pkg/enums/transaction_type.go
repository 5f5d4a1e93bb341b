package enums

import "fmt"

// TransactionType maps to the transaction_type enum in Postgres.
//
// Only deposits count as credit when a balance is derived; refund and
// lesson_charge rows are audit records with no computational effect.
type TransactionType string

const (
	TransactionTypeDeposit      TransactionType = "deposit"
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypeLessonCharge TransactionType = "lesson_charge"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeDeposit,
	TransactionTypeRefund,
	TransactionTypeLessonCharge,
}

// IsValid reports whether the value matches the canonical type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// Service owns the transaction ledger. Entries are append-mostly: staff can
// record and remove manual deposits, but processor-settled rows are locked.
type Service interface {
	RecordDeposit(ctx context.Context, input RecordDepositInput) (*models.Transaction, error)
	RecordDepositTx(ctx context.Context, tx *gorm.DB, input RecordDepositInput) (*models.Transaction, error)
	RecordRefundTx(ctx context.Context, tx *gorm.DB, accountID, lessonID uuid.UUID, amount decimal.Decimal, description string) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)
	FindByStripePaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	DeleteManualEntry(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

// RecordDepositInput captures a credit against an account.
type RecordDepositInput struct {
	AccountID       uuid.UUID
	Amount          decimal.Decimal
	Description     string
	StripePaymentID *string
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) RecordDeposit(ctx context.Context, input RecordDepositInput) (*models.Transaction, error) {
	return s.RecordDepositTx(ctx, nil, input)
}

func (s *service) RecordDepositTx(ctx context.Context, tx *gorm.DB, input RecordDepositInput) (*models.Transaction, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}

	entry := &models.Transaction{
		AccountID:       input.AccountID,
		Type:            enums.TransactionTypeDeposit,
		Amount:          input.Amount,
		Description:     input.Description,
		StripePaymentID: input.StripePaymentID,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("recording deposit: %w", err)
	}

	meta := map[string]any{"account_id": input.AccountID.String(), "amount": input.Amount.StringFixed(2)}
	s.logg.Info(s.logg.WithFields(ctx, meta), "deposit recorded")

	return entry, nil
}

// RecordRefundTx appends a refund audit row. Refunds never feed the balance
// derivation; the cancelled lesson itself stops charging.
func (s *service) RecordRefundTx(ctx context.Context, tx *gorm.DB, accountID, lessonID uuid.UUID, amount decimal.Decimal, description string) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount cannot be negative")
	}

	entry := &models.Transaction{
		AccountID:   accountID,
		Type:        enums.TransactionTypeRefund,
		Amount:      amount,
		Description: description,
	}
	if lessonID != uuid.Nil {
		entry.LessonID = &lessonID
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return fmt.Errorf("recording refund: %w", err)
	}
	return nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *service) FindByStripePaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	entry, err := s.repo.FindByStripePaymentID(ctx, paymentID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// DeleteManualEntry removes a staff-recorded entry. Entries settled through
// the payment processor are immutable and refuse deletion.
func (s *service) DeleteManualEntry(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	if entry.Locked() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "processor-settled transactions cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("deleting transaction: %w", err)
	}
	return entry, nil
}

package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/internal/ledger"
	"github.com/rachelmorley/tutorpay-backend/internal/lessons"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// Service recomputes account balances from the ledger and lesson history.
type Service interface {
	Recalculate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	ledgerRepo  ledger.Repository
	lessonRepo  lessons.Repository
	accountRepo accounts.Repository
	logg        *logger.Logger
	now         func() time.Time
}

// NewService wires the balance service with its repositories.
func NewService(ledgerRepo ledger.Repository, lessonRepo lessons.Repository, accountRepo accounts.Repository, logg *logger.Logger) (Service, error) {
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if lessonRepo == nil {
		return nil, fmt.Errorf("lesson repository required")
	}
	if accountRepo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		ledgerRepo:  ledgerRepo,
		lessonRepo:  lessonRepo,
		accountRepo: accountRepo,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// Recalculate derives the balance from scratch and overwrites the cached
// column. Running it twice in a row with no data changes is a no-op.
func (s *service) Recalculate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return s.RecalculateTx(ctx, nil, accountID)
}

// RecalculateTx is Recalculate bound to an open transaction, so callers can
// make a write and the resulting recompute atomic. If any fetch fails the
// cached balance is left untouched.
func (s *service) RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Zero, fmt.Errorf("account id is required")
	}

	ledgerRepo := s.ledgerRepo.WithTx(tx)
	lessonRepo := s.lessonRepo.WithTx(tx)
	accountRepo := s.accountRepo.WithTx(tx)

	credits, err := ledgerRepo.ListCreditsByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching credits: %w", err)
	}

	lessonHistory, err := lessonRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching lessons: %w", err)
	}

	derived := Derive(credits, lessonHistory, s.now())

	if err := accountRepo.UpdateCachedBalance(ctx, accountID, derived); err != nil {
		return decimal.Zero, fmt.Errorf("persisting balance: %w", err)
	}

	meta := map[string]any{"account_id": accountID.String(), "balance": derived.StringFixed(2)}
	s.logg.Info(s.logg.WithFields(ctx, meta), "account balance recalculated")

	return derived, nil
}

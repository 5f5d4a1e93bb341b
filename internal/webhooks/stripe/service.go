package stripewebhook

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/ledger"
	"github.com/rachelmorley/tutorpay-backend/pkg/db"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

const (
	metadataAccountID = "account_id"
	metadataAmount    = "amount"
)

type recalculator interface {
	RecalculateTx(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (decimal.Decimal, error)
}

type ServiceParams struct {
	LedgerRepo        ledger.Repository
	Recalculator      recalculator
	TransactionRunner db.TxRunner
	Logger            *logger.Logger
}

// Service turns settled Stripe checkouts into ledger deposits. Processing is
// idempotent on the payment intent: the deposit insert and the balance
// recompute share one transaction, and a replayed event that finds its
// payment already recorded is a no-op.
type Service struct {
	ledgerRepo ledger.Repository
	recalc     recalculator
	txRunner   db.TxRunner
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.Recalculator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balance recalculator required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		ledgerRepo: params.LedgerRepo,
		recalc:     params.Recalculator,
		txRunner:   params.TransactionRunner,
		logg:       params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session")
		}
		return s.recordDeposit(ctx, &session)
	default:
		// unhandled event types are acknowledged, not errors
		return nil
	}
}

func (s *Service) recordDeposit(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session is required")
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil
	}

	paymentID := paymentIntentID(session)
	if paymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	accountID, err := uuid.Parse(session.Metadata[metadataAccountID])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout metadata missing account id")
	}

	amount, err := depositAmount(session)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledgerRepo.WithTx(tx)

		existing, err := repo.FindByStripePaymentID(ctx, paymentID)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking payment id: %w", err)
		}
		if existing != nil {
			s.logg.Info(s.logg.WithField(ctx, "payment_id", paymentID), "duplicate stripe event ignored")
			return nil
		}

		entry := &models.Transaction{
			AccountID:       accountID,
			Type:            enums.TransactionTypeDeposit,
			Amount:          amount,
			Description:     "Deposit via Stripe",
			StripePaymentID: &paymentID,
		}
		if err := repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("recording deposit: %w", err)
		}

		if _, err := s.recalc.RecalculateTx(ctx, tx, accountID); err != nil {
			return err
		}

		meta := map[string]any{"account_id": accountID.String(), "amount": amount.StringFixed(2), "payment_id": paymentID}
		s.logg.Info(s.logg.WithFields(ctx, meta), "stripe deposit recorded")
		return nil
	})
}

func paymentIntentID(session *stripe.CheckoutSession) string {
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		return session.PaymentIntent.ID
	}
	return session.ID
}

// depositAmount prefers the exact decimal the checkout was created with;
// Stripe's pence total is the fallback.
func depositAmount(session *stripe.CheckoutSession) (decimal.Decimal, error) {
	if raw := session.Metadata[metadataAmount]; raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err == nil && amount.IsPositive() {
			return amount, nil
		}
	}
	if session.AmountTotal > 0 {
		return decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100)), nil
	}
	return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount missing")
}

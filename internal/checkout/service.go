package checkout

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

var pencePerPound = decimal.NewFromInt(100)

// Service creates Stripe Checkout sessions for account top-ups.
type Service interface {
	CreateDepositSession(ctx context.Context, input DepositSessionInput) (*DepositSessionResult, error)
}

// DepositSessionInput is a top-up request from the portal.
type DepositSessionInput struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// DepositSessionResult carries the hosted checkout URL.
type DepositSessionResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type service struct {
	stripeClient StripeCheckoutClient
	accountRepo  accounts.Repository
	billingCfg   config.BillingConfig
	stripeCfg    config.StripeConfig
	logg         *logger.Logger
}

// NewService wires the checkout service.
func NewService(
	stripeClient StripeCheckoutClient,
	accountRepo accounts.Repository,
	billingCfg config.BillingConfig,
	stripeCfg config.StripeConfig,
	logg *logger.Logger,
) (Service, error) {
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if accountRepo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		stripeClient: stripeClient,
		accountRepo:  accountRepo,
		billingCfg:   billingCfg,
		stripeCfg:    stripeCfg,
		logg:         logg,
	}, nil
}

func (s *service) CreateDepositSession(ctx context.Context, input DepositSessionInput) (*DepositSessionResult, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	minDeposit := s.billingCfg.MinDepositAmount()
	if input.Amount.LessThan(minDeposit) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("minimum deposit is %s", minDeposit.StringFixed(2)))
	}

	account, err := s.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, fmt.Errorf("fetching account: %w", err)
	}
	if !account.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "account is deactivated")
	}

	pence := input.Amount.Mul(pencePerPound).Round(0).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(account.Email),
		SuccessURL:    stripe.String(s.stripeCfg.SuccessURL),
		CancelURL:     stripe.String(s.stripeCfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.billingCfg.Currency),
				UnitAmount: stripe.Int64(pence),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Tuition credit"),
				},
			},
		}},
	}
	params.AddMetadata("account_id", account.ID.String())
	params.AddMetadata("amount", input.Amount.StringFixed(2))

	session, err := s.stripeClient.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	meta := map[string]any{"account_id": account.ID.String(), "amount": input.Amount.StringFixed(2)}
	s.logg.Info(s.logg.WithFields(ctx, meta), "checkout session created")

	return &DepositSessionResult{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

type fakeStripeClient struct {
	params  *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeStripeClient) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	if f.session != nil {
		return f.session, nil
	}
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.test/cs_test"}, nil
}

type fakeAccountRepo struct {
	accounts.Repository
	account *models.Account
}

func (f *fakeAccountRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if f.account != nil && f.account.ID == id {
		return f.account, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(t *testing.T, client *fakeStripeClient, repo *fakeAccountRepo) Service {
	t.Helper()
	svc, err := NewService(
		client,
		repo,
		config.BillingConfig{Currency: "gbp", MinDeposit: "5"},
		config.StripeConfig{SuccessURL: "https://portal.test/success", CancelURL: "https://portal.test/cancel"},
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_CreateDepositSession(t *testing.T) {
	account := &models.Account{ID: uuid.New(), Email: "parent@example.com", IsActive: true}
	client := &fakeStripeClient{}
	svc := newTestService(t, client, &fakeAccountRepo{account: account})

	result, err := svc.CreateDepositSession(context.Background(), DepositSessionInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("80.00"),
	})
	if err != nil {
		t.Fatalf("CreateDepositSession error: %v", err)
	}
	if result.SessionID != "cs_test" || result.CheckoutURL == "" {
		t.Fatalf("unexpected result %+v", result)
	}

	params := client.params
	if params == nil {
		t.Fatal("stripe client should receive params")
	}
	if got := *params.LineItems[0].PriceData.UnitAmount; got != 8000 {
		t.Fatalf("pounds must convert to pence, got %d", got)
	}
	if params.Metadata["account_id"] != account.ID.String() {
		t.Fatal("metadata must carry the account id for the webhook")
	}
	if params.Metadata["amount"] != "80.00" {
		t.Fatalf("metadata must carry the exact amount, got %q", params.Metadata["amount"])
	}
}

func TestService_CreateDepositSessionEnforcesMinimum(t *testing.T) {
	account := &models.Account{ID: uuid.New(), IsActive: true}
	svc := newTestService(t, &fakeStripeClient{}, &fakeAccountRepo{account: account})

	_, err := svc.CreateDepositSession(context.Background(), DepositSessionInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("4.99"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error below the minimum, got %v", err)
	}
}

func TestService_CreateDepositSessionRejectsInactiveAccount(t *testing.T) {
	account := &models.Account{ID: uuid.New(), IsActive: false}
	svc := newTestService(t, &fakeStripeClient{}, &fakeAccountRepo{account: account})

	_, err := svc.CreateDepositSession(context.Background(), DepositSessionInput{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("20.00"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for inactive account, got %v", err)
	}
}

func TestService_CreateDepositSessionUnknownAccount(t *testing.T) {
	svc := newTestService(t, &fakeStripeClient{}, &fakeAccountRepo{})

	_, err := svc.CreateDepositSession(context.Background(), DepositSessionInput{
		AccountID: uuid.New(),
		Amount:    decimal.RequireFromString("20.00"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

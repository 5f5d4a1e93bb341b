package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// Repository manages persistence for the append-mostly transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)
	ListCreditsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)
	FindByStripePaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var entry models.Transaction
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListCreditsByAccount returns the deposit entries only. Refund rows are
// audit artifacts and never feed the balance derivation.
func (r *repository) ListCreditsByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("type = ?", enums.TransactionTypeDeposit).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) FindByStripePaymentID(ctx context.Context, paymentID string) (*models.Transaction, error) {
	var entry models.Transaction
	if err := r.db.WithContext(ctx).First(&entry, "stripe_payment_id = ?", paymentID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Transaction{}, "id = ?", id).Error
}

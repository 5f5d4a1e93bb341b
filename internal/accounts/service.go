package accounts

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rachelmorley/tutorpay-backend/pkg/config"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
	"github.com/rachelmorley/tutorpay-backend/pkg/security"
)

const tempPasswordLength = 12

// Service owns the student roster.
type Service interface {
	CreateStudent(ctx context.Context, input CreateStudentInput) (*models.Account, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListStudents(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, input UpdateAccountInput) (*models.Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ResetPassword(ctx context.Context, id uuid.UUID) (string, error)
}

// CreateStudentInput captures a new family signing up with the tutor.
type CreateStudentInput struct {
	Email       string
	ParentName  string
	StudentName string
	HourlyRate  decimal.Decimal
	Timezone    string
}

// UpdateAccountInput mutates roster fields. Nil pointers leave the field as is.
// Rate changes only affect lessons booked afterwards; existing lessons keep
// the cost captured at booking time.
type UpdateAccountInput struct {
	AccountID   uuid.UUID
	Email       *string
	ParentName  *string
	StudentName *string
	HourlyRate  *decimal.Decimal
	Timezone    *string
}

type service struct {
	repo        Repository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService wires the account service.
func NewService(repo Repository, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg, logg: logg}, nil
}

// CreateStudent provisions a student account with a generated temporary
// password, returned exactly once for the tutor to hand over.
func (s *service) CreateStudent(ctx context.Context, input CreateStudentInput) (*models.Account, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if input.HourlyRate.IsNegative() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "hourly rate cannot be negative")
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	} else if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("checking email: %w", err)
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, "", fmt.Errorf("generating temp password: %w", err)
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	timezone := strings.TrimSpace(input.Timezone)
	if timezone == "" {
		timezone = "Europe/London"
	}

	account := &models.Account{
		Email:           email,
		Role:            enums.AccountRoleStudent,
		ParentName:      strings.TrimSpace(input.ParentName),
		StudentName:     strings.TrimSpace(input.StudentName),
		HourlyRate:      input.HourlyRate,
		Balance:         decimal.Zero,
		Timezone:        timezone,
		PasswordHash:    hash,
		PasswordChanged: false,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, "", fmt.Errorf("creating account: %w", err)
	}

	s.logg.Info(s.logg.WithAccountID(ctx, account.ID.String()), "student account created")

	return account, tempPassword, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return account, nil
}

func (s *service) ListStudents(ctx context.Context) ([]models.Account, error) {
	return s.repo.ListByRole(ctx, enums.AccountRoleStudent)
}

func (s *service) Update(ctx context.Context, input UpdateAccountInput) (*models.Account, error) {
	account, err := s.Get(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		account.Email = email
	}
	if input.ParentName != nil {
		account.ParentName = strings.TrimSpace(*input.ParentName)
	}
	if input.StudentName != nil {
		account.StudentName = strings.TrimSpace(*input.StudentName)
	}
	if input.HourlyRate != nil {
		if input.HourlyRate.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "hourly rate cannot be negative")
		}
		account.HourlyRate = *input.HourlyRate
	}
	if input.Timezone != nil {
		account.Timezone = strings.TrimSpace(*input.Timezone)
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}
	return account, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, active)
}

// ResetPassword issues a fresh temporary password for a locked-out family.
func (s *service) ResetPassword(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", fmt.Errorf("generating temp password: %w", err)
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash, false); err != nil {
		return "", fmt.Errorf("storing password: %w", err)
	}

	s.logg.Info(s.logg.WithAccountID(ctx, id.String()), "student password reset")

	return tempPassword, nil
}

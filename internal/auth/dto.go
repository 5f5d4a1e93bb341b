package auth

import (
	"github.com/google/uuid"

	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
)

// LoginRequest carries portal credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the token pair plus the signed-in account.
type LoginResponse struct {
	AccessToken    string         `json:"access_token"`
	RefreshToken   string         `json:"refresh_token"`
	Account        AccountSummary `json:"account"`
	MustChangePass bool           `json:"must_change_password"`
}

// RefreshRequest rotates a session.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the replacement token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest lets a signed-in account replace its password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// AccountSummary is the public shape of an account.
type AccountSummary struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	Role        enums.AccountRole `json:"role"`
	ParentName  string            `json:"parent_name"`
	StudentName string            `json:"student_name"`
	Timezone    string            `json:"timezone"`
}

// SummaryFromModel maps an account model to its public summary.
func SummaryFromModel(account *models.Account) AccountSummary {
	if account == nil {
		return AccountSummary{}
	}
	return AccountSummary{
		ID:          account.ID,
		Email:       account.Email,
		Role:        account.Role,
		ParentName:  account.ParentName,
		StudentName: account.StudentName,
		Timezone:    account.Timezone,
	}
}

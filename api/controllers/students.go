package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/api/responses"
	"github.com/rachelmorley/tutorpay-backend/api/validators"
	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/pkg/db/models"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// AccountView is the staff-facing shape of an account.
type AccountView struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	ParentName  string          `json:"parent_name"`
	StudentName string          `json:"student_name"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	Balance     decimal.Decimal `json:"balance"`
	Timezone    string          `json:"timezone"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func accountView(account *models.Account) AccountView {
	if account == nil {
		return AccountView{}
	}
	return AccountView{
		ID:          account.ID,
		Email:       account.Email,
		ParentName:  account.ParentName,
		StudentName: account.StudentName,
		HourlyRate:  account.HourlyRate,
		Balance:     account.Balance,
		Timezone:    account.Timezone,
		IsActive:    account.IsActive,
		CreatedAt:   account.CreatedAt,
	}
}

type createStudentRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	ParentName  string          `json:"parent_name" validate:"required"`
	StudentName string          `json:"student_name" validate:"required"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	Timezone    string          `json:"timezone"`
}

type updateStudentRequest struct {
	Email       *string          `json:"email,omitempty" validate:"omitempty,email"`
	ParentName  *string          `json:"parent_name,omitempty"`
	StudentName *string          `json:"student_name,omitempty"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	Timezone    *string          `json:"timezone,omitempty"`
}

// StudentCreate provisions a student account and returns the one-time
// temporary password alongside it.
func StudentCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createStudentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, tempPassword, err := svc.CreateStudent(r.Context(), accounts.CreateStudentInput{
			Email:       body.Email,
			ParentName:  body.ParentName,
			StudentName: body.StudentName,
			HourlyRate:  body.HourlyRate,
			Timezone:    body.Timezone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"account":       accountView(account),
			"temp_password": tempPassword,
		})
	}
}

func StudentList(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := svc.ListStudents(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]AccountView, 0, len(students))
		for i := range students {
			views = append(views, accountView(&students[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

func StudentDetail(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accountView(account))
	}
}

func StudentUpdate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateStudentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Update(r.Context(), accounts.UpdateAccountInput{
			AccountID:   id,
			Email:       body.Email,
			ParentName:  body.ParentName,
			StudentName: body.StudentName,
			HourlyRate:  body.HourlyRate,
			Timezone:    body.Timezone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accountView(account))
	}
}

// StudentSetActive flips the roster flag; deactivated accounts cannot sign in
// or be booked.
func StudentSetActive(svc accounts.Service, active bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetActive(r.Context(), id, active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"is_active": active})
	}
}

// StudentResetPassword issues a fresh temporary password for a family.
func StudentResetPassword(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tempPassword, err := svc.ResetPassword(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"temp_password": tempPassword})
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+param)
	}
	return id, nil
}

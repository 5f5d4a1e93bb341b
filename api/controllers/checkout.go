package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/api/responses"
	"github.com/rachelmorley/tutorpay-backend/api/validators"
	"github.com/rachelmorley/tutorpay-backend/internal/checkout"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

type depositSessionRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// CheckoutDeposit creates a hosted Stripe Checkout session for the caller's
// own account top-up.
func CheckoutDeposit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := actorAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body depositSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateDepositSession(r.Context(), checkout.DepositSessionInput{
			AccountID: accountID,
			Amount:    body.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

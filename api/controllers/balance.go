package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rachelmorley/tutorpay-backend/api/responses"
	"github.com/rachelmorley/tutorpay-backend/internal/accounts"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// Recalculator is the slice of the balance service the HTTP layer needs.
type Recalculator interface {
	Recalculate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// BalanceRecalculateMine recomputes the caller's own balance. The requested
// account is always the actor's; there is nothing to pass.
func BalanceRecalculateMine(recalc Recalculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := actorAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := recalc.Recalculate(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"balance": balance})
	}
}

// BalanceRecalculateForAccount recomputes any account's balance for staff.
func BalanceRecalculateForAccount(recalc Recalculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := recalc.Recalculate(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"balance": balance})
	}
}

// Profile returns the signed-in account with a freshly derived balance, so
// the portal always shows the current figure rather than a stale cache.
func Profile(svc accounts.Service, recalc Recalculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := actorAccountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := recalc.Recalculate(r.Context(), accountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Get(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accountView(account))
	}
}

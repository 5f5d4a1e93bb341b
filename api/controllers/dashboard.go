package controllers

import (
	"net/http"

	"github.com/rachelmorley/tutorpay-backend/api/responses"
	"github.com/rachelmorley/tutorpay-backend/internal/dashboard"
	"github.com/rachelmorley/tutorpay-backend/pkg/logger"
)

// DashboardStats returns the admin landing-page summary.
func DashboardStats(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

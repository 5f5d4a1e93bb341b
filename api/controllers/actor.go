package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rachelmorley/tutorpay-backend/api/middleware"
	"github.com/rachelmorley/tutorpay-backend/pkg/enums"
	pkgerrors "github.com/rachelmorley/tutorpay-backend/pkg/errors"
)

func actorAccountID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.AccountIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing account")
	}
	return id, nil
}

func actorIsAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == string(enums.AccountRoleAdmin)
}

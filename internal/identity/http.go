// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/helpline/internal/platform/request"
	"github.com/taibuivan/helpline/internal/platform/respond"
)

// Handler implements the HTTP layer for the staff directory.
type Handler struct {
	service *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the staff directory endpoints.
//
// The router must be mounted behind RequireRole(superadmin).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listAccounts)
	router.Post("/", handler.createAccount)
	router.Delete("/{accountID}", handler.deleteAccount)

	return router
}

/*
GET /api/v1/accounts.

Description: Lists every staff account.

Response:
  - 200: {accounts: []Account}
  - 403: ErrForbidden: Caller is not a superadmin
*/
func (handler *Handler) listAccounts(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	accounts, err := handler.service.ListAccounts(request.Context(), FromClaims(claims))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"accounts": accounts})
}

/*
POST /api/v1/accounts.

Description: Registers a staff account (admin or superadmin).

Request (Body):
  - CreateAccountInput

Response:
  - 201: Account
  - 400: ErrInvalidInput
  - 409: DUPLICATE_ACCOUNT
*/
func (handler *Handler) createAccount(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input CreateAccountInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.service.CreateAccount(request.Context(), FromClaims(claims), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, account)
}

/*
DELETE /api/v1/accounts/{accountID}.

Response:
  - 204: Account removed
  - 404: NOT_FOUND
  - 409: CONFLICT: Caller tried to delete their own account
*/
func (handler *Handler) deleteAccount(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.DeleteAccount(request.Context(), FromClaims(claims), requestutil.Param(request, "accountID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

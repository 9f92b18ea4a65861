// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/helpline/internal/platform/middleware"
	requestutil "github.com/taibuivan/helpline/internal/platform/request"
	"github.com/taibuivan/helpline/internal/platform/respond"
	"github.com/taibuivan/helpline/internal/platform/sec"
)

// # Handler Implementation

// Handler implements the HTTP layer for chat and tenant management.
type Handler struct {
	service *Service
}

// NewHandler constructs a new chat [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the /chat endpoints.
//
// # Routing Strategy
//
//   - Participants (Public): End-users call without a token; staff attach one.
//   - Reporting (Restricted): Analytics requires [sec.RoleSuperAdmin].
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/send", handler.sendMessage)
	router.Post("/messages", handler.listMessages)
	router.Post("/messages/{messageID}/read", handler.markRead)

	router.Group(func(super chi.Router) {
		super.Use(middleware.RequireRole(sec.RoleSuperAdmin))
		super.Get("/analytics", handler.analytics)
	})

	return router
}

/*
POST /api/v1/chat/send.

Description: Stores a message. A resend with a known clientMessageId returns
the original message with 200.

Request (Body):
  - SendRequest

Response:
  - 201: {message: Message}
  - 200: {message: Message} (resend)
  - 400: INVALID_INPUT
  - 403: SENDER_BLOCKED | FORBIDDEN
  - 404: TENANT_NOT_FOUND
*/
func (handler *Handler) sendMessage(writer http.ResponseWriter, request *http.Request) {
	var input SendRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := reconcile(request, &input.Caller); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.SendMessage(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := map[string]any{"message": result.Message}
	if result.Duplicate {
		respond.OK(writer, payload)
		return
	}
	respond.Created(writer, payload)
}

/*
POST /api/v1/chat/messages.

Description: Returns one page of the messages visible to the caller.

Response:
  - 200: ListResult
  - 400: INVALID_CURSOR
  - 403: FORBIDDEN
*/
func (handler *Handler) listMessages(writer http.ResponseWriter, request *http.Request) {
	var input ListRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := reconcile(request, &input.Caller); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.ListMessages(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// markRead handles POST /api/v1/chat/messages/{messageID}/read.
func (handler *Handler) markRead(writer http.ResponseWriter, request *http.Request) {
	var caller Caller
	if err := requestutil.DecodeJSON(writer, request, &caller); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := reconcile(request, &caller); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.MarkRead(request.Context(), caller, requestutil.Param(request, "messageID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// analytics handles GET /api/v1/chat/analytics.
func (handler *Handler) analytics(writer http.ResponseWriter, request *http.Request) {
	actor, err := handler.service.Staff(request.Context(), requestutil.Claims(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	report, err := handler.service.Analytics(request.Context(), actor)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, report)
}

// # Auth Boundary

/*
reconcile merges the verified staff token into the identity asserted in the body.

Description:
  - token present: role and account come from the claims; a different body
    accountId is refused.
  - no token: only the user role is accepted.
*/
func reconcile(request *http.Request, caller *Caller) error {
	claims := requestutil.Claims(request)

	if claims == nil {
		if sec.Role(strings.ToLower(strings.TrimSpace(caller.Role))).IsStaff() {
			return ErrTokenRequired
		}
		return nil
	}

	if accountID := strings.TrimSpace(caller.AccountID); accountID != "" && accountID != claims.UserID {
		return ErrAccountMismatch
	}

	caller.AccountID = claims.UserID
	caller.Role = claims.Role
	caller.PhoneNumber = ""
	return nil
}

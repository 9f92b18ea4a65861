// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/helpline/internal/block"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/middleware"
	requestutil "github.com/taibuivan/helpline/internal/platform/request"
	"github.com/taibuivan/helpline/internal/platform/respond"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/tenant"
)

// TenantRoutes returns the /tenants endpoints. Every route needs a staff token.
func (handler *Handler) TenantRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireRole(sec.RoleAdmin))

	router.Post("/", handler.createTenant)
	router.Get("/", handler.listTenants)
	router.Get("/{tenantID}", handler.getTenant)
	router.Post("/{tenantID}/admins", handler.addAdmin)

	// ## Block Registry
	router.Post("/{tenantID}/block", handler.blockUser)
	router.Post("/{tenantID}/unblock", handler.unblockUser)
	router.Get("/{tenantID}/blocked", handler.listBlocked)
	router.Get("/{tenantID}/blocked/{phoneNumber}/history", handler.blockHistory)

	// ## Lifecycle (Superadmin)
	router.Group(func(super chi.Router) {
		super.Use(middleware.RequireRole(sec.RoleSuperAdmin))
		super.Patch("/{tenantID}/status", handler.setTenantStatus)
		super.Delete("/{tenantID}", handler.deleteTenant)
	})

	return router
}

// # Request Bodies

type createTenantInput struct {
	Name string `json:"name"`
}

type addAdminInput struct {
	AccountID string `json:"accountId"`
}

type statusInput struct {
	Status string `json:"status"`
}

type blockInput struct {
	PhoneNumber string `json:"phoneNumber"`
	Reason      string `json:"reason,omitempty"`
}

// actor resolves the staff principal of the request or writes the error.
func (handler *Handler) actor(writer http.ResponseWriter, request *http.Request) (identity.Principal, bool) {
	principal, err := handler.service.Staff(request.Context(), requestutil.Claims(request))
	if err != nil {
		respond.Error(writer, request, err)
		return identity.Principal{}, false
	}
	return principal, true
}

/*
POST /api/v1/tenants.

Response:
  - 201: {tenant: Tenant}
  - 409: DUPLICATE_NAME
*/
func (handler *Handler) createTenant(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	var input createTenantInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreateTenant(request.Context(), actor, input.Name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"tenant": created})
}

// listTenants handles GET /api/v1/tenants.
func (handler *Handler) listTenants(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	tenants, err := handler.service.ListTenants(request.Context(), actor)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if tenants == nil {
		tenants = []*tenant.Tenant{}
	}

	respond.OK(writer, map[string]any{"tenants": tenants})
}

// getTenant handles GET /api/v1/tenants/{tenantID}.
func (handler *Handler) getTenant(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	found, err := handler.service.GetTenant(request.Context(), actor, requestutil.Param(request, "tenantID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"tenant": found})
}

/*
POST /api/v1/tenants/{tenantID}/admins.

Response:
  - 201: {tenant: Tenant}
  - 404: TENANT_NOT_FOUND | NOT_FOUND (account)
  - 409: ALREADY_ADMIN
*/
func (handler *Handler) addAdmin(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	var input addAdminInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.AddAdmin(request.Context(), actor, requestutil.Param(request, "tenantID"), input.AccountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"tenant": updated})
}

// setTenantStatus handles PATCH /api/v1/tenants/{tenantID}/status.
func (handler *Handler) setTenantStatus(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	var input statusInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.SetTenantStatus(request.Context(), actor, requestutil.Param(request, "tenantID"), tenant.Status(input.Status))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"tenant": updated})
}

// deleteTenant handles DELETE /api/v1/tenants/{tenantID}.
func (handler *Handler) deleteTenant(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	if err := handler.service.DeleteTenant(request.Context(), actor, requestutil.Param(request, "tenantID")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/tenants/{tenantID}/block.

Response:
  - 201: {blockEntry: Entry}
  - 400: INVALID_INPUT
  - 409: ALREADY_BLOCKED
*/
func (handler *Handler) blockUser(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	var input blockInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	entry, err := handler.service.BlockUser(request.Context(), actor, requestutil.Param(request, "tenantID"), input.PhoneNumber, input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{"blockEntry": entry})
}

/*
POST /api/v1/tenants/{tenantID}/unblock.

Response:
  - 200: {blockEntry: Entry}
  - 404: NOT_BLOCKED
*/
func (handler *Handler) unblockUser(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	var input blockInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	entry, err := handler.service.UnblockUser(request.Context(), actor, requestutil.Param(request, "tenantID"), input.PhoneNumber)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"blockEntry": entry})
}

// listBlocked handles GET /api/v1/tenants/{tenantID}/blocked.
func (handler *Handler) listBlocked(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	entries, err := handler.service.ListBlocked(request.Context(), actor, requestutil.Param(request, "tenantID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if entries == nil {
		entries = []*block.Entry{}
	}

	respond.OK(writer, map[string]any{"blockedUsers": entries})
}

// blockHistory handles GET /api/v1/tenants/{tenantID}/blocked/{phoneNumber}/history.
func (handler *Handler) blockHistory(writer http.ResponseWriter, request *http.Request) {
	actor, ok := handler.actor(writer, request)
	if !ok {
		return
	}

	entries, err := handler.service.BlockHistory(request.Context(), actor,
		requestutil.Param(request, "tenantID"),
		requestutil.Param(request, "phoneNumber"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if entries == nil {
		entries = []*block.Entry{}
	}

	respond.OK(writer, map[string]any{"entries": entries})
}

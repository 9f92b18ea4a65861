// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package visibility is the authorization core of the chat.

# Core Responsibility

  - Read: [Policy.BuildPredicate] turns a principal and a tenant into the
    message predicate every read goes through. Denials fail closed.
  - Write: [Policy.AuthorizeWrite] gates sends. External senders are checked
    against tenant status and the block registry; staff need read access.
  - Manage: [Policy.AuthorizeManage] gates block administration and admin
    assignment. Only staff with read access pass.

Every operation that touches messages asks this package; no other package
makes role decisions about tenant data.
*/
package visibility

import (
	"context"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/message"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/tenant"
)

// TenantFinder resolves live tenants with their admin sets. Get may serve a
// cached copy; GetFresh always reads the store.
type TenantFinder interface {
	Get(context context.Context, tenantID string) (*tenant.Tenant, error)
	GetFresh(context context.Context, tenantID string) (*tenant.Tenant, error)
}

// BlockChecker answers the external write gate.
type BlockChecker interface {
	IsBlocked(context context.Context, tenantID, phoneNumber string) (bool, error)
}

// # Errors

var (
	ErrNotAssigned     = apperr.Forbidden("You are not an admin of this tenant")
	ErrForeignTenant   = apperr.Forbidden("You do not belong to this tenant")
	ErrTenantClosed    = apperr.Forbidden("This tenant is not accepting messages")
	ErrTenantSuspended = apperr.Forbidden("This tenant is suspended")
	ErrStaffOnly       = apperr.Forbidden("Only staff can manage this tenant")
	ErrUnknownKind     = apperr.Forbidden("Principal cannot access tenant data")
	ErrSenderBlocked   = apperr.SenderBlocked()
)

// # Policy

// Policy makes read, write and manage decisions.
type Policy struct {
	tenants TenantFinder
	blocks  BlockChecker
}

// NewPolicy constructs a [Policy].
func NewPolicy(tenants TenantFinder, blocks BlockChecker) *Policy {
	return &Policy{tenants: tenants, blocks: blocks}
}

/*
BuildPredicate returns the filter principal reads tenantID's messages through.

Description:
  - superadmin: every message of the tenant.
  - admin: must be assigned; sees all traffic involving an end-user plus
    staff messages they sent or receive.
  - end-user: must belong to the tenant; sees only their own thread.

Returns:
  - message.Predicate: Never the zero value on success
  - error: tenant.ErrTenantNotFound | Forbidden
*/
func (policy *Policy) BuildPredicate(context context.Context, principal identity.Principal, tenantID string) (message.Predicate, error) {
	current, err := policy.tenants.Get(context, tenantID)
	if err != nil {
		return message.Predicate{}, err
	}

	if err := authorizeRead(principal, current); err != nil {
		return message.Predicate{}, err
	}

	predicate := message.Predicate{TenantID: current.ID, Viewer: principal}
	switch {
	case principal.IsSuperAdmin():
		predicate.Scope = message.ScopeTenant
	case principal.IsAdmin():
		predicate.Scope = message.ScopeStaff
	default:
		predicate.Scope = message.ScopeThread
	}
	return predicate, nil
}

/*
AuthorizeWrite decides whether principal may send into tenantID.

Description:
  - end-user: must belong to the tenant, the tenant must be active and the
    identity must not be blocked.
  - staff: same as read access; admins are refused while the tenant is
    suspended.
  - The tenant is read past the cache, so a status change or deletion made
    on any instance gates the very next send.

Returns:
  - error: tenant.ErrTenantNotFound | ErrSenderBlocked | Forbidden
*/
func (policy *Policy) AuthorizeWrite(context context.Context, principal identity.Principal, tenantID string) error {
	current, err := policy.tenants.GetFresh(context, tenantID)
	if err != nil {
		return err
	}

	if err := authorizeRead(principal, current); err != nil {
		return err
	}

	switch {
	case principal.IsExternal():
		if current.Status != tenant.StatusActive {
			return ErrTenantClosed
		}
		blocked, err := policy.blocks.IsBlocked(context, current.ID, principal.PhoneNumber)
		if err != nil {
			return err
		}
		if blocked {
			return ErrSenderBlocked
		}
	case principal.IsAdmin():
		if current.Status == tenant.StatusSuspended {
			return ErrTenantSuspended
		}
	}
	return nil
}

/*
AuthorizeManage decides whether principal may administer tenantID.

Returns:
  - *tenant.Tenant: The tenant, for callers that need its state
  - error: tenant.ErrTenantNotFound | Forbidden
*/
func (policy *Policy) AuthorizeManage(context context.Context, principal identity.Principal, tenantID string) (*tenant.Tenant, error) {
	if !principal.IsInternal() {
		return nil, ErrStaffOnly
	}

	current, err := policy.tenants.GetFresh(context, tenantID)
	if err != nil {
		return nil, err
	}

	if err := authorizeRead(principal, current); err != nil {
		return nil, err
	}
	return current, nil
}

// authorizeRead is the shared tenant access check.
func authorizeRead(principal identity.Principal, current *tenant.Tenant) error {
	switch {
	case principal.IsSuperAdmin():
		return nil
	case principal.IsAdmin():
		if !current.HasAdmin(principal.AccountID) {
			return ErrNotAssigned
		}
		return nil
	case principal.IsExternal():
		if principal.TenantID != current.ID {
			return ErrForeignTenant
		}
		return nil
	default:
		return ErrUnknownKind
	}
}

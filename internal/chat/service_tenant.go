// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"errors"

	"github.com/taibuivan/helpline/internal/block"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/internal/visibility"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// # Tenant Management

// CreateTenant registers a tenant with actor as its first admin.
func (service *Service) CreateTenant(context context.Context, actor identity.Principal, name string) (*tenant.Tenant, error) {
	if !actor.IsInternal() {
		return nil, visibility.ErrStaffOnly
	}
	return service.tenants.Create(context, name, actor.AccountID)
}

// ListTenants returns every tenant to a superadmin and the assigned ones to an admin.
func (service *Service) ListTenants(context context.Context, actor identity.Principal) ([]*tenant.Tenant, error) {
	switch {
	case actor.IsSuperAdmin():
		return service.tenants.List(context)
	case actor.IsAdmin():
		return service.tenants.ListAdminsOf(context, actor.AccountID)
	default:
		return nil, visibility.ErrStaffOnly
	}
}

/*
GetTenant returns a tenant the actor may manage, with the name and phone
number of each admin.

Returns:
  - *TenantDetail: The tenant and its resolved admin set
  - error: tenant.ErrTenantNotFound | Forbidden
*/
func (service *Service) GetTenant(context context.Context, actor identity.Principal, tenantID string) (*TenantDetail, error) {
	current, err := service.policy.AuthorizeManage(context, actor, tenantID)
	if err != nil {
		return nil, err
	}

	detail := &TenantDetail{Tenant: current, Admins: make([]AdminProfile, 0, len(current.Admins))}
	for _, assignment := range current.Admins {
		profile := AdminProfile{AdminAssignment: assignment}

		account, err := service.accounts.FindByID(context, assignment.AccountID)
		switch {
		case err == nil:
			profile.Name = account.Name
			profile.PhoneNumber = account.PhoneNumber
		case !errors.Is(err, identity.ErrAccountNotFound):
			return nil, err
		}
		detail.Admins = append(detail.Admins, profile)
	}
	return detail, nil
}

/*
AddAdmin assigns a staff account to a tenant.

Description: Any staff member who may manage the tenant can extend its admin
set. The account must exist in the staff directory.

Returns:
  - *tenant.Tenant: The tenant with its updated admin set
  - error: tenant.ErrTenantNotFound | tenant.ErrAlreadyAdmin | identity.ErrAccountNotFound | Forbidden
*/
func (service *Service) AddAdmin(context context.Context, actor identity.Principal, tenantID, accountID string) (*tenant.Tenant, error) {
	current, err := service.policy.AuthorizeManage(context, actor, tenantID)
	if err != nil {
		return nil, err
	}

	if !uuid.Valid(accountID) {
		return nil, identity.ErrAccountNotFound
	}
	if _, err := service.accounts.FindByID(context, accountID); err != nil {
		return nil, err
	}

	if err := service.tenants.AddAdmin(context, current.ID, accountID, actor.AccountID); err != nil {
		return nil, err
	}
	return service.tenants.Get(context, current.ID)
}

// SetTenantStatus changes a tenant's lifecycle status. Superadmin only.
func (service *Service) SetTenantStatus(context context.Context, actor identity.Principal, tenantID string, status tenant.Status) (*tenant.Tenant, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminOnly
	}

	if err := service.tenants.SetStatus(context, tenantID, status); err != nil {
		return nil, err
	}
	return service.tenants.Get(context, tenantID)
}

// DeleteTenant soft deletes a tenant. Superadmin only.
func (service *Service) DeleteTenant(context context.Context, actor identity.Principal, tenantID string) error {
	if !actor.IsSuperAdmin() {
		return ErrSuperAdminOnly
	}
	if !uuid.Valid(tenantID) {
		return tenant.ErrTenantNotFound
	}
	return service.tenants.Delete(context, tenantID)
}

// # Block Management

/*
BlockUser denies an end-user write access to a tenant.

Returns:
  - *block.Entry: The new active entry
  - error: block.ErrAlreadyBlocked | tenant.ErrTenantNotFound | Forbidden
*/
func (service *Service) BlockUser(context context.Context, actor identity.Principal, tenantID, phoneNumber, reason string) (*block.Entry, error) {
	if _, err := service.policy.AuthorizeManage(context, actor, tenantID); err != nil {
		return nil, err
	}

	entry, err := service.blocks.Block(context, tenantID, phoneNumber, actor.AccountID, reason)
	if err != nil {
		return nil, err
	}

	service.publish(context, constants.EventUserBlocked, BlockChanged{
		EntryID:     entry.ID,
		TenantID:    entry.TenantID,
		PhoneNumber: entry.PhoneNumber,
		ActorID:     actor.AccountID,
	})
	return entry, nil
}

// UnblockUser restores an end-user's write access.
func (service *Service) UnblockUser(context context.Context, actor identity.Principal, tenantID, phoneNumber string) (*block.Entry, error) {
	if _, err := service.policy.AuthorizeManage(context, actor, tenantID); err != nil {
		return nil, err
	}

	entry, err := service.blocks.Unblock(context, tenantID, phoneNumber, actor.AccountID)
	if err != nil {
		return nil, err
	}

	service.publish(context, constants.EventUserUnblocked, BlockChanged{
		EntryID:     entry.ID,
		TenantID:    entry.TenantID,
		PhoneNumber: entry.PhoneNumber,
		ActorID:     actor.AccountID,
	})
	return entry, nil
}

// ListBlocked returns the active block entries of a tenant.
func (service *Service) ListBlocked(context context.Context, actor identity.Principal, tenantID string) ([]*block.Entry, error) {
	if _, err := service.policy.AuthorizeManage(context, actor, tenantID); err != nil {
		return nil, err
	}
	return service.blocks.ListActive(context, tenantID)
}

// BlockHistory returns every block entry of one end-user, oldest first.
func (service *Service) BlockHistory(context context.Context, actor identity.Principal, tenantID, phoneNumber string) ([]*block.Entry, error) {
	if _, err := service.policy.AuthorizeManage(context, actor, tenantID); err != nil {
		return nil, err
	}

	return service.blocks.History(context, tenantID, phoneNumber)
}

// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tenant

import "context"

// # Tenant Data Access

// Repository defines the data access contract for tenants and admin sets.
// Soft-deleted tenants are invisible to every read.
type Repository interface {

	/*
		Create persists a tenant together with its seeded admin set.

		Parameters:
		  - context: context.Context
		  - tenant: *Tenant (Admins already holds the creator)

		Returns:
		  - error: ErrDuplicateName if a live tenant has the same normalized name
	*/
	Create(context context.Context, tenant *Tenant) error

	/*
		FindByID retrieves a live tenant with its admin set.

		Returns:
		  - *Tenant: Hydrated entity
		  - error: ErrTenantNotFound if missing or deleted
	*/
	FindByID(context context.Context, id string) (*Tenant, error)

	/*
		FindByNormalizedName retrieves a live tenant by its folded name.

		Returns:
		  - *Tenant: Hydrated entity
		  - error: ErrTenantNotFound if missing or deleted
	*/
	FindByNormalizedName(context context.Context, normalizedName string) (*Tenant, error)

	/*
		List returns every live tenant ordered by creation time.
	*/
	List(context context.Context) ([]*Tenant, error)

	/*
		ListByAdmin returns the live tenants administered by accountID.
	*/
	ListByAdmin(context context.Context, accountID string) ([]*Tenant, error)

	/*
		AddAdmin inserts one assignment into the tenant's admin set.

		Parameters:
		  - context: context.Context
		  - tenantID: string
		  - assignment: AdminAssignment

		Returns:
		  - error: ErrAlreadyAdmin | ErrTenantNotFound
	*/
	AddAdmin(context context.Context, tenantID string, assignment AdminAssignment) error

	/*
		SetStatus changes the lifecycle status of a live tenant.

		Returns:
		  - error: ErrTenantNotFound
	*/
	SetStatus(context context.Context, id string, status Status) error

	/*
		SoftDelete marks a tenant as deleted, freeing its name.

		Returns:
		  - error: ErrTenantNotFound
	*/
	SoftDelete(context context.Context, id string) error
}

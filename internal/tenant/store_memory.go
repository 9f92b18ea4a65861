// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tenant

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository implements [Repository] with a mutex-guarded map.
type InMemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// NewInMemoryRepository constructs an empty registry.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{tenants: make(map[string]*Tenant)}
}

// Create stores tenant unless a live tenant already uses its normalized name.
func (repository *InMemoryRepository) Create(_ context.Context, tenant *Tenant) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.tenants {
		if !existing.IsDeleted() && existing.NormalizedName == tenant.NormalizedName {
			return ErrDuplicateName
		}
	}

	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	for i := range tenant.Admins {
		tenant.Admins[i].AddedAt = now
	}

	repository.tenants[tenant.ID] = tenant.Clone()
	return nil
}

// FindByID returns a copy of a live tenant.
func (repository *InMemoryRepository) FindByID(_ context.Context, id string) (*Tenant, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	tenant, ok := repository.tenants[id]
	if !ok || tenant.IsDeleted() {
		return nil, ErrTenantNotFound
	}
	return tenant.Clone(), nil
}

// FindByNormalizedName returns a copy of the live tenant with that name.
func (repository *InMemoryRepository) FindByNormalizedName(_ context.Context, normalizedName string) (*Tenant, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, tenant := range repository.tenants {
		if !tenant.IsDeleted() && tenant.NormalizedName == normalizedName {
			return tenant.Clone(), nil
		}
	}
	return nil, ErrTenantNotFound
}

// List returns every live tenant, oldest first.
func (repository *InMemoryRepository) List(_ context.Context) ([]*Tenant, error) {
	return repository.filter(func(*Tenant) bool { return true }), nil
}

// ListByAdmin returns the live tenants whose admin set contains accountID.
func (repository *InMemoryRepository) ListByAdmin(_ context.Context, accountID string) ([]*Tenant, error) {
	return repository.filter(func(tenant *Tenant) bool { return tenant.HasAdmin(accountID) }), nil
}

// AddAdmin appends assignment to the admin set.
func (repository *InMemoryRepository) AddAdmin(_ context.Context, tenantID string, assignment AdminAssignment) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	tenant, ok := repository.tenants[tenantID]
	if !ok || tenant.IsDeleted() {
		return ErrTenantNotFound
	}
	if tenant.HasAdmin(assignment.AccountID) {
		return ErrAlreadyAdmin
	}

	now := time.Now().UTC()
	assignment.AddedAt = now
	tenant.Admins = append(tenant.Admins, assignment)
	tenant.UpdatedAt = now
	return nil
}

// SetStatus changes the status of a live tenant.
func (repository *InMemoryRepository) SetStatus(_ context.Context, id string, status Status) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	tenant, ok := repository.tenants[id]
	if !ok || tenant.IsDeleted() {
		return ErrTenantNotFound
	}
	tenant.Status = status
	tenant.UpdatedAt = time.Now().UTC()
	return nil
}

// SoftDelete stamps DeletedAt on a live tenant.
func (repository *InMemoryRepository) SoftDelete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	tenant, ok := repository.tenants[id]
	if !ok || tenant.IsDeleted() {
		return ErrTenantNotFound
	}
	now := time.Now().UTC()
	tenant.DeletedAt = &now
	tenant.UpdatedAt = now
	return nil
}

func (repository *InMemoryRepository) filter(keep func(*Tenant) bool) []*Tenant {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	tenants := make([]*Tenant, 0, len(repository.tenants))
	for _, tenant := range repository.tenants {
		if !tenant.IsDeleted() && keep(tenant) {
			tenants = append(tenants, tenant.Clone())
		}
	}
	sort.Slice(tenants, func(i, j int) bool {
		if !tenants[i].CreatedAt.Equal(tenants[j].CreatedAt) {
			return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
		}
		return tenants[i].ID < tenants[j].ID
	})
	return tenants
}

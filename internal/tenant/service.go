// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/platform/validate"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// Cache is the L1 byte cache used for tenant reads. [cache.Cache] satisfies it.
type Cache interface {
	Get(context context.Context, key string) ([]byte, bool)
	Set(context context.Context, key string, value []byte, ttl time.Duration)
	Delete(context context.Context, keys ...string)
}

const (
	cacheKeyByID   = "tenant:id:"
	cacheKeyByName = "tenant:name:"
)

// # Service Layer

// Service owns the tenant registry. It performs no principal checks;
// authorization happens in the visibility policy.
//
// The L1 cache is per process. A mutation made on another instance is seen
// here after at most [constants.TenantCacheTTL]; callers that gate writes use
// [Service.GetFresh] instead.
type Service struct {
	repo    Repository
	cache   Cache
	metrics *metrics.Metrics
	logger  *slog.Logger

	// fill orders cache fills against invalidations. A fill started before
	// an invalidation carries an older generation and is dropped.
	fill       sync.Mutex
	generation uint64
}

// NewService constructs a tenant [Service]. cache may be nil.
func NewService(repo Repository, cache Cache, collectors *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		metrics: collectors,
		logger:  logger,
	}
}

/*
Create registers a new active tenant with createdBy as its first admin.

Parameters:
  - context: context.Context
  - name: string (display name; uniqueness is case-insensitive)
  - createdBy: string (staff account id)

Returns:
  - *Tenant: The created tenant
  - error: Validation failure or ErrDuplicateName
*/
func (service *Service) Create(context context.Context, name, createdBy string) (*Tenant, error) {
	name = strings.TrimSpace(name)

	// ── 1. Validate ─────────────────────────────────────────────────────
	validator := &validate.Validator{}
	validator.
		Required(FieldName, name).
		MaxLen(FieldName, name, 120).
		Required(FieldAccountID, createdBy)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Persist with seeded admin set ────────────────────────────────
	tenant := &Tenant{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: NormalizeName(name),
		Status:         StatusActive,
		CreatedBy:      createdBy,
		Admins:         []AdminAssignment{{AccountID: createdBy, AddedBy: createdBy}},
	}

	if err := service.repo.Create(context, tenant); err != nil {
		return nil, err
	}

	service.metrics.IncrementTenantCreated()
	service.logger.Info("tenant_created",
		slog.String("tenant_id", tenant.ID),
		slog.String("name", tenant.Name),
		slog.String("created_by", createdBy),
	)

	return tenant, nil
}

/*
AddAdmin assigns accountID to the tenant's admin set.

Returns:
  - error: ErrAlreadyAdmin | ErrTenantNotFound
*/
func (service *Service) AddAdmin(context context.Context, tenantID, accountID, addedBy string) error {
	validator := &validate.Validator{}
	validator.Required(FieldAccountID, accountID)
	if err := validator.Err(); err != nil {
		return err
	}

	err := service.repo.AddAdmin(context, tenantID, AdminAssignment{AccountID: accountID, AddedBy: addedBy})
	if err != nil {
		return err
	}

	service.invalidate(context, tenantID)
	service.logger.Info("tenant_admin_added",
		slog.String("tenant_id", tenantID),
		slog.String("account_id", accountID),
		slog.String("added_by", addedBy),
	)
	return nil
}

// Get returns a live tenant by id, served from the L1 cache when warm.
func (service *Service) Get(context context.Context, tenantID string) (*Tenant, error) {
	if tenant, ok := service.cached(context, cacheKeyByID+tenantID); ok {
		return tenant, nil
	}
	return service.GetFresh(context, tenantID)
}

// GetFresh reads a live tenant from the store, bypassing the L1 cache, and
// refreshes the cache with the result.
func (service *Service) GetFresh(context context.Context, tenantID string) (*Tenant, error) {
	generation := service.currentGeneration()

	tenant, err := service.repo.FindByID(context, tenantID)
	if err != nil {
		return nil, err
	}

	service.store(context, tenant, generation)
	return tenant, nil
}

/*
Lookup resolves a tenant reference, which is either an id or a name.

Description: Names match case-insensitively after trimming.

Returns:
  - *Tenant: The matching live tenant
  - error: ErrTenantNotFound
*/
func (service *Service) Lookup(context context.Context, ref string) (*Tenant, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrTenantNotFound
	}

	if uuid.Valid(ref) {
		tenant, err := service.Get(context, ref)
		if err == nil {
			return tenant, nil
		}
		if !errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
	}

	normalized := NormalizeName(ref)
	if tenant, ok := service.cached(context, cacheKeyByName+normalized); ok {
		return tenant, nil
	}

	generation := service.currentGeneration()
	tenant, err := service.repo.FindByNormalizedName(context, normalized)
	if err != nil {
		return nil, err
	}

	service.store(context, tenant, generation)
	return tenant, nil
}

// ListAdminsOf returns the tenants administered by accountID.
func (service *Service) ListAdminsOf(context context.Context, accountID string) ([]*Tenant, error) {
	return service.repo.ListByAdmin(context, accountID)
}

// List returns every live tenant.
func (service *Service) List(context context.Context) ([]*Tenant, error) {
	return service.repo.List(context)
}

// SetStatus changes the lifecycle status of a tenant.
func (service *Service) SetStatus(context context.Context, tenantID string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	if err := service.repo.SetStatus(context, tenantID, status); err != nil {
		return err
	}

	service.invalidate(context, tenantID)
	service.logger.Info("tenant_status_changed",
		slog.String("tenant_id", tenantID),
		slog.String("status", string(status)),
	)
	return nil
}

// Delete soft deletes a tenant; its name becomes available again.
func (service *Service) Delete(context context.Context, tenantID string) error {
	current, err := service.repo.FindByID(context, tenantID)
	if err != nil {
		return err
	}

	if err := service.repo.SoftDelete(context, tenantID); err != nil {
		return err
	}

	service.invalidate(context, tenantID, current.NormalizedName)

	service.logger.Info("tenant_deleted", slog.String("tenant_id", tenantID))
	return nil
}

// # Cache Helpers

func (service *Service) cached(context context.Context, key string) (*Tenant, bool) {
	if service.cache == nil {
		return nil, false
	}

	raw, ok := service.cache.Get(context, key)
	if !ok {
		return nil, false
	}

	var tenant Tenant
	if err := json.Unmarshal(raw, &cachedTenant{&tenant}); err != nil {
		service.cache.Delete(context, key)
		return nil, false
	}
	return &tenant, true
}

func (service *Service) currentGeneration() uint64 {
	service.fill.Lock()
	defer service.fill.Unlock()
	return service.generation
}

// store caches tenant unless an invalidation ran after generation was taken.
func (service *Service) store(context context.Context, tenant *Tenant, generation uint64) {
	if service.cache == nil {
		return
	}

	raw, err := json.Marshal(cachedTenant{tenant})
	if err != nil {
		return
	}

	service.fill.Lock()
	defer service.fill.Unlock()
	if generation != service.generation {
		return
	}
	service.cache.Set(context, cacheKeyByID+tenant.ID, raw, constants.TenantCacheTTL)
	service.cache.Set(context, cacheKeyByName+tenant.NormalizedName, raw, constants.TenantCacheTTL)
}

// invalidate drops both cache entries of a tenant and retires every fill
// still in flight. The name key is taken from the cached copy when the
// caller does not know it.
func (service *Service) invalidate(context context.Context, tenantID string, names ...string) {
	if service.cache == nil {
		return
	}

	service.fill.Lock()
	defer service.fill.Unlock()
	service.generation++

	if tenant, ok := service.cached(context, cacheKeyByID+tenantID); ok {
		names = append(names, tenant.NormalizedName)
	}
	for _, name := range names {
		service.cache.Delete(context, cacheKeyByName+name)
	}
	service.cache.Delete(context, cacheKeyByID+tenantID)
}

// cachedTenant carries the fields the public JSON shape hides.
type cachedTenant struct {
	*Tenant
}

type cachedTenantJSON struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	NormalizedName string            `json:"normalizedName"`
	Status         Status            `json:"status"`
	CreatedBy      string            `json:"createdBy"`
	Admins         []AdminAssignment `json:"admins"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (c cachedTenant) MarshalJSON() ([]byte, error) {
	return json.Marshal(cachedTenantJSON{
		ID: c.ID, Name: c.Name, NormalizedName: c.NormalizedName, Status: c.Status,
		CreatedBy: c.CreatedBy, Admins: c.Admins, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	})
}

func (c *cachedTenant) UnmarshalJSON(raw []byte) error {
	var decoded cachedTenantJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c.Tenant = Tenant{
		ID: decoded.ID, Name: decoded.Name, NormalizedName: decoded.NormalizedName, Status: decoded.Status,
		CreatedBy: decoded.CreatedBy, Admins: decoded.Admins, CreatedAt: decoded.CreatedAt, UpdatedAt: decoded.UpdatedAt,
	}
	return nil
}

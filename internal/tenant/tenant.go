// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package tenant is the registry of tenant applications and their admin sets.

# Core Responsibility

  - Registry: Defines the [Tenant] entity, its lifecycle status and soft deletion.
  - Naming: Tenant names are unique among live tenants after trim and
    Unicode case folding.
  - Assignment: Owns the set of staff accounts administering each tenant.
    The creator is seeded into that set at creation time.

Mutations touch a single tenant; uniqueness and membership are enforced by
per-key constraints rather than any global lock.
*/
package tenant

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/taibuivan/helpline/internal/platform/apperr"
)

// # Tenant Enums

// Status is the lifecycle state of a tenant.
type Status string

const (
	// Accepts messages from everyone.
	StatusActive Status = "active"
	// Staff may still work the backlog; end-users cannot write.
	StatusInactive Status = "inactive"
	// Only superadmins may write.
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// # Core Entities

// Tenant is an isolated customer application.
type Tenant struct {
	ID             string            `json:"id"` // UUIDv7
	Name           string            `json:"name"`
	NormalizedName string            `json:"-"`
	Status         Status            `json:"status"`
	CreatedBy      string            `json:"createdBy"`
	Admins         []AdminAssignment `json:"admins"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	DeletedAt      *time.Time        `json:"-"`
}

// AdminAssignment links a staff account to a tenant.
type AdminAssignment struct {
	AccountID string    `json:"accountId"`
	AddedBy   string    `json:"addedBy"`
	AddedAt   time.Time `json:"addedAt"`
}

// HasAdmin reports whether accountID is in the tenant's admin set.
func (t *Tenant) HasAdmin(accountID string) bool {
	for _, admin := range t.Admins {
		if admin.AccountID == accountID {
			return true
		}
	}
	return false
}

// IsDeleted reports whether the tenant was soft deleted.
func (t *Tenant) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone returns a deep copy so cached tenants are never shared.
func (t *Tenant) Clone() *Tenant {
	copied := *t
	copied.Admins = append([]AdminAssignment(nil), t.Admins...)
	if t.DeletedAt != nil {
		deletedAt := *t.DeletedAt
		copied.DeletedAt = &deletedAt
	}
	return &copied
}

// # Naming

// NormalizeName trims name and applies Unicode case folding, so "ACME",
// " acme " and "Acme" share one key.
func NormalizeName(name string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(name))
}

// # Errors

var (
	ErrTenantNotFound = apperr.New(http.StatusNotFound, apperr.CodeTenantNotFound, "Tenant not found")
	ErrDuplicateName  = apperr.New(http.StatusConflict, "DUPLICATE_NAME", "A tenant with this name already exists")
	ErrAlreadyAdmin   = apperr.New(http.StatusConflict, "ALREADY_ADMIN", "Account is already an admin of this tenant")
	ErrInvalidStatus  = apperr.New(http.StatusBadRequest, apperr.CodeInvalidInput, "Status must be one of active, inactive, suspended")
)

// # Field Identifiers

const (
	FieldName      = "name"
	FieldStatus    = "status"
	FieldAccountID = "accountId"
)

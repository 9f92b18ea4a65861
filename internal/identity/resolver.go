// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"strings"

	"github.com/taibuivan/helpline/internal/platform/sec"
)

// AccountDirectory is the read-only view of staff accounts the resolver needs.
type AccountDirectory interface {
	FindByID(context context.Context, id string) (*Account, error)
}

// Request is the raw identity asserted at the auth boundary.
//
// TenantID is already resolved from the client's tenant reference.
type Request struct {
	Role        string
	TenantID    string
	PhoneNumber string
	AccountID   string
}

// Resolver maps raw requests to principals.
type Resolver struct {
	directory AccountDirectory
}

// NewResolver constructs a [Resolver] backed by directory.
func NewResolver(directory AccountDirectory) *Resolver {
	return &Resolver{directory: directory}
}

/*
Resolve returns the canonical principal for request.

Description: Staff roles are looked up in the directory and must match the
stored role. The user role yields an external principal built from the
normalized phone number; tenant existence is checked later by the caller.

Parameters:
  - context: context.Context
  - request: Request

Returns:
  - Principal: The resolved identity
  - error: ErrInvalidRole, ErrMissingAccount, ErrAccountNotFound, ErrRoleMismatch,
    ErrMissingTenant, ErrInvalidPhoneFormat
*/
func (resolver *Resolver) Resolve(context context.Context, request Request) (Principal, error) {
	role := sec.Role(strings.ToLower(strings.TrimSpace(request.Role)))

	switch role {
	case sec.RoleAdmin, sec.RoleSuperAdmin:
		accountID := strings.TrimSpace(request.AccountID)
		if accountID == "" {
			return Principal{}, ErrMissingAccount
		}

		account, err := resolver.directory.FindByID(context, accountID)
		if err != nil {
			return Principal{}, err
		}
		if account.Role != role {
			return Principal{}, ErrRoleMismatch
		}

		return account.Principal(), nil

	case sec.RoleUser:
		tenantID := strings.TrimSpace(request.TenantID)
		if tenantID == "" {
			return Principal{}, ErrMissingTenant
		}

		phone, err := NormalizePhone(request.PhoneNumber)
		if err != nil {
			return Principal{}, err
		}

		return External(tenantID, phone), nil

	default:
		return Principal{}, ErrInvalidRole
	}
}

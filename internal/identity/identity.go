// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity resolves every chat participant to a canonical [Principal].

# Core Responsibility

  - Principal: the tagged union of internal staff accounts and external end-users.
  - Resolution: turning raw request fields (role, tenant, phone, account id)
    into a Principal, deterministically and without side effects.
  - Directory: the staff account records consulted for internal principals.

External end-users have no account record. They are rebuilt from the
(tenant, phone number) pair on every request, and two external principals are
the same identity exactly when both fields are equal.
*/
package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/sec"
)

// # Principal

// Kind discriminates the two shapes of a [Principal].
type Kind string

const (
	KindInternal Kind = "internal"
	KindExternal Kind = "external"
)

// Principal is the resolved identity of a message actor.
//
// Internal principals carry AccountID and Role. External principals carry
// TenantID and PhoneNumber. The struct is comparable; use [Principal.Is] to
// compare identities regardless of the role an internal account asserted.
type Principal struct {
	Kind        Kind     `json:"kind"`
	AccountID   string   `json:"accountId,omitempty"`
	Role        sec.Role `json:"role,omitempty"`
	TenantID    string   `json:"tenantId,omitempty"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
}

// Internal builds a staff principal.
func Internal(accountID string, role sec.Role) Principal {
	return Principal{Kind: KindInternal, AccountID: accountID, Role: role}
}

// External builds an end-user principal. phoneNumber must already be normalized.
func External(tenantID, phoneNumber string) Principal {
	return Principal{Kind: KindExternal, TenantID: tenantID, PhoneNumber: phoneNumber}
}

// FromClaims builds the internal principal carried by a verified staff token.
func FromClaims(claims *sec.AuthClaims) Principal {
	return Internal(claims.UserID, sec.Role(claims.Role))
}

// IsInternal reports whether p is a staff account.
func (p Principal) IsInternal() bool { return p.Kind == KindInternal }

// IsExternal reports whether p is an end-user.
func (p Principal) IsExternal() bool { return p.Kind == KindExternal }

// IsSuperAdmin reports whether p is an internal superadmin.
func (p Principal) IsSuperAdmin() bool {
	return p.Kind == KindInternal && p.Role == sec.RoleSuperAdmin
}

// IsAdmin reports whether p is an internal tenant admin.
func (p Principal) IsAdmin() bool {
	return p.Kind == KindInternal && p.Role == sec.RoleAdmin
}

// Ref strips everything but the identifying fields. Two principals denote the
// same identity iff their Refs are equal.
func (p Principal) Ref() Principal {
	switch p.Kind {
	case KindInternal:
		return Principal{Kind: KindInternal, AccountID: p.AccountID}
	case KindExternal:
		return Principal{Kind: KindExternal, TenantID: p.TenantID, PhoneNumber: p.PhoneNumber}
	default:
		return Principal{}
	}
}

// Is reports whether p and other denote the same identity.
func (p Principal) Is(other Principal) bool {
	return p.Kind != "" && p.Ref() == other.Ref()
}

// Key formats the canonical identity key for display and logging.
//
// Internal keys are the account id. External keys join tenant id and phone
// with ":", which appears in neither field.
func (p Principal) Key() string {
	if p.Kind == KindExternal {
		return p.TenantID + ":" + p.PhoneNumber
	}
	return p.AccountID
}

// Validate checks that p has a resolvable shape.
func (p Principal) Validate() error {
	switch p.Kind {
	case KindInternal:
		if strings.TrimSpace(p.AccountID) == "" {
			return ErrMissingAccount
		}
		if !p.Role.IsStaff() {
			return ErrInvalidRole
		}
		return nil
	case KindExternal:
		if strings.TrimSpace(p.TenantID) == "" {
			return ErrMissingTenant
		}
		if normalized, err := NormalizePhone(p.PhoneNumber); err != nil || normalized != p.PhoneNumber {
			return ErrInvalidPhoneFormat
		}
		return nil
	default:
		return ErrInvalidPrincipal
	}
}

// # Staff Accounts

// Account is a staff directory entry.
type Account struct {
	ID          string    `json:"id"` // UUIDv7
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Role        sec.Role  `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Principal returns the internal principal of the account.
func (a *Account) Principal() Principal {
	return Internal(a.ID, a.Role)
}

// # Phone Numbers

// NormalizePhone strips everything but digits and requires exactly ten of them.
//
// Example:
//
//	NormalizePhone("(999) 888-7776") // "9998887776", nil
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, char := range raw {
		if char >= '0' && char <= '9' {
			digits.WriteRune(char)
		}
	}
	if digits.Len() != constants.PhoneDigits {
		return "", ErrInvalidPhoneFormat
	}
	return digits.String(), nil
}

// # Errors

var (
	ErrInvalidRole        = apperr.New(http.StatusBadRequest, apperr.CodeInvalidInput, "Role must be one of user, admin, superadmin")
	ErrInvalidPhoneFormat = apperr.New(http.StatusBadRequest, apperr.CodeInvalidInput, "Phone number must contain exactly 10 digits")
	ErrMissingAccount     = apperr.New(http.StatusBadRequest, apperr.CodeInvalidInput, "accountId is required for staff roles")
	ErrMissingTenant      = apperr.New(http.StatusBadRequest, apperr.CodeInvalidInput, "tenantRef is required")
	ErrInvalidPrincipal   = apperr.New(http.StatusBadRequest, apperr.CodeInvalidInput, "Principal kind is unknown")
	ErrAccountNotFound    = apperr.New(http.StatusNotFound, apperr.CodeNotFound, "Account not found")
	ErrRoleMismatch       = apperr.New(http.StatusForbidden, apperr.CodeForbidden, "Account does not hold the asserted role")
	ErrDuplicateAccount   = apperr.New(http.StatusConflict, "DUPLICATE_ACCOUNT", "An account with this phone number already exists")
	ErrSelfDelete         = apperr.New(http.StatusConflict, apperr.CodeConflict, "Superadmins cannot delete their own account")
)

// # Field Identifiers

const (
	FieldName        = "name"
	FieldPhoneNumber = "phoneNumber"
	FieldRole        = "role"
	FieldAccountID   = "accountId"
	FieldTenantRef   = "tenantRef"
)

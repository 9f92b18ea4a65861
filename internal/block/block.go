// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package block keeps the per-tenant registry of blocked external users.

# Core Responsibility

  - Enforcement: [Service.IsBlocked] is the single gate checked before an
    external sender may write to a tenant.
  - Audit: Entries are never deleted. Unblocking flips IsActive and stamps
    who did it and when, so the full history of a pair stays readable.
  - Serialization: At most one active entry exists per (tenant, phone) pair.
    The store enforces this with a per-pair compare-and-set.
*/
package block

import (
	"net/http"
	"time"

	"github.com/taibuivan/helpline/internal/platform/apperr"
)

// # Core Entities

// Entry is one block decision for an external identity.
type Entry struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	PhoneNumber string     `json:"phoneNumber"`
	BlockedBy   string     `json:"blockedBy"`
	Reason      string     `json:"reason"`
	BlockedAt   time.Time  `json:"blockedAt"`
	IsActive    bool       `json:"isActive"`
	UnblockedAt *time.Time `json:"unblockedAt,omitempty"`
	UnblockedBy *string    `json:"unblockedBy,omitempty"`
}

// State is the block status of a pair. Version grows on every block and
// unblock, so two states of the same pair order by it.
type State struct {
	Blocked bool
	Version int64
}

// newState derives the state from the pair's entry count. Every entry but
// the active one has been through a block and an unblock.
func newState(entries int64, active bool) State {
	version := 2 * entries
	if active {
		version--
	}
	return State{Blocked: active, Version: version}
}

// # Errors

var (
	ErrAlreadyBlocked = apperr.New(http.StatusConflict, "ALREADY_BLOCKED", "User is already blocked for this tenant")
	ErrNotBlocked     = apperr.New(http.StatusNotFound, "NOT_BLOCKED", "User is not blocked for this tenant")
)

// # Field Identifiers

const (
	FieldPhoneNumber = "phoneNumber"
	FieldReason      = "reason"
)

// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package message is the append-only store of chat messages.

# Core Responsibility

  - Ordering: Every message of a tenant gets a strictly increasing CreatedAt,
    so (CreatedAt, ID) is a total order that matches commit order.
  - Filtering: Reads go through a [Predicate] built by the visibility policy.
    The same predicate is evaluated in Go and translated to SQL.
  - Pagination: Scans are keyset paginated on (CreatedAt, ID), which stays
    stable while new messages arrive.
  - Receipts: Marking a message as read stores a separate receipt and never
    touches the message itself.
*/
package message

import (
	"net/http"
	"time"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/pkg/pagination"
)

// # Core Entities

// Message is one immutable chat message.
type Message struct {
	ID              string               `json:"id"` // UUIDv7
	TenantID        string               `json:"tenantId"`
	Sender          identity.Principal   `json:"sender"`
	Receivers       []identity.Principal `json:"receivers"`
	Body            string               `json:"content"`
	Metadata        map[string]string    `json:"metadata"`
	ClientMessageID string               `json:"clientMessageId,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`

	// ReadAt is relative to the viewer of a scan.
	ReadAt *time.Time `json:"readAt,omitempty"`
}

// Position returns the keyset position of m.
func (m *Message) Position() pagination.Position {
	return pagination.Position{CreatedAt: m.CreatedAt, ID: m.ID}
}

// Addresses reports whether principal is one of the receivers.
func (m *Message) Addresses(principal identity.Principal) bool {
	for _, receiver := range m.Receivers {
		if receiver.Is(principal) {
			return true
		}
	}
	return false
}

// InvolvesExternal reports whether an end-user sent or receives m.
func (m *Message) InvolvesExternal() bool {
	if m.Sender.IsExternal() {
		return true
	}
	for _, receiver := range m.Receivers {
		if receiver.IsExternal() {
			return true
		}
	}
	return false
}

// # Predicate

// Scope selects which messages of a tenant a viewer may read.
type Scope int

const (
	// ScopeNone matches nothing. It is the zero value.
	ScopeNone Scope = iota
	// ScopeTenant matches every message of the tenant.
	ScopeTenant
	// ScopeStaff matches external traffic plus the viewer's own staff messages.
	ScopeStaff
	// ScopeThread matches messages the viewer sent or receives.
	ScopeThread
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	switch s {
	case ScopeTenant:
		return "tenant"
	case ScopeStaff:
		return "staff"
	case ScopeThread:
		return "thread"
	default:
		return "none"
	}
}

// Predicate is a boolean filter over (sender, receivers) within one tenant.
type Predicate struct {
	TenantID string
	Scope    Scope
	Viewer   identity.Principal
}

// Matches evaluates the predicate against m.
func (p Predicate) Matches(m *Message) bool {
	if p.TenantID == "" || m.TenantID != p.TenantID {
		return false
	}

	switch p.Scope {
	case ScopeTenant:
		return true
	case ScopeStaff:
		return m.InvolvesExternal() || m.Addresses(p.Viewer) || m.Sender.Is(p.Viewer)
	case ScopeThread:
		return m.Sender.Is(p.Viewer) || m.Addresses(p.Viewer)
	default:
		return false
	}
}

// Page is one keyset page of a scan.
type Page struct {
	Messages []*Message
	// Next is nil on the last page.
	Next *pagination.Position
}

// # Errors

var (
	ErrMessageNotFound = apperr.NotFound("Message")
	ErrInvalidCursor   = apperr.New(http.StatusBadRequest, apperr.CodeInvalidCursor, "Cursor is malformed or was tampered with")
)

// # Field Identifiers

const (
	FieldContent         = "content"
	FieldMetadata        = "metadata"
	FieldClientMessageID = "clientMessageId"
	FieldReceivers       = "receivers"
)

// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chat is the routing facade of the support chat.

# Core Responsibility

  - Orchestration: Composes identity resolution, the visibility policy, the
    block registry and the message store into the public operations.
  - Boundary: Owns the HTTP surface for chat and tenant management, and is
    the only place where a staff token is reconciled with body fields.
  - Side effects: Publishes domain events and records metrics. Both are best
    effort and never fail an operation that already committed.

The facade owns no state of its own.
*/
package chat

import (
	"net/http"

	"github.com/taibuivan/helpline/internal/message"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/tenant"
)

// # Requests

// Caller carries the identity fields a client asserts in a request body.
type Caller struct {
	TenantRef   string `json:"tenantRef"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	AccountID   string `json:"accountId,omitempty"`
}

// SendRequest is the body of POST /chat/send.
type SendRequest struct {
	Caller
	ReceiverRef     string            `json:"receiverRef,omitempty"`
	Content         string            `json:"content"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ClientMessageID string            `json:"clientMessageId,omitempty"`
}

// ListRequest is the body of POST /chat/messages.
type ListRequest struct {
	Caller
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// # Results

// SendResult is the outcome of a send.
type SendResult struct {
	Message *message.Message
	// Duplicate is true when a resend was answered with the original message.
	Duplicate bool
}

// ListResult is one page of visible messages.
type ListResult struct {
	Messages   []*message.Message `json:"messages"`
	NextCursor *string            `json:"nextCursor"`
}

// TenantActivity is the analytics row of one tenant.
type TenantActivity struct {
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Messages int64  `json:"messages"`
}

// Analytics is the superadmin overview.
//
// End-users have no directory entry; they are counted as the distinct
// external identities that have written to a live tenant.
type Analytics struct {
	Tenants     int              `json:"tenants"`
	Messages    int64            `json:"messages"`
	TotalUsers  int64            `json:"totalUsers"`
	UsersByRole map[string]int64 `json:"usersByRole"`
	PerTenant   []TenantActivity `json:"perTenant"`
}

// TenantDetail is a tenant with its admin set resolved against the staff
// directory.
type TenantDetail struct {
	*tenant.Tenant
	Admins []AdminProfile `json:"admins"`
}

// AdminProfile is one admin assignment with the account's contact details.
// Name and PhoneNumber are empty once the account has been deleted.
type AdminProfile struct {
	tenant.AdminAssignment
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// # Events

// MessageAppended is the payload of chat.message.appended.
type MessageAppended struct {
	MessageID  string `json:"messageId"`
	TenantID   string `json:"tenantId"`
	SenderKind string `json:"senderKind"`
	SenderKey  string `json:"senderKey"`
	Receivers  int    `json:"receivers"`
}

// BlockChanged is the payload of chat.user.blocked and chat.user.unblocked.
type BlockChanged struct {
	EntryID     string `json:"entryId"`
	TenantID    string `json:"tenantId"`
	PhoneNumber string `json:"phoneNumber"`
	ActorID     string `json:"actorId"`
}

// # Errors

var (
	ErrReceiverRequired = apperr.ValidationError("Staff messages need a receiverRef", apperr.FieldError{
		Field: FieldReceiverRef, Message: "is required for staff senders",
	})
	ErrUnknownReceiver = apperr.ValidationError("Receiver is not staff of this tenant", apperr.FieldError{
		Field: FieldReceiverRef, Message: "must be a phone number or a staff account of this tenant",
	})
	ErrUserToUser       = apperr.Forbidden("End-users can only write to staff")
	ErrAccountMismatch  = apperr.Forbidden("accountId does not match the authenticated account")
	ErrTokenRequired    = apperr.Unauthorized("Staff roles require a bearer token")
	ErrResendInProgress = apperr.New(http.StatusConflict, apperr.CodeConflict, "A message with this clientMessageId is still being stored")
	ErrSuperAdminOnly   = apperr.Forbidden("Only superadmins can perform this action")
)

// # Field Identifiers

const (
	FieldTenantRef       = "tenantRef"
	FieldReceiverRef     = "receiverRef"
	FieldContent         = "content"
	FieldMetadata        = "metadata"
	FieldClientMessageID = "clientMessageId"
	FieldName            = "name"
	FieldStatus          = "status"
	FieldPhoneNumber     = "phoneNumber"

	maxMetadataKeys       = 20
	maxClientMessageIDLen = 128
)

// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"strings"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/pkg/pagination"
)

// # Message Data Access

// Repository defines the persistence contract for messages.
type Repository interface {

	/*
		Append stores a new message and assigns its CreatedAt.

		Description: CreatedAt is strictly greater than that of every earlier
		message of the same tenant. The message is never retried internally.

		Parameters:
		  - context: context.Context
		  - message: *Message (ID, TenantID, Sender set by the caller)

		Returns:
		  - error: Validation failure | tenant.ErrTenantNotFound
	*/
	Append(context context.Context, message *Message) error

	/*
		Scan returns the messages matching predicate strictly after the given
		position, ascending by (CreatedAt, ID).

		Parameters:
		  - context: context.Context
		  - predicate: Predicate (a zero Scope matches nothing)
		  - after: pagination.Position (zero value starts at the beginning)
		  - limit: int (page size)

		Returns:
		  - *Page: Matching messages plus the next position, if any
		  - error: Database errors
	*/
	Scan(context context.Context, predicate Predicate, after pagination.Position, limit int) (*Page, error)

	/*
		MarkRead records that reader has read the message. Idempotent.

		Returns:
		  - error: ErrMessageNotFound
	*/
	MarkRead(context context.Context, messageID string, reader identity.Principal) error

	/*
		FindByID retrieves a message without viewer-relative fields.

		Returns:
		  - error: ErrMessageNotFound
	*/
	FindByID(context context.Context, id string) (*Message, error)

	/*
		CountByTenant returns the number of messages per live tenant.
	*/
	CountByTenant(context context.Context) (map[string]int64, error)

	/*
		CountSenders returns the number of distinct end-users that have sent
		at least one message to a live tenant.
	*/
	CountSenders(context context.Context) (int64, error)
}

// # Shared Validation

// prepare checks the shape of a message before it is stored and reduces
// every receiver to its identifying fields.
func prepare(message *Message) error {
	if strings.TrimSpace(message.TenantID) == "" {
		return identity.ErrMissingTenant
	}

	if err := message.Sender.Validate(); err != nil {
		return err
	}
	if message.Sender.IsExternal() && message.Sender.TenantID != message.TenantID {
		return apperr.ValidationError("External sender belongs to another tenant")
	}

	receivers := make([]identity.Principal, 0, len(message.Receivers))
	for _, receiver := range message.Receivers {
		ref := receiver.Ref()
		switch {
		case ref.IsInternal() && ref.AccountID != "":
		case ref.IsExternal() && ref.TenantID == message.TenantID && ref.PhoneNumber != "":
		default:
			return apperr.ValidationError("Receiver is not a resolvable identity", apperr.FieldError{
				Field:   FieldReceivers,
				Message: "must be a staff account or an end-user of this tenant",
			})
		}
		receivers = append(receivers, ref)
	}
	message.Receivers = receivers

	if message.Metadata == nil {
		message.Metadata = map[string]string{}
	}
	return nil
}

// pageOf trims a limit+1 result set into a page.
func pageOf(messages []*Message, limit int) *Page {
	page := &Page{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		next := page.Messages[limit-1].Position()
		page.Next = &next
	}
	if page.Messages == nil {
		page.Messages = []*Message{}
	}
	return page
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return pagination.DefaultLimit
	}
	return limit
}

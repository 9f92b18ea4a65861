// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/message"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/platform/validate"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/pkg/pagination"
	"github.com/taibuivan/helpline/pkg/pointer"
	"github.com/taibuivan/helpline/pkg/slice"
	"github.com/taibuivan/helpline/pkg/uuid"
)

/*
SendMessage stores a message from the caller into the referenced tenant.

Description: The sender is resolved and authorized before anything else is
looked at, so a blocked end-user is refused even when resending. A repeated
clientMessageId from the same sender returns the original message.

Parameters:
  - context: context.Context
  - input: SendRequest

Returns:
  - *SendResult: The stored (or original) message
  - error: tenant.ErrTenantNotFound | visibility.ErrSenderBlocked | Forbidden | validation failure
*/
func (service *Service) SendMessage(context context.Context, input SendRequest) (*SendResult, error) {
	result, err := service.send(context, input)
	if err != nil {
		code := apperr.CodeInternal
		if appError := apperr.As(err); appError != nil {
			code = appError.Code
		}
		service.metrics.IncrementRejected(code)
		return nil, err
	}
	return result, nil
}

func (service *Service) send(context context.Context, input SendRequest) (*SendResult, error) {

	// ── 1. Resolve and authorize the sender ────────────────────────────
	current, sender, err := service.participant(context, input.Caller)
	if err != nil {
		return nil, err
	}

	if err := service.policy.AuthorizeWrite(context, sender, current.ID); err != nil {
		return nil, err
	}

	// ── 2. Validate the payload ────────────────────────────────────────
	clientMessageID := strings.TrimSpace(input.ClientMessageID)

	validator := &validate.Validator{}
	validator.
		Required(FieldContent, input.Content).
		MaxLen(FieldContent, input.Content, constants.MaxContentLength).
		MetadataKeys(FieldMetadata, input.Metadata, maxMetadataKeys).
		MaxLen(FieldClientMessageID, clientMessageID, maxClientMessageIDLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 3. Resolve receivers ───────────────────────────────────────────
	receivers, err := service.receivers(context, current, sender, input.ReceiverRef)
	if err != nil {
		return nil, err
	}

	msg := &message.Message{
		ID:              uuid.New(),
		TenantID:        current.ID,
		Sender:          sender,
		Receivers:       receivers,
		Body:            input.Content,
		Metadata:        input.Metadata,
		ClientMessageID: clientMessageID,
	}

	// ── 4. Claim the client message id ─────────────────────────────────
	dedupeKey := ""
	if clientMessageID != "" && service.deduper != nil {
		key := current.ID + ":" + sender.Key() + ":" + clientMessageID

		existing, claimed, err := service.deduper.Claim(context, key, msg.ID)
		switch {
		case err != nil:
			service.logger.Warn("dedupe_claim_failed",
				slog.String("tenant_id", current.ID),
				slog.String("error", err.Error()),
			)
		case !claimed:
			return service.original(context, existing)
		default:
			dedupeKey = key
		}
	}

	// ── 5. Append ──────────────────────────────────────────────────────
	if err := service.messages.Append(context, msg); err != nil {
		if dedupeKey != "" {
			if releaseErr := service.deduper.Release(context, dedupeKey); releaseErr != nil {
				service.logger.Warn("dedupe_release_failed", slog.String("error", releaseErr.Error()))
			}
		}
		return nil, err
	}

	service.metrics.IncrementAppended(string(sender.Kind))
	service.logger.Info("message_appended",
		slog.String("message_id", msg.ID),
		slog.String("tenant_id", msg.TenantID),
		slog.String("sender_kind", string(sender.Kind)),
		slog.Int("receivers", len(msg.Receivers)),
	)

	service.publish(context, constants.EventMessageAppended, MessageAppended{
		MessageID:  msg.ID,
		TenantID:   msg.TenantID,
		SenderKind: string(sender.Kind),
		SenderKey:  sender.Key(),
		Receivers:  len(msg.Receivers),
	})

	return &SendResult{Message: msg}, nil
}

// original answers a resend with the message the first send stored.
func (service *Service) original(context context.Context, messageID string) (*SendResult, error) {
	msg, err := service.messages.FindByID(context, messageID)
	if errors.Is(err, message.ErrMessageNotFound) {
		return nil, ErrResendInProgress
	}
	if err != nil {
		return nil, err
	}

	service.metrics.IncrementDeduplicated()
	return &SendResult{Message: msg, Duplicate: true}, nil
}

/*
receivers turns the optional receiverRef into the receiver list.

Description:
  - empty: end-user messages stay open to every admin of the tenant;
    staff must name a receiver.
  - account id: must be a superadmin or an admin of the tenant.
  - anything else: a phone number of the tenant. Only staff may address it.
*/
func (service *Service) receivers(context context.Context, current *tenant.Tenant, sender identity.Principal, ref string) ([]identity.Principal, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		if sender.IsInternal() {
			return nil, ErrReceiverRequired
		}
		return nil, nil
	}

	if uuid.Valid(ref) {
		account, err := service.accounts.FindByID(context, ref)
		if errors.Is(err, identity.ErrAccountNotFound) {
			return nil, ErrUnknownReceiver
		}
		if err != nil {
			return nil, err
		}

		receiver := account.Principal()
		if !receiver.IsSuperAdmin() && !current.HasAdmin(receiver.AccountID) {
			return nil, ErrUnknownReceiver
		}
		return []identity.Principal{receiver.Ref()}, nil
	}

	phone, err := identity.NormalizePhone(ref)
	if err != nil {
		return nil, ErrUnknownReceiver
	}
	if sender.IsExternal() {
		return nil, ErrUserToUser
	}
	return []identity.Principal{identity.External(current.ID, phone)}, nil
}

/*
ListMessages returns one page of the messages the caller may read.

Returns:
  - *ListResult: Messages ascending by time plus the cursor of the next page
  - error: tenant.ErrTenantNotFound | Forbidden | message.ErrInvalidCursor
*/
func (service *Service) ListMessages(context context.Context, input ListRequest) (*ListResult, error) {
	current, viewer, err := service.participant(context, input.Caller)
	if err != nil {
		return nil, err
	}

	predicate, err := service.policy.BuildPredicate(context, viewer, current.ID)
	if err != nil {
		return nil, err
	}

	scope := cursorScope(current.ID, viewer)
	after, err := service.cursors.Decode(scope, input.Cursor)
	if err != nil {
		return nil, message.ErrInvalidCursor
	}

	start := time.Now()
	page, err := service.messages.Scan(context, predicate, after, pagination.ClampLimit(input.Limit))
	service.metrics.ObserveScan(start)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Messages: page.Messages}
	if result.Messages == nil {
		result.Messages = []*message.Message{}
	}
	if page.Next != nil {
		result.NextCursor = pointer.To(service.cursors.Encode(scope, *page.Next))
	}
	return result, nil
}

// cursorScope binds a page cursor to the tenant and viewer it was issued to.
func cursorScope(tenantID string, viewer identity.Principal) string {
	return tenantID + "|" + viewer.Key()
}

/*
MarkRead records that the caller has read a message.

Description: The message must be visible to the caller; anything else is
reported as not found.
*/
func (service *Service) MarkRead(context context.Context, caller Caller, messageID string) error {
	current, reader, err := service.participant(context, caller)
	if err != nil {
		return err
	}

	predicate, err := service.policy.BuildPredicate(context, reader, current.ID)
	if err != nil {
		return err
	}

	if !uuid.Valid(messageID) {
		return message.ErrMessageNotFound
	}

	msg, err := service.messages.FindByID(context, messageID)
	if err != nil {
		return err
	}
	if !predicate.Matches(msg) {
		return message.ErrMessageNotFound
	}

	return service.messages.MarkRead(context, msg.ID, reader)
}

/*
Analytics summarizes tenants, users and message volume for a superadmin.

Returns:
  - *Analytics: Totals plus one row per live tenant
  - error: ErrSuperAdminOnly
*/
func (service *Service) Analytics(context context.Context, actor identity.Principal) (*Analytics, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrSuperAdminOnly
	}

	tenants, err := service.tenants.List(context)
	if err != nil {
		return nil, err
	}

	counts, err := service.messages.CountByTenant(context)
	if err != nil {
		return nil, err
	}

	staff, err := service.accounts.CountByRole(context)
	if err != nil {
		return nil, err
	}
	senders, err := service.messages.CountSenders(context)
	if err != nil {
		return nil, err
	}

	byRole := map[string]int64{string(sec.RoleUser): senders}
	users := senders
	for role, count := range staff {
		byRole[string(role)] = count
		users += count
	}

	rows := slice.Map(tenants, func(current *tenant.Tenant) TenantActivity {
		return TenantActivity{
			TenantID: current.ID,
			Name:     current.Name,
			Status:   string(current.Status),
			Messages: counts[current.ID],
		}
	})

	return &Analytics{
		Tenants: len(rows),
		Messages: slice.Reduce(rows, int64(0), func(total int64, row TenantActivity) int64 {
			return total + row.Messages
		}),
		TotalUsers:  users,
		UsersByRole: byRole,
		PerTenant:   rows,
	}, nil
}

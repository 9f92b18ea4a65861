// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package block

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/platform/validate"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// TenantFinder is the slice of the tenant registry the block registry needs.
type TenantFinder interface {
	Get(context context.Context, tenantID string) (*tenant.Tenant, error)
}

// # Service Layer

// Service manages block entries and answers the write gate.
type Service struct {
	repo    Repository
	answers AnswerCache
	tenants TenantFinder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService constructs a block [Service]. answers may be nil.
func NewService(repo Repository, answers AnswerCache, tenants TenantFinder, collectors *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		answers: answers,
		tenants: tenants,
		metrics: collectors,
		logger:  logger,
	}
}

/*
Block denies an external identity write access to a tenant.

Parameters:
  - context: context.Context
  - tenantID: string
  - phoneNumber: string (any formatting; normalized to 10 digits)
  - blockedBy: string (staff account id)
  - reason: string (optional)

Returns:
  - *Entry: The new active entry
  - error: ErrTenantNotFound | ErrAlreadyBlocked | validation failure
*/
func (service *Service) Block(context context.Context, tenantID, phoneNumber, blockedBy, reason string) (*Entry, error) {
	phone, err := service.pair(context, tenantID, phoneNumber)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	validator := &validate.Validator{}
	validator.MaxLen(FieldReason, reason, 500)
	if err := validator.Err(); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = constants.DefaultBlockReason
	}

	entry := &Entry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PhoneNumber: phone,
		BlockedBy:   blockedBy,
		Reason:      reason,
	}

	if err := service.repo.Create(context, entry); err != nil {
		return nil, err
	}

	service.remember(context, tenantID, phone)
	service.metrics.IncrementBlockChange("block")
	service.logger.Info("user_blocked",
		slog.String("tenant_id", tenantID),
		slog.String("phone_number", phone),
		slog.String("blocked_by", blockedBy),
	)

	return entry, nil
}

/*
Unblock restores write access for an external identity.

Returns:
  - *Entry: The deactivated entry carrying unblock metadata
  - error: ErrTenantNotFound | ErrNotBlocked | validation failure
*/
func (service *Service) Unblock(context context.Context, tenantID, phoneNumber, unblockedBy string) (*Entry, error) {
	phone, err := service.pair(context, tenantID, phoneNumber)
	if err != nil {
		return nil, err
	}

	entry, err := service.repo.Deactivate(context, tenantID, phone, unblockedBy)
	if err != nil {
		return nil, err
	}

	service.remember(context, tenantID, phone)
	service.metrics.IncrementBlockChange("unblock")
	service.logger.Info("user_unblocked",
		slog.String("tenant_id", tenantID),
		slog.String("phone_number", phone),
		slog.String("unblocked_by", unblockedBy),
	)

	return entry, nil
}

/*
IsBlocked answers the write gate for an external identity.

Description: The answer cache is consulted first. A cache failure is
logged and the store is asked directly, so an outage never opens the gate.
Cached answers are versioned; a slow fill never replaces a newer answer.
*/
func (service *Service) IsBlocked(context context.Context, tenantID, phoneNumber string) (bool, error) {
	phone, err := identity.NormalizePhone(phoneNumber)
	if err != nil {
		return false, err
	}

	if service.answers != nil {
		blocked, found, err := service.answers.Get(context, tenantID, phone)
		switch {
		case err != nil:
			service.metrics.IncrementBlockLookup("error")
			service.logger.Warn("block_cache_unavailable", slog.String("error", err.Error()))
		case found:
			service.metrics.IncrementBlockLookup("hit")
			return blocked, nil
		default:
			service.metrics.IncrementBlockLookup("miss")
		}
	}

	state, err := service.repo.State(context, tenantID, phone)
	if err != nil {
		return false, err
	}

	if service.answers != nil {
		if err := service.answers.Put(context, tenantID, phone, state); err != nil {
			service.logger.Warn("block_cache_fill_failed", slog.String("error", err.Error()))
		}
	}
	return state.Blocked, nil
}

// ListActive returns the currently blocked identities of a tenant.
func (service *Service) ListActive(context context.Context, tenantID string) ([]*Entry, error) {
	if _, err := service.tenants.Get(context, tenantID); err != nil {
		return nil, err
	}
	return service.repo.ListActive(context, tenantID)
}

// History returns the full block audit trail of an identity.
func (service *Service) History(context context.Context, tenantID, phoneNumber string) ([]*Entry, error) {
	phone, err := service.pair(context, tenantID, phoneNumber)
	if err != nil {
		return nil, err
	}
	return service.repo.History(context, tenantID, phone)
}

// # Helpers

// pair checks the tenant exists and normalizes the phone number.
func (service *Service) pair(context context.Context, tenantID, phoneNumber string) (string, error) {
	if _, err := service.tenants.Get(context, tenantID); err != nil {
		return "", err
	}
	return identity.NormalizePhone(phoneNumber)
}

// remember writes the committed state of a pair through to the cache. The
// state is read after the commit, so racing block and unblock calls each put
// a version at least as new as their own write and the cache keeps the
// highest. On failure the key is dropped so the next lookup reaches the store.
func (service *Service) remember(context context.Context, tenantID, phone string) {
	if service.answers == nil {
		return
	}

	state, err := service.repo.State(context, tenantID, phone)
	if err == nil {
		err = service.answers.Put(context, tenantID, phone, state)
	}
	if err == nil {
		return
	}

	service.logger.Warn("block_cache_write_failed",
		slog.String("tenant_id", tenantID),
		slog.String("error", err.Error()),
	)
	if err := service.answers.Forget(context, tenantID, phone); err != nil {
		service.logger.Error("block_cache_forget_failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
	}
}

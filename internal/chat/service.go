// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"context"
	"log/slog"

	"github.com/taibuivan/helpline/internal/block"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/message"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/ctxutil"
	"github.com/taibuivan/helpline/internal/platform/events"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/internal/visibility"
	"github.com/taibuivan/helpline/pkg/pagination"
)

// # Service Layer

// AccountDirectory is the staff directory view the facade needs.
// [identity.Service] satisfies it.
type AccountDirectory interface {
	identity.AccountDirectory
	CountByRole(context context.Context) (map[sec.Role]int64, error)
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Accounts  AccountDirectory
	Tenants   *tenant.Service
	Blocks    *block.Service
	Messages  message.Repository
	Deduper   Deduper
	Cursors   *pagination.Codec
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Service is the routing facade.
type Service struct {
	accounts  AccountDirectory
	resolver  *identity.Resolver
	tenants   *tenant.Service
	blocks    *block.Service
	messages  message.Repository
	policy    *visibility.Policy
	deduper   Deduper
	cursors   *pagination.Codec
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wires the facade. A nil Publisher disables events.
func NewService(deps Dependencies) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}

	return &Service{
		accounts:  deps.Accounts,
		resolver:  identity.NewResolver(deps.Accounts),
		tenants:   deps.Tenants,
		blocks:    deps.Blocks,
		messages:  deps.Messages,
		policy:    visibility.NewPolicy(deps.Tenants, deps.Blocks),
		deduper:   deps.Deduper,
		cursors:   deps.Cursors,
		publisher: publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// # Identity Helpers

/*
Staff resolves the principal behind verified staff claims.

Description: The account must still exist with the role the token carries.
*/
func (service *Service) Staff(context context.Context, claims *sec.AuthClaims) (identity.Principal, error) {
	if claims == nil {
		return identity.Principal{}, apperr.Unauthorized("Authentication required")
	}
	return service.resolver.Resolve(context, identity.Request{
		Role:      claims.Role,
		AccountID: claims.UserID,
	})
}

// participant resolves the tenant reference and the caller of a chat request.
func (service *Service) participant(context context.Context, caller Caller) (*tenant.Tenant, identity.Principal, error) {
	current, err := service.tenants.Lookup(context, caller.TenantRef)
	if err != nil {
		return nil, identity.Principal{}, err
	}

	principal, err := service.resolver.Resolve(context, identity.Request{
		Role:        caller.Role,
		TenantID:    current.ID,
		PhoneNumber: caller.PhoneNumber,
		AccountID:   caller.AccountID,
	})
	if err != nil {
		return nil, identity.Principal{}, err
	}

	return current, principal, nil
}

// # Event Helpers

// publish hands an event to the broker. Failures are logged and counted.
func (service *Service) publish(context context.Context, eventType string, data any) {
	envelope, err := events.NewEnvelope(eventType, ctxutil.GetRequestID(context), data)
	if err != nil {
		service.logger.Error("event_encode_failed", slog.String("type", eventType), slog.String("error", err.Error()))
		service.metrics.IncrementPublished(eventType, false)
		return
	}

	if err := service.publisher.Publish(context, envelope); err != nil {
		service.logger.Warn("event_publish_failed",
			slog.String("type", eventType),
			slog.String("event_id", envelope.Meta.ID),
			slog.String("error", err.Error()),
		)
		service.metrics.IncrementPublished(eventType, false)
		return
	}

	service.metrics.IncrementPublished(eventType, true)
}

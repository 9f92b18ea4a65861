// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/pkg/pagination"
)

// TenantFinder reports whether a tenant is live.
type TenantFinder interface {
	Get(context context.Context, tenantID string) (*tenant.Tenant, error)
}

// InMemoryRepository implements [Repository] with per-tenant append-only slices.
type InMemoryRepository struct {
	tenants TenantFinder

	mu       sync.RWMutex
	byTenant map[string][]*Message
	byID     map[string]*Message
	clocks   map[string]time.Time
	receipts map[string]map[identity.Principal]time.Time
}

// NewInMemoryRepository constructs an empty store that checks tenants against tenants.
func NewInMemoryRepository(tenants TenantFinder) *InMemoryRepository {
	return &InMemoryRepository{
		tenants:  tenants,
		byTenant: make(map[string][]*Message),
		byID:     make(map[string]*Message),
		clocks:   make(map[string]time.Time),
		receipts: make(map[string]map[identity.Principal]time.Time),
	}
}

// Append stores a copy of message with a strictly increasing per-tenant CreatedAt.
func (repository *InMemoryRepository) Append(context context.Context, message *Message) error {
	if err := prepare(message); err != nil {
		return err
	}
	if _, err := repository.tenants.Get(context, message.TenantID); err != nil {
		return err
	}

	repository.mu.Lock()
	defer repository.mu.Unlock()

	// Microsecond resolution matches PostgreSQL timestamptz.
	now := time.Now().UTC().Truncate(time.Microsecond)
	if last, ok := repository.clocks[message.TenantID]; ok && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	repository.clocks[message.TenantID] = now
	message.CreatedAt = now

	stored := clone(message)
	stored.ReadAt = nil
	repository.byTenant[message.TenantID] = append(repository.byTenant[message.TenantID], stored)
	repository.byID[message.ID] = stored
	return nil
}

// Scan walks the tenant's messages in order, applying predicate in Go.
func (repository *InMemoryRepository) Scan(_ context.Context, predicate Predicate, after pagination.Position, limit int) (*Page, error) {
	limit = effectiveLimit(limit)

	repository.mu.RLock()
	defer repository.mu.RUnlock()

	viewer := predicate.Viewer.Ref()
	messages := make([]*Message, 0, limit+1)
	for _, message := range repository.byTenant[predicate.TenantID] {
		if !after.CreatedAt.IsZero() && !message.Position().After(after) {
			continue
		}
		if !predicate.Matches(message) {
			continue
		}

		copied := clone(message)
		if readAt, ok := repository.receipts[message.ID][viewer]; ok {
			copied.ReadAt = &readAt
		}
		messages = append(messages, copied)
		if len(messages) > limit {
			break
		}
	}

	return pageOf(messages, limit), nil
}

// MarkRead stores the first read time of reader.
func (repository *InMemoryRepository) MarkRead(_ context.Context, messageID string, reader identity.Principal) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.byID[messageID]; !ok {
		return ErrMessageNotFound
	}

	receipts, ok := repository.receipts[messageID]
	if !ok {
		receipts = make(map[identity.Principal]time.Time)
		repository.receipts[messageID] = receipts
	}
	if _, read := receipts[reader.Ref()]; !read {
		receipts[reader.Ref()] = time.Now().UTC()
	}
	return nil
}

// FindByID returns a copy of a stored message.
func (repository *InMemoryRepository) FindByID(_ context.Context, id string) (*Message, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	message, ok := repository.byID[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return clone(message), nil
}

// CountByTenant counts messages of tenants that are still live.
func (repository *InMemoryRepository) CountByTenant(context context.Context) (map[string]int64, error) {
	repository.mu.RLock()
	sizes := make(map[string]int64, len(repository.byTenant))
	for tenantID, messages := range repository.byTenant {
		sizes[tenantID] = int64(len(messages))
	}
	repository.mu.RUnlock()

	counts := make(map[string]int64, len(sizes))
	for tenantID, size := range sizes {
		if _, err := repository.tenants.Get(context, tenantID); err != nil {
			continue
		}
		counts[tenantID] = size
	}
	return counts, nil
}

// CountSenders counts distinct external senders of live tenants.
func (repository *InMemoryRepository) CountSenders(context context.Context) (int64, error) {
	repository.mu.RLock()
	senders := make(map[string]map[string]struct{}, len(repository.byTenant))
	for tenantID, messages := range repository.byTenant {
		for _, message := range messages {
			if !message.Sender.IsExternal() {
				continue
			}
			if senders[tenantID] == nil {
				senders[tenantID] = make(map[string]struct{})
			}
			senders[tenantID][message.Sender.PhoneNumber] = struct{}{}
		}
	}
	repository.mu.RUnlock()

	var total int64
	for tenantID, phones := range senders {
		if _, err := repository.tenants.Get(context, tenantID); err != nil {
			continue
		}
		total += int64(len(phones))
	}
	return total, nil
}

func clone(message *Message) *Message {
	copied := *message
	copied.Receivers = append([]identity.Principal{}, message.Receivers...)
	copied.Metadata = make(map[string]string, len(message.Metadata))
	for key, value := range message.Metadata {
		copied.Metadata[key] = value
	}
	return &copied
}

// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package block

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository implements [Repository] with a single mutex.
type InMemoryRepository struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewInMemoryRepository constructs an empty registry.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create appends an active entry unless the pair is already blocked.
func (repository *InMemoryRepository) Create(_ context.Context, entry *Entry) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.active(entry.TenantID, entry.PhoneNumber) != nil {
		return ErrAlreadyBlocked
	}

	entry.IsActive = true
	entry.BlockedAt = time.Now().UTC()
	stored := *entry
	repository.entries = append(repository.entries, &stored)
	return nil
}

// Deactivate flips the active entry of a pair.
func (repository *InMemoryRepository) Deactivate(_ context.Context, tenantID, phoneNumber, unblockedBy string) (*Entry, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entry := repository.active(tenantID, phoneNumber)
	if entry == nil {
		return nil, ErrNotBlocked
	}

	now := time.Now().UTC()
	by := unblockedBy
	entry.IsActive = false
	entry.UnblockedAt = &now
	entry.UnblockedBy = &by

	copied := *entry
	return &copied, nil
}

// State counts the entries of a pair under the registry lock.
func (repository *InMemoryRepository) State(_ context.Context, tenantID, phoneNumber string) (State, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var entries int64
	active := false
	for _, entry := range repository.entries {
		if entry.TenantID == tenantID && entry.PhoneNumber == phoneNumber {
			entries++
			active = active || entry.IsActive
		}
	}
	return newState(entries, active), nil
}

// ListActive returns the active entries of a tenant, newest first.
func (repository *InMemoryRepository) ListActive(_ context.Context, tenantID string) ([]*Entry, error) {
	entries := repository.collect(func(entry *Entry) bool {
		return entry.TenantID == tenantID && entry.IsActive
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BlockedAt.After(entries[j].BlockedAt)
	})
	return entries, nil
}

// History returns every entry of a pair in insertion order.
func (repository *InMemoryRepository) History(_ context.Context, tenantID, phoneNumber string) ([]*Entry, error) {
	return repository.collect(func(entry *Entry) bool {
		return entry.TenantID == tenantID && entry.PhoneNumber == phoneNumber
	}), nil
}

func (repository *InMemoryRepository) active(tenantID, phoneNumber string) *Entry {
	for _, entry := range repository.entries {
		if entry.IsActive && entry.TenantID == tenantID && entry.PhoneNumber == phoneNumber {
			return entry
		}
	}
	return nil
}

func (repository *InMemoryRepository) collect(keep func(*Entry) bool) []*Entry {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entries := []*Entry{}
	for _, entry := range repository.entries {
		if keep(entry) {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	return entries
}

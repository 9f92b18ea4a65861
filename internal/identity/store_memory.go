// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/helpline/internal/platform/sec"
)

// InMemoryRepository implements [Repository] with a mutex-guarded map.
// Used by unit tests and local runs without PostgreSQL.
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewInMemoryRepository constructs an empty directory.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{accounts: make(map[string]Account)}
}

// FindByID returns a copy of the stored account.
func (repository *InMemoryRepository) FindByID(_ context.Context, id string) (*Account, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	account, ok := repository.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

// Create stores account unless its phone number is taken.
func (repository *InMemoryRepository) Create(_ context.Context, account *Account) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.accounts {
		if existing.PhoneNumber == account.PhoneNumber {
			return ErrDuplicateAccount
		}
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	repository.accounts[account.ID] = *account
	return nil
}

// List returns all accounts, oldest first.
func (repository *InMemoryRepository) List(_ context.Context) ([]*Account, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	accounts := make([]*Account, 0, len(repository.accounts))
	for _, account := range repository.accounts {
		copied := account
		accounts = append(accounts, &copied)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

// Delete removes an account by id.
func (repository *InMemoryRepository) Delete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(repository.accounts, id)
	return nil
}

// CountByRole tallies accounts per role.
func (repository *InMemoryRepository) CountByRole(_ context.Context) (map[sec.Role]int64, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	counts := make(map[sec.Role]int64)
	for _, account := range repository.accounts {
		counts[account.Role]++
	}
	return counts, nil
}

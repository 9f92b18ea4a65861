// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package block

import "context"

// # Block Data Access

// Repository defines the persistence contract for block entries.
type Repository interface {

	/*
		Create inserts a new active entry.

		Parameters:
		  - context: context.Context
		  - entry: *Entry (IsActive is forced to true)

		Returns:
		  - error: ErrAlreadyBlocked if the pair already has an active entry
	*/
	Create(context context.Context, entry *Entry) error

	/*
		Deactivate flips the active entry of a pair to inactive.

		Returns:
		  - *Entry: The entry after the unblock stamp
		  - error: ErrNotBlocked if no active entry exists
	*/
	Deactivate(context context.Context, tenantID, phoneNumber, unblockedBy string) (*Entry, error)

	/*
		State reports whether the pair has an active entry, with the
		version of that answer, read in one snapshot.
	*/
	State(context context.Context, tenantID, phoneNumber string) (State, error)

	/*
		ListActive returns the active entries of a tenant, newest first.
	*/
	ListActive(context context.Context, tenantID string) ([]*Entry, error)

	/*
		History returns every entry of a pair, oldest first.
	*/
	History(context context.Context, tenantID, phoneNumber string) ([]*Entry, error)
}

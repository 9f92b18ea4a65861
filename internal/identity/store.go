// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"

	"github.com/taibuivan/helpline/internal/platform/sec"
)

// # Account Data Access

// Repository defines the data access contract for the staff directory.
type Repository interface {
	AccountDirectory

	/*
		Create persists a new staff account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: ErrDuplicateAccount when the phone number is taken
	*/
	Create(context context.Context, account *Account) error

	/*
		List returns every staff account ordered by creation time.

		Parameters:
		  - context: context.Context

		Returns:
		  - []*Account: Directory entries
		  - error: Retrieval failures
	*/
	List(context context.Context) ([]*Account, error)

	/*
		Delete removes a staff account.

		Returns:
		  - error: ErrAccountNotFound if missing
	*/
	Delete(context context.Context, id string) error

	/*
		CountByRole returns the number of staff accounts per role.
	*/
	CountByRole(context context.Context) (map[sec.Role]int64, error)
}

// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/helpline/internal/platform/dberr"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed staff directory.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

/*
FindByID retrieves a staff account by its primary key.

Returns:
  - *Account: Hydrated entity
  - error: ErrAccountNotFound if missing
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Account, error) {
	if !uuid.Valid(id) {
		return nil, ErrAccountNotFound
	}

	const query = `
		SELECT id, name, phonenumber, role, createdat
		FROM staff.account
		WHERE id = $1
	`
	account := &Account{}
	err := repository.db.QueryRow(context, query, id).Scan(
		&account.ID, &account.Name, &account.PhoneNumber, &account.Role, &account.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_account_by_id")
	}
	return account, nil
}

/*
Create inserts a new staff account.

Description: The unique index on phonenumber rejects duplicates.
*/
func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	const query = `
		INSERT INTO staff.account (id, name, phonenumber, role, createdat)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING createdat
	`
	err := repository.db.QueryRow(context, query,
		account.ID, account.Name, account.PhoneNumber, account.Role,
	).Scan(&account.CreatedAt)

	if dberr.IsUniqueViolation(err, "uq_account_phone") {
		return ErrDuplicateAccount
	}
	return dberr.Wrap(err, "create_account")
}

// List returns all staff accounts, oldest first.
func (repository *PostgresRepository) List(context context.Context) ([]*Account, error) {
	const query = `
		SELECT id, name, phonenumber, role, createdat
		FROM staff.account
		ORDER BY createdat ASC, id ASC
	`
	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_accounts")
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account := &Account{}
		if err := rows.Scan(&account.ID, &account.Name, &account.PhoneNumber, &account.Role, &account.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_account")
		}
		accounts = append(accounts, account)
	}

	return accounts, dberr.Wrap(rows.Err(), "list_accounts")
}

// Delete removes a staff account by id.
func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	if !uuid.Valid(id) {
		return ErrAccountNotFound
	}

	tag, err := repository.db.Exec(context, `DELETE FROM staff.account WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_account")
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountByRole groups staff accounts by role.
func (repository *PostgresRepository) CountByRole(context context.Context) (map[sec.Role]int64, error) {
	rows, err := repository.db.Query(context, `SELECT role, COUNT(*) FROM staff.account GROUP BY role`)
	if err != nil {
		return nil, dberr.Wrap(err, "count_accounts")
	}
	defer rows.Close()

	counts := make(map[sec.Role]int64)
	for rows.Next() {
		var role sec.Role
		var count int64
		if err := rows.Scan(&role, &count); err != nil {
			return nil, dberr.Wrap(err, "scan_account_count")
		}
		counts[role] = count
	}

	return counts, dberr.Wrap(rows.Err(), "count_accounts")
}

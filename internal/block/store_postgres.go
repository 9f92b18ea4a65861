// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package block

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/helpline/internal/platform/database/schema"
	"github.com/taibuivan/helpline/internal/platform/dberr"
)

// activePairConstraint is the partial unique index over active entries.
const activePairConstraint = "uq_blockentry_active"

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed block registry.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	entryColumns = strings.Join(schema.ChatBlockEntry.Columns(), ", ")
	selectEntry  = fmt.Sprintf("SELECT %s FROM %s", entryColumns, schema.ChatBlockEntry.Table)
)

/*
Create inserts an active entry.

Description: The partial unique index on (tenantid, phonenumber) WHERE isactive
is the compare-and-set; a concurrent second block fails with a unique violation.
*/
func (repository *PostgresRepository) Create(context context.Context, entry *Entry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, NOW(), TRUE)
		RETURNING %s
	`,
		schema.ChatBlockEntry.Table,
		schema.ChatBlockEntry.ID,
		schema.ChatBlockEntry.TenantID,
		schema.ChatBlockEntry.PhoneNumber,
		schema.ChatBlockEntry.BlockedBy,
		schema.ChatBlockEntry.Reason,
		schema.ChatBlockEntry.BlockedAt,
		schema.ChatBlockEntry.IsActive,
		schema.ChatBlockEntry.BlockedAt,
	)

	entry.IsActive = true
	err := repository.db.QueryRow(context, query,
		entry.ID, entry.TenantID, entry.PhoneNumber, entry.BlockedBy, entry.Reason,
	).Scan(&entry.BlockedAt)

	if dberr.IsUniqueViolation(err, activePairConstraint) {
		return ErrAlreadyBlocked
	}
	return dberr.Wrap(err, "create_block_entry")
}

// Deactivate stamps the unblock metadata on the active entry of a pair.
func (repository *PostgresRepository) Deactivate(context context.Context, tenantID, phoneNumber, unblockedBy string) (*Entry, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = FALSE, %s = NOW(), %s = $3
		WHERE %s = $1 AND %s = $2 AND %s
		RETURNING %s
	`,
		schema.ChatBlockEntry.Table,
		schema.ChatBlockEntry.IsActive,
		schema.ChatBlockEntry.UnblockedAt,
		schema.ChatBlockEntry.UnblockedBy,
		schema.ChatBlockEntry.TenantID,
		schema.ChatBlockEntry.PhoneNumber,
		schema.ChatBlockEntry.IsActive,
		entryColumns,
	)

	entry, err := scanEntry(repository.db.QueryRow(context, query, tenantID, phoneNumber, unblockedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotBlocked
	}
	if err != nil {
		return nil, dberr.Wrap(err, "deactivate_block_entry")
	}
	return entry, nil
}

// State counts the entries of a pair in one snapshot.
func (repository *PostgresRepository) State(context context.Context, tenantID, phoneNumber string) (State, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(BOOL_OR(%s), FALSE)
		FROM %s
		WHERE %s = $1 AND %s = $2
	`,
		schema.ChatBlockEntry.IsActive,
		schema.ChatBlockEntry.Table,
		schema.ChatBlockEntry.TenantID,
		schema.ChatBlockEntry.PhoneNumber,
	)

	var (
		entries int64
		active  bool
	)
	if err := repository.db.QueryRow(context, query, tenantID, phoneNumber).Scan(&entries, &active); err != nil {
		return State{}, dberr.Wrap(err, "read_block_state")
	}
	return newState(entries, active), nil
}

// ListActive returns the active entries of a tenant, newest first.
func (repository *PostgresRepository) ListActive(context context.Context, tenantID string) ([]*Entry, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1 AND %s ORDER BY %s DESC, %s DESC`,
		selectEntry,
		schema.ChatBlockEntry.TenantID,
		schema.ChatBlockEntry.IsActive,
		schema.ChatBlockEntry.BlockedAt,
		schema.ChatBlockEntry.ID,
	)
	return repository.findMany(context, query, tenantID)
}

// History returns every entry of a pair, oldest first.
func (repository *PostgresRepository) History(context context.Context, tenantID, phoneNumber string) ([]*Entry, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1 AND %s = $2 ORDER BY %s ASC, %s ASC`,
		selectEntry,
		schema.ChatBlockEntry.TenantID,
		schema.ChatBlockEntry.PhoneNumber,
		schema.ChatBlockEntry.BlockedAt,
		schema.ChatBlockEntry.ID,
	)
	return repository.findMany(context, query, tenantID, phoneNumber)
}

// # Helpers

func (repository *PostgresRepository) findMany(context context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "list_block_entries")
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_block_entry")
		}
		entries = append(entries, entry)
	}

	return entries, dberr.Wrap(rows.Err(), "list_block_entries")
}

func scanEntry(row pgx.Row) (*Entry, error) {
	entry := &Entry{}
	err := row.Scan(
		&entry.ID, &entry.TenantID, &entry.PhoneNumber, &entry.BlockedBy, &entry.Reason,
		&entry.BlockedAt, &entry.IsActive, &entry.UnblockedAt, &entry.UnblockedBy,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

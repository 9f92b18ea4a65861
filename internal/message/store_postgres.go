// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/database/schema"
	"github.com/taibuivan/helpline/internal/platform/dberr"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/pkg/pagination"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed message store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var messageColumns = fmt.Sprintf("m.%s, m.%s, m.%s, m.%s, m.%s, m.%s, m.%s, m.%s, m.%s, m.%s, m.%s, m.%s",
	schema.ChatMessage.ID,
	schema.ChatMessage.TenantID,
	schema.ChatMessage.SenderKind,
	schema.ChatMessage.SenderAccountID,
	schema.ChatMessage.SenderRole,
	schema.ChatMessage.SenderTenantID,
	schema.ChatMessage.SenderPhone,
	schema.ChatMessage.Receivers,
	schema.ChatMessage.Body,
	schema.ChatMessage.Metadata,
	schema.ChatMessage.ClientMessageID,
	schema.ChatMessage.CreatedAt,
)

// # Message Mutation

/*
Append stores message under the tenant row lock.

Description: The tenant's lastmessageat is advanced to
max(clock_timestamp(), lastmessageat + 1µs) in the same transaction, which
serializes appends per tenant and makes commit order equal CreatedAt order.
*/
func (repository *PostgresRepository) Append(context context.Context, message *Message) error {
	if err := prepare(message); err != nil {
		return err
	}
	if !uuid.Valid(message.TenantID) {
		return tenant.ErrTenantNotFound
	}

	receivers, err := json.Marshal(message.Receivers)
	if err != nil {
		return fmt.Errorf("message: encode receivers: %w", err)
	}
	metadata, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("message: encode metadata: %w", err)
	}

	// Establish Transactional Boundary
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_append_message_tx")
	}
	defer transaction.Rollback(context)

	// Step 1: Take the tenant clock (row lock until commit)
	clock := fmt.Sprintf(`
		UPDATE %s
		SET %s = GREATEST(clock_timestamp(), %s + interval '1 microsecond')
		WHERE %s = $1 AND %s IS NULL
		RETURNING %s
	`,
		schema.CoreTenant.Table,
		schema.CoreTenant.LastMessageAt, schema.CoreTenant.LastMessageAt,
		schema.CoreTenant.ID, schema.CoreTenant.DeletedAt,
		schema.CoreTenant.LastMessageAt,
	)
	err = transaction.QueryRow(context, clock, message.TenantID).Scan(&message.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tenant.ErrTenantNotFound
	}
	if err != nil {
		return dberr.Wrap(err, "advance_tenant_clock")
	}

	// Step 2: Insert the message
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10::jsonb, $11, $12)
	`, schema.ChatMessage.Table, strings.Join(schema.ChatMessage.Columns(), ", "))

	sender := message.Sender
	_, err = transaction.Exec(context, insert,
		message.ID,
		message.TenantID,
		string(sender.Kind),
		nullable(sender.AccountID),
		nullable(string(sender.Role)),
		nullable(sender.TenantID),
		nullable(sender.PhoneNumber),
		receivers,
		message.Body,
		metadata,
		nullable(message.ClientMessageID),
		message.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "insert_message")
	}

	return dberr.Wrap(transaction.Commit(context), "commit_append_message")
}

/*
MarkRead inserts a read receipt for reader.

Description: The (messageid, reader) unique key makes repeated calls no-ops.
*/
func (repository *PostgresRepository) MarkRead(context context.Context, messageID string, reader identity.Principal) error {
	if !uuid.Valid(messageID) {
		return ErrMessageNotFound
	}

	readerRef, err := json.Marshal(reader.Ref())
	if err != nil {
		return fmt.Errorf("message: encode reader: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		SELECT $1, $2::jsonb, NOW()
		WHERE EXISTS (SELECT 1 FROM %s WHERE %s = $1)
		ON CONFLICT (%s, %s) DO NOTHING
	`,
		schema.ChatMessageRead.Table,
		schema.ChatMessageRead.MessageID, schema.ChatMessageRead.Reader, schema.ChatMessageRead.ReadAt,
		schema.ChatMessage.Table, schema.ChatMessage.ID,
		schema.ChatMessageRead.MessageID, schema.ChatMessageRead.Reader,
	)
	tag, err := repository.db.Exec(context, query, messageID, readerRef)
	if err != nil {
		return dberr.Wrap(err, "mark_message_read")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either already read or the message does not exist.
	_, err = repository.FindByID(context, messageID)
	return err
}

// # Message Retrieval

/*
Scan runs a keyset-paginated, predicate-filtered query over one tenant.

Description: The predicate is translated into SQL. Receiver membership uses
JSONB containment on the receivers array, backed by a GIN index. ReadAt is
joined from the viewer's own receipts.
*/
func (repository *PostgresRepository) Scan(context context.Context, predicate Predicate, after pagination.Position, limit int) (*Page, error) {
	limit = effectiveLimit(limit)
	if predicate.Scope == ScopeNone || !uuid.Valid(predicate.TenantID) {
		return pageOf(nil, limit), nil
	}

	viewerRef, err := json.Marshal(predicate.Viewer.Ref())
	if err != nil {
		return nil, fmt.Errorf("message: encode viewer: %w", err)
	}

	// Query build initialization
	var queryBuilder strings.Builder
	args := []any{predicate.TenantID, viewerRef}
	argID := 3

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, r.%s
		FROM %s m
		LEFT JOIN %s r ON r.%s = m.%s AND r.%s = $2::jsonb
		WHERE m.%s = $1
	`,
		messageColumns, schema.ChatMessageRead.ReadAt,
		schema.ChatMessage.Table,
		schema.ChatMessageRead.Table, schema.ChatMessageRead.MessageID, schema.ChatMessage.ID, schema.ChatMessageRead.Reader,
		schema.ChatMessage.TenantID,
	))

	// Apply the visibility scope
	condition, scopeArgs := scopeSQL(predicate, argID)
	queryBuilder.WriteString(condition)
	args = append(args, scopeArgs...)
	argID += len(scopeArgs)

	// Keyset position
	if !after.CreatedAt.IsZero() {
		queryBuilder.WriteString(fmt.Sprintf(" AND (m.%s, m.%s) > ($%d, $%d::uuid)",
			schema.ChatMessage.CreatedAt, schema.ChatMessage.ID, argID, argID+1))
		args = append(args, after.CreatedAt, after.ID)
		argID += 2
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY m.%s ASC, m.%s ASC LIMIT $%d",
		schema.ChatMessage.CreatedAt, schema.ChatMessage.ID, argID))
	args = append(args, limit+1)

	rows, err := repository.db.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "scan_messages")
	}
	defer rows.Close()

	messages := make([]*Message, 0, limit+1)
	for rows.Next() {
		var readAt *time.Time
		message, err := scanMessage(rows, &readAt)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_message_row")
		}
		message.ReadAt = readAt
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "scan_messages")
	}

	return pageOf(messages, limit), nil
}

// FindByID retrieves one message.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Message, error) {
	if !uuid.Valid(id) {
		return nil, ErrMessageNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM %s m WHERE m.%s = $1`,
		messageColumns, schema.ChatMessage.Table, schema.ChatMessage.ID)

	message, err := scanMessage(repository.db.QueryRow(context, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_message")
	}
	return message, nil
}

// CountByTenant groups message counts by live tenant.
func (repository *PostgresRepository) CountByTenant(context context.Context) (map[string]int64, error) {
	query := fmt.Sprintf(`
		SELECT m.%s, COUNT(*)
		FROM %s m
		JOIN %s t ON t.%s = m.%s
		WHERE t.%s IS NULL
		GROUP BY m.%s
	`,
		schema.ChatMessage.TenantID,
		schema.ChatMessage.Table,
		schema.CoreTenant.Table, schema.CoreTenant.ID, schema.ChatMessage.TenantID,
		schema.CoreTenant.DeletedAt,
		schema.ChatMessage.TenantID,
	)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "count_messages")
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tenantID string
		var count int64
		if err := rows.Scan(&tenantID, &count); err != nil {
			return nil, dberr.Wrap(err, "scan_message_count")
		}
		counts[tenantID] = count
	}

	return counts, dberr.Wrap(rows.Err(), "count_messages")
}

// CountSenders counts distinct (tenant, phone) senders of live tenants.
func (repository *PostgresRepository) CountSenders(context context.Context) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT (m.%s, m.%s))
		FROM %s m
		JOIN %s t ON t.%s = m.%s
		WHERE m.%s = 'external' AND t.%s IS NULL
	`,
		schema.ChatMessage.TenantID, schema.ChatMessage.SenderPhone,
		schema.ChatMessage.Table,
		schema.CoreTenant.Table, schema.CoreTenant.ID, schema.ChatMessage.TenantID,
		schema.ChatMessage.SenderKind,
		schema.CoreTenant.DeletedAt,
	)

	var total int64
	if err := repository.db.QueryRow(context, query).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, "count_message_senders")
	}
	return total, nil
}

// # Helpers

// scopeSQL translates the scope of predicate into an AND clause. $2 always
// holds the viewer's reference as JSONB.
func scopeSQL(predicate Predicate, argID int) (string, []any) {
	viewer := predicate.Viewer

	switch predicate.Scope {
	case ScopeTenant:
		return "", nil

	case ScopeStaff:
		return fmt.Sprintf(`
			AND (
				m.%s = 'external'
				OR m.%s @> '[{"kind":"external"}]'::jsonb
				OR m.%s @> jsonb_build_array($2::jsonb)
				OR (m.%s = 'internal' AND m.%s = $%d::uuid)
			)`,
			schema.ChatMessage.SenderKind,
			schema.ChatMessage.Receivers,
			schema.ChatMessage.Receivers,
			schema.ChatMessage.SenderKind, schema.ChatMessage.SenderAccountID, argID,
		), []any{viewer.AccountID}

	case ScopeThread:
		return fmt.Sprintf(`
			AND (
				(m.%s = 'external' AND m.%s = $%d::uuid AND m.%s = $%d)
				OR m.%s @> jsonb_build_array($2::jsonb)
			)`,
			schema.ChatMessage.SenderKind,
			schema.ChatMessage.SenderTenantID, argID,
			schema.ChatMessage.SenderPhone, argID+1,
			schema.ChatMessage.Receivers,
		), []any{viewer.TenantID, viewer.PhoneNumber}

	default:
		return " AND FALSE", nil
	}
}

func scanMessage(row pgx.Row, extra ...any) (*Message, error) {
	message := &Message{}
	var kind string
	var accountID, role, senderTenantID, senderPhone, clientMessageID *string
	var receivers, metadata []byte

	dest := []any{
		&message.ID, &message.TenantID,
		&kind, &accountID, &role, &senderTenantID, &senderPhone,
		&receivers, &message.Body, &metadata, &clientMessageID, &message.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	message.Sender = identity.Principal{
		Kind:        identity.Kind(kind),
		AccountID:   deref(accountID),
		Role:        sec.Role(deref(role)),
		TenantID:    deref(senderTenantID),
		PhoneNumber: deref(senderPhone),
	}
	message.ClientMessageID = deref(clientMessageID)

	if err := json.Unmarshal(receivers, &message.Receivers); err != nil {
		return nil, fmt.Errorf("message: decode receivers: %w", err)
	}
	if err := json.Unmarshal(metadata, &message.Metadata); err != nil {
		return nil, fmt.Errorf("message: decode metadata: %w", err)
	}
	if message.Receivers == nil {
		message.Receivers = []identity.Principal{}
	}

	return message, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

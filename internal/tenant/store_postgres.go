// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/helpline/internal/platform/dberr"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// uniqueNameConstraint is the partial unique index on live tenant names.
const uniqueNameConstraint = "uq_tenant_normalizedname"

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed tenant registry.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectTenant = `
	SELECT id, name, normalizedname, status, createdby, createdat, updatedat
	FROM core.tenant
`

// # Tenant Mutation

/*
Create inserts the tenant row and its admin set in one transaction.

Description: The name is checked before insert; the partial unique index on
normalizedname closes the race between two concurrent creates.
*/
func (repository *PostgresRepository) Create(context context.Context, tenant *Tenant) error {

	// Establish Transactional Boundary
	transaction, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "begin_create_tenant_tx")
	}
	defer transaction.Rollback(context)

	// Step 1: Reject taken names up front
	var taken bool
	err = transaction.QueryRow(context,
		`SELECT EXISTS (SELECT 1 FROM core.tenant WHERE normalizedname = $1 AND deletedat IS NULL)`,
		tenant.NormalizedName,
	).Scan(&taken)
	if err != nil {
		return dberr.Wrap(err, "check_tenant_name")
	}
	if taken {
		return ErrDuplicateName
	}

	// Step 2: Persist the tenant
	const insertTenant = `
		INSERT INTO core.tenant (id, name, normalizedname, status, createdby, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING createdat, updatedat
	`
	err = transaction.QueryRow(context, insertTenant,
		tenant.ID, tenant.Name, tenant.NormalizedName, tenant.Status, tenant.CreatedBy,
	).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	if dberr.IsUniqueViolation(err, uniqueNameConstraint) {
		return ErrDuplicateName
	}
	if err != nil {
		return dberr.Wrap(err, "insert_tenant")
	}

	// Step 3: Seed the admin set
	for i := range tenant.Admins {
		err = transaction.QueryRow(context, `
			INSERT INTO core.tenantadmin (tenantid, accountid, addedby, addedat)
			VALUES ($1, $2, $3, NOW())
			RETURNING addedat
		`, tenant.ID, tenant.Admins[i].AccountID, tenant.Admins[i].AddedBy).Scan(&tenant.Admins[i].AddedAt)
		if err != nil {
			return dberr.Wrap(err, "insert_tenant_admin")
		}
	}

	return dberr.Wrap(transaction.Commit(context), "commit_create_tenant")
}

/*
AddAdmin inserts an admin assignment.

Description: ON CONFLICT DO NOTHING is the per-tenant compare-and-set; zero
affected rows means either the tenant is gone or the account is already there.
*/
func (repository *PostgresRepository) AddAdmin(context context.Context, tenantID string, assignment AdminAssignment) error {
	if !uuid.Valid(tenantID) {
		return ErrTenantNotFound
	}

	const query = `
		INSERT INTO core.tenantadmin (tenantid, accountid, addedby, addedat)
		SELECT $1, $2, $3, NOW()
		WHERE EXISTS (SELECT 1 FROM core.tenant WHERE id = $1 AND deletedat IS NULL)
		ON CONFLICT (tenantid, accountid) DO NOTHING
	`
	tag, err := repository.db.Exec(context, query, tenantID, assignment.AccountID, assignment.AddedBy)
	if err != nil {
		return dberr.Wrap(err, "add_tenant_admin")
	}

	if tag.RowsAffected() == 1 {
		_, err = repository.db.Exec(context, `UPDATE core.tenant SET updatedat = NOW() WHERE id = $1`, tenantID)
		return dberr.Wrap(err, "touch_tenant")
	}

	if _, err := repository.FindByID(context, tenantID); err != nil {
		return err
	}
	return ErrAlreadyAdmin
}

// SetStatus updates the lifecycle status of a live tenant.
func (repository *PostgresRepository) SetStatus(context context.Context, id string, status Status) error {
	if !uuid.Valid(id) {
		return ErrTenantNotFound
	}

	tag, err := repository.db.Exec(context, `
		UPDATE core.tenant SET status = $2, updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL
	`, id, status)
	if err != nil {
		return dberr.Wrap(err, "set_tenant_status")
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// SoftDelete stamps deletedat on a live tenant.
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	if !uuid.Valid(id) {
		return ErrTenantNotFound
	}

	tag, err := repository.db.Exec(context, `
		UPDATE core.tenant SET deletedat = NOW(), updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL
	`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_tenant")
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// # Tenant Retrieval

// FindByID retrieves a live tenant and its admin set.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Tenant, error) {
	if !uuid.Valid(id) {
		return nil, ErrTenantNotFound
	}
	return repository.findOne(context, selectTenant+` WHERE id = $1 AND deletedat IS NULL`, id)
}

// FindByNormalizedName retrieves a live tenant by its folded name.
func (repository *PostgresRepository) FindByNormalizedName(context context.Context, normalizedName string) (*Tenant, error) {
	return repository.findOne(context, selectTenant+` WHERE normalizedname = $1 AND deletedat IS NULL`, normalizedName)
}

// List returns every live tenant.
func (repository *PostgresRepository) List(context context.Context) ([]*Tenant, error) {
	return repository.findMany(context, selectTenant+` WHERE deletedat IS NULL ORDER BY createdat ASC, id ASC`)
}

// ListByAdmin returns the live tenants administered by accountID.
func (repository *PostgresRepository) ListByAdmin(context context.Context, accountID string) ([]*Tenant, error) {
	if !uuid.Valid(accountID) {
		return nil, nil
	}
	return repository.findMany(context, selectTenant+`
		WHERE deletedat IS NULL
		  AND id IN (SELECT tenantid FROM core.tenantadmin WHERE accountid = $1)
		ORDER BY createdat ASC, id ASC
	`, accountID)
}

// # Helpers

func (repository *PostgresRepository) findOne(context context.Context, query string, args ...any) (*Tenant, error) {
	tenant := &Tenant{}
	err := repository.db.QueryRow(context, query, args...).Scan(
		&tenant.ID, &tenant.Name, &tenant.NormalizedName, &tenant.Status,
		&tenant.CreatedBy, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_tenant")
	}

	if err := repository.loadAdmins(context, []*Tenant{tenant}); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (repository *PostgresRepository) findMany(context context.Context, query string, args ...any) ([]*Tenant, error) {
	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "list_tenants")
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		tenant := &Tenant{}
		if err := rows.Scan(
			&tenant.ID, &tenant.Name, &tenant.NormalizedName, &tenant.Status,
			&tenant.CreatedBy, &tenant.CreatedAt, &tenant.UpdatedAt,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_tenant")
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_tenants")
	}

	if err := repository.loadAdmins(context, tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// loadAdmins fills the admin sets of tenants with a single query.
func (repository *PostgresRepository) loadAdmins(context context.Context, tenants []*Tenant) error {
	if len(tenants) == 0 {
		return nil
	}

	byID := make(map[string]*Tenant, len(tenants))
	ids := make([]string, 0, len(tenants))
	for _, tenant := range tenants {
		tenant.Admins = []AdminAssignment{}
		byID[tenant.ID] = tenant
		ids = append(ids, tenant.ID)
	}

	rows, err := repository.db.Query(context, `
		SELECT tenantid, accountid, addedby, addedat
		FROM core.tenantadmin
		WHERE tenantid = ANY($1::uuid[])
		ORDER BY addedat ASC, accountid ASC
	`, ids)
	if err != nil {
		return dberr.Wrap(err, "list_tenant_admins")
	}
	defer rows.Close()

	for rows.Next() {
		var tenantID string
		var assignment AdminAssignment
		if err := rows.Scan(&tenantID, &assignment.AccountID, &assignment.AddedBy, &assignment.AddedAt); err != nil {
			return dberr.Wrap(err, "scan_tenant_admin")
		}
		if tenant, ok := byID[tenantID]; ok {
			tenant.Admins = append(tenant.Admins, assignment)
		}
	}

	return dberr.Wrap(rows.Err(), "list_tenant_admins")
}

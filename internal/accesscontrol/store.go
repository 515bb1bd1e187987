package accesscontrol

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/database"
	"github.com/cognee-ai/cognee-go/internal/dataset"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// Store provides persistence for principals and ACL entries.
type Store interface {
	// CreateTenant creates a tenant principal
	CreateTenant(ctx context.Context, name string) (*Tenant, error)

	// CreateUser creates a user principal, optionally attached to a tenant
	CreateUser(ctx context.Context, email string, tenantID types.ID) (*User, error)

	// CreateRole creates a role principal belonging to a tenant
	CreateRole(ctx context.Context, name string, tenantID types.ID) (*Role, error)

	// AddUserToRole attaches a user to a role within the same tenant
	AddUserToRole(ctx context.Context, userID, roleID types.ID) error

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id types.ID) (*User, error)

	// GetUserByEmail retrieves a user by email
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// PrincipalExists reports whether a principal row exists
	PrincipalExists(ctx context.Context, id types.ID) (bool, error)

	// CreateDatasetWithGrants inserts a dataset row and grants the owner
	// the full permission set in one transaction
	CreateDatasetWithGrants(ctx context.Context, principalID types.ID, name string) (*dataset.Dataset, error)

	// Grant inserts an ACL entry; granting an already-held permission is a no-op
	Grant(ctx context.Context, principalID, datasetID types.ID, permission Permission) error

	// ListGrantsForPrincipal returns all grants held directly by a principal
	ListGrantsForPrincipal(ctx context.Context, principalID types.ID) ([]ACLEntry, error)

	// ListGrantsForDataset returns all grants on a dataset
	ListGrantsForDataset(ctx context.Context, datasetID types.ID) ([]ACLEntry, error)

	// ResolveDatasets returns every dataset on which the user holds the
	// permission directly, through their tenant, or through any role.
	// Executed as a single read-consistent query.
	ResolveDatasets(ctx context.Context, userID types.ID, permission Permission) ([]*dataset.Dataset, error)

	// HasPermission reports whether the user's effective permission set on
	// the dataset covers the permission
	HasPermission(ctx context.Context, userID, datasetID types.ID, permission Permission) (bool, error)
}

// DBStore implements Store using SQLite.
type DBStore struct {
	db *database.DB
}

// NewDBStore creates a new database-backed access control store.
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

// CreateTenant creates a tenant principal.
func (s *DBStore) CreateTenant(ctx context.Context, name string) (*Tenant, error) {
	tenant := &Tenant{
		ID:        types.NewID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO principals (id, kind) VALUES (?, ?)",
			tenant.ID.String(), string(PrincipalTenant),
		); err != nil {
			return fmt.Errorf("failed to insert principal: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tenants (id, name) VALUES (?, ?)",
			tenant.ID.String(), tenant.Name,
		); err != nil {
			return fmt.Errorf("failed to insert tenant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// CreateUser creates a user principal. tenantID may be zero for
// tenant-less users.
func (s *DBStore) CreateUser(ctx context.Context, email string, tenantID types.ID) (*User, error) {
	if email == "" {
		return nil, types.NewError(types.ErrCodeValidation, "email cannot be empty")
	}

	if !tenantID.IsZero() {
		if err := s.requirePrincipal(ctx, tenantID, PrincipalTenant); err != nil {
			return nil, err
		}
	}

	user := &User{
		ID:        types.NewID(),
		Email:     email,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO principals (id, kind) VALUES (?, ?)",
			user.ID.String(), string(PrincipalUser),
		); err != nil {
			return fmt.Errorf("failed to insert principal: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, tenant_id) VALUES (?, ?, ?)",
			user.ID.String(), user.Email, nullableID(user.TenantID),
		); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateRole creates a role principal belonging to a tenant.
func (s *DBStore) CreateRole(ctx context.Context, name string, tenantID types.ID) (*Role, error) {
	if err := s.requirePrincipal(ctx, tenantID, PrincipalTenant); err != nil {
		return nil, err
	}

	role := &Role{
		ID:        types.NewID(),
		Name:      name,
		TenantID:  tenantID,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO principals (id, kind) VALUES (?, ?)",
			role.ID.String(), string(PrincipalRole),
		); err != nil {
			return fmt.Errorf("failed to insert principal: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO roles (id, name, tenant_id) VALUES (?, ?, ?)",
			role.ID.String(), role.Name, role.TenantID.String(),
		); err != nil {
			return fmt.Errorf("failed to insert role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// AddUserToRole attaches a user to a role. The user must belong to the
// role's tenant.
func (s *DBStore) AddUserToRole(ctx context.Context, userID, roleID types.ID) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	var roleTenant string
	err = s.db.QueryRowContext(ctx,
		"SELECT tenant_id FROM roles WHERE id = ?", roleID.String(),
	).Scan(&roleTenant)
	if err == sql.ErrNoRows {
		return types.NewNotFoundError("role", roleID.String())
	}
	if err != nil {
		return fmt.Errorf("failed to get role: %w", err)
	}

	if user.TenantID.String() != roleTenant {
		return types.NewPermissionDeniedError(
			fmt.Sprintf("user %s does not belong to the role's tenant", userID.Short()))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID.String(), roleID.String())
	if err != nil {
		return fmt.Errorf("failed to add user to role: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *DBStore) GetUser(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT u.id, u.email, u.tenant_id, p.created_at FROM users u JOIN principals p ON p.id = u.id WHERE u.id = ?",
		id.String())
	return scanUser(row, id.String())
}

// GetUserByEmail retrieves a user by email.
func (s *DBStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT u.id, u.email, u.tenant_id, p.created_at FROM users u JOIN principals p ON p.id = u.id WHERE u.email = ?",
		email)
	return scanUser(row, email)
}

// PrincipalExists reports whether a principal row exists.
func (s *DBStore) PrincipalExists(ctx context.Context, id types.ID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM principals WHERE id = ?", id.String(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check principal: %w", err)
	}
	return true, nil
}

// CreateDatasetWithGrants inserts the dataset row and the owner's four
// grants atomically. A partial grant on failure would violate the
// creator-holds-all invariant, so everything runs in one transaction.
func (s *DBStore) CreateDatasetWithGrants(ctx context.Context, principalID types.ID, name string) (*dataset.Dataset, error) {
	exists, err := s.PrincipalExists(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.NewNotFoundError("principal", principalID.String())
	}

	ds := dataset.New(name, principalID)

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO datasets (id, name, owner_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, ds.ID.String(), ds.Name, ds.OwnerID.String(), ds.CreatedAt, ds.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert dataset: %w", err)
		}

		for _, perm := range AllPermissions() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO acl_entries (id, principal_id, dataset_id, permission)
				VALUES (?, ?, ?, ?)
			`, types.NewID().String(), principalID.String(), ds.ID.String(), string(perm)); err != nil {
				return fmt.Errorf("failed to grant %s: %w", perm, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Grant inserts an ACL entry. Granting an already-held permission is a
// no-op, not an error.
func (s *DBStore) Grant(ctx context.Context, principalID, datasetID types.ID, permission Permission) error {
	if !permission.IsValid() {
		return types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("invalid permission: %s", permission))
	}

	exists, err := s.PrincipalExists(ctx, principalID)
	if err != nil {
		return err
	}
	if !exists {
		return types.NewNotFoundError("principal", principalID.String())
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		"SELECT 1 FROM datasets WHERE id = ?", datasetID.String(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return types.NewNotFoundError("dataset", datasetID.String())
	}
	if err != nil {
		return fmt.Errorf("failed to check dataset: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO acl_entries (id, principal_id, dataset_id, permission)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (principal_id, dataset_id, permission) DO NOTHING
	`, types.NewID().String(), principalID.String(), datasetID.String(), string(permission))
	if err != nil {
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

// ListGrantsForPrincipal returns all grants held directly by a principal.
func (s *DBStore) ListGrantsForPrincipal(ctx context.Context, principalID types.ID) ([]ACLEntry, error) {
	return s.listGrants(ctx,
		"SELECT id, principal_id, dataset_id, permission FROM acl_entries WHERE principal_id = ?",
		principalID.String())
}

// ListGrantsForDataset returns all grants on a dataset.
func (s *DBStore) ListGrantsForDataset(ctx context.Context, datasetID types.ID) ([]ACLEntry, error) {
	return s.listGrants(ctx,
		"SELECT id, principal_id, dataset_id, permission FROM acl_entries WHERE dataset_id = ?",
		datasetID.String())
}

// reachablePrincipals selects the user itself, their tenant, and their
// roles as a subquery, so resolution reads one consistent snapshot.
const reachablePrincipals = `
	SELECT ? AS pid
	UNION SELECT tenant_id FROM users WHERE id = ? AND tenant_id IS NOT NULL
	UNION SELECT role_id FROM user_roles WHERE user_id = ?
`

// ResolveDatasets returns every dataset on which the user holds the
// permission directly, through their tenant, or through any role.
func (s *DBStore) ResolveDatasets(ctx context.Context, userID types.ID, permission Permission) ([]*dataset.Dataset, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT d.id, d.name, d.owner_id, d.created_at, d.updated_at
		FROM datasets d
		JOIN acl_entries a ON a.dataset_id = d.id
		WHERE a.permission = ?
		  AND a.principal_id IN (`+reachablePrincipals+`)
		ORDER BY d.created_at
	`, string(permission), user.ID.String(), user.ID.String(), user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]*dataset.Dataset, 0)
	for rows.Next() {
		var d dataset.Dataset
		var idStr, ownerStr string
		var updatedAt sql.NullTime
		if err := rows.Scan(&idStr, &d.Name, &ownerStr, &d.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		d.ID = types.ID(idStr)
		d.OwnerID = types.ID(ownerStr)
		if updatedAt.Valid {
			d.UpdatedAt = updatedAt.Time
		}
		datasets = append(datasets, &d)
	}
	return datasets, rows.Err()
}

// HasPermission reports whether the user's effective permission set on
// the dataset covers the permission.
func (s *DBStore) HasPermission(ctx context.Context, userID, datasetID types.ID, permission Permission) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, `
		SELECT 1 FROM acl_entries
		WHERE dataset_id = ? AND permission = ?
		  AND principal_id IN (`+reachablePrincipals+`)
		LIMIT 1
	`, datasetID.String(), string(permission),
		user.ID.String(), user.ID.String(), user.ID.String(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return true, nil
}

func (s *DBStore) listGrants(ctx context.Context, query string, arg string) ([]ACLEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	entries := make([]ACLEntry, 0)
	for rows.Next() {
		var e ACLEntry
		var id, principal, ds, perm string
		if err := rows.Scan(&id, &principal, &ds, &perm); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		e.ID = types.ID(id)
		e.PrincipalID = types.ID(principal)
		e.DatasetID = types.ID(ds)
		e.Permission = Permission(perm)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *DBStore) requirePrincipal(ctx context.Context, id types.ID, kind PrincipalKind) error {
	var gotKind string
	err := s.db.QueryRowContext(ctx,
		"SELECT kind FROM principals WHERE id = ?", id.String(),
	).Scan(&gotKind)
	if err == sql.ErrNoRows {
		return types.NewNotFoundError(string(kind), id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to check principal: %w", err)
	}
	if gotKind != string(kind) {
		return types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("principal %s is a %s, expected %s", id.Short(), gotKind, kind))
	}
	return nil
}

func scanUser(row *sql.Row, ref string) (*User, error) {
	var u User
	var idStr string
	var tenantID sql.NullString

	err := row.Scan(&idStr, &u.Email, &tenantID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError("user", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.ID = types.ID(idStr)
	if tenantID.Valid {
		u.TenantID = types.ID(tenantID.String)
	}
	return &u, nil
}

func nullableID(id types.ID) interface{} {
	if id.IsZero() {
		return nil
	}
	return id.String()
}

var _ Store = (*DBStore)(nil)

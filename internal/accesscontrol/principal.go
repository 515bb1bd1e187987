// Package accesscontrol implements the principal model (users, tenants,
// roles), permission grants on datasets, and request-time permission
// resolution. Effective permissions are never materialized: they are
// computed by unioning grants reachable from a user directly, through
// their tenant, and through their roles.
package accesscontrol

import (
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// PrincipalKind discriminates the polymorphic principal table.
type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalTenant PrincipalKind = "tenant"
	PrincipalRole   PrincipalKind = "role"
)

// Permission is one action a principal may hold on a dataset.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
	PermissionShare  Permission = "share"
)

// AllPermissions is the full grant set given to a dataset's creator.
func AllPermissions() []Permission {
	return []Permission{PermissionRead, PermissionWrite, PermissionDelete, PermissionShare}
}

// IsValid checks whether the permission is a known value.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionDelete, PermissionShare:
		return true
	default:
		return false
	}
}

// String returns the string representation of the permission.
func (p Permission) String() string {
	return string(p)
}

// User is a principal that authenticates and invokes operations.
// A user belongs to at most one tenant.
type User struct {
	ID        types.ID  `json:"id"`
	Email     string    `json:"email"`
	TenantID  types.ID  `json:"tenant_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tenant is a top-level principal grouping users and roles.
type Tenant struct {
	ID        types.ID  `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a named grant holder belonging to exactly one tenant.
type Role struct {
	ID        types.ID  `json:"id"`
	Name      string    `json:"name"`
	TenantID  types.ID  `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ACLEntry is one (principal, dataset, permission) grant.
type ACLEntry struct {
	ID          types.ID   `json:"id"`
	PrincipalID types.ID   `json:"principal_id"`
	DatasetID   types.ID   `json:"dataset_id"`
	Permission  Permission `json:"permission"`
}

// Validate checks the entry's fields.
func (e *ACLEntry) Validate() error {
	if err := e.PrincipalID.Validate(); err != nil {
		return fmt.Errorf("invalid principal id: %w", err)
	}
	if err := e.DatasetID.Validate(); err != nil {
		return fmt.Errorf("invalid dataset id: %w", err)
	}
	if !e.Permission.IsValid() {
		return fmt.Errorf("invalid permission: %s", e.Permission)
	}
	return nil
}

package accesscontrol

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognee-ai/cognee-go/internal/database"
	"github.com/cognee-ai/cognee-go/internal/types"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())

	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBStore_CreateUser(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	t.Run("without tenant", func(t *testing.T) {
		user, err := store.CreateUser(ctx, "alice@example.com", "")
		require.NoError(t, err)
		assert.True(t, user.TenantID.IsZero())

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("with tenant", func(t *testing.T) {
		tenant, err := store.CreateTenant(ctx, "acme")
		require.NoError(t, err)

		user, err := store.CreateUser(ctx, "bob@acme.com", tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, user.TenantID)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := store.CreateUser(ctx, "carol@nowhere.com", types.NewID())
		assert.True(t, types.IsNotFound(err))
	})
}

func TestDBStore_CreateDatasetWithGrants(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "owner@example.com", "")
	require.NoError(t, err)

	ds, err := store.CreateDatasetWithGrants(ctx, user.ID, "research")
	require.NoError(t, err)
	assert.Equal(t, user.ID, ds.OwnerID)

	grants, err := store.ListGrantsForPrincipal(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, grants, 4)

	held := map[Permission]bool{}
	for _, g := range grants {
		held[g.Permission] = true
	}
	for _, perm := range AllPermissions() {
		assert.True(t, held[perm], "missing grant %s", perm)
	}

	t.Run("unknown principal", func(t *testing.T) {
		_, err := store.CreateDatasetWithGrants(ctx, types.NewID(), "orphan")
		assert.True(t, types.IsNotFound(err))
	})
}

func TestDBStore_Grant_Idempotent(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, "owner@example.com", "")
	require.NoError(t, err)
	other, err := store.CreateUser(ctx, "other@example.com", "")
	require.NoError(t, err)

	ds, err := store.CreateDatasetWithGrants(ctx, owner.ID, "d")
	require.NoError(t, err)

	require.NoError(t, store.Grant(ctx, other.ID, ds.ID, PermissionRead))
	require.NoError(t, store.Grant(ctx, other.ID, ds.ID, PermissionRead))

	grants, err := store.ListGrantsForPrincipal(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestDBStore_Grant_NotFound(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "u@example.com", "")
	require.NoError(t, err)

	err = store.Grant(ctx, user.ID, types.NewID(), PermissionRead)
	assert.True(t, types.IsNotFound(err))

	ds, err := store.CreateDatasetWithGrants(ctx, user.ID, "d")
	require.NoError(t, err)

	err = store.Grant(ctx, types.NewID(), ds.ID, PermissionRead)
	assert.True(t, types.IsNotFound(err))
}

// Effective permissions must equal the union of direct, tenant, and role
// grants, regardless of the order the grants were made in.
func TestDBStore_PermissionUnion(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	tenant, err := store.CreateTenant(ctx, "acme")
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, "member@acme.com", tenant.ID)
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "analyst", tenant.ID)
	require.NoError(t, err)
	require.NoError(t, store.AddUserToRole(ctx, user.ID, role.ID))

	owner, err := store.CreateUser(ctx, "owner@example.com", "")
	require.NoError(t, err)

	dsDirect, err := store.CreateDatasetWithGrants(ctx, owner.ID, "direct")
	require.NoError(t, err)
	dsTenant, err := store.CreateDatasetWithGrants(ctx, owner.ID, "via-tenant")
	require.NoError(t, err)
	dsRole, err := store.CreateDatasetWithGrants(ctx, owner.ID, "via-role")
	require.NoError(t, err)

	// Grant order deliberately interleaved.
	require.NoError(t, store.Grant(ctx, role.ID, dsRole.ID, PermissionRead))
	require.NoError(t, store.Grant(ctx, user.ID, dsDirect.ID, PermissionRead))
	require.NoError(t, store.Grant(ctx, tenant.ID, dsTenant.ID, PermissionRead))

	readable, err := store.ResolveDatasets(ctx, user.ID, PermissionRead)
	require.NoError(t, err)

	ids := map[types.ID]bool{}
	for _, d := range readable {
		ids[d.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.True(t, ids[dsDirect.ID])
	assert.True(t, ids[dsTenant.ID])
	assert.True(t, ids[dsRole.ID])

	// Adding a grant only enlarges the set.
	dsMore, err := store.CreateDatasetWithGrants(ctx, owner.ID, "more")
	require.NoError(t, err)
	require.NoError(t, store.Grant(ctx, user.ID, dsMore.ID, PermissionRead))

	readable, err = store.ResolveDatasets(ctx, user.ID, PermissionRead)
	require.NoError(t, err)
	assert.Len(t, readable, 4)

	// Write permission was never granted to the member.
	writable, err := store.ResolveDatasets(ctx, user.ID, PermissionWrite)
	require.NoError(t, err)
	assert.Empty(t, writable)
}

func TestDBStore_HasPermission_ViaRole(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	tenant, err := store.CreateTenant(ctx, "acme")
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, "member@acme.com", tenant.ID)
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "writer", tenant.ID)
	require.NoError(t, err)
	require.NoError(t, store.AddUserToRole(ctx, user.ID, role.ID))

	owner, err := store.CreateUser(ctx, "owner@example.com", "")
	require.NoError(t, err)
	ds, err := store.CreateDatasetWithGrants(ctx, owner.ID, "d")
	require.NoError(t, err)

	ok, err := store.HasPermission(ctx, user.ID, ds.ID, PermissionWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Grant(ctx, role.ID, ds.ID, PermissionWrite))

	ok, err = store.HasPermission(ctx, user.ID, ds.ID, PermissionWrite)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDBStore_AddUserToRole_TenantMismatch(t *testing.T) {
	store := NewDBStore(setupTestDB(t))
	ctx := context.Background()

	tenantA, err := store.CreateTenant(ctx, "a")
	require.NoError(t, err)
	tenantB, err := store.CreateTenant(ctx, "b")
	require.NoError(t, err)

	user, err := store.CreateUser(ctx, "u@a.com", tenantA.ID)
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "r", tenantB.ID)
	require.NoError(t, err)

	err = store.AddUserToRole(ctx, user.ID, role.ID)
	assert.True(t, types.IsPermissionDenied(err))
}

package nftkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*RoleRegistry, *MemoryAuditLog) {
	t.Helper()
	audit := NewMemoryAuditLog()
	roles, err := NewRoleRegistry(as(deployer), WithAuditLogger(audit), WithLogger(discardLogger()))
	require.NoError(t, err)
	return roles, audit
}

// TestNewRoleRegistry tests registry construction
func TestNewRoleRegistry(t *testing.T) {
	roles, audit := newRegistry(t)

	assert.True(t, roles.HasRole(DefaultAdminRole, deployer))
	assert.Equal(t, []Address{deployer}, roles.Members(DefaultAdminRole))
	assert.Empty(t, roles.Members(MinterRole))

	entries, err := audit.Entries(context.Background(), NewAuditLogFilter())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, AuditActionRoleGranted, entries[0].Action)
	assert.Equal(t, deployer, entries[0].Account)
	require.NotNil(t, entries[0].Role)
	assert.Equal(t, DefaultAdminRole, *entries[0].Role)

	_, err = NewRoleRegistry(context.Background())
	assert.ErrorIs(t, err, ErrNoCaller)
}

// TestRoleAdmin tests that the default admin role administers every role
func TestRoleAdmin(t *testing.T) {
	roles, _ := newRegistry(t)

	assert.Equal(t, DefaultAdminRole, roles.RoleAdmin(MinterRole))
	assert.Equal(t, DefaultAdminRole, roles.RoleAdmin(DefaultAdminRole))
}

// TestGrantRole tests role grants
func TestGrantRole(t *testing.T) {
	t.Run("Admin grants minter", func(t *testing.T) {
		roles, audit := newRegistry(t)

		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))
		assert.True(t, roles.HasRole(MinterRole, minter))
		assert.Equal(t, 2, audit.Len())
	})

	t.Run("Granting a held role is a no-op", func(t *testing.T) {
		roles, audit := newRegistry(t)
		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))
		before := audit.Len()

		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))
		assert.True(t, roles.HasRole(MinterRole, minter))
		assert.Equal(t, before, audit.Len())
	})

	t.Run("Admin grants admin", func(t *testing.T) {
		roles, _ := newRegistry(t)

		require.NoError(t, roles.GrantRole(as(deployer), DefaultAdminRole, alice))
		require.NoError(t, roles.GrantRole(as(alice), MinterRole, bob))
		assert.True(t, roles.HasRole(MinterRole, bob))
	})

	t.Run("Minter cannot grant", func(t *testing.T) {
		roles, audit := newRegistry(t)
		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))
		before := audit.Len()

		err := roles.GrantRole(as(minter), MinterRole, mallory)
		assert.True(t, IsUnauthorized(err))
		assert.Contains(t, err.Error(), "is missing role")
		assert.False(t, roles.HasRole(MinterRole, mallory))
		assert.Equal(t, before, audit.Len())
	})

	t.Run("Outsider cannot grant admin", func(t *testing.T) {
		roles, _ := newRegistry(t)

		err := roles.GrantRole(as(mallory), DefaultAdminRole, mallory)
		assert.True(t, IsUnauthorized(err))
		assert.False(t, roles.HasRole(DefaultAdminRole, mallory))
	})

	t.Run("No caller", func(t *testing.T) {
		roles, _ := newRegistry(t)

		err := roles.GrantRole(context.Background(), MinterRole, alice)
		assert.ErrorIs(t, err, ErrNoCaller)
	})

	t.Run("Audit failure leaves roles unchanged", func(t *testing.T) {
		audit := &switchableAudit{MemoryAuditLog: NewMemoryAuditLog()}
		roles, err := NewRoleRegistry(as(deployer), WithAuditLogger(audit), WithLogger(discardLogger()))
		require.NoError(t, err)

		audit.fail = true
		err = roles.GrantRole(as(deployer), MinterRole, minter)
		assert.ErrorIs(t, err, ErrAuditFailed)
		assert.False(t, roles.HasRole(MinterRole, minter))
	})
}

// TestRevokeRole tests role revocation
func TestRevokeRole(t *testing.T) {
	t.Run("Admin revokes minter", func(t *testing.T) {
		roles, audit := newRegistry(t)
		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))

		require.NoError(t, roles.RevokeRole(as(deployer), MinterRole, minter))
		assert.False(t, roles.HasRole(MinterRole, minter))
		assert.Empty(t, roles.Members(MinterRole))

		entries, err := audit.Entries(context.Background(), NewAuditLogFilter().WithAction(AuditActionRoleRevoked))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, minter, entries[0].Account)
		assert.Equal(t, deployer, entries[0].Caller)
	})

	t.Run("Revoking an absent role is a no-op", func(t *testing.T) {
		roles, audit := newRegistry(t)
		before := audit.Len()

		require.NoError(t, roles.RevokeRole(as(deployer), MinterRole, alice))
		assert.Equal(t, before, audit.Len())
	})

	t.Run("Admin revokes own admin role", func(t *testing.T) {
		roles, _ := newRegistry(t)

		require.NoError(t, roles.RevokeRole(as(deployer), DefaultAdminRole, deployer))
		assert.False(t, roles.HasRole(DefaultAdminRole, deployer))

		err := roles.GrantRole(as(deployer), MinterRole, minter)
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("Non-admin cannot revoke", func(t *testing.T) {
		roles, _ := newRegistry(t)
		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))

		err := roles.RevokeRole(as(minter), DefaultAdminRole, deployer)
		assert.True(t, IsUnauthorized(err))
		assert.True(t, roles.HasRole(DefaultAdminRole, deployer))
	})
}

// TestRenounceRole tests dropping one's own roles
func TestRenounceRole(t *testing.T) {
	roles, _ := newRegistry(t)
	require.NoError(t, roles.GrantRole(as(deployer), MinterRole, minter))

	err := roles.RenounceRole(as(mallory), MinterRole, minter)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "can only renounce roles for self")

	require.NoError(t, roles.RenounceRole(as(minter), MinterRole, minter))
	assert.False(t, roles.HasRole(MinterRole, minter))
}

// TestCheckRole tests the context-based role check
func TestCheckRole(t *testing.T) {
	roles, _ := newRegistry(t)

	assert.NoError(t, roles.CheckRole(as(deployer), DefaultAdminRole))
	assert.True(t, IsUnauthorized(roles.CheckRole(as(alice), DefaultAdminRole)))
	assert.ErrorIs(t, roles.CheckRole(context.Background(), MinterRole), ErrNoCaller)
}

// TestMembersOrdering tests that members are sorted by address
func TestMembersOrdering(t *testing.T) {
	roles, _ := newRegistry(t)
	for _, a := range []Address{bob, alice, minter} {
		require.NoError(t, roles.GrantRole(as(deployer), MinterRole, a))
	}

	assert.Equal(t, []Address{minter, bob, alice}, roles.Members(MinterRole))
}

package nftkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWellKnownRoles tests the role identifiers
func TestWellKnownRoles(t *testing.T) {
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000000", DefaultAdminRole.Hex())
	assert.Equal(t, "0x9f2df0fed2c77648de5860a4cc508cd0818c85b8b8a1ab4ceeef8d981c8956a6", MinterRole.Hex())
}

// TestRoleByName tests role resolution by name
func TestRoleByName(t *testing.T) {
	tests := []struct {
		name string
		want Role
	}{
		{"DEFAULT_ADMIN_ROLE", DefaultAdminRole},
		{"admin", DefaultAdminRole},
		{"MINTER_ROLE", MinterRole},
		{"minter", MinterRole},
		{MinterRole.Hex(), MinterRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoleByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "owner", "0x1234", "0xzz2df0fed2c77648de5860a4cc508cd0818c85b8b8a1ab4ceeef8d981c8956a6"} {
		_, err := RoleByName(bad)
		assert.True(t, IsInvalidRole(err), "name %q", bad)
	}
}

// TestRoleName tests canonical role names
func TestRoleName(t *testing.T) {
	assert.Equal(t, "DEFAULT_ADMIN_ROLE", RoleName(DefaultAdminRole))
	assert.Equal(t, "MINTER_ROLE", RoleName(MinterRole))

	other := Role{1}
	assert.Equal(t, other.Hex(), RoleName(other))
}

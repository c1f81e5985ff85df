package nftkit

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Role names a permission group. Roles are 32-byte identifiers, usually the
// keccak256 hash of the role's name.
type Role = common.Hash

// Well-known roles.
var (
	// DefaultAdminRole administers every role, including itself.
	DefaultAdminRole = Role{}

	// MinterRole is required to mint tokens.
	MinterRole = crypto.Keccak256Hash([]byte("MINTER_ROLE"))
)

var roleNames = map[string]Role{
	"DEFAULT_ADMIN_ROLE": DefaultAdminRole,
	"admin":              DefaultAdminRole,
	"MINTER_ROLE":        MinterRole,
	"minter":             MinterRole,
}

// RoleByName resolves a role from its name.
//
// Accepts "DEFAULT_ADMIN_ROLE"/"admin", "MINTER_ROLE"/"minter", or a
// 0x-prefixed 32-byte hex identifier.
func RoleByName(name string) (Role, error) {
	if r, ok := roleNames[name]; ok {
		return r, nil
	}
	if strings.HasPrefix(name, "0x") && len(name) == 2+2*common.HashLength {
		if _, err := hexutil.Decode(name); err == nil {
			return common.HexToHash(name), nil
		}
	}
	return Role{}, NewError(ErrInvalidRole, fmt.Sprintf("unknown role %q", name))
}

// RoleName returns the canonical name of a well-known role, or its hex form.
func RoleName(role Role) string {
	switch role {
	case DefaultAdminRole:
		return "DEFAULT_ADMIN_ROLE"
	case MinterRole:
		return "MINTER_ROLE"
	default:
		return role.Hex()
	}
}

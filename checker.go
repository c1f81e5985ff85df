package nftkit

// Checker answers capability questions for a single caller.
// It is typically created by middleware and stored in context for handlers.
// Every question is answered from the registry's current state.
type Checker struct {
	caller Address
	auth   Authorizer
}

// NewChecker creates a new Checker for a caller.
func NewChecker(caller Address, auth Authorizer) *Checker {
	return &Checker{
		caller: caller,
		auth:   auth,
	}
}

// Caller returns the address this checker is for.
func (c *Checker) Caller() Address {
	return c.caller
}

// Can checks if the caller holds a role.
//
// Example:
//
//	if checker.Can(nftkit.MinterRole) {
//	    // Show the mint form
//	}
func (c *Checker) Can(role Role) bool {
	return c.auth.HasRole(role, c.caller)
}

// HasAnyRole checks if the caller holds any of the roles.
func (c *Checker) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if c.Can(role) {
			return true
		}
	}
	return false
}

// HasAllRoles checks if the caller holds every one of the roles.
func (c *Checker) HasAllRoles(roles ...Role) bool {
	for _, role := range roles {
		if !c.Can(role) {
			return false
		}
	}
	return true
}

// CanMint checks if the caller may call Mint and MintByBatch.
func (c *Checker) CanMint() bool {
	return c.Can(MinterRole)
}

// CanSetBaseURI checks if the caller may change the base URI.
func (c *Checker) CanSetBaseURI() bool {
	return c.Can(DefaultAdminRole)
}

// CanAssignRole checks if the caller may grant or revoke role.
func (c *Checker) CanAssignRole(role Role) bool {
	return c.Can(c.auth.RoleAdmin(role))
}

// GetRoles returns the well-known roles the caller currently holds.
//
// Example:
//
//	roles := checker.GetRoles()
//	// roles might be [DefaultAdminRole]
func (c *Checker) GetRoles() []Role {
	var held []Role
	for _, role := range []Role{DefaultAdminRole, MinterRole} {
		if c.Can(role) {
			held = append(held, role)
		}
	}
	return held
}

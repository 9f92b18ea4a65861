// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Roles

// Role is the role a caller asserts at the auth boundary.
type Role string

const (
	// Sees every tenant and manages the staff directory
	RoleSuperAdmin Role = "superadmin"
	// Staff member assigned to one or more tenants
	RoleAdmin Role = "admin"
	// External end-user of a tenant application, identified by phone number
	RoleUser Role = "user"
)

// # Role Hierarchy

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.level() > 0
}

// IsStaff reports whether r belongs to an internal account.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {
	switch r {
	case RoleSuperAdmin:
		return 30
	case RoleAdmin:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}

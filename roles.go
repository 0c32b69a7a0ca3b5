package membership

// Role is a member's privilege tier.
type Role string

const (
	// RoleMember is the base tier every verified account starts with.
	RoleMember Role = "member"
	// RoleAdmin can manage the member directory.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin is the seeded, immutable top tier.
	RoleSuperAdmin Role = "super_admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	roleHierarchy := map[Role]int{
		RoleMember:     0,
		RoleAdmin:      1,
		RoleSuperAdmin: 2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleMember,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

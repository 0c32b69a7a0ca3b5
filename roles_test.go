package membership_test

import (
	"testing"

	membership "github.com/civicmesh/membership"
	"github.com/stretchr/testify/assert"
)

func TestRoleIsValid(t *testing.T) {
	assert.True(t, membership.RoleMember.IsValid())
	assert.True(t, membership.RoleAdmin.IsValid())
	assert.True(t, membership.RoleSuperAdmin.IsValid())
	assert.False(t, membership.Role("owner").IsValid())
	assert.False(t, membership.Role("").IsValid())
}

func TestRoleIsAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		role     membership.Role
		min      membership.Role
		expected bool
	}{
		{"member meets member", membership.RoleMember, membership.RoleMember, true},
		{"member below admin", membership.RoleMember, membership.RoleAdmin, false},
		{"member below super admin", membership.RoleMember, membership.RoleSuperAdmin, false},
		{"admin meets member", membership.RoleAdmin, membership.RoleMember, true},
		{"admin meets admin", membership.RoleAdmin, membership.RoleAdmin, true},
		{"admin below super admin", membership.RoleAdmin, membership.RoleSuperAdmin, false},
		{"super admin meets everything", membership.RoleSuperAdmin, membership.RoleSuperAdmin, true},
		{"unknown role meets nothing", membership.Role("owner"), membership.RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.IsAtLeast(tt.min))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := membership.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, membership.RoleAdmin, role)

	_, ok = membership.ParseRole("owner")
	assert.False(t, ok)
}

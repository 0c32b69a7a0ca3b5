package membership_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	membership "github.com/civicmesh/membership"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ayo@example.com", membership.NormalizeEmail("  Ayo@Example.COM  "))
	assert.Equal(t, "", membership.NormalizeEmail("   "))
}

func TestEnsureDefaults(t *testing.T) {
	m := &membership.Member{Email: "Ayo@Example.com"}
	m.EnsureDefaults()

	assert.Equal(t, membership.RoleMember, m.Role)
	assert.Equal(t, "ayo@example.com", m.Email)
	assert.NotEmpty(t, m.MembershipNumber)

	// Existing values survive.
	m2 := &membership.Member{Role: membership.RoleAdmin, MembershipNumber: "MBR-2025-000001"}
	m2.EnsureDefaults()
	assert.Equal(t, membership.RoleAdmin, m2.Role)
	assert.Equal(t, "MBR-2025-000001", m2.MembershipNumber)
}

func TestNewVerificationToken(t *testing.T) {
	a := membership.NewVerificationToken()
	b := membership.NewVerificationToken()

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestNewMembershipNumber(t *testing.T) {
	n := membership.NewMembershipNumber()
	prefix := fmt.Sprintf("MBR-%d-", time.Now().Year())

	assert.True(t, strings.HasPrefix(n, prefix), "got %s", n)
	assert.Len(t, n, len(prefix)+6)
}

func TestPendingRegistrationExpiresAt(t *testing.T) {
	created := time.Now()
	p := &membership.PendingRegistration{CreatedAt: &created}

	assert.Equal(t, created.Add(24*time.Hour), p.ExpiresAt(24*time.Hour))
	assert.True(t, (&membership.PendingRegistration{}).ExpiresAt(time.Hour).IsZero())
}

func TestMemberFullName(t *testing.T) {
	m := &membership.Member{FirstName: "Ayo", LastName: "Dossou"}
	assert.Equal(t, "Ayo Dossou", m.FullName())

	assert.Equal(t, "Ayo", (&membership.Member{FirstName: "Ayo"}).FullName())
}

package membership_test

import (
	"context"
	"testing"

	membership "github.com/civicmesh/membership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEnsureSuperAdminCreatesWhenAbsent(t *testing.T) {
	repo := NewMockRepositoryManager()

	repo.members.On("CountByRole", mock.Anything, membership.RoleSuperAdmin).Return(0, nil)

	var created *membership.Member
	repo.members.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*membership.Member)
		}).
		Return(&membership.Member{Email: "root@example.com", Role: membership.RoleSuperAdmin}, nil)

	_, err := membership.EnsureSuperAdmin(context.Background(), repo, membership.BootstrapInput{
		Email:     "Root@Example.com",
		Password:  "super-secret-1",
		FirstName: "System",
		LastName:  "Administrator",
	}, membership.WithBootstrapLogger(testLogger{}))
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, "root@example.com", created.Email)
	assert.Equal(t, membership.RoleSuperAdmin, created.Role)
	assert.True(t, created.Verified)
	assert.True(t, created.Active)
	assert.True(t, created.ProfileCompleted)
	assert.True(t, membership.IsPasswordHash(created.PasswordHash))
}

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	repo := NewMockRepositoryManager()

	existing := memberWithRole(membership.RoleSuperAdmin)
	repo.members.On("CountByRole", mock.Anything, membership.RoleSuperAdmin).Return(1, nil)
	repo.members.On("ListByRoles", mock.Anything, []membership.Role{membership.RoleSuperAdmin}).
		Return([]*membership.Member{existing}, nil)

	got, err := membership.EnsureSuperAdmin(context.Background(), repo, membership.BootstrapInput{
		Email:    "someone-else@example.com",
		Password: "irrelevant-pass",
	}, membership.WithBootstrapLogger(testLogger{}))
	require.NoError(t, err)

	assert.Equal(t, existing, got)
	repo.members.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEnsureSuperAdminValidatesInput(t *testing.T) {
	repo := NewMockRepositoryManager()
	repo.members.On("CountByRole", mock.Anything, membership.RoleSuperAdmin).Return(0, nil)

	_, err := membership.EnsureSuperAdmin(context.Background(), repo, membership.BootstrapInput{
		Email:    "not-an-email",
		Password: "x",
	}, membership.WithBootstrapLogger(testLogger{}))
	assert.Error(t, err)

	repo.members.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

package membership_test

import (
	"context"
	"testing"
	"time"

	membership "github.com/civicmesh/membership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminPromoteFlow(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	admin := memberWithRole(membership.RoleAdmin)
	target := memberWithRole(membership.RoleMember)

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, admin.ID).Return(admin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)
	repo.members.On("UpdateTx", mock.Anything, mock.Anything, target).Return(target, nil)

	updated, err := svc.Promote(context.Background(), admin.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, membership.RoleAdmin, updated.Role)
}

// A promotion decided against a stale role read must conflict: the
// guard re-reads the target inside the same transaction as the write,
// so the second of two back-to-back promotions sees role=admin.
func TestAdminPromoteTwiceSecondConflicts(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	superAdmin := memberWithRole(membership.RoleSuperAdmin)
	target := memberWithRole(membership.RoleMember)

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, superAdmin.ID).Return(superAdmin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)
	repo.members.On("UpdateTx", mock.Anything, mock.Anything, target).Return(target, nil)

	_, err := svc.Promote(context.Background(), superAdmin.ID, target.ID)
	require.NoError(t, err)

	_, err = svc.Promote(context.Background(), superAdmin.ID, target.ID)
	assert.ErrorIs(t, err, membership.ErrConflict)

	repo.members.AssertNumberOfCalls(t, "UpdateTx", 1)
}

func TestAdminPromoteAlreadyAdminConflicts(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	admin := memberWithRole(membership.RoleAdmin)
	target := memberWithRole(membership.RoleAdmin)

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, admin.ID).Return(admin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)

	_, err := svc.Promote(context.Background(), admin.ID, target.ID)
	assert.ErrorIs(t, err, membership.ErrConflict)

	repo.members.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminDemoteRequiresSuperAdmin(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	admin := memberWithRole(membership.RoleAdmin)
	target := memberWithRole(membership.RoleAdmin)

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, admin.ID).Return(admin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)

	_, err := svc.Demote(context.Background(), admin.ID, target.ID)
	assert.ErrorIs(t, err, membership.ErrForbidden)
}

func TestAdminMemberRoleCannotUseDirectory(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	regular := memberWithRole(membership.RoleMember)
	repo.members.On("GetByID", mock.Anything, regular.ID).Return(regular, nil)

	_, err := svc.ListMembers(context.Background(), regular.ID)
	assert.ErrorIs(t, err, membership.ErrForbidden)

	_, err = svc.DashboardStats(context.Background(), regular.ID)
	assert.ErrorIs(t, err, membership.ErrForbidden)

	repo.members.AssertNotCalled(t, "List", mock.Anything)
}

func TestAdminUpdateMemberRefreshesCompleteness(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	admin := memberWithRole(membership.RoleAdmin)
	target := fullyProfiledMember()
	target.ID = memberWithRole(membership.RoleMember).ID
	target.Role = membership.RoleMember
	target.Active = true
	target.ProfileCompleted = true

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, admin.ID).Return(admin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)
	repo.members.On("UpdateTx", mock.Anything, mock.Anything, target).Return(target, nil)

	empty := ""
	updated, err := svc.UpdateMember(context.Background(), admin.ID, target.ID, membership.MemberUpdate{
		Section: &empty,
	})
	require.NoError(t, err)

	assert.False(t, updated.ProfileCompleted)
	assert.NotNil(t, updated.LastAdminUpdateAt)
}

func TestAdminSetActiveToggle(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	admin := memberWithRole(membership.RoleAdmin)
	target := memberWithRole(membership.RoleMember)

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, admin.ID).Return(admin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)
	repo.members.On("UpdateTx", mock.Anything, mock.Anything, target).Return(target, nil)

	updated, err := svc.SetActive(context.Background(), admin.ID, target.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	updated, err = svc.SetActive(context.Background(), admin.ID, target.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Active)
}

func TestAdminDeleteMember(t *testing.T) {
	repo := NewMockRepositoryManager()
	sink := new(MockActivitySink)
	sink.On("Record", mock.Anything, mock.Anything).Return(nil)

	svc := membership.NewAdminService(repo,
		membership.WithAdminLogger(testLogger{}),
		membership.WithAdminActivitySink(sink),
	)

	superAdmin := memberWithRole(membership.RoleSuperAdmin)
	target := memberWithRole(membership.RoleMember)

	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, superAdmin.ID).Return(superAdmin, nil)
	repo.members.On("GetByIDTx", mock.Anything, mock.Anything, target.ID).Return(target, nil)
	repo.members.On("DeleteTx", mock.Anything, mock.Anything, target.ID).Return(nil)

	err := svc.Delete(context.Background(), superAdmin.ID, target.ID)
	require.NoError(t, err)

	repo.members.AssertCalled(t, "DeleteTx", mock.Anything, mock.Anything, target.ID)
	sink.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e membership.ActivityEvent) bool {
		return e.EventType == membership.ActivityEventDeletion
	}))
}

func TestDashboardStats(t *testing.T) {
	repo := NewMockRepositoryManager()
	now := time.Now()
	svc := membership.NewAdminService(repo,
		membership.WithAdminLogger(testLogger{}),
		membership.WithAdminClock(func() time.Time { return now }),
	)

	admin := memberWithRole(membership.RoleAdmin)
	repo.members.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)
	repo.members.On("CountAll", mock.Anything).Return(120, nil)
	repo.members.On("CountActive", mock.Anything).Return(100, nil)
	repo.members.On("CountByRole", mock.Anything, membership.RoleAdmin).Return(4, nil)
	repo.members.On("CountCreatedSince", mock.Anything, now.AddDate(0, 0, -30)).Return(12, nil)

	stats, err := svc.DashboardStats(context.Background(), admin.ID)
	require.NoError(t, err)

	assert.Equal(t, 120, stats.TotalMembers)
	assert.Equal(t, 100, stats.ActiveMembers)
	assert.Equal(t, 4, stats.Admins)
	assert.Equal(t, 12, stats.NewLast30Days)
}

func TestSystemStatsRequiresSuperAdmin(t *testing.T) {
	repo := NewMockRepositoryManager()
	svc := membership.NewAdminService(repo, membership.WithAdminLogger(testLogger{}))

	admin := memberWithRole(membership.RoleAdmin)
	repo.members.On("GetByID", mock.Anything, admin.ID).Return(admin, nil)

	_, err := svc.SystemStats(context.Background(), admin.ID)
	assert.ErrorIs(t, err, membership.ErrForbidden)
}

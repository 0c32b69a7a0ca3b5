package membership_test

import (
	"sync"
	"testing"

	membership "github.com/civicmesh/membership"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Decorated errors must not touch the package-level sentinels: the
// sentinels are shared across every request in the process, so metadata
// attached for one caller would otherwise show up in another caller's
// response.
func TestDecoratedErrorsLeaveSentinelsUntouched(t *testing.T) {
	guard := membership.NewGuard(new(MockMembers), testLogger{})

	super := memberWithRole(membership.RoleSuperAdmin)
	first := memberWithRole(membership.RoleAdmin)
	second := memberWithRole(membership.RoleAdmin)

	errFirst := guard.AuthorizeMutation(super, first, membership.OpPromote)
	errSecond := guard.AuthorizeMutation(super, second, membership.OpPromote)

	require.ErrorIs(t, errFirst, membership.ErrConflict)
	require.ErrorIs(t, errSecond, membership.ErrConflict)

	var richFirst, richSecond *goerrors.Error
	require.True(t, goerrors.As(errFirst, &richFirst))
	require.True(t, goerrors.As(errSecond, &richSecond))

	assert.NotSame(t, richFirst, richSecond)
	assert.Equal(t, first.ID.String(), richFirst.Metadata["member_id"])
	assert.Equal(t, second.ID.String(), richSecond.Metadata["member_id"])

	assert.Empty(t, membership.ErrConflict.Metadata)
	assert.Empty(t, membership.ErrForbidden.Metadata)
}

func TestRequireRoleConcurrentCallers(t *testing.T) {
	guard := membership.NewGuard(new(MockMembers), testLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := guard.RequireRole(memberWithRole(membership.RoleMember), membership.RoleAdmin)
			assert.ErrorIs(t, err, membership.ErrForbidden)
		}()
	}
	wg.Wait()

	assert.Empty(t, membership.ErrForbidden.Metadata)
}

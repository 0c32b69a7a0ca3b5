package membership

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AdminOp identifies a privileged mutation on a target member.
type AdminOp string

const (
	OpUpdate     AdminOp = "update"
	OpPromote    AdminOp = "promote"
	OpDemote     AdminOp = "demote"
	OpDeactivate AdminOp = "deactivate"
	OpReactivate AdminOp = "reactivate"
	OpDelete     AdminOp = "delete"
)

// destructiveOps strip something from the target rather than adding.
func (op AdminOp) destructive() bool {
	switch op {
	case OpDemote, OpDeactivate, OpDelete:
		return true
	}
	return false
}

// Guard centralizes the role threshold checks and protection rules
// that every privileged operation must pass. The caller's role is
// always re-read from the store, never trusted from a token.
type Guard struct {
	members Members
	logger  Logger
}

// NewGuard builds a guard over the member store.
func NewGuard(members Members, logger Logger) *Guard {
	if logger == nil {
		logger = defLogger{}
	}
	return &Guard{members: members, logger: logger}
}

// ResolveCaller loads the acting member by ID. A missing or
// deactivated account cannot act.
func (g *Guard) ResolveCaller(ctx context.Context, callerID uuid.UUID) (*Member, error) {
	return g.resolve(g.members.GetByID(ctx, callerID))
}

// ResolveCallerTx is ResolveCaller inside an open transaction, so the
// role the guard checks is the same row the mutation will update.
func (g *Guard) ResolveCallerTx(ctx context.Context, tx bun.IDB, callerID uuid.UUID) (*Member, error) {
	return g.resolve(g.members.GetByIDTx(ctx, tx, callerID))
}

func (g *Guard) resolve(caller *Member, err error) (*Member, error) {
	if err != nil {
		if goerrors.Is(err, ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if !caller.Active {
		return nil, ErrAccountDisabled
	}
	return caller, nil
}

// RequireRole enforces a minimum role threshold.
func (g *Guard) RequireRole(caller *Member, min Role) error {
	if caller == nil || !caller.Role.IsAtLeast(min) {
		return errWithMetadata(ErrForbidden, map[string]any{
			"required_role": string(min),
		})
	}
	return nil
}

// AuthorizeMutation decides whether caller may perform op on target.
// Protection rules are checked before threshold rules so a forbidden
// target never leaks as a role problem:
//   - a super admin target is untouchable by anyone else, and even the
//     super admin cannot demote, deactivate, or delete itself
//   - nobody deletes their own account
//   - an admin cannot deactivate or delete a peer admin, though
//     toggling their own status stays allowed
func (g *Guard) AuthorizeMutation(caller, target *Member, op AdminOp) error {
	if caller == nil || target == nil {
		return ErrForbidden
	}

	self := caller.ID == target.ID

	if target.Role == RoleSuperAdmin {
		if !self || op.destructive() {
			return errWithMetadata(ErrForbidden, map[string]any{"operation": string(op)})
		}
	}

	if op == OpDelete && self {
		return errWithMetadata(ErrForbidden, map[string]any{"operation": "self_delete"})
	}

	switch op {
	case OpPromote:
		if err := g.RequireRole(caller, RoleAdmin); err != nil {
			return err
		}
		if target.Role.IsAtLeast(RoleAdmin) {
			return errWithMetadata(ErrConflict, map[string]any{
				"member_id": target.ID.String(),
				"role":      string(target.Role),
			})
		}

	case OpDemote:
		if err := g.RequireRole(caller, RoleSuperAdmin); err != nil {
			return err
		}
		if target.Role != RoleAdmin {
			return errWithMetadata(ErrConflict, map[string]any{
				"member_id": target.ID.String(),
				"role":      string(target.Role),
			})
		}

	case OpDeactivate, OpReactivate, OpDelete:
		if err := g.RequireRole(caller, RoleAdmin); err != nil {
			return err
		}
		if target.Role == RoleAdmin && !self && caller.Role != RoleSuperAdmin {
			return errWithMetadata(ErrForbidden, map[string]any{"operation": string(op)})
		}

	case OpUpdate:
		if err := g.RequireRole(caller, RoleAdmin); err != nil {
			return err
		}

	default:
		g.logger.Warn("unknown admin operation %q rejected", op)
		return ErrForbidden
	}

	return nil
}

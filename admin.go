package membership

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MemberUpdate carries the fields an administrator may edit. Nil
// pointers leave the stored value untouched. Identity fields (email,
// password, role, membership number) are not part of this surface.
type MemberUpdate struct {
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Age              *int    `json:"age"`
	PhoneCode        *string `json:"phone_code"`
	Phone            *string `json:"phone_number"`
	Country          *string `json:"country"`
	Department       *string `json:"department"`
	Commune          *string `json:"commune"`
	Occupation       *string `json:"occupation"`
	Availability     *string `json:"availability"`
	Motivation       *string `json:"motivation"`
	City             *string `json:"city"`
	MobilizationCity *string `json:"mobilization_city"`
	Section          *string `json:"section"`
	Interests        *string `json:"interests"`
}

func (u MemberUpdate) applyTo(m *Member) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setStr(&m.FirstName, u.FirstName)
	setStr(&m.LastName, u.LastName)
	setStr(&m.PhoneCode, u.PhoneCode)
	setStr(&m.Phone, u.Phone)
	setStr(&m.Country, u.Country)
	setStr(&m.Department, u.Department)
	setStr(&m.Commune, u.Commune)
	setStr(&m.Occupation, u.Occupation)
	setStr(&m.Availability, u.Availability)
	setStr(&m.Motivation, u.Motivation)
	setStr(&m.City, u.City)
	setStr(&m.MobilizationCity, u.MobilizationCity)
	setStr(&m.Section, u.Section)
	setStr(&m.Interests, u.Interests)
	if u.Age != nil {
		m.Age = *u.Age
	}
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalMembers  int `json:"total_members"`
	ActiveMembers int `json:"active_members"`
	Admins        int `json:"admins"`
	NewLast30Days int `json:"new_last_30_days"`
}

// SystemStats is the wider super admin view.
type SystemStats struct {
	TotalMembers    int `json:"total_members"`
	ActiveMembers   int `json:"active_members"`
	InactiveMembers int `json:"inactive_members"`
	Admins          int `json:"admins"`
	SuperAdmins     int `json:"super_admins"`
	NewLast7Days    int `json:"new_last_7_days"`
	NewLast30Days   int `json:"new_last_30_days"`
}

// AdminService exposes the privileged member directory. Every call
// resolves the acting member from the store and passes the guard
// before touching the target.
type AdminService struct {
	repo    RepositoryManager
	guard   *Guard
	logger  Logger
	sink    ActivitySink
	metrics *Metrics
	now     func() time.Time
}

// AdminOption customizes admin service construction.
type AdminOption func(*AdminService)

// WithAdminLogger overrides the default logger.
func WithAdminLogger(logger Logger) AdminOption {
	return func(a *AdminService) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAdminActivitySink sets the sink privileged mutations publish to.
func WithAdminActivitySink(sink ActivitySink) AdminOption {
	return func(a *AdminService) {
		a.sink = normalizeActivitySink(sink)
	}
}

// WithAdminMetrics attaches optional instrumentation.
func WithAdminMetrics(m *Metrics) AdminOption {
	return func(a *AdminService) {
		a.metrics = m
	}
}

// WithAdminClock injects a custom clock.
func WithAdminClock(clock func() time.Time) AdminOption {
	return func(a *AdminService) {
		if clock != nil {
			a.now = clock
		}
	}
}

// NewAdminService wires the directory over the repository manager.
func NewAdminService(repo RepositoryManager, opts ...AdminOption) *AdminService {
	a := &AdminService{
		repo:   repo,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}
	a.guard = NewGuard(repo.Members(), a.logger)

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Guard exposes the underlying authorization guard, mostly so HTTP
// middleware can resolve callers with the same rules.
func (a *AdminService) Guard() *Guard {
	return a.guard
}

// ListMembers returns the full directory. Admin threshold.
func (a *AdminService) ListMembers(ctx context.Context, callerID uuid.UUID) ([]*Member, error) {
	if _, err := a.requireCaller(ctx, callerID, RoleAdmin); err != nil {
		return nil, err
	}
	return a.repo.Members().List(ctx)
}

// GetMember fetches a single record. Admin threshold.
func (a *AdminService) GetMember(ctx context.Context, callerID, targetID uuid.UUID) (*Member, error) {
	if _, err := a.requireCaller(ctx, callerID, RoleAdmin); err != nil {
		return nil, err
	}
	return a.repo.Members().GetByID(ctx, targetID)
}

// Search matches names, emails, and membership numbers. Admin
// threshold.
func (a *AdminService) Search(ctx context.Context, callerID uuid.UUID, query string, limit int) ([]*Member, error) {
	if _, err := a.requireCaller(ctx, callerID, RoleAdmin); err != nil {
		return nil, err
	}
	return a.repo.Members().Search(ctx, query, limit)
}

// ListAdmins returns admins and super admins. Super admin threshold.
func (a *AdminService) ListAdmins(ctx context.Context, callerID uuid.UUID) ([]*Member, error) {
	if _, err := a.requireCaller(ctx, callerID, RoleSuperAdmin); err != nil {
		return nil, err
	}
	return a.repo.Members().ListByRoles(ctx, RoleAdmin, RoleSuperAdmin)
}

// UpdateMember applies an edit to the target profile and refreshes
// its completeness flag. The guard check and the write share one
// transaction so a concurrent role change cannot slip between them.
func (a *AdminService) UpdateMember(ctx context.Context, callerID, targetID uuid.UUID, update MemberUpdate) (*Member, error) {
	var caller, updated *Member

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var target *Member
		var err error
		caller, target, err = a.resolvePairTx(ctx, tx, callerID, targetID, OpUpdate)
		if err != nil {
			a.metrics.IncAdminMutation(string(OpUpdate), "denied")
			return err
		}

		update.applyTo(target)
		RefreshCompleteness(target)
		ts := a.now()
		target.LastAdminUpdateAt = &ts

		updated, err = a.repo.Members().UpdateTx(ctx, tx, target)
		if err != nil {
			a.metrics.IncAdminMutation(string(OpUpdate), "failure")
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist member update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.recordMutation(ctx, caller, updated, OpUpdate, ActivityEventStatusChanged, nil)
	return updated, nil
}

// Promote raises a regular member to admin.
func (a *AdminService) Promote(ctx context.Context, callerID, targetID uuid.UUID) (*Member, error) {
	return a.changeRole(ctx, callerID, targetID, OpPromote, RoleAdmin, ActivityEventPromotion)
}

// Demote lowers an admin back to member. Super admin only.
func (a *AdminService) Demote(ctx context.Context, callerID, targetID uuid.UUID) (*Member, error) {
	return a.changeRole(ctx, callerID, targetID, OpDemote, RoleMember, ActivityEventDemotion)
}

func (a *AdminService) changeRole(ctx context.Context, callerID, targetID uuid.UUID, op AdminOp, next Role, event ActivityEventType) (*Member, error) {
	var caller, updated *Member
	var prior Role

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var target *Member
		var err error
		caller, target, err = a.resolvePairTx(ctx, tx, callerID, targetID, op)
		if err != nil {
			a.metrics.IncAdminMutation(string(op), "denied")
			return err
		}

		prior = target.Role
		target.Role = next

		updated, err = a.repo.Members().UpdateTx(ctx, tx, target)
		if err != nil {
			a.metrics.IncAdminMutation(string(op), "failure")
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist role change")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.recordMutation(ctx, caller, updated, op, event, map[string]any{
		"from_role": string(prior),
		"to_role":   string(next),
	})
	return updated, nil
}

// SetActive toggles the target's active flag. An admin may toggle
// themselves but not a peer admin.
func (a *AdminService) SetActive(ctx context.Context, callerID, targetID uuid.UUID, active bool) (*Member, error) {
	op := OpDeactivate
	if active {
		op = OpReactivate
	}

	var caller, updated *Member

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var target *Member
		var err error
		caller, target, err = a.resolvePairTx(ctx, tx, callerID, targetID, op)
		if err != nil {
			a.metrics.IncAdminMutation(string(op), "denied")
			return err
		}

		target.Active = active
		updated, err = a.repo.Members().UpdateTx(ctx, tx, target)
		if err != nil {
			a.metrics.IncAdminMutation(string(op), "failure")
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist status change")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.recordMutation(ctx, caller, updated, op, ActivityEventStatusChanged, map[string]any{
		"active": active,
	})
	return updated, nil
}

// Delete removes the target permanently.
func (a *AdminService) Delete(ctx context.Context, callerID, targetID uuid.UUID) error {
	var caller, target *Member

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		caller, target, err = a.resolvePairTx(ctx, tx, callerID, targetID, OpDelete)
		if err != nil {
			a.metrics.IncAdminMutation(string(OpDelete), "denied")
			return err
		}

		if err := a.repo.Members().DeleteTx(ctx, tx, target.ID); err != nil {
			a.metrics.IncAdminMutation(string(OpDelete), "failure")
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete member")
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.recordMutation(ctx, caller, target, OpDelete, ActivityEventDeletion, map[string]any{
		"email": target.Email,
	})
	return nil
}

// DashboardStats aggregates the admin overview counters.
func (a *AdminService) DashboardStats(ctx context.Context, callerID uuid.UUID) (*DashboardStats, error) {
	if _, err := a.requireCaller(ctx, callerID, RoleAdmin); err != nil {
		return nil, err
	}

	members := a.repo.Members()
	total, err := members.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	active, err := members.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	admins, err := members.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return nil, err
	}
	recent, err := members.CountCreatedSince(ctx, a.now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalMembers:  total,
		ActiveMembers: active,
		Admins:        admins,
		NewLast30Days: recent,
	}, nil
}

// SystemStats aggregates the super admin view.
func (a *AdminService) SystemStats(ctx context.Context, callerID uuid.UUID) (*SystemStats, error) {
	if _, err := a.requireCaller(ctx, callerID, RoleSuperAdmin); err != nil {
		return nil, err
	}

	members := a.repo.Members()
	total, err := members.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	active, err := members.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	admins, err := members.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return nil, err
	}
	supers, err := members.CountByRole(ctx, RoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	week, err := members.CountCreatedSince(ctx, a.now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	month, err := members.CountCreatedSince(ctx, a.now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	return &SystemStats{
		TotalMembers:    total,
		ActiveMembers:   active,
		InactiveMembers: total - active,
		Admins:          admins,
		SuperAdmins:     supers,
		NewLast7Days:    week,
		NewLast30Days:   month,
	}, nil
}

func (a *AdminService) requireCaller(ctx context.Context, callerID uuid.UUID, min Role) (*Member, error) {
	caller, err := a.guard.ResolveCaller(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := a.guard.RequireRole(caller, min); err != nil {
		return nil, err
	}
	return caller, nil
}

func (a *AdminService) resolvePairTx(ctx context.Context, tx bun.Tx, callerID, targetID uuid.UUID, op AdminOp) (*Member, *Member, error) {
	caller, err := a.guard.ResolveCallerTx(ctx, tx, callerID)
	if err != nil {
		return nil, nil, err
	}

	target, err := a.repo.Members().GetByIDTx(ctx, tx, targetID)
	if err != nil {
		return nil, nil, err
	}

	if err := a.guard.AuthorizeMutation(caller, target, op); err != nil {
		return nil, nil, err
	}

	return caller, target, nil
}

func (a *AdminService) recordMutation(ctx context.Context, caller, target *Member, op AdminOp, event ActivityEventType, meta map[string]any) {
	a.metrics.IncAdminMutation(string(op), "success")

	if meta == nil {
		meta = map[string]any{}
	}
	meta["operation"] = string(op)

	if err := a.sink.Record(ctx, ActivityEvent{
		EventType:  event,
		Actor:      ActorRef{ID: caller.ID.String(), Type: string(caller.Role)},
		MemberID:   target.ID.String(),
		Metadata:   meta,
		OccurredAt: a.now(),
	}); err != nil {
		a.logger.Warn("activity sink record error: %v", err)
	}
}

package membership_test

import (
	"context"
	"database/sql"
	"time"

	membership "github.com/civicmesh/membership"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockMembers implements membership.Members
type MockMembers struct {
	mock.Mock
}

func memberResult(args mock.Arguments) (*membership.Member, error) {
	var m *membership.Member
	if v := args.Get(0); v != nil {
		m = v.(*membership.Member)
	}
	return m, args.Error(1)
}

func (m *MockMembers) GetByID(ctx context.Context, id uuid.UUID) (*membership.Member, error) {
	return memberResult(m.Called(ctx, id))
}

func (m *MockMembers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*membership.Member, error) {
	return memberResult(m.Called(ctx, tx, id))
}

func (m *MockMembers) GetByEmail(ctx context.Context, email string) (*membership.Member, error) {
	return memberResult(m.Called(ctx, email))
}

func (m *MockMembers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*membership.Member, error) {
	return memberResult(m.Called(ctx, tx, email))
}

func (m *MockMembers) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*membership.Member, error) {
	return memberResult(m.Called(ctx, tx, token))
}

func (m *MockMembers) GetByExternalID(ctx context.Context, externalID string) (*membership.Member, error) {
	return memberResult(m.Called(ctx, externalID))
}

func (m *MockMembers) Create(ctx context.Context, record *membership.Member) (*membership.Member, error) {
	return memberResult(m.Called(ctx, record))
}

func (m *MockMembers) CreateTx(ctx context.Context, tx bun.IDB, record *membership.Member) (*membership.Member, error) {
	return memberResult(m.Called(ctx, tx, record))
}

func (m *MockMembers) Update(ctx context.Context, record *membership.Member) (*membership.Member, error) {
	return memberResult(m.Called(ctx, record))
}

func (m *MockMembers) UpdateTx(ctx context.Context, tx bun.IDB, record *membership.Member) (*membership.Member, error) {
	return memberResult(m.Called(ctx, tx, record))
}

func (m *MockMembers) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMembers) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return m.Called(ctx, tx, id).Error(0)
}

func (m *MockMembers) TrackSuccessfulLogin(ctx context.Context, member *membership.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *MockMembers) List(ctx context.Context) ([]*membership.Member, error) {
	args := m.Called(ctx)
	var members []*membership.Member
	if v := args.Get(0); v != nil {
		members = v.([]*membership.Member)
	}
	return members, args.Error(1)
}

func (m *MockMembers) ListByRoles(ctx context.Context, roles ...membership.Role) ([]*membership.Member, error) {
	args := m.Called(ctx, roles)
	var members []*membership.Member
	if v := args.Get(0); v != nil {
		members = v.([]*membership.Member)
	}
	return members, args.Error(1)
}

func (m *MockMembers) Search(ctx context.Context, query string, limit int) ([]*membership.Member, error) {
	args := m.Called(ctx, query, limit)
	var members []*membership.Member
	if v := args.Get(0); v != nil {
		members = v.([]*membership.Member)
	}
	return members, args.Error(1)
}

func (m *MockMembers) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockMembers) CountByRole(ctx context.Context, role membership.Role) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

func (m *MockMembers) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockMembers) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

// MockPendingRegistrations implements membership.PendingRegistrations
type MockPendingRegistrations struct {
	mock.Mock
}

func pendingResult(args mock.Arguments) (*membership.PendingRegistration, error) {
	var p *membership.PendingRegistration
	if v := args.Get(0); v != nil {
		p = v.(*membership.PendingRegistration)
	}
	return p, args.Error(1)
}

func (m *MockPendingRegistrations) UpsertByEmail(ctx context.Context, record *membership.PendingRegistration) (*membership.PendingRegistration, error) {
	return pendingResult(m.Called(ctx, record))
}

func (m *MockPendingRegistrations) UpsertByEmailTx(ctx context.Context, tx bun.IDB, record *membership.PendingRegistration) (*membership.PendingRegistration, error) {
	return pendingResult(m.Called(ctx, tx, record))
}

func (m *MockPendingRegistrations) GetByToken(ctx context.Context, token string) (*membership.PendingRegistration, error) {
	return pendingResult(m.Called(ctx, token))
}

func (m *MockPendingRegistrations) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*membership.PendingRegistration, error) {
	return pendingResult(m.Called(ctx, tx, token))
}

func (m *MockPendingRegistrations) GetByEmail(ctx context.Context, email string) (*membership.PendingRegistration, error) {
	return pendingResult(m.Called(ctx, email))
}

func (m *MockPendingRegistrations) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return m.Called(ctx, tx, id).Error(0)
}

func (m *MockPendingRegistrations) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockRepositoryManager implements membership.RepositoryManager.
// RunInTx executes the callback directly with a zero transaction; the
// per-store mocks decide what the queries inside it return.
type MockRepositoryManager struct {
	mock.Mock
	members *MockMembers
	pending *MockPendingRegistrations
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		members: new(MockMembers),
		pending: new(MockPendingRegistrations),
	}
}

func (m *MockRepositoryManager) Members() membership.Members {
	return m.members
}

func (m *MockRepositoryManager) PendingRegistrations() membership.PendingRegistrations {
	return m.pending
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

// MockMailer implements membership.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) IsEnabled() bool {
	return m.Called().Bool(0)
}

func (m *MockMailer) Send(to, subject, htmlBody string) error {
	return m.Called(to, subject, htmlBody).Error(0)
}

// MockActivitySink implements membership.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event membership.ActivityEvent) error {
	return m.Called(ctx, event).Error(0)
}

// testLogger discards all output
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

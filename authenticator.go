package membership

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const minPasswordLength = 8

// Authenticator handles credential verification and session issuance.
// Both halves of a failed login (unknown email, wrong password)
// resolve to the same InvalidCredentials outcome so responses carry
// no account existence signal.
type Authenticator struct {
	repo    RepositoryManager
	tokens  TokenService
	logger  Logger
	sink    ActivitySink
	metrics *Metrics
	now     func() time.Time
}

// AuthenticatorOption customizes construction.
type AuthenticatorOption func(*Authenticator)

// WithAuthLogger overrides the default logger.
func WithAuthLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthActivitySink sets the sink login events publish to.
func WithAuthActivitySink(sink ActivitySink) AuthenticatorOption {
	return func(a *Authenticator) {
		a.sink = normalizeActivitySink(sink)
	}
}

// WithAuthMetrics attaches optional instrumentation.
func WithAuthMetrics(m *Metrics) AuthenticatorOption {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// WithAuthClock injects a custom clock.
func WithAuthClock(clock func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// NewAuthenticator wires credential checks over the member store and
// the token service.
func NewAuthenticator(repo RepositoryManager, tokens TokenService, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Login verifies the credentials and returns a signed session token
// with the authenticated member. Deactivated accounts are reported as
// disabled; every other failure is InvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *Member, error) {
	email = NormalizeEmail(email)

	member, err := a.repo.Members().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.Is(err, ErrNotFound) {
			a.failLogin(ctx, email, "unknown_email")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load member for login")
	}

	if !member.Active {
		a.failLogin(ctx, email, "account_disabled")
		return "", nil, ErrAccountDisabled
	}

	if !member.Verified {
		a.failLogin(ctx, email, "unverified")
		return "", nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, member.PasswordHash); err != nil {
		a.failLogin(ctx, email, "bad_password")
		return "", nil, ErrInvalidCredentials
	}

	if err := a.repo.Members().TrackSuccessfulLogin(ctx, member); err != nil {
		a.logger.Warn("failed to track login for %s: %v", member.ID, err)
	}

	token, err := a.tokens.Generate(member.ID)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session token")
	}

	a.metrics.IncLogin("success")
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{ID: member.ID.String(), Type: string(member.Role)},
		MemberID:  member.ID.String(),
	})

	return token, member, nil
}

func (a *Authenticator) failLogin(ctx context.Context, email, reason string) {
	a.metrics.IncLogin("failure")
	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Actor:     ActorRef{Type: "anonymous"},
		Metadata:  map[string]any{"email": email, "reason": reason},
	})
}

// ChangePassword swaps the credential after re-verifying the current
// one. Sessions issued before the change stay valid until expiry.
func (a *Authenticator) ChangePassword(ctx context.Context, memberID uuid.UUID, current, next string) error {
	member, err := a.repo.Members().GetByID(ctx, memberID)
	if err != nil {
		return err
	}

	if err := ComparePasswordAndHash(current, member.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	if len(next) < minPasswordLength {
		return errWithMetadata(ErrValidationFailed, map[string]any{
			"field":      "password",
			"min_length": minPasswordLength,
		})
	}

	hash, err := HashPassword(next)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	member.PasswordHash = hash
	if _, err := a.repo.Members().Update(ctx, member); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password change")
	}

	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor:     ActorRef{ID: member.ID.String(), Type: string(member.Role)},
		MemberID:  member.ID.String(),
	})

	return nil
}

// SessionFromToken validates the raw bearer token and returns its
// claims.
func (a *Authenticator) SessionFromToken(raw string) (*SessionClaims, error) {
	return a.tokens.Validate(raw)
}

// MemberFromToken resolves the bearer token all the way to the stored
// member, so role and status decisions always reflect the store
// rather than the token payload.
func (a *Authenticator) MemberFromToken(ctx context.Context, raw string) (*Member, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.MemberID())
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	member, err := a.repo.Members().GetByID(ctx, id)
	if err != nil {
		if goerrors.Is(err, ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if !member.Active {
		return nil, ErrAccountDisabled
	}

	return member, nil
}

func (a *Authenticator) emit(ctx context.Context, event ActivityEvent) {
	sink := normalizeActivitySink(a.sink)
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.now()
	}
	if err := sink.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink record error: %v", err)
	}
}

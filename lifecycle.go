package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// RegisterInput carries the core fields collected at registration.
type RegisterInput struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Age              int    `json:"age"`
	PhoneCode        string `json:"phone_code"`
	Phone            string `json:"phone_number"`
	Country          string `json:"country"`
	Department       string `json:"department"`
	Commune          string `json:"commune"`
	Occupation       string `json:"occupation"`
	Availability     string `json:"availability"`
	Motivation       string `json:"motivation"`
	ValuesCommitment bool   `json:"values_commitment"`
	DataConsent      bool   `json:"data_consent"`
	Password         string `json:"password"`
}

// Validate checks the core field set. Consent booleans must be
// explicitly true; validation.Required rejects the false zero value.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Age, validation.Required, validation.Min(16), validation.Max(100)),
		validation.Field(&r.Phone, validation.Required, validation.By(ValidatePhoneNumber(r.PhoneCode))),
		validation.Field(&r.Country, validation.Required),
		validation.Field(&r.Commune, validation.Required),
		validation.Field(&r.Occupation, validation.Required),
		validation.Field(&r.Availability, validation.Required),
		validation.Field(&r.Motivation, validation.Required, validation.Length(20, 2000)),
		validation.Field(&r.ValuesCommitment, validation.Required),
		validation.Field(&r.DataConsent, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// ValidatePhoneNumber checks the number parses and is plausible for the
// given dialing code.
func ValidatePhoneNumber(code string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		raw := s
		if code != "" && !strings.HasPrefix(s, "+") {
			raw = code + s
		}
		num, err := phonenumbers.Parse(raw, "")
		if err != nil {
			return fmt.Errorf("invalid phone number")
		}
		if !phonenumbers.IsValidNumber(num) {
			return fmt.Errorf("invalid phone number")
		}
		return nil
	}
}

// ExtendedProfile carries the fields fillable after first login.
// Empty values leave the stored field untouched.
type ExtendedProfile struct {
	City             string `json:"city"`
	MobilizationCity string `json:"mobilization_city"`
	Section          string `json:"section"`
	Interests        string `json:"interests"`
}

// ExternalIdentity is what the external identity provider confirms.
type ExternalIdentity struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (e ExternalIdentity) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ExternalID, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// Lifecycle drives the member state machine: pending registration,
// verification, and progressive profile completion.
type Lifecycle struct {
	repo       RepositoryManager
	mailer     Mailer
	logger     Logger
	sink       ActivitySink
	metrics    *Metrics
	now        func() time.Time
	pendingTTL time.Duration
	clientURL  string
}

// LifecycleOption customizes lifecycle construction.
type LifecycleOption func(*Lifecycle)

// WithLifecycleMailer sets the mailer used for verification links.
func WithLifecycleMailer(m Mailer) LifecycleOption {
	return func(l *Lifecycle) {
		if m != nil {
			l.mailer = m
		}
	}
}

// WithLifecycleLogger overrides the default logger.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLifecycleActivitySink sets the sink lifecycle events publish to.
func WithLifecycleActivitySink(sink ActivitySink) LifecycleOption {
	return func(l *Lifecycle) {
		l.sink = normalizeActivitySink(sink)
	}
}

// WithLifecycleMetrics attaches optional instrumentation.
func WithLifecycleMetrics(m *Metrics) LifecycleOption {
	return func(l *Lifecycle) {
		l.metrics = m
	}
}

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithPendingTTL overrides the 24h verification window.
func WithPendingTTL(ttl time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if ttl > 0 {
			l.pendingTTL = ttl
		}
	}
}

// WithClientURL sets the base URL verification links point at.
func WithClientURL(u string) LifecycleOption {
	return func(l *Lifecycle) {
		if u != "" {
			l.clientURL = strings.TrimRight(u, "/")
		}
	}
}

// NewLifecycle returns the default implementation backed by the
// provided repositories.
func NewLifecycle(repo RepositoryManager, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		repo:       repo,
		mailer:     NoopMailer{},
		logger:     defLogger{},
		sink:       noopActivitySink{},
		now:        time.Now,
		pendingTTL: PendingTTL,
		clientURL:  "http://localhost:5173",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// Register validates the submission and stores a pending registration
// with a fresh verification token. Resubmitting an email that is still
// pending replaces the prior row; an email already held by a member is
// a conflict. The verification email is fire-and-forget.
func (l *Lifecycle) Register(ctx context.Context, input RegisterInput) error {
	if err := input.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithTextCode(TextCodeValidationFailed).
			WithCode(goerrors.CodeBadRequest)
	}

	email := NormalizeEmail(input.Email)

	if _, err := l.repo.Members().GetByEmail(ctx, email); err == nil {
		return errWithMetadata(ErrConflict, map[string]any{"email": email})
	} else if !goerrors.Is(err, ErrNotFound) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing member")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	token := NewVerificationToken()
	pending := &PendingRegistration{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Age:               input.Age,
		PhoneCode:         input.PhoneCode,
		Phone:             input.Phone,
		Country:           input.Country,
		Department:        input.Department,
		Commune:           input.Commune,
		Occupation:        input.Occupation,
		Availability:      input.Availability,
		Motivation:        input.Motivation,
		ValuesCommitment:  input.ValuesCommitment,
		DataConsent:       input.DataConsent,
		VerificationToken: token,
	}

	if _, err := l.repo.PendingRegistrations().UpsertByEmail(ctx, pending); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store pending registration")
	}

	l.metrics.IncRegistration()
	l.emit(ctx, ActivityEvent{
		EventType: ActivityEventRegistration,
		Actor:     ActorRef{Type: "anonymous"},
		Metadata:  map[string]any{"email": email},
	})

	go l.sendVerificationEmail(email, token)

	return nil
}

func (l *Lifecycle) sendVerificationEmail(email, token string) {
	if !l.mailer.IsEnabled() {
		return
	}
	subject, body := VerificationEmail(l.clientURL, token)
	if err := l.mailer.Send(email, subject, body); err != nil {
		l.logger.Error("verification email delivery failed for %s: %v", email, err)
		return
	}
	l.logger.Info("verification email sent to %s", email)
}

// Verify promotes a pending registration to a member. A token that was
// already consumed resolves idempotently to the promoted member; an
// unknown or stale token is a single InvalidOrExpiredToken outcome.
func (l *Lifecycle) Verify(ctx context.Context, token string) (*Member, error) {
	var member *Member
	alreadyVerified := false

	err := l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		pending, err := l.repo.PendingRegistrations().GetByTokenTx(ctx, tx, token)
		if err != nil {
			if !goerrors.Is(err, ErrNotFound) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up pending registration")
			}

			// The pending row is gone. If a member carries the same
			// token the link was already used; report success.
			existing, err2 := l.repo.Members().GetByVerificationTokenTx(ctx, tx, token)
			if err2 == nil {
				member = existing
				alreadyVerified = true
				return nil
			}
			if !goerrors.Is(err2, ErrNotFound) {
				return goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to look up verified member")
			}
			return ErrInvalidOrExpiredToken
		}

		if pending.CreatedAt == nil || l.now().Sub(*pending.CreatedAt) > l.pendingTTL {
			return ErrInvalidOrExpiredToken
		}

		member = memberFromPending(pending)
		RefreshCompleteness(member)

		if member, err = l.repo.Members().CreateTx(ctx, tx, member); err != nil {
			if isUniqueViolation(err) {
				return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create member")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create member")
		}

		return l.repo.PendingRegistrations().DeleteTx(ctx, tx, pending.ID)
	})

	if err != nil {
		l.metrics.IncVerification("failure")
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "verification transaction failed")
	}

	l.metrics.IncVerification("success")
	if !alreadyVerified {
		l.emit(ctx, ActivityEvent{
			EventType: ActivityEventVerification,
			Actor:     ActorRef{Type: "anonymous"},
			MemberID:  member.ID.String(),
			Metadata:  map[string]any{"email": member.Email},
		})
	}

	return member, nil
}

func memberFromPending(p *PendingRegistration) *Member {
	hash := p.PasswordHash
	if !IsPasswordHash(hash) {
		// Imported rows may still hold plaintext; never persist it.
		if h, err := HashPassword(hash); err == nil {
			hash = h
		}
	}

	m := &Member{
		Email:             p.Email,
		PasswordHash:      hash,
		Role:              RoleMember,
		Verified:          true,
		Active:            true,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Age:               p.Age,
		PhoneCode:         p.PhoneCode,
		Phone:             p.Phone,
		Country:           p.Country,
		Department:        p.Department,
		Commune:           p.Commune,
		Occupation:        p.Occupation,
		Availability:      p.Availability,
		Motivation:        p.Motivation,
		ValuesCommitment:  p.ValuesCommitment,
		DataConsent:       p.DataConsent,
		VerificationToken: p.VerificationToken,
	}

	if id, err := hashid.NewUUID(p.Email); err == nil {
		m.ID = id
	}

	return m
}

// CompleteProfile merges the post-login extended fields and refreshes
// the cached completeness flag. Empty inputs leave fields untouched.
func (l *Lifecycle) CompleteProfile(ctx context.Context, member *Member, update ExtendedProfile) (*Member, Completeness, error) {
	if member == nil {
		return nil, Completeness{}, ErrNotFound
	}

	if v := strings.TrimSpace(update.City); v != "" {
		member.City = v
	}
	if v := strings.TrimSpace(update.MobilizationCity); v != "" {
		member.MobilizationCity = v
	}
	if v := strings.TrimSpace(update.Section); v != "" {
		member.Section = v
	}
	if v := strings.TrimSpace(update.Interests); v != "" {
		member.Interests = v
	}

	wasCompleted := member.ProfileCompleted
	completeness := RefreshCompleteness(member)

	updated, err := l.repo.Members().Update(ctx, member)
	if err != nil {
		return nil, Completeness{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile update")
	}

	if completeness.Completed && !wasCompleted {
		l.emit(ctx, ActivityEvent{
			EventType: ActivityEventProfileCompleted,
			Actor:     ActorRef{ID: member.ID.String(), Type: "member"},
			MemberID:  member.ID.String(),
		})
	}

	return updated, completeness, nil
}

// RegisterExternal seeds a verified-but-incomplete member from an
// external identity provider callback, skipping the token step. An
// existing member with the email is linked, never duplicated.
func (l *Lifecycle) RegisterExternal(ctx context.Context, identity ExternalIdentity) (*Member, error) {
	if err := identity.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid external identity").
			WithTextCode(TextCodeValidationFailed).
			WithCode(goerrors.CodeBadRequest)
	}

	email := NormalizeEmail(identity.Email)

	existing, err := l.repo.Members().GetByEmail(ctx, email)
	if err == nil {
		if existing.ExternalID == "" {
			existing.ExternalID = identity.ExternalID
			return l.repo.Members().Update(ctx, existing)
		}
		return existing, nil
	}
	if !goerrors.Is(err, ErrNotFound) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing member")
	}

	member := &Member{
		Email:        email,
		PasswordHash: RandomPasswordHash(),
		Role:         RoleMember,
		Verified:     true,
		Active:       true,
		FirstName:    identity.GivenName,
		LastName:     identity.FamilyName,
		ExternalID:   identity.ExternalID,
	}
	RefreshCompleteness(member)

	created, err := l.repo.Members().Create(ctx, member)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create member")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create member")
	}

	l.emit(ctx, ActivityEvent{
		EventType: ActivityEventVerification,
		Actor:     ActorRef{Type: "identity_provider"},
		MemberID:  created.ID.String(),
		Metadata:  map[string]any{"email": email, "external": true},
	})

	return created, nil
}

// PurgeExpiredPending sweeps pending rows past the verification window.
func (l *Lifecycle) PurgeExpiredPending(ctx context.Context) (int64, error) {
	return l.repo.PendingRegistrations().PurgeExpired(ctx, l.now().Add(-l.pendingTTL))
}

func (l *Lifecycle) emit(ctx context.Context, event ActivityEvent) {
	sink := normalizeActivitySink(l.sink)
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.now()
	}
	if err := sink.Record(ctx, event); err != nil {
		l.logger.Warn("activity sink record error: %v", err)
	}
}

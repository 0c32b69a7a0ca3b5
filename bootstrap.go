package membership

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// BootstrapInput seeds the initial super admin account.
type BootstrapInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
	PhoneCode string `json:"phone_code"`
	Country   string `json:"country"`
	Commune   string `json:"commune"`
}

func (b BootstrapInput) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Email, validation.Required, is.Email),
		validation.Field(&b.Password, validation.Required, validation.Length(minPasswordLength, 100)),
		validation.Field(&b.FirstName, validation.Required),
		validation.Field(&b.LastName, validation.Required),
	)
}

// EnsureSuperAdmin creates the super admin account if none exists.
// The call is idempotent: once a super admin is present it returns
// the existing account untouched, never downgrading or recreating it.
func EnsureSuperAdmin(ctx context.Context, repo RepositoryManager, input BootstrapInput, opts ...BootstrapOption) (*Member, error) {
	cfg := bootstrapConfig{
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	count, err := repo.Members().CountByRole(ctx, RoleSuperAdmin)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count super admins")
	}

	if count > 0 {
		supers, err := repo.Members().ListByRoles(ctx, RoleSuperAdmin)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load super admin")
		}
		cfg.logger.Debug("super admin already present, skipping bootstrap")
		return supers[0], nil
	}

	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid bootstrap input").
			WithTextCode(TextCodeValidationFailed).
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	email := NormalizeEmail(input.Email)
	member := &Member{
		Email:            email,
		PasswordHash:     hash,
		Role:             RoleSuperAdmin,
		Verified:         true,
		Active:           true,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Age:              30,
		PhoneCode:        orDefault(input.PhoneCode, "+229"),
		Phone:            orDefault(input.Phone, "0000000000"),
		Country:          orDefault(input.Country, "Benin"),
		Commune:          orDefault(input.Commune, "Cotonou"),
		Occupation:       "Administrator",
		Availability:     "full_time",
		Motivation:       "System administrator account",
		ValuesCommitment: true,
		DataConsent:      true,
		City:             "Cotonou",
		MobilizationCity: "Cotonou",
		Section:          "national",
		Interests:        "administration",
	}
	if id, err := hashid.NewUUID(email); err == nil {
		member.ID = id
	}
	RefreshCompleteness(member)

	created, err := repo.Members().Create(ctx, member)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create super admin")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create super admin")
	}

	cfg.logger.Info("super admin bootstrapped: %s", created.Email)
	if err := cfg.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventBootstrap,
		Actor:      ActorRef{Type: "system"},
		MemberID:   created.ID.String(),
		Metadata:   map[string]any{"email": created.Email},
		OccurredAt: cfg.now(),
	}); err != nil {
		cfg.logger.Warn("activity sink record error: %v", err)
	}

	return created, nil
}

type bootstrapConfig struct {
	logger Logger
	sink   ActivitySink
	now    func() time.Time
}

// BootstrapOption customizes super admin seeding.
type BootstrapOption func(*bootstrapConfig)

// WithBootstrapLogger overrides the default logger.
func WithBootstrapLogger(logger Logger) BootstrapOption {
	return func(c *bootstrapConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBootstrapActivitySink sets the sink the bootstrap event goes to.
func WithBootstrapActivitySink(sink ActivitySink) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.sink = normalizeActivitySink(sink)
	}
}

// WithBootstrapClock injects a custom clock.
func WithBootstrapClock(clock func() time.Time) BootstrapOption {
	return func(c *bootstrapConfig) {
		if clock != nil {
			c.now = clock
		}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

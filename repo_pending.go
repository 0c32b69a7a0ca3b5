package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PendingTTL is how long a pending registration stays verifiable.
const PendingTTL = 24 * time.Hour

// PendingRegistrations stores pre-account records awaiting email
// verification. The email column is unique, so resubmitting the same
// email replaces the prior pending row instead of accumulating.
type PendingRegistrations interface {
	UpsertByEmail(ctx context.Context, record *PendingRegistration) (*PendingRegistration, error)
	UpsertByEmailTx(ctx context.Context, tx bun.IDB, record *PendingRegistration) (*PendingRegistration, error)
	GetByToken(ctx context.Context, token string) (*PendingRegistration, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*PendingRegistration, error)
	GetByEmail(ctx context.Context, email string) (*PendingRegistration, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type pendingRegistrations struct {
	db *bun.DB
}

var _ PendingRegistrations = (*pendingRegistrations)(nil)

// NewPendingRegistrationsRepository wires the pending store.
func NewPendingRegistrationsRepository(db *bun.DB) PendingRegistrations {
	return &pendingRegistrations{db: db}
}

func (r *pendingRegistrations) UpsertByEmail(ctx context.Context, record *PendingRegistration) (*PendingRegistration, error) {
	return r.UpsertByEmailTx(ctx, r.db, record)
}

func (r *pendingRegistrations) UpsertByEmailTx(ctx context.Context, tx bun.IDB, record *PendingRegistration) (*PendingRegistration, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = NormalizeEmail(record.Email)
	now := time.Now()
	record.CreatedAt = &now

	// Resubmission resets the clock and rotates the token; the unique
	// email index keeps concurrent submitters down to one row.
	_, err := tx.NewInsert().Model(record).
		On("CONFLICT (email) DO UPDATE").
		Set("password_hash = EXCLUDED.password_hash").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("age = EXCLUDED.age").
		Set("phone_code = EXCLUDED.phone_code").
		Set("phone_number = EXCLUDED.phone_number").
		Set("country = EXCLUDED.country").
		Set("department = EXCLUDED.department").
		Set("commune = EXCLUDED.commune").
		Set("occupation = EXCLUDED.occupation").
		Set("availability = EXCLUDED.availability").
		Set("motivation = EXCLUDED.motivation").
		Set("values_commitment = EXCLUDED.values_commitment").
		Set("data_consent = EXCLUDED.data_consent").
		Set("verification_token = EXCLUDED.verification_token").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return r.GetByTokenTx(ctx, tx, record.VerificationToken)
}

func (r *pendingRegistrations) GetByToken(ctx context.Context, token string) (*PendingRegistration, error) {
	return r.GetByTokenTx(ctx, r.db, token)
}

func (r *pendingRegistrations) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*PendingRegistration, error) {
	record := &PendingRegistration{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.verification_token = ?", token).
		Limit(1).
		Scan(ctx)
	return record, mapScanError(err, nil)
}

func (r *pendingRegistrations) GetByEmail(ctx context.Context, email string) (*PendingRegistration, error) {
	record := &PendingRegistration{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	return record, mapScanError(err, map[string]any{"email": NormalizeEmail(email)})
}

func (r *pendingRegistrations) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().Model((*PendingRegistration)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// PurgeExpired removes rows past their TTL. Verification already
// refuses stale rows at read time; the sweep keeps the table small.
func (r *pendingRegistrations) PurgeExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.NewDelete().Model((*PendingRegistration)(nil)).
		Where("created_at < ?", olderThan).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package membership

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Members is the storage surface for member records. Mutations against
// a single member are serialized by the storage layer; uniqueness of
// email and membership number is enforced by the schema, not only by
// the application-level existence checks.
type Members interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Member, error)
	GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Member, error)
	GetByExternalID(ctx context.Context, externalID string) (*Member, error)

	Create(ctx context.Context, record *Member) (*Member, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Member) (*Member, error)
	Update(ctx context.Context, record *Member) (*Member, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Member) (*Member, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	TrackSuccessfulLogin(ctx context.Context, member *Member) error

	List(ctx context.Context) ([]*Member, error)
	ListByRoles(ctx context.Context, roles ...Role) ([]*Member, error)
	Search(ctx context.Context, query string, limit int) ([]*Member, error)
	CountAll(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

type members struct {
	repository.Repository[*Member]
	db *bun.DB
}

var _ Members = (*members)(nil)

// NewMembersRepository wires a Members store over the given database.
func NewMembersRepository(db *bun.DB) Members {
	repo := repository.NewRepository[*Member](db, repository.ModelHandlers[*Member]{
		NewRecord: func() *Member { return &Member{} },
		GetID: func(m *Member) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Member, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &members{
		Repository: repo,
		db:         db,
	}
}

func (r *members) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *members) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Member, error) {
	record := &Member{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	return record, mapScanError(err, map[string]any{"id": id.String()})
}

func (r *members) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *members) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Member, error) {
	record := &Member{}
	err := tx.NewSelect().Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	return record, mapScanError(err, map[string]any{"email": NormalizeEmail(email)})
}

func (r *members) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Member, error) {
	record := &Member{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.verification_token = ?", token).
		Limit(1).
		Scan(ctx)
	return record, mapScanError(err, nil)
}

func (r *members) GetByExternalID(ctx context.Context, externalID string) (*Member, error) {
	record := &Member{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	return record, mapScanError(err, map[string]any{"external_id": externalID})
}

func (r *members) Create(ctx context.Context, record *Member) (*Member, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *members) CreateTx(ctx context.Context, tx bun.IDB, record *Member) (*Member, error) {
	prepareMemberDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *members) Update(ctx context.Context, record *Member) (*Member, error) {
	return r.UpdateTx(ctx, r.db, record)
}

func (r *members) UpdateTx(ctx context.Context, tx bun.IDB, record *Member) (*Member, error) {
	now := time.Now()
	record.UpdatedAt = &now
	return r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}

func (r *members) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteTx(ctx, r.db, id)
}

func (r *members) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().Model((*Member)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errWithMetadata(ErrNotFound, map[string]any{"id": id.String()})
	}
	return nil
}

func (r *members) TrackSuccessfulLogin(ctx context.Context, member *Member) error {
	loggedInAt := time.Now()
	_, err := r.db.NewRaw(`
		UPDATE "members" AS "mbr"
		SET
			"loggedin_at" = ?
		WHERE
			("mbr".id = ?);
	`, loggedInAt, member.ID).Exec(ctx)

	if err == nil {
		member.LoggedInAt = &loggedInAt
	}

	return err
}

func (r *members) List(ctx context.Context) ([]*Member, error) {
	var records []*Member
	err := r.db.NewSelect().Model(&records).
		Order("created_at DESC").
		Scan(ctx)
	return records, err
}

func (r *members) ListByRoles(ctx context.Context, roles ...Role) ([]*Member, error) {
	var records []*Member
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.member_role IN (?)", bun.In(roles)).
		Order("member_role DESC").
		Order("created_at DESC").
		Scan(ctx)
	return records, err
}

func (r *members) Search(ctx context.Context, query string, limit int) ([]*Member, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"

	var records []*Member
	err := r.db.NewSelect().Model(&records).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.first_name LIKE ?", pattern).
				WhereOr("?TableAlias.last_name LIKE ?", pattern).
				WhereOr("?TableAlias.email LIKE ?", pattern).
				WhereOr("?TableAlias.membership_number LIKE ?", pattern)
		}).
		Limit(limit).
		Scan(ctx)
	return records, err
}

func (r *members) CountAll(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Member)(nil)).Count(ctx)
}

func (r *members) CountByRole(ctx context.Context, role Role) (int, error) {
	return r.db.NewSelect().Model((*Member)(nil)).
		Where("member_role = ?", role).
		Count(ctx)
}

func (r *members) CountActive(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*Member)(nil)).
		Where("is_active").
		Count(ctx)
}

func (r *members) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return r.db.NewSelect().Model((*Member)(nil)).
		Where("created_at >= ?", since).
		Count(ctx)
}

func prepareMemberDefaults(record *Member) {
	if record == nil {
		return
	}

	record.EnsureDefaults()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// isUniqueViolation reports whether err is a SQLite unique index hit.
// Both drivers behind sqliteshim carry the constraint name in the
// message text, so string matching is the only portable check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func mapScanError(err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		if metadata != nil {
			return errWithMetadata(ErrNotFound, metadata)
		}
		return ErrNotFound
	}
	return err
}

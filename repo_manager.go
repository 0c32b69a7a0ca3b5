package membership

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Members() Members
	PendingRegistrations() PendingRegistrations
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db      *bun.DB
	members Members
	pending PendingRegistrations
}

// NewRepositoryManager builds the repository set over one database.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:      db,
		members: NewMembersRepository(db),
		pending: NewPendingRegistrationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.members == nil {
		return errors.New("repository members should be initialized")
	}

	if m.pending == nil {
		return errors.New("repository pendingRegistrations should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Members() Members {
	return m.members
}

func (m mngr) PendingRegistrations() PendingRegistrations {
	return m.pending
}

package membership

import (
	"context"
	"database/sql"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

// OpenDB opens the SQLite database at dsn and wraps it in bun.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open database")
	}

	// SQLite serializes writes; a single connection avoids lock
	// contention errors under concurrent requests.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Ping(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to ping database")
	}

	return db, nil
}

// RunMigrations discovers the embedded SQL migrations and applies any
// that have not run yet.
func RunMigrations(ctx context.Context, db *bun.DB, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	sub, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open migrations FS")
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sub); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to discover migrations")
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to init migrator")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "migration run failed")
	}

	if group.IsZero() {
		logger.Debug("database schema up to date")
		return nil
	}

	logger.Info("applied migration group %s", group)
	return nil
}

package migrations

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"
)

// Runner applies the SQL migrations under MigrationsDir against the
// service's Postgres database.
type Runner struct {
	bunDB    *bun.DB
	dir      string
	migrator *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, dir string) *Runner {
	return &Runner{bunDB: bunDB, dir: dir}
}

func (r *Runner) init() error {
	if r.migrator != nil {
		return nil
	}

	driver, err := postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory does not exist: %s", r.dir)
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", r.dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	r.migrator = migrator
	return nil
}

// Up applies all pending migrations. A database already at the latest
// version is not an error.
func (r *Runner) Up() error {
	if err := r.init(); err != nil {
		return err
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down rolls every migration back. Used by operators, never at startup.
func (r *Runner) Down() error {
	if err := r.init(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the current schema version, 0 when no migration has
// run yet.
func (r *Runner) Version() (uint, error) {
	if err := r.init(); err != nil {
		return 0, err
	}
	version, _, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return version, nil
}

func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("close migrator database: %w", databaseErr)
	}
	return nil
}

// Package migrations owns the PostgreSQL schema of the seating service. The
// SQL files are embedded, so a binary can migrate without a checkout; a
// directory on disk can still be supplied to override them.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/uptrace/bun"

	"ms-seating/internal/logger"
)

//go:embed sql/*.sql
var embedded embed.FS

type MigrateOptions struct {
	// MigrationsDir overrides the embedded migrations when not empty.
	MigrationsDir string
	AutoMigrate   bool
}

func DefaultOptions() MigrateOptions {
	return MigrateOptions{AutoMigrate: true}
}

// Runner applies migrations to the database behind bunDB. Close also closes
// that database, so callers hand it a dedicated handle.
type Runner struct {
	bunDB    *bun.DB
	options  MigrateOptions
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, opts MigrateOptions, log *logger.Logger) *Runner {
	return &Runner{
		bunDB:   bunDB,
		options: opts,
		logger:  log,
	}
}

func (r *Runner) sourceDriver() (string, source.Driver, error) {
	if r.options.MigrationsDir == "" {
		d, err := iofs.New(embedded, "sql")
		return "embedded", d, err
	}
	if _, err := os.Stat(r.options.MigrationsDir); err != nil {
		return "", nil, fmt.Errorf("migrations directory %s: %w", r.options.MigrationsDir, err)
	}
	d, err := (&file.File{}).Open("file://" + r.options.MigrationsDir)
	return r.options.MigrationsDir, d, err
}

// Initialize prepares the migrator. It is called lazily by the other methods.
func (r *Runner) Initialize() error {
	name, src, err := r.sourceDriver()
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance(name, src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	r.migrator = migrator
	r.logger.LogDatabase("MIGRATE", "schema", fmt.Sprintf("using %s migrations", name))
	return nil
}

func (r *Runner) ensure() error {
	if r.migrator != nil {
		return nil
	}
	return r.Initialize()
}

// RunMigrations brings the schema up to date, forcing a dirty version clean
// first so a crashed deploy does not wedge every later start.
func (r *Runner) RunMigrations() error {
	if !r.options.AutoMigrate {
		r.logger.Info("MIGRATION", "Auto migration disabled, skipping")
		return nil
	}
	if err := r.ensure(); err != nil {
		return err
	}

	version, dirty, err := r.Version()
	if err != nil {
		return err
	}
	if dirty {
		r.logger.Warn("MIGRATION", fmt.Sprintf("Schema version %d is dirty, forcing it clean", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if err := r.MigrateUp(); err != nil {
		return err
	}
	if version, _, err = r.Version(); err != nil {
		return err
	}
	r.logger.Info("MIGRATION", fmt.Sprintf("Schema at version %d", version))
	return nil
}

// Version reports the applied version; zero means nothing is applied yet.
func (r *Runner) Version() (uint, bool, error) {
	if err := r.ensure(); err != nil {
		return 0, false, err
	}
	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (r *Runner) MigrateUp() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back every migration.
func (r *Runner) MigrateDown() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	return errors.Join(sourceErr, databaseErr)
}

// Package migration applies the versioned SQL schema with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Source selects where migration files are read from.
// Dir wins over FS when both are set.
type Source struct {
	FS  fs.FS
	Dir string
}

// Status is the applied schema version
type Status struct {
	Version uint
	Dirty   bool
	Empty   bool
}

// Migrator wraps golang-migrate with logging
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// New creates a Migrator for an open postgres connection
func New(db *sql.DB, src Source, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	var m *migrate.Migrate
	switch {
	case src.Dir != "":
		m, err = migrate.NewWithDatabaseInstance("file://"+src.Dir, "postgres", driver)
	case src.FS != nil:
		d, srcErr := iofs.New(src.FS, ".")
		if srcErr != nil {
			return nil, fmt.Errorf("migration source: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", d, "postgres", driver)
	default:
		return nil, errors.New("migration source: neither FS nor Dir given")
	}
	if err != nil {
		return nil, fmt.Errorf("migration setup: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	m.Log = &migrateLogger{logger: logger}

	return &Migrator{m: m, logger: logger}, nil
}

// run executes op and treats ErrNoChange as success
func (mg *Migrator) run(name string, op func() error) error {
	err := op()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Info("Schema already at target", zap.String("op", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	st, _ := mg.Status()
	mg.logger.Info("Migration finished",
		zap.String("op", name),
		zap.Uint("version", st.Version),
		zap.Bool("dirty", st.Dirty),
	)
	return nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	return mg.run("up", mg.m.Up)
}

// Down rolls back every migration
func (mg *Migrator) Down() error {
	return mg.run("down", mg.m.Down)
}

// Steps moves n migrations forward, or back when n is negative
func (mg *Migrator) Steps(n int) error {
	return mg.run(fmt.Sprintf("steps %d", n), func() error { return mg.m.Steps(n) })
}

// GoTo migrates up or down to version
func (mg *Migrator) GoTo(version uint) error {
	return mg.run(fmt.Sprintf("goto %d", version), func() error { return mg.m.Migrate(version) })
}

// Force sets the version without running SQL, clearing the dirty flag
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force %d: %w", version, err)
	}
	mg.logger.Warn("Schema version forced", zap.Int("version", version))
	return nil
}

// Drop removes every table in the database
func (mg *Migrator) Drop() error {
	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	mg.logger.Warn("All tables dropped")
	return nil
}

// Status reports the applied version. Empty is set before the first migration.
func (mg *Migrator) Status() (Status, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{Empty: true}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{Version: version, Dirty: dirty}, nil
}

// Close releases the source and closes the database handed to New
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

type migrateLogger struct {
	logger *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

package postgres

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the postgres:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Schema names an embedded migration set.
type Schema string

const (
	// SchemaEvents is the TimescaleDB event store.
	SchemaEvents Schema = "events"
	// SchemaAlerts is the relational alert store.
	SchemaAlerts Schema = "alerts"
)

// Migrate brings the database at dsn up to the latest version of schema.
// Each schema keeps its own version table, so both may share one database.
func Migrate(dsn string, schema Schema, logger *slog.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(schema))
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	target, err := withMigrationsTable(dsn, "schema_migrations_"+string(schema))
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrator", "schema", schema, "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %s migrations: %w", schema, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read %s migration version: %w", schema, err)
	}
	logger.Info("schema up to date", "schema", schema, "version", version, "dirty", dirty)
	return nil
}

func withMigrationsTable(dsn, table string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}
	q := u.Query()
	q.Set("x-migrations-table", table)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

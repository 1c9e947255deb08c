package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies the embedded schema migrations in the given direction.
func Migrate(dsn string, dir Direction, logger observability.Logger) error {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if dir != Up && dir != Down {
		return fmt.Errorf("postgres: unknown migration direction %q", dir)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("postgres: init migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("migration_close_failed",
				observability.F("error", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	switch dir {
	case Up:
		err = m.Up()
	default:
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migrations_no_change", observability.F("direction", string(dir)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("postgres: migrate %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	fields := []observability.Field{observability.F("direction", string(dir))}
	if verr == nil {
		fields = append(fields, observability.F("version", version), observability.F("dirty", dirty))
	}
	logger.Info("migrations_applied", fields...)
	return nil
}

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme the migrate driver registers.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Package migrations holds the bun schema migrations for the WodStrat API.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func init() {
	// Migration ids come from the registering file name.
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}

// Logger is the subset of wodstrat.Logger used here
type Logger interface {
	Info(format string, args ...any)
}

// Up applies pending migrations and returns the applied group
func Up(ctx context.Context, db *bun.DB, logger Logger) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if logger != nil {
		if group.IsZero() {
			logger.Info("no new migrations to run")
		} else {
			logger.Info("migrated to %s", group)
		}
	}

	return group, nil
}

// Down rolls back the last applied group
func Down(ctx context.Context, db *bun.DB, logger Logger) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rollback migrations: %w", err)
	}

	if logger != nil {
		if group.IsZero() {
			logger.Info("no groups to roll back")
		} else {
			logger.Info("rolled back %s", group)
		}
	}

	return group, nil
}

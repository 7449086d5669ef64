package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-wodstrat"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().
			Model((*wodstrat.User)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create users table: %w", err)
		}

		if _, err := db.NewCreateTable().
			Model((*wodstrat.Athlete)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create athletes table: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropTable().Model((*wodstrat.Athlete)(nil)).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop athletes table: %w", err)
		}
		if _, err := db.NewDropTable().Model((*wodstrat.User)(nil)).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop users table: %w", err)
		}
		return nil
	})
}

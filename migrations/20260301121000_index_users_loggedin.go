package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-wodstrat"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateIndex().
			Model((*wodstrat.User)(nil)).
			Index("users_loggedin_at_idx").
			IfNotExists().
			Column("loggedin_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create users_loggedin_at_idx: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropIndex().
			Model((*wodstrat.User)(nil)).
			Index("users_loggedin_at_idx").
			IfExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop users_loggedin_at_idx: %w", err)
		}
		return nil
	})
}

package main

import (
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"

	"github.com/goliatone/go-wodstrat/database"
	"github.com/goliatone/go-wodstrat/migrations"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: func(c *cli.Context) error {
					return withDB(c, func(db *bun.DB, logger *consoleLogger) error {
						_, err := migrations.Up(c.Context, db, logger)
						return err
					})
				},
			},
			{
				Name:  "down",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					return withDB(c, func(db *bun.DB, logger *consoleLogger) error {
						_, err := migrations.Down(c.Context, db, logger)
						return err
					})
				},
			},
		},
	}
}

func withDB(c *cli.Context, fn func(db *bun.DB, logger *consoleLogger) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, err := database.Open(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db, newLogger(c))
}

package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wodstrat"
	"github.com/goliatone/go-wodstrat/config"
	"github.com/goliatone/go-wodstrat/database"
	"github.com/goliatone/go-wodstrat/migrations"
)

type logSink struct{ lines []string }

func (l *logSink) Info(format string, args ...any) { l.lines = append(l.lines, format) }

func TestUpAndDown(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, DSN: "file::memory:"})
	require.NoError(t, err)
	defer db.Close()

	logger := &logSink{}
	group, err := migrations.Up(ctx, db, logger)
	require.NoError(t, err)
	assert.False(t, group.IsZero())
	assert.Len(t, group.Migrations, 2)

	user := &wodstrat.User{Email: "a@b.co", PasswordHash: "x"}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	athlete := &wodstrat.Athlete{UserID: user.ID, FirstName: "A", LastName: "B", ExperienceLevel: wodstrat.ExperienceBeginner}
	_, err = db.NewInsert().Model(athlete).Exec(ctx)
	require.NoError(t, err)

	group, err = migrations.Up(ctx, db, logger)
	require.NoError(t, err)
	assert.True(t, group.IsZero(), "second run is a no-op")

	_, err = migrations.Down(ctx, db, logger)
	require.NoError(t, err)

	exists := 0
	require.NoError(t, db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type='table' AND name='users'").Scan(ctx, &exists))
	assert.Zero(t, exists)
}

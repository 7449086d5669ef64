package wodstrat_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-wodstrat"
)

func createUser(t *testing.T, repos wodstrat.RepositoryManager, email string) *wodstrat.User {
	t.Helper()
	user, err := repos.Users().Register(context.Background(), &wodstrat.User{
		Email:        email,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return user
}

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	user := createUser(t, repos, "  Sam@Example.com ")
	assert.NotZero(t, user.ID)
	assert.Equal(t, "sam@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	t.Run("get by email is case insensitive", func(t *testing.T) {
		found, err := repos.Users().GetByEmail(ctx, "SAM@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repos.Users().Register(ctx, &wodstrat.User{Email: "sam@example.com", PasswordHash: "x"})
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeEmailTaken))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repos.Users().GetByEmail(ctx, "nobody@example.com")
		assert.True(t, wodstrat.IsRecordNotFound(err))
	})

	t.Run("track login", func(t *testing.T) {
		require.NoError(t, repos.Users().TrackSuccessfulLogin(ctx, user))
		require.NotNil(t, user.LoggedInAt)

		found, err := repos.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, found.LoggedInAt)
	})

	t.Run("update and list", func(t *testing.T) {
		user.FirstName = "Sam"
		_, err := repos.Users().Update(ctx, user)
		require.NoError(t, err)

		createUser(t, repos, "other@example.com")

		records, count, err := repos.Users().List(ctx, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, "Sam", records[0].FirstName)
	})

	t.Run("update missing record", func(t *testing.T) {
		_, err := repos.Users().Update(ctx, &wodstrat.User{ID: 9999, Email: "ghost@example.com"})
		assert.True(t, wodstrat.IsRecordNotFound(err))
	})
}

func TestAthletesRepository(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	user := createUser(t, repos, "lifter@example.com")

	_, err := repos.Athletes().GetByUserID(ctx, user.ID)
	assert.True(t, wodstrat.IsRecordNotFound(err))

	athlete, err := repos.Athletes().Create(ctx, validAthlete().ToAthlete(user.ID))
	require.NoError(t, err)
	assert.NotZero(t, athlete.ID)

	found, err := repos.Athletes().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, athlete.ID, found.ID)
	require.NotNil(t, found.DateOfBirth)
	assert.Equal(t, "1990-04-12", found.DateOfBirth.Format(wodstrat.DateLayout))

	t.Run("one athlete per user", func(t *testing.T) {
		_, err := repos.Athletes().Create(ctx, validAthlete().ToAthlete(user.ID))
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repos.Athletes().Delete(ctx, athlete.ID))
		assert.True(t, wodstrat.IsRecordNotFound(repos.Athletes().Delete(ctx, athlete.ID)))
	})
}

func TestRepositoryManager_RunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	err := repos.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := repos.Users().RegisterTx(ctx, tx, &wodstrat.User{Email: "tx@example.com", PasswordHash: "x"}); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	require.ErrorIs(t, err, sql.ErrTxDone)

	_, err = repos.Users().GetByEmail(ctx, "tx@example.com")
	assert.True(t, wodstrat.IsRecordNotFound(err))
}

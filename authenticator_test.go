package wodstrat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-wodstrat"
)

type authFixture struct {
	repos  wodstrat.RepositoryManager
	tokens *wodstrat.TokenServiceImpl
	sink   *recordingSink
	auther *wodstrat.Auther
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repos := newTestRepos(t)
	tokens := wodstrat.NewTokenService(testSigningKey, time.Hour, "wodstrat-test", MockLogger{})
	sink := &recordingSink{}
	return &authFixture{
		repos:  repos,
		tokens: tokens,
		sink:   sink,
		auther: wodstrat.NewAuthenticator(repos, tokens).
			WithLogger(MockLogger{}).
			WithActivitySink(sink).
			WithPasswordHasher(wodstrat.NewPasswordHasher(bcrypt.MinCost)),
	}
}

func TestAuther_Register(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	resp, err := f.auther.Register(ctx, validRegister())

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "athlete@example.com", resp.User.Email)
	assert.Nil(t, resp.User.AthleteID)

	claims, err := f.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "athlete@example.com", claims.Email)
	assert.Empty(t, claims.AthleteID)

	stored, err := f.repos.Users().GetByEmail(ctx, "athlete@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)
	assert.Equal(t, []wodstrat.ActivityEventType{wodstrat.ActivityEventUserRegistered}, f.sink.types())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.auther.Register(ctx, validRegister())
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeEmailTaken))
	})

	t.Run("invalid request", func(t *testing.T) {
		req := validRegister()
		req.ConfirmPassword = "nope"

		_, err := f.auther.Register(ctx, req)

		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeValidation))
		richErr := wodstrat.AsRichError(err)
		assert.Contains(t, richErr.Metadata["fields"], "confirmPassword")
	})
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	registered, err := f.auther.Register(ctx, validRegister())
	require.NoError(t, err)

	t.Run("success without athlete", func(t *testing.T) {
		resp, err := f.auther.Login(ctx, wodstrat.LoginRequest{Email: "Athlete@Example.com", Password: "supersecret"})

		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, resp.User.ID)
		assert.Nil(t, resp.User.AthleteID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.auther.Login(ctx, wodstrat.LoginRequest{Email: "athlete@example.com", Password: "wrong-password"})
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeInvalidCredentials))
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		_, err := f.auther.Login(ctx, wodstrat.LoginRequest{Email: "ghost@example.com", Password: "supersecret"})
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeInvalidCredentials))
	})

	t.Run("token carries the athlete once created", func(t *testing.T) {
		athletes := wodstrat.NewCreateAthleteHandler(f.repos).WithLogger(MockLogger{})
		athlete, err := athletes.Execute(ctx, wodstrat.CreateAthleteMessage{UserID: registered.User.ID, Request: validAthlete()})
		require.NoError(t, err)

		resp, err := f.auther.Login(ctx, wodstrat.LoginRequest{Email: "athlete@example.com", Password: "supersecret"})
		require.NoError(t, err)
		require.NotNil(t, resp.User.AthleteID)
		assert.Equal(t, athlete.ID, *resp.User.AthleteID)

		user, err := wodstrat.DecodeSession(resp.Token, time.Now())
		require.NoError(t, err)
		assert.Equal(t, athlete.ID, *user.AthleteID)
	})

	types := f.sink.types()
	assert.Contains(t, types, wodstrat.ActivityEventLoginSuccess)
	assert.Contains(t, types, wodstrat.ActivityEventLoginFailure)
}

func TestAuther_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	registered, err := f.auther.Register(ctx, validRegister())
	require.NoError(t, err)

	athletes := wodstrat.NewCreateAthleteHandler(f.repos).WithLogger(MockLogger{})
	athlete, err := athletes.Execute(ctx, wodstrat.CreateAthleteMessage{UserID: registered.User.ID, Request: validAthlete()})
	require.NoError(t, err)

	resp, err := f.auther.Refresh(ctx, registered.User.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.User.AthleteID)
	assert.Equal(t, athlete.ID, *resp.User.AthleteID)

	_, err = f.auther.Refresh(ctx, 9999)
	assert.True(t, wodstrat.IsMalformedError(err))
}

func TestAuther_SessionFromToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	resp, err := f.auther.Register(ctx, validRegister())
	require.NoError(t, err)

	claims, err := f.auther.SessionFromToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "athlete@example.com", claims.Email)

	_, err = f.auther.SessionFromToken("garbage")
	assert.Error(t, err)
}

func TestCreateAthleteHandler(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	registered, err := f.auther.Register(ctx, validRegister())
	require.NoError(t, err)
	userID := registered.User.ID

	sink := &recordingSink{}
	handler := wodstrat.NewCreateAthleteHandler(f.repos).
		WithLogger(MockLogger{}).
		WithActivitySink(sink)

	t.Run("not found before creation", func(t *testing.T) {
		_, err := handler.GetAthleteByUser(ctx, userID)
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeAthleteNotFound))
	})

	athlete, err := handler.Execute(ctx, wodstrat.CreateAthleteMessage{UserID: userID, Request: validAthlete()})
	require.NoError(t, err)
	assert.Equal(t, userID, athlete.UserID)
	assert.Equal(t, []wodstrat.ActivityEventType{wodstrat.ActivityEventAthleteCreated}, sink.types())
	assert.Equal(t, athlete.ID, sink.events[0].Metadata["athlete_id"])

	t.Run("fetch", func(t *testing.T) {
		got, err := handler.GetAthleteByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, athlete.ID, got.ID)
	})

	t.Run("second profile is a conflict", func(t *testing.T) {
		_, err := handler.Execute(ctx, wodstrat.CreateAthleteMessage{UserID: userID, Request: validAthlete()})
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeAthleteExists))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := handler.Execute(ctx, wodstrat.CreateAthleteMessage{UserID: 9999, Request: validAthlete()})
		assert.True(t, wodstrat.IsRecordNotFound(err))
	})

	t.Run("invalid request", func(t *testing.T) {
		req := validAthlete()
		req.ExperienceLevel = "elite"
		_, err := handler.Execute(ctx, wodstrat.CreateAthleteMessage{UserID: userID, Request: req})
		assert.True(t, wodstrat.HasTextCode(err, wodstrat.TextCodeValidation))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := handler.Execute(cancelled, wodstrat.CreateAthleteMessage{UserID: userID, Request: validAthlete()})
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.Equal(t, "athlete.create", wodstrat.CreateAthleteMessage{}.Type())
}

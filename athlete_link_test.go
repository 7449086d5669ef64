package wodstrat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wodstrat"
)

func TestAthleteLink_MirrorsManager(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{})
	link := wodstrat.NewAthleteLink(m, wodstrat.WithAthleteLinkLogger(MockLogger{}))
	defer link.Close()

	assert.False(t, link.HasAthlete())

	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "9", stateNow.Add(time.Hour))))
	require.NotNil(t, link.AthleteID())
	assert.Equal(t, int64(9), *link.AthleteID())
	assert.True(t, link.HasAthlete())

	require.NoError(t, m.Login(ctx, sessionToken(t, "43", "b@example.com", "", stateNow.Add(time.Hour))))
	assert.Nil(t, link.AthleteID(), "user without athlete claim adopts null")

	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "9", stateNow.Add(time.Hour))))
	require.NoError(t, m.Logout(ctx))
	assert.False(t, link.HasAthlete(), "logout forces null")
}

func TestAthleteLink_SetAthleteIDPropagates(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{})
	link := wodstrat.NewAthleteLink(m)
	defer link.Close()
	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "", stateNow.Add(time.Hour))))

	link.SetAthleteID(int64Ptr(11))

	assert.True(t, link.HasAthlete())
	state := m.State()
	require.NotNil(t, state.User.AthleteID)
	assert.Equal(t, int64(11), *state.User.AthleteID)
	assert.Equal(t, int64(11), *link.AthleteID())
}

func TestAthleteLink_NilStaysLocal(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{})
	link := wodstrat.NewAthleteLink(m)
	defer link.Close()
	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "5", stateNow.Add(time.Hour))))

	link.SetAthleteID(nil)

	assert.False(t, link.HasAthlete())
	assert.Equal(t, int64(5), *m.State().User.AthleteID)
}

func TestAthleteLink_ClearAthlete(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{})
	link := wodstrat.NewAthleteLink(m)
	defer link.Close()
	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "5", stateNow.Add(time.Hour))))

	link.ClearAthlete()

	assert.False(t, link.HasAthlete())
	assert.True(t, m.State().HasAthlete(), "upstream is untouched")

	t.Run("survives unrelated upstream updates", func(t *testing.T) {
		m.UpdateAthleteID(int64Ptr(5))
		assert.False(t, link.HasAthlete())
	})

	t.Run("re-syncs when the upstream athlete changes", func(t *testing.T) {
		m.UpdateAthleteID(int64Ptr(6))
		require.True(t, link.HasAthlete())
		assert.Equal(t, int64(6), *link.AthleteID())
	})
}

func TestAthleteLink_Subscribe(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{})
	link := wodstrat.NewAthleteLink(m)
	defer link.Close()

	var seen []wodstrat.LinkState
	stop := link.Subscribe(func(s wodstrat.LinkState) { seen = append(seen, s) })
	defer stop()

	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "", stateNow.Add(time.Hour))))
	link.SetAthleteID(int64Ptr(3))

	require.NotEmpty(t, seen)
	assert.False(t, seen[0].HasAthlete)
	last := seen[len(seen)-1]
	assert.True(t, last.HasAthlete)
	assert.Equal(t, int64(3), *last.AthleteID)
	assert.Equal(t, last, link.State())
}

func TestAthleteLink_StateCarriesAuthFlags(t *testing.T) {
	ctx := context.Background()
	m := newManager(&memStore{})
	link := wodstrat.NewAthleteLink(m)
	defer link.Close()
	_, err := m.Initialize(ctx)
	require.NoError(t, err)

	var seen []wodstrat.LinkState
	stop := link.Subscribe(func(s wodstrat.LinkState) { seen = append(seen, s) })
	defer stop()

	require.NoError(t, m.Login(ctx, sessionToken(t, "42", "a@example.com", "9", stateNow.Add(time.Hour))))
	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, []wodstrat.LinkState{
		{},
		{AthleteID: int64Ptr(9), HasAthlete: true, IsAuthenticated: true},
		{},
	}, seen, "one snapshot per manager update, never a mixed pair")
}

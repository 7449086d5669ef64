package wodstrat_test

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wodstrat"
)

func TestDecodeSession_ValidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("maps sub and email", func(t *testing.T) {
		token := sessionToken(t, "42", "athlete@example.com", "", now.Add(time.Hour))

		user, err := wodstrat.DecodeSession(token, now)

		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
		assert.Equal(t, "athlete@example.com", user.Email)
		assert.Nil(t, user.AthleteID)
		assert.False(t, user.HasAthlete())
	})

	t.Run("maps athlete claim", func(t *testing.T) {
		token := sessionToken(t, "42", "athlete@example.com", "7", now.Add(time.Hour))

		user, err := wodstrat.DecodeSession(token, now)

		require.NoError(t, err)
		require.NotNil(t, user.AthleteID)
		assert.Equal(t, int64(7), *user.AthleteID)
		assert.True(t, user.HasAthlete())
	})

	t.Run("exp equal to now is accepted", func(t *testing.T) {
		token := sessionToken(t, "1", "a@example.com", "", now)

		_, err := wodstrat.DecodeSession(token, now)

		assert.NoError(t, err)
	})

	t.Run("exp second already started is expired", func(t *testing.T) {
		token := sessionToken(t, "1", "a@example.com", "", now)

		_, err := wodstrat.DecodeSession(token, now.Add(500*time.Millisecond))

		assert.ErrorIs(t, err, wodstrat.ErrExpiredToken)
	})

	t.Run("signature is not checked by default", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "5", "email": "x@example.com", "exp": now.Add(time.Minute).Unix(),
		}).SignedString([]byte("some other key"))
		require.NoError(t, err)

		user, err := wodstrat.DecodeSession(token, now)

		require.NoError(t, err)
		assert.Equal(t, int64(5), user.ID)
	})
}

func TestDecodeSession_ExpiredAlwaysRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []jwt.MapClaims{
		{"sub": "1", "email": "a@example.com"},
		{"sub": "2", "email": "b@example.com", "athleteId": "9"},
		{"sub": "not-a-number"},
		{},
	}

	for i, claims := range cases {
		for _, age := range []time.Duration{time.Second, time.Hour, 365 * 24 * time.Hour} {
			t.Run(fmt.Sprintf("case %d expired %s ago", i, age), func(t *testing.T) {
				withExp := jwt.MapClaims{"exp": now.Add(-age).Unix()}
				for k, v := range claims {
					withExp[k] = v
				}

				user, err := wodstrat.DecodeSession(signToken(t, withExp), now)

				assert.Nil(t, user)
				assert.ErrorIs(t, err, wodstrat.ErrTokenRejected)
			})
		}
	}
}

func TestDecodeSession_Malformed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour).Unix()

	garbagePayload := "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte("{not json")) + ".sig"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "hello"},
		{"two segments", "a.b"},
		{"bad payload", garbagePayload},
		{"missing exp", signToken(t, jwt.MapClaims{"sub": "1", "email": "a@example.com"})},
		{"non numeric sub", signToken(t, jwt.MapClaims{"sub": "abc", "exp": future})},
		{"non numeric athlete", signToken(t, jwt.MapClaims{"sub": "1", "athleteId": "x", "exp": future})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				user, err := wodstrat.DecodeSession(tt.token, now)
				assert.Nil(t, user)
				assert.ErrorIs(t, err, wodstrat.ErrMalformedToken)
			})
		})
	}
}

func TestSessionDecoder_Verifying(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	decoder := wodstrat.NewSessionDecoder(wodstrat.WithDecoderSigningKey(testSigningKey))

	assert.True(t, decoder.Verifies())

	t.Run("accepts tokens signed with the key", func(t *testing.T) {
		user, err := decoder.Decode(sessionToken(t, "3", "c@example.com", "", now.Add(time.Hour)), now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), user.ID)
	})

	t.Run("rejects foreign signatures", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "3", "exp": now.Add(time.Hour).Unix(),
		}).SignedString([]byte("wrong"))
		require.NoError(t, err)

		_, err = decoder.Decode(token, now)
		assert.ErrorIs(t, err, wodstrat.ErrMalformedToken)
	})

	t.Run("expiry uses the supplied clock", func(t *testing.T) {
		token := sessionToken(t, "3", "c@example.com", "", now.Add(time.Hour))

		_, err := decoder.Decode(token, now.Add(2*time.Hour))
		assert.ErrorIs(t, err, wodstrat.ErrExpiredToken)
	})

	t.Run("restricted methods", func(t *testing.T) {
		strict := wodstrat.NewSessionDecoder(
			wodstrat.WithDecoderSigningKey(testSigningKey),
			wodstrat.WithDecoderMethods("HS512"),
		)
		_, err := strict.Decode(sessionToken(t, "3", "c@example.com", "", now.Add(time.Hour)), now)
		assert.ErrorIs(t, err, wodstrat.ErrMalformedToken)
	})
}

func TestSessionUser_Clone(t *testing.T) {
	user := &wodstrat.SessionUser{ID: 1, Email: "a@example.com", AthleteID: int64Ptr(2)}

	clone := user.Clone()
	*clone.AthleteID = 99

	assert.Equal(t, int64(2), *user.AthleteID)
	assert.Nil(t, (*wodstrat.SessionUser)(nil).Clone())
	assert.Equal(t, "user=1 email=a@example.com athlete=2", user.String())
}

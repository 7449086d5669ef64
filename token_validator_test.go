package wodstrat_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wodstrat"
)

func TestValidatorChain(t *testing.T) {
	claims := &wodstrat.SessionClaims{Email: "a@example.com"}
	ok := wodstrat.TokenValidatorFunc(func(string) (*wodstrat.SessionClaims, error) { return claims, nil })
	malformed := wodstrat.TokenValidatorFunc(func(string) (*wodstrat.SessionClaims, error) { return nil, wodstrat.ErrTokenMalformed })
	expired := wodstrat.TokenValidatorFunc(func(string) (*wodstrat.SessionClaims, error) { return nil, wodstrat.ErrTokenExpired })

	chain := func() *wodstrat.ValidatorChain { return wodstrat.NewValidatorChain(MockLogger{}) }

	t.Run("falls through malformed", func(t *testing.T) {
		got, err := chain().Trust("local", malformed).Trust("none", nil).Trust("idp", ok).Validate("t")
		require.NoError(t, err)
		assert.Same(t, claims, got)
	})

	t.Run("expired stops the chain", func(t *testing.T) {
		_, err := chain().Trust("local", expired).Trust("idp", ok).Validate("t")
		assert.True(t, wodstrat.IsTokenExpiredError(err))
	})

	t.Run("all malformed", func(t *testing.T) {
		_, err := chain().Trust("a", malformed).Trust("b", malformed).Validate("t")
		assert.True(t, wodstrat.IsMalformedError(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := wodstrat.NewValidatorChain(nil).Validate("t")
		assert.True(t, wodstrat.IsMalformedError(err))
	})

	t.Run("other errors stop the chain", func(t *testing.T) {
		boom := errors.New("boom")
		failing := wodstrat.TokenValidatorFunc(func(string) (*wodstrat.SessionClaims, error) { return nil, boom })
		_, err := chain().Trust("broken", failing).Trust("idp", ok).Validate("t")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("issuers keep order and skip nil", func(t *testing.T) {
		c := chain().Trust("local", ok).Trust("skipped", nil).Trust("idp", ok)
		assert.Equal(t, []string{"local", "idp"}, c.Issuers())
	})

	t.Run("token services compose", func(t *testing.T) {
		now := time.Now()
		primary := newTokenService(now)
		secondary := wodstrat.NewTokenService([]byte("secondary"), time.Hour, "wodstrat-test", MockLogger{})

		token, _, err := secondary.Generate(&wodstrat.User{ID: 9}, nil)
		require.NoError(t, err)

		got, err := chain().Trust("primary", primary).Trust("secondary", secondary).Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "9", got.Subject())
	})
}

func TestTokenValidatorFunc_Nil(t *testing.T) {
	var fn wodstrat.TokenValidatorFunc
	_, err := fn.Validate("t")
	assert.True(t, wodstrat.IsMalformedError(err))
}

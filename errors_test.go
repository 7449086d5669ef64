package wodstrat_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-wodstrat"
)

func TestDecodeErrorsShareParent(t *testing.T) {
	assert.ErrorIs(t, wodstrat.ErrMalformedToken, wodstrat.ErrTokenRejected)
	assert.ErrorIs(t, wodstrat.ErrExpiredToken, wodstrat.ErrTokenRejected)
	assert.NotErrorIs(t, wodstrat.ErrMalformedToken, wodstrat.ErrExpiredToken)
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, wodstrat.IsTokenExpiredError(nil))
	assert.True(t, wodstrat.IsTokenExpiredError(wodstrat.ErrExpiredToken))
	assert.True(t, wodstrat.IsTokenExpiredError(fmt.Errorf("wrapped: %w", wodstrat.ErrExpiredToken)))
	assert.True(t, wodstrat.IsTokenExpiredError(wodstrat.ErrTokenExpired))
	assert.False(t, wodstrat.IsTokenExpiredError(wodstrat.ErrTokenMalformed))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, wodstrat.IsMalformedError(nil))
	assert.True(t, wodstrat.IsMalformedError(wodstrat.ErrMalformedToken))
	assert.True(t, wodstrat.IsMalformedError(wodstrat.ErrTokenMalformed))
	assert.True(t, wodstrat.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, wodstrat.IsMalformedError(errors.New("boom")))
}

func TestHasTextCode(t *testing.T) {
	assert.True(t, wodstrat.HasTextCode(wodstrat.ErrEmailTaken, wodstrat.TextCodeEmailTaken))
	assert.True(t, wodstrat.IsRecordNotFound(wodstrat.ErrRecordNotFound))
	assert.False(t, wodstrat.HasTextCode(errors.New("plain"), wodstrat.TextCodeEmailTaken))
	assert.False(t, wodstrat.HasTextCode(nil, wodstrat.TextCodeEmailTaken))
}

func TestAsRichError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		textCode string
	}{
		{"rich passthrough", wodstrat.ErrAthleteExists, http.StatusConflict, wodstrat.TextCodeAthleteExists},
		{"expired decode", wodstrat.ErrExpiredToken, http.StatusUnauthorized, wodstrat.TextCodeTokenExpired},
		{"malformed decode", wodstrat.ErrMalformedToken, http.StatusUnauthorized, wodstrat.TextCodeUnauthorized},
		{"rate limited", wodstrat.ErrRateLimited, http.StatusTooManyRequests, wodstrat.TextCodeRateLimited},
		{"plain", errors.New("db down"), http.StatusInternalServerError, wodstrat.TextCodeInternal},
		{"rich without code", goerrors.New("nope", goerrors.CategoryNotFound), http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			richErr := wodstrat.AsRichError(tt.err)
			assert.Equal(t, tt.code, richErr.Code)
			if tt.textCode != "" {
				assert.Equal(t, tt.textCode, richErr.TextCode)
			}
		})
	}
}

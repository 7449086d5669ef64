package wodstrat

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// JWKSKeys wraps a remote key set used to verify externally issued tokens
type JWKSKeys struct {
	jwks *keyfunc.JWKS
}

// NewJWKSKeys fetches the key set at url and keeps it refreshed in the background.
// Call Close to stop the refresh goroutine.
func NewJWKSKeys(url string, logger Logger) (*JWKSKeys, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK set from %s: %w", url, err)
	}

	return &JWKSKeys{jwks: jwks}, nil
}

// DecoderOption plugs the key set into a SessionDecoder
func (k *JWKSKeys) DecoderOption() SessionDecoderOption {
	return WithDecoderKeyfunc(k.jwks.Keyfunc)
}

// Close stops background refreshes
func (k *JWKSKeys) Close() {
	if k != nil && k.jwks != nil {
		k.jwks.EndBackground()
	}
}

// Validator verifies tokens against the remote key set
func (k *JWKSKeys) Validator(issuer string) TokenValidator {
	parserOptions := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}

	return TokenValidatorFunc(func(tokenString string) (*SessionClaims, error) {
		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, k.jwks.Keyfunc, parserOptions...)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(ErrTokenMalformed.Code)
		}
		if !token.Valid {
			return nil, ErrTokenMalformed
		}
		if _, err := claims.UserID(); err != nil {
			return nil, ErrTokenMalformed
		}
		return claims, nil
	})
}

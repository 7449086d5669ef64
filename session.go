package wodstrat

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionUser is the identity derived from a valid bearer token
type SessionUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	AthleteID *int64 `json:"athlete_id,omitempty"`
}

// HasAthlete reports whether the user is linked to an athlete profile
func (u *SessionUser) HasAthlete() bool {
	return u != nil && u.AthleteID != nil
}

// Clone returns a deep copy so snapshots never share the athlete pointer
func (u *SessionUser) Clone() *SessionUser {
	if u == nil {
		return nil
	}
	out := *u
	out.AthleteID = cloneID(u.AthleteID)
	return &out
}

func (u SessionUser) String() string {
	athlete := "<nil>"
	if u.AthleteID != nil {
		athlete = formatNumericClaim(*u.AthleteID)
	}
	return fmt.Sprintf("user=%d email=%s athlete=%s", u.ID, u.Email, athlete)
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DecodeSession reads the session claims without checking the signature,
// the way a browser client inspects its own token. Every failure is
// reported as an error wrapping ErrTokenRejected.
func DecodeSession(token string, now time.Time) (*SessionUser, error) {
	return defaultDecoder.Decode(token, now)
}

var defaultDecoder = NewSessionDecoder()

// SessionDecoder decodes bearer tokens, optionally verifying signatures
type SessionDecoder struct {
	signingKey []byte
	keyFunc    jwt.Keyfunc
	methods    []string
}

// SessionDecoderOption customizes a SessionDecoder
type SessionDecoderOption func(*SessionDecoder)

// WithDecoderSigningKey requires an HMAC signature made with key
func WithDecoderSigningKey(key []byte) SessionDecoderOption {
	return func(d *SessionDecoder) {
		if len(key) > 0 {
			d.signingKey = key
		}
	}
}

// WithDecoderKeyfunc verifies signatures with a custom key lookup, e.g. JWKS
func WithDecoderKeyfunc(fn jwt.Keyfunc) SessionDecoderOption {
	return func(d *SessionDecoder) {
		if fn != nil {
			d.keyFunc = fn
		}
	}
}

// WithDecoderMethods restricts accepted signing algorithms
func WithDecoderMethods(methods ...string) SessionDecoderOption {
	return func(d *SessionDecoder) {
		if len(methods) > 0 {
			d.methods = methods
		}
	}
}

// NewSessionDecoder returns a decoder, unverified unless a key is configured
func NewSessionDecoder(opts ...SessionDecoderOption) *SessionDecoder {
	d := &SessionDecoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Verifies reports whether signatures are checked
func (d *SessionDecoder) Verifies() bool {
	return len(d.signingKey) > 0 || d.keyFunc != nil
}

// Decode satisfies the Decoder interface
func (d *SessionDecoder) Decode(token string, now time.Time) (user *SessionUser, err error) {
	defer func() {
		if r := recover(); r != nil {
			user = nil
			err = fmt.Errorf("%w: %v", ErrMalformedToken, r)
		}
	}()

	if token == "" {
		return nil, ErrMalformedToken
	}

	claims, err := d.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}

	if claims.ExpiresAt.Time.Before(now) {
		return nil, ErrExpiredToken
	}

	user, err = claims.ToSessionUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return user, nil
}

// parse never validates registered claims, expiry is checked against the
// caller supplied clock instead of time.Now
func (d *SessionDecoder) parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	parserOptions := []jwt.ParserOption{jwt.WithoutClaimsValidation()}
	if len(d.methods) > 0 {
		parserOptions = append(parserOptions, jwt.WithValidMethods(d.methods))
	}
	parser := jwt.NewParser(parserOptions...)

	if !d.Verifies() {
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	keyFunc := d.keyFunc
	if keyFunc == nil {
		keyFunc = func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return d.signingKey, nil
		}
	}

	parsed, err := parser.ParseWithClaims(token, claims, keyFunc)
	if err != nil {
		return nil, err
	}

	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

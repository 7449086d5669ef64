package wodstrat

// TokenValidator turns a bearer token into session claims.
type TokenValidator interface {
	Validate(tokenString string) (*SessionClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*SessionClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*SessionClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

type issuerLink struct {
	name      string
	validator TokenValidator
}

// ValidatorChain accepts bearer tokens from several issuers, e.g. the
// local TokenService followed by a JWKS backed identity provider.
//
// A malformed result moves on to the next issuer. Any other failure,
// including an expired token, ends the chain with that error.
type ValidatorChain struct {
	links  []issuerLink
	logger Logger
}

// NewValidatorChain returns an empty chain. Validate on an empty chain
// reports ErrTokenMalformed.
func NewValidatorChain(logger Logger) *ValidatorChain {
	if logger == nil {
		logger = defLogger{}
	}
	return &ValidatorChain{logger: logger}
}

// Trust appends an issuer. Nil validators are ignored.
func (c *ValidatorChain) Trust(name string, v TokenValidator) *ValidatorChain {
	if v != nil {
		c.links = append(c.links, issuerLink{name: name, validator: v})
	}
	return c
}

// Issuers lists the trusted issuer names in evaluation order.
func (c *ValidatorChain) Issuers() []string {
	out := make([]string, 0, len(c.links))
	for _, l := range c.links {
		out = append(out, l.name)
	}
	return out
}

// Validate satisfies the TokenValidator interface.
func (c *ValidatorChain) Validate(tokenString string) (*SessionClaims, error) {
	lastErr := error(ErrTokenMalformed)
	for _, l := range c.links {
		claims, err := l.validator.Validate(tokenString)
		switch {
		case err == nil:
			c.logger.Debug("bearer token accepted by %s", l.name)
			return claims, nil
		case IsMalformedError(err):
			lastErr = err
		default:
			c.logger.Debug("bearer token refused by %s: %s", l.name, err)
			return nil, err
		}
	}
	return nil, lastErr
}

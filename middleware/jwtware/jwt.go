package jwtware

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	defaultTokenLookup       = "header:Authorization"
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator validates raw tokens into claims of type C without
// importing the package that defines them
type TokenValidator[C any] interface {
	Validate(tokenString string) (C, error)
}

// ValidationListener is invoked after a token has been validated but before the handler runs.
type ValidationListener[C any] func(r *http.Request, claims C) error

// ErrorHandler writes the response for a rejected request
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type Config[C any] struct {
	// Filter skips the middleware when it returns true
	Filter       func(*http.Request) bool
	ErrorHandler ErrorHandler
	// TokenLookup is a comma separated list of source:name pairs,
	// e.g. "header:Authorization,cookie:jwt,query:auth_token"
	TokenLookup string
	AuthScheme  string
	// TokenValidator is required for token validation
	TokenValidator TokenValidator[C]

	// ContextEnricher propagates claims to the request context.
	ContextEnricher func(ctx context.Context, claims C) context.Context

	ValidationListeners []ValidationListener[C]
}

// New returns chi compatible bearer token middleware
func New[C any](config ...Config[C]) func(http.Handler) http.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Filter != nil && cfg.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := ExtractRawToken(r, extractors)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			if err := cfg.runValidationListeners(r, claims); err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			if cfg.ContextEnricher != nil {
				r = r.WithContext(cfg.ContextEnricher(r.Context(), claims))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractRawToken returns the first token found by extractors
func ExtractRawToken(r *http.Request, extractors []JWTExtractor) (string, error) {
	raw := ""
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(r)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig[C any](config ...Config[C]) (cfg Config[C]) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, ErrJWTMissingOrMalformed) {
				http.Error(w, ErrJWTMissingOrMalformed.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		}
	}

	if cfg.TokenValidator == nil {
		panic("WODSTRAT: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config[C]) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config[C]) runValidationListeners(r *http.Request, claims C) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(r, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:jwt,query:auth_token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(r *http.Request) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(r *http.Request) (string, error) {
		a := r.Header.Get(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l+1:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(r *http.Request) (string, error) {
		token := r.URL.Query().Get(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(r *http.Request) (string, error) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return c.Value, nil
	}
}

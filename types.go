package wodstrat

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore persists the bearer token between runs. An absent token is
// reported as an empty string with a nil error.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Decoder turns a bearer token into a session identity
type Decoder interface {
	Decode(token string, now time.Time) (*SessionUser, error)
}

// DecoderFunc adapts a function into a Decoder.
type DecoderFunc func(token string, now time.Time) (*SessionUser, error)

// Decode satisfies the Decoder interface.
func (f DecoderFunc) Decode(token string, now time.Time) (*SessionUser, error) {
	if f == nil {
		return nil, ErrMalformedToken
	}
	return f(token, now)
}

// Navigator performs a client side redirect
type Navigator interface {
	Redirect(ctx context.Context, path string) error
}

// NavigatorFunc adapts a function into a Navigator.
type NavigatorFunc func(ctx context.Context, path string) error

// Redirect satisfies the Navigator interface.
func (f NavigatorFunc) Redirect(ctx context.Context, path string) error {
	if f == nil {
		return nil
	}
	return f(ctx, path)
}

// GateMetrics records route gate outcomes
type GateMetrics interface {
	RecordGateDecision(decision string)
}

type noopGateMetrics struct{}

func (noopGateMetrics) RecordGateDecision(string) {}

// Config holds the settings the identity API needs
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetIssuer() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] WODSTRAT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] WODSTRAT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] WODSTRAT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] WODSTRAT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

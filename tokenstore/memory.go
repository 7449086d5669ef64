// Package tokenstore provides wodstrat.TokenStore implementations.
package tokenstore

import (
	"context"
	"sync"

	"github.com/goliatone/go-wodstrat"
)

// Memory keeps the token in process
type Memory struct {
	mu    sync.RWMutex
	token string
}

var _ wodstrat.TokenStore = (*Memory)(nil)

// NewMemory returns a store seeded with token, which may be empty
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Get(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *Memory) Set(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	return m.Set(ctx, "")
}

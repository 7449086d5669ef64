package wodstrat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wodstrat"
	"github.com/goliatone/go-wodstrat/database"
	"github.com/goliatone/go-wodstrat/migrations"
)

var testSigningKey = []byte("test-signing-key")

// MockLogger implements wodstrat.Logger for testing
type MockLogger struct{}

func (MockLogger) Debug(format string, args ...any) {}
func (MockLogger) Info(format string, args ...any)  {}
func (MockLogger) Warn(format string, args ...any)  {}
func (MockLogger) Error(format string, args ...any) {}

// MockTokenStore implements wodstrat.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Get(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) Set(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// memStore is a plain in memory store that counts clears
type memStore struct {
	mu     sync.Mutex
	token  string
	clears int
}

func (s *memStore) Get(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

func (s *memStore) value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// blockingStore holds Get until release is closed
type blockingStore struct {
	memStore
	entered chan struct{}
	release chan struct{}
}

func newBlockingStore(token string) *blockingStore {
	s := &blockingStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s.token = token
	return s
}

func (s *blockingStore) Get(ctx context.Context) (string, error) {
	token, _ := s.memStore.Get(ctx)
	close(s.entered)
	<-s.release
	return token, nil
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []wodstrat.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event wodstrat.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []wodstrat.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wodstrat.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)
	return token
}

func sessionToken(t *testing.T, sub, email string, athleteID string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   exp.Unix(),
	}
	if athleteID != "" {
		claims["athleteId"] = athleteID
	}
	return signToken(t, claims)
}

func int64Ptr(v int64) *int64 {
	return &v
}

// newTestRepos opens a migrated in memory sqlite database
func newTestRepos(t *testing.T) wodstrat.RepositoryManager {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.Up(ctx, db, nil)
	require.NoError(t, err)

	repos := wodstrat.NewRepositoryManager(db)
	require.NoError(t, repos.Validate())
	return repos
}

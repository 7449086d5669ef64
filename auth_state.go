package wodstrat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AuthState is the observable session record. Snapshots are values, the
// User pointer is copied per snapshot.
type AuthState struct {
	User            *SessionUser
	Token           string
	IsAuthenticated bool
	IsLoading       bool
}

func (s AuthState) clone() AuthState {
	s.User = s.User.Clone()
	return s
}

// HasAthlete reports whether the session user is linked to an athlete
func (s AuthState) HasAthlete() bool {
	return s.User.HasAthlete()
}

func unauthenticatedState() AuthState {
	return AuthState{}
}

func authenticatedState(user *SessionUser, token string) AuthState {
	return AuthState{
		User:            user,
		Token:           token,
		IsAuthenticated: user != nil && token != "",
	}
}

// StateManagerOption customizes state manager construction.
type StateManagerOption func(*StateManager)

// WithStateDecoder overrides the decoder used on Initialize and Login
func WithStateDecoder(decoder Decoder) StateManagerOption {
	return func(m *StateManager) {
		if decoder != nil {
			m.decoder = decoder
		}
	}
}

// WithStateClock injects a custom clock (useful for tests).
func WithStateClock(clock func() time.Time) StateManagerOption {
	return func(m *StateManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithStateLogger overrides the logger
func WithStateLogger(logger Logger) StateManagerOption {
	return func(m *StateManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithStateActivitySink sets the ActivitySink used to publish session events.
func WithStateActivitySink(sink ActivitySink) StateManagerOption {
	return func(m *StateManager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// StateManager owns the authenticated session lifecycle.
//
// Every Initialize, Login and Logout takes a new generation. An Initialize
// that completes after a newer call has started is discarded, so a slow
// token store read can never resurrect a session that was logged out.
// The generation only moves while storeMu is held, which also orders the
// token store writes.
type StateManager struct {
	storeMu sync.Mutex

	mu         sync.Mutex
	state      AuthState
	generation uint64
	events     *publisher[AuthState]

	store        TokenStore
	decoder      Decoder
	now          func() time.Time
	logger       Logger
	activitySink ActivitySink
}

// NewStateManager returns a manager in the loading state. Call Initialize
// to restore a stored session.
func NewStateManager(store TokenStore, opts ...StateManagerOption) *StateManager {
	m := &StateManager{
		state:        AuthState{IsLoading: true},
		events:       newPublisher(AuthState.clone),
		store:        store,
		decoder:      defaultDecoder,
		now:          time.Now,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// State returns a snapshot of the current state
func (m *StateManager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn for state changes. fn receives the current state
// right away. Call the returned function to stop listening.
func (m *StateManager) Subscribe(fn func(AuthState)) func() {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	unsubscribe := m.events.subscribe(fn, m.state.clone())
	m.mu.Unlock()

	m.flush()
	return unsubscribe
}

// Initialize restores the session from the token store. Rejected tokens
// are cleared from the store. A store read error leaves the session
// unauthenticated and is returned after the state settles.
func (m *StateManager) Initialize(ctx context.Context) (AuthState, error) {
	m.storeMu.Lock()
	m.mu.Lock()
	m.generation++
	gen := m.generation
	if !m.state.IsLoading {
		next := m.state
		next.IsLoading = true
		m.commit(next)
	}
	m.mu.Unlock()
	m.storeMu.Unlock()
	m.flush()

	token, readErr := m.store.Get(ctx)
	if readErr != nil {
		m.logger.Error("Initialize token store read failed: %v", readErr)
		token = ""
	}

	var user *SessionUser
	var decodeErr error
	if token != "" {
		user, decodeErr = m.decoder.Decode(token, m.now())
	}

	m.storeMu.Lock()
	if stale, snapshot := m.isStale(gen); stale {
		m.storeMu.Unlock()
		m.logger.Debug("Initialize result discarded, generation %d superseded", gen)
		return snapshot, nil
	}

	var snapshot AuthState
	var event *ActivityEvent
	var err error

	switch {
	case readErr != nil:
		snapshot = m.apply(unauthenticatedState())
		err = fmt.Errorf("read token store: %w", readErr)
	case token == "":
		snapshot = m.apply(unauthenticatedState())
	case decodeErr != nil:
		m.logger.Info("Initialize stored token rejected: %v", decodeErr)
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error("Initialize token store clear failed: %v", clearErr)
			err = fmt.Errorf("clear token store: %w", clearErr)
		}
		snapshot = m.apply(unauthenticatedState())
		event = &ActivityEvent{
			EventType: ActivityEventSessionRejected,
			Metadata:  map[string]any{"error": decodeErr.Error()},
		}
	default:
		snapshot = m.apply(authenticatedState(user, token))
		event = &ActivityEvent{
			EventType: ActivityEventSessionRestored,
			Actor:     userActor(user.ID),
			UserID:    formatNumericClaim(user.ID),
		}
	}

	m.storeMu.Unlock()
	m.flush()

	if event != nil {
		m.emit(ctx, *event)
	}

	return snapshot, err
}

// Login adopts a freshly issued token. A rejected token leaves the state
// untouched and returns an error wrapping ErrLoginFailed.
func (m *StateManager) Login(ctx context.Context, token string) error {
	user, err := m.decoder.Decode(token, m.now())
	if err != nil {
		m.logger.Info("Login token rejected: %v", err)
		m.emit(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	m.storeMu.Lock()
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()

	if err := m.store.Set(ctx, token); err != nil {
		m.logger.Warn("Login token store write failed, session kept in memory: %v", err)
	}

	m.mu.Lock()
	m.commit(authenticatedState(user, token))
	m.mu.Unlock()
	m.storeMu.Unlock()
	m.flush()

	m.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     userActor(user.ID),
		UserID:    formatNumericClaim(user.ID),
	})

	return nil
}

// Logout clears the token store and the session. The state is reset even
// when the store fails to clear.
func (m *StateManager) Logout(ctx context.Context) error {
	m.storeMu.Lock()
	m.mu.Lock()
	m.generation++
	var userID string
	if m.state.User != nil {
		userID = formatNumericClaim(m.state.User.ID)
	}
	m.mu.Unlock()

	clearErr := m.store.Clear(ctx)
	if clearErr != nil {
		m.logger.Error("Logout token store clear failed: %v", clearErr)
	}

	m.mu.Lock()
	m.commit(unauthenticatedState())
	m.mu.Unlock()
	m.storeMu.Unlock()
	m.flush()

	m.emit(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    userID,
	})

	if clearErr != nil {
		return fmt.Errorf("clear token store: %w", clearErr)
	}
	return nil
}

// UpdateAthleteID patches the athlete link of the current user without
// decoding the token again. It is a no-op without a user.
func (m *StateManager) UpdateAthleteID(id *int64) {
	m.mu.Lock()
	if m.state.User == nil || sameID(m.state.User.AthleteID, id) {
		m.mu.Unlock()
		return
	}

	next := m.state
	next.User = m.state.User.Clone()
	next.User.AthleteID = cloneID(id)
	userID := next.User.ID
	m.commit(next)
	m.mu.Unlock()
	m.flush()

	metadata := map[string]any{}
	if id != nil {
		metadata["athlete_id"] = *id
	}
	m.emit(context.Background(), ActivityEvent{
		EventType: ActivityEventAthleteLinked,
		Actor:     userActor(userID),
		UserID:    formatNumericClaim(userID),
		Metadata:  metadata,
	})
}

func (m *StateManager) isStale(gen uint64) (bool, AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return true, m.state.clone()
	}
	return false, AuthState{}
}

func (m *StateManager) apply(next AuthState) AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(next)
}

// commit must be called with mu held
func (m *StateManager) commit(next AuthState) AuthState {
	m.state = next
	snapshot := next.clone()
	m.events.enqueue(snapshot)
	return snapshot.clone()
}

func (m *StateManager) flush() {
	m.events.flush()
}

func (m *StateManager) emit(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, m.activitySink, m.logger, m.now, event)
}

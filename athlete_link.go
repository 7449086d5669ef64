package wodstrat

import "sync"

// LinkState is what AthleteLink publishes. The auth flags are copied from
// the same StateManager update the athlete id was synced from, so a
// LinkState never mixes the old session with the new athlete link.
type LinkState struct {
	AthleteID       *int64
	HasAthlete      bool
	IsAuthenticated bool
	IsLoading       bool
}

func (s LinkState) clone() LinkState {
	s.AthleteID = cloneID(s.AthleteID)
	return s
}

func (s LinkState) equal(other LinkState) bool {
	return s.IsAuthenticated == other.IsAuthenticated &&
		s.IsLoading == other.IsLoading &&
		sameID(s.AthleteID, other.AthleteID)
}

// AthleteLinkOption customizes an AthleteLink
type AthleteLinkOption func(*AthleteLink)

// WithAthleteLinkLogger overrides the logger
func WithAthleteLinkLogger(logger Logger) AthleteLinkOption {
	return func(l *AthleteLink) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// AthleteLink tracks whether the session user has completed the athlete
// profile. It mirrors the manager's User.AthleteID, re-syncing only when
// the upstream athlete id or authentication flag change, so local
// overrides survive unrelated upstream updates.
type AthleteLink struct {
	mu        sync.Mutex
	manager   *StateManager
	athleteID *int64
	auth      bool
	loading   bool
	observed  linkObservation
	published LinkState
	announced bool
	events    *publisher[LinkState]
	logger    Logger
	stop      func()
}

type linkObservation struct {
	seen          bool
	athleteID     *int64
	authenticated bool
}

func (o linkObservation) equal(other linkObservation) bool {
	return o.seen == other.seen &&
		o.authenticated == other.authenticated &&
		sameID(o.athleteID, other.athleteID)
}

// NewAthleteLink subscribes to manager and starts mirroring its athlete id
func NewAthleteLink(manager *StateManager, opts ...AthleteLinkOption) *AthleteLink {
	l := &AthleteLink{
		manager: manager,
		events:  newPublisher(LinkState.clone),
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	l.stop = manager.Subscribe(l.sync)
	return l
}

func (l *AthleteLink) sync(state AuthState) {
	var upstream *int64
	if state.User != nil {
		upstream = state.User.AthleteID
	}

	obs := linkObservation{
		seen:          true,
		athleteID:     cloneID(upstream),
		authenticated: state.IsAuthenticated,
	}

	l.mu.Lock()
	if !l.observed.equal(obs) {
		l.observed = obs
		switch {
		case state.User != nil:
			l.athleteID = cloneID(state.User.AthleteID)
		case !state.IsAuthenticated:
			l.athleteID = nil
		}
	}
	l.auth = state.IsAuthenticated
	l.loading = state.IsLoading
	l.publishLocked()
	l.mu.Unlock()

	l.events.flush()
}

// snapshotLocked must be called with mu held
func (l *AthleteLink) snapshotLocked() LinkState {
	return LinkState{
		AthleteID:       cloneID(l.athleteID),
		HasAthlete:      l.athleteID != nil,
		IsAuthenticated: l.auth,
		IsLoading:       l.loading,
	}
}

// publishLocked queues the snapshot when it differs from the last one.
// Must be called with mu held.
func (l *AthleteLink) publishLocked() {
	next := l.snapshotLocked()
	if l.announced && next.equal(l.published) {
		return
	}
	l.published = next.clone()
	l.announced = true
	l.events.enqueue(next)
}

// SetAthleteID records the athlete created for the session user. A
// non-nil id is pushed to the StateManager as well; nil stays local.
func (l *AthleteLink) SetAthleteID(id *int64) {
	l.mu.Lock()
	l.athleteID = cloneID(id)
	l.publishLocked()
	l.mu.Unlock()
	l.events.flush()

	if id != nil {
		l.logger.Debug("AthleteLink propagating athlete %d upstream", *id)
		l.manager.UpdateAthleteID(id)
	}
}

// ClearAthlete drops the local link without touching the StateManager
func (l *AthleteLink) ClearAthlete() {
	l.mu.Lock()
	l.athleteID = nil
	l.publishLocked()
	l.mu.Unlock()
	l.events.flush()
}

// AthleteID returns a copy of the tracked athlete id
func (l *AthleteLink) AthleteID() *int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneID(l.athleteID)
}

// HasAthlete reports whether an athlete profile is linked
func (l *AthleteLink) HasAthlete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.athleteID != nil
}

// State returns the current link snapshot
func (l *AthleteLink) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Subscribe registers fn for link changes, fn receives the current value first
func (l *AthleteLink) Subscribe(fn func(LinkState)) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	unsubscribe := l.events.subscribe(fn, l.snapshotLocked())
	l.mu.Unlock()

	l.events.flush()
	return unsubscribe
}

// Close stops mirroring the manager
func (l *AthleteLink) Close() {
	if l.stop != nil {
		l.stop()
	}
}

package wodstrat

import (
	"context"
	"sync"
)

// GateBinderOption customizes a GateBinder
type GateBinderOption func(*GateBinder)

// WithBinderLogger overrides the logger
func WithBinderLogger(logger Logger) GateBinderOption {
	return func(b *GateBinder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithInitialPath sets the path the client starts on
func WithInitialPath(path string) GateBinderOption {
	return func(b *GateBinder) {
		b.path = path
	}
}

// GateBinder feeds AthleteLink snapshots plus navigations into a RouteGate
// and performs the redirects it decides on. It listens to the link only:
// each LinkState carries the auth flags of the StateManager update it was
// synced from, so the gate always sees a consistent pair.
type GateBinder struct {
	mu        sync.Mutex
	ctx       context.Context
	gate      *RouteGate
	navigator Navigator
	session   LinkState
	path      string
	decisions []GateDecision
	logger    Logger
	stops     []func()
}

// BindRouteGate wires gate to the session seen through link. The gate is
// evaluated with the current state right away.
func BindRouteGate(ctx context.Context, link *AthleteLink, navigator Navigator, gate *RouteGate, opts ...GateBinderOption) *GateBinder {
	if gate == nil {
		gate = NewRouteGate()
	}

	if navigator == nil {
		navigator = NavigatorFunc(nil)
	}

	b := &GateBinder{
		ctx:       ctx,
		gate:      gate,
		navigator: navigator,
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	b.stops = append(b.stops, link.Subscribe(func(state LinkState) {
		b.mu.Lock()
		b.session = state
		b.mu.Unlock()
		b.evaluate()
	}))

	return b
}

// Navigate records a user initiated navigation and re-runs the gate
func (b *GateBinder) Navigate(path string) {
	b.mu.Lock()
	b.path = path
	b.mu.Unlock()
	b.evaluate()
}

// Path returns the current path
func (b *GateBinder) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Decisions returns every decision the gate emitted, oldest first
func (b *GateBinder) Decisions() []GateDecision {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]GateDecision, len(b.decisions))
	copy(out, b.decisions)
	return out
}

// LastDecision returns the latest decision, false if none was made yet
func (b *GateBinder) LastDecision() (GateDecision, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.decisions) == 0 {
		return "", false
	}
	return b.decisions[len(b.decisions)-1], true
}

// Close unsubscribes from the link
func (b *GateBinder) Close() {
	for _, stop := range b.stops {
		stop()
	}
	b.stops = nil
}

func (b *GateBinder) evaluate() {
	b.mu.Lock()
	in := GateInput{
		IsAuthenticated: b.session.IsAuthenticated,
		HasAthlete:      b.session.HasAthlete,
		IsLoading:       b.session.IsLoading,
		Path:            b.path,
	}
	b.mu.Unlock()

	decision, ok := b.gate.Evaluate(in)
	if !ok {
		return
	}

	b.mu.Lock()
	b.decisions = append(b.decisions, decision)
	b.mu.Unlock()

	if !decision.IsRedirect() {
		return
	}

	target := b.gate.RedirectTarget(decision)
	if err := b.navigator.Redirect(b.ctx, target); err != nil {
		b.logger.Error("GateBinder redirect to %s failed: %v", target, err)
		return
	}

	b.Navigate(target)
}

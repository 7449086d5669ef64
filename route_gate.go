package wodstrat

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultProfileSetupPath = "/profile/new"
	DefaultProfileHomePath  = "/profile"
)

// GateState is the route gate lifecycle state
type GateState string

const (
	GateLoading  GateState = "loading"
	GateDeciding GateState = "deciding"
	GateSettled  GateState = "settled"
)

// GateDecision is the outcome of a route gate evaluation
type GateDecision string

const (
	DecisionAllow                  GateDecision = "allow"
	DecisionRedirectToProfileSetup GateDecision = "redirect_profile_setup"
	DecisionRedirectToProfileHome  GateDecision = "redirect_profile_home"
)

// IsRedirect reports whether the decision requires navigation
func (d GateDecision) IsRedirect() bool {
	return d == DecisionRedirectToProfileSetup || d == DecisionRedirectToProfileHome
}

// GateInput is everything the gate looks at
type GateInput struct {
	IsAuthenticated bool
	HasAthlete      bool
	IsLoading       bool
	Path            string
}

type gatePair struct {
	authenticated bool
	hasAthlete    bool
}

// RouteGateOption customizes route gate construction.
type RouteGateOption func(*RouteGate)

// WithProfileSetupPath sets the path users without an athlete are sent to
func WithProfileSetupPath(path string) RouteGateOption {
	return func(g *RouteGate) {
		if path != "" {
			g.setupPath = path
		}
	}
}

// WithProfileHomePath sets the path linked users are sent to from setup
func WithProfileHomePath(path string) RouteGateOption {
	return func(g *RouteGate) {
		if path != "" {
			g.homePath = path
		}
	}
}

// WithGateLogger overrides the logger
func WithGateLogger(logger Logger) RouteGateOption {
	return func(g *RouteGate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGateActivitySink publishes redirect and allow events
func WithGateActivitySink(sink ActivitySink) RouteGateOption {
	return func(g *RouteGate) {
		g.activitySink = normalizeActivitySink(sink)
	}
}

// WithGateMetrics records decisions
func WithGateMetrics(metrics GateMetrics) RouteGateOption {
	return func(g *RouteGate) {
		if metrics != nil {
			g.metrics = metrics
		}
	}
}

// WithGateClock injects a custom clock (useful for tests).
func WithGateClock(clock func() time.Time) RouteGateOption {
	return func(g *RouteGate) {
		if clock != nil {
			g.now = clock
		}
	}
}

// RouteGate decides forced navigation for the profile completion flow.
//
// A decision is made once per auth window: when loading finishes, or when
// the (authenticated, has athlete) pair changes. While settled, plain path
// changes are not re-checked, so a user who navigates away after a
// redirect is not bounced back.
type RouteGate struct {
	mu       sync.Mutex
	state    GateState
	lastPair gatePair
	hasPair  bool

	setupPath    string
	homePath     string
	logger       Logger
	activitySink ActivitySink
	metrics      GateMetrics
	now          func() time.Time
}

// NewRouteGate returns a gate in the loading state
func NewRouteGate(opts ...RouteGateOption) *RouteGate {
	g := &RouteGate{
		state:        GateLoading,
		setupPath:    DefaultProfileSetupPath,
		homePath:     DefaultProfileHomePath,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		metrics:      noopGateMetrics{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// State returns the current gate state
func (g *RouteGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ProfileSetupPath returns the configured setup path
func (g *RouteGate) ProfileSetupPath() string {
	return g.setupPath
}

// ProfileHomePath returns the configured profile home path
func (g *RouteGate) ProfileHomePath() string {
	return g.homePath
}

// RedirectTarget maps a redirect decision to its path, empty for Allow
func (g *RouteGate) RedirectTarget(d GateDecision) string {
	switch d {
	case DecisionRedirectToProfileSetup:
		return g.setupPath
	case DecisionRedirectToProfileHome:
		return g.homePath
	default:
		return ""
	}
}

// Evaluate runs the gate for in. The boolean is false when no decision
// was made (still loading, or already settled for this auth window).
func (g *RouteGate) Evaluate(in GateInput) (GateDecision, bool) {
	g.mu.Lock()

	if in.IsLoading {
		g.state = GateLoading
		g.mu.Unlock()
		return "", false
	}

	pair := gatePair{authenticated: in.IsAuthenticated, hasAthlete: in.HasAthlete}
	if g.state == GateLoading || !g.hasPair || pair != g.lastPair {
		g.state = GateDeciding
	}
	g.lastPair = pair
	g.hasPair = true

	if g.state != GateDeciding {
		g.mu.Unlock()
		return "", false
	}

	decision := g.decide(in)
	g.state = GateSettled
	g.mu.Unlock()

	g.metrics.RecordGateDecision(string(decision))
	g.record(in, decision)

	return decision, true
}

func (g *RouteGate) decide(in GateInput) GateDecision {
	switch {
	case in.IsAuthenticated && !in.HasAthlete && in.Path != g.setupPath:
		return DecisionRedirectToProfileSetup
	case in.IsAuthenticated && in.HasAthlete && in.Path == g.setupPath:
		return DecisionRedirectToProfileHome
	default:
		return DecisionAllow
	}
}

func (g *RouteGate) record(in GateInput, decision GateDecision) {
	eventType := ActivityEventGateAllow
	metadata := map[string]any{
		"path":          in.Path,
		"authenticated": in.IsAuthenticated,
		"has_athlete":   in.HasAthlete,
		"decision":      string(decision),
	}

	if decision.IsRedirect() {
		eventType = ActivityEventGateRedirect
		metadata["target"] = g.RedirectTarget(decision)
		g.logger.Info("RouteGate redirect from %s to %s", in.Path, g.RedirectTarget(decision))
	} else {
		g.logger.Debug("RouteGate allow %s", in.Path)
	}

	recordActivity(context.Background(), g.activitySink, g.logger, g.now, ActivityEvent{
		EventType: eventType,
		Metadata:  metadata,
	})
}

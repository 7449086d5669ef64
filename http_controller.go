package wodstrat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-wodstrat/middleware/jwtware"
)

// APIRoutes are the mount points of the identity and athlete API
type APIRoutes struct {
	Prefix    string
	Register  string
	Login     string
	Refresh   string
	Athletes  string
	MyAthlete string
	Health    string
	Metrics   string
}

// APIController serves the JSON API over chi
type APIController struct {
	Logger         Logger
	Routes         *APIRoutes
	Auther         *Auther
	Athletes       *CreateAthleteHandler
	Validator      TokenValidator
	Listeners      []ValidationListener
	LoginLimiter   *IPRateLimiter
	CORSOrigins    []string
	MetricsHandler http.Handler
	Middleware     []func(http.Handler) http.Handler
	ErrorHandler   ErrorHandler
}

type APIControllerOption func(*APIController) *APIController

func WithAPILogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithAPIValidator replaces the bearer validator, e.g. with a ValidatorChain
func WithAPIValidator(v TokenValidator) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Validator = v
		return c
	}
}

// WithValidationListeners runs listeners on every accepted bearer token
func WithValidationListeners(listeners ...ValidationListener) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Listeners = append(c.Listeners, listeners...)
		return c
	}
}

func WithLoginRateLimit(rps float64, burst int) APIControllerOption {
	return func(c *APIController) *APIController {
		if rps > 0 {
			c.LoginLimiter = NewIPRateLimiter(rps, burst)
		}
		return c
	}
}

func WithCORSOrigins(origins ...string) APIControllerOption {
	return func(c *APIController) *APIController {
		c.CORSOrigins = origins
		return c
	}
}

func WithMetricsHandler(h http.Handler) APIControllerOption {
	return func(c *APIController) *APIController {
		c.MetricsHandler = h
		return c
	}
}

// WithAPIMiddleware appends router level middleware, e.g. request metrics
func WithAPIMiddleware(mw ...func(http.Handler) http.Handler) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Middleware = append(c.Middleware, mw...)
		return c
	}
}

func WithAPIErrorHandler(h ErrorHandler) APIControllerOption {
	return func(c *APIController) *APIController {
		if h != nil {
			c.ErrorHandler = h
		}
		return c
	}
}

func NewAPIController(auther *Auther, athletes *CreateAthleteHandler, opts ...APIControllerOption) *APIController {
	if auther == nil {
		panic("Missing Auther in api controller...")
	}

	if athletes == nil {
		panic("Missing CreateAthleteHandler in api controller...")
	}

	c := &APIController{
		Logger:   defLogger{},
		Auther:   auther,
		Athletes: athletes,
		Routes: &APIRoutes{
			Prefix:    "/api",
			Register:  "/auth/register",
			Login:     "/auth/login",
			Refresh:   "/auth/refresh",
			Athletes:  "/athletes",
			MyAthlete: "/athletes/me",
			Health:    "/healthz",
			Metrics:   "/metrics",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = NewErrorHandler(c.Logger)
	}

	if c.Validator == nil {
		c.Validator = auther.TokenService()
	}

	return c
}

// Handler builds the chi router
func (a *APIController) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(NewRecoveryMiddleware(a.Logger, a.ErrorHandler))
	r.Use(NewCORSMiddleware(a.CORSOrigins))
	for _, mw := range a.Middleware {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		a.ErrorHandler(w, req, cloneErr(ErrRecordNotFound).WithMetadata(map[string]any{"path": req.URL.Path}))
	})

	r.Get(a.Routes.Health, a.Health)
	if a.MetricsHandler != nil {
		r.Method(http.MethodGet, a.Routes.Metrics, a.MetricsHandler)
	}

	bearerCfg := jwtware.Config[*SessionClaims]{
		TokenValidator:  a.Validator,
		ContextEnricher: WithClaimsContext,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			a.ErrorHandler(w, req, err)
		},
	}
	RegisterValidationListeners(&bearerCfg, a.Listeners...)
	bearer := jwtware.New(bearerCfg)

	r.Route(a.Routes.Prefix, func(r chi.Router) {
		r.Post(a.Routes.Register, a.Register)

		if a.LoginLimiter != nil {
			r.With(a.LoginLimiter.Middleware(a.ErrorHandler)).Post(a.Routes.Login, a.Login)
		} else {
			r.Post(a.Routes.Login, a.Login)
		}

		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Post(a.Routes.Refresh, a.Refresh)
			r.Post(a.Routes.Athletes, a.CreateAthlete)
			r.Get(a.Routes.MyAthlete, a.MyAthlete)
		})
	})

	return r
}

func (a *APIController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *APIController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	resp, err := a.Auther.Register(r.Context(), req)
	if err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (a *APIController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	resp, err := a.Auther.Login(r.Context(), req)
	if err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *APIController) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		a.ErrorHandler(w, r, ErrUnauthorized)
		return
	}

	resp, err := a.Auther.Refresh(r.Context(), userID)
	if err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *APIController) CreateAthlete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		a.ErrorHandler(w, r, ErrUnauthorized)
		return
	}

	var req CreateAthleteRequest
	if err := decodeJSON(r, &req); err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	athlete, err := a.Athletes.Execute(r.Context(), CreateAthleteMessage{UserID: userID, Request: req})
	if err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewAthleteResponse(athlete))
}

func (a *APIController) MyAthlete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		a.ErrorHandler(w, r, ErrUnauthorized)
		return
	}

	athlete, err := a.Athletes.GetAthleteByUser(r.Context(), userID)
	if err != nil {
		a.ErrorHandler(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, NewAthleteResponse(athlete))
}

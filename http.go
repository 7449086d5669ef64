package wodstrat

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the wire shape of API errors
type ErrorBody struct {
	Message  string         `json:"message"`
	TextCode string         `json:"text_code,omitempty"`
	Category string         `json:"category,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ErrorEnvelope wraps ErrorBody as {"error": {...}}
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorHandler writes err to w
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AsRichError maps any error to a go-errors error with an HTTP code
func AsRichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code == 0 {
			richErr = richErr.Clone().WithCode(codeForCategory(richErr.Category))
		}
		return richErr
	}

	if IsTokenExpiredError(err) {
		return ErrTokenExpired
	}

	if IsMalformedError(err) {
		return ErrUnauthorized
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
		WithTextCode(TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}

func codeForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return goerrors.CodeUnauthorized
	case goerrors.CategoryAuthz:
		return goerrors.CodeForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return goerrors.CodeBadRequest
	case goerrors.CategoryNotFound:
		return goerrors.CodeNotFound
	case goerrors.CategoryConflict:
		return goerrors.CodeConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return goerrors.CodeInternal
	}
}

// NewErrorHandler returns the default JSON error handler
func NewErrorHandler(logger Logger) ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(w http.ResponseWriter, r *http.Request, err error) {
		richErr := AsRichError(err)

		body := ErrorBody{
			Message:  richErr.Message,
			TextCode: richErr.TextCode,
			Category: string(richErr.Category),
		}

		if richErr.Code >= http.StatusInternalServerError {
			logger.Error("%s %s failed: %s details=%s", r.Method, r.URL.Path, err, print.MaybePrettyJSON(richErr.Metadata))
			body.Message = "An unexpected server error occurred"
		} else {
			logger.Debug("%s %s rejected: %s details=%s", r.Method, r.URL.Path, richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
			if richErr.Category == goerrors.CategoryValidation {
				body.Metadata = richErr.Metadata
			}
		}

		writeJSON(w, richErr.Code, ErrorEnvelope{Error: body})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON reads a single JSON document into dst
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "request body must be valid JSON").
			WithTextCode(TextCodeValidation).
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// NewCORSMiddleware allows the configured origins. An empty list disables CORS headers.
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		if o != "" {
			allowed[o] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewRecoveryMiddleware turns handler panics into 500 responses
func NewRecoveryMiddleware(logger Logger, onError ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
					onError(w, r, errors.New("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

const (
	// limiterCleanupThreshold is the map size before stale entries are pruned
	limiterCleanupThreshold = 500
	limiterMaxIdleAge       = 10 * time.Minute
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP
type IPRateLimiter struct {
	ips map[string]*ipEntry
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a limiter allowing rps requests per second with burst b
func NewIPRateLimiter(rps float64, b int) *IPRateLimiter {
	if b < 1 {
		b = 1
	}
	return &IPRateLimiter{
		ips: make(map[string]*ipEntry),
		r:   rate.Limit(rps),
		b:   b,
	}
}

// GetLimiter returns the bucket for ip, pruning idle entries when the map grows.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.ips) > limiterCleanupThreshold {
		cutoff := time.Now().Add(-limiterMaxIdleAge)
		for k, e := range i.ips {
			if e.lastSeen.Before(cutoff) {
				delete(i.ips, k)
			}
		}
	}

	e, exists := i.ips[ip]
	if !exists {
		e = &ipEntry{limiter: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = e
	}
	e.lastSeen = time.Now()

	return e.limiter
}

// Middleware rejects requests over the limit through onError
func (i *IPRateLimiter) Middleware(onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !i.GetLimiter(ip).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(i.retryAfterSeconds()))
				onError(w, r, ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (i *IPRateLimiter) retryAfterSeconds() int {
	if i.r <= 0 {
		return 60
	}
	secs := int(math.Ceil(1.0 / float64(i.r)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

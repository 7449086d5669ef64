// Package client is a typed HTTP client for the WodStrat API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-wodstrat"
)

const defaultTimeout = 15 * time.Second

// APIError is a decoded error envelope
type APIError struct {
	Status   int
	Message  string
	TextCode string
	Category string
	Metadata map[string]any
}

func (e *APIError) Error() string {
	if e.TextCode != "" {
		return fmt.Sprintf("wodstrat api %d %s: %s", e.Status, e.TextCode, e.Message)
	}
	return fmt.Sprintf("wodstrat api %d: %s", e.Status, e.Message)
}

// Unauthorized reports a 401 response
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// NotFound reports a 404 response
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	tokens     wodstrat.TokenStore
	logger     wodstrat.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenStore attaches the stored bearer token to authenticated calls
func WithTokenStore(store wodstrat.TokenStore) Option {
	return func(c *Client) {
		c.tokens = store
	}
}

func WithLogger(logger wodstrat.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithPrefix overrides the "/api" route prefix
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = "/" + strings.Trim(prefix, "/")
		if c.prefix == "/" {
			c.prefix = ""
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     "/api",
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, req wodstrat.RegisterRequest) (*wodstrat.AuthResponse, error) {
	out := &wodstrat.AuthResponse{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, req wodstrat.LoginRequest) (*wodstrat.AuthResponse, error) {
	out := &wodstrat.AuthResponse{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh trades the stored token for a fresh one carrying the current athleteId
func (c *Client) Refresh(ctx context.Context) (*wodstrat.AuthResponse, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}
	out := &wodstrat.AuthResponse{}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAthlete(ctx context.Context, req wodstrat.CreateAthleteRequest) (*wodstrat.AthleteResponse, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}
	out := &wodstrat.AthleteResponse{}
	if err := c.do(ctx, http.MethodPost, "/athletes", token, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMyAthlete(ctx context.Context) (*wodstrat.AthleteResponse, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}
	out := &wodstrat.AthleteResponse{}
	if err := c.do(ctx, http.MethodGet, "/athletes/me", token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", wodstrat.ErrNoSession
	}
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", wodstrat.ErrNoSession
	}
	return token, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+c.prefix+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug("%s %s -> %d", method, path, resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope wodstrat.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.TextCode = envelope.Error.TextCode
		apiErr.Category = envelope.Error.Category
		apiErr.Metadata = envelope.Error.Metadata
	} else if msg := strings.TrimSpace(string(raw)); msg != "" {
		apiErr.Message = msg
	}

	return apiErr
}

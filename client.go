package zohocrm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/growthpath/zohocrm-go/tokensource"
)

// authScheme is the vendor's Authorization header scheme.
const authScheme = "Zoho-oauthtoken"

// retryStatuses are the transient response classes absorbed by the transport.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTokenManager replaces the token manager built from the config.
// Intended for tests and callers with custom token plumbing.
func WithTokenManager(manager *tokensource.Manager) ClientOption {
	return func(c *Client) {
		c.tokens = manager
	}
}

// Client is an authenticated connection to Zoho CRM.
//
// All operations are synchronous and block on network I/O. The client shares
// two pieces of mutable state across calls: the current access token (owned
// by the token manager) and the user-directory cache. Concurrent calls on one
// instance that both observe an expired token may both refresh; that is
// benign (refresh is idempotent, last write wins) but not linearizable.
type Client struct {
	http    *resty.Client
	tokens  *tokensource.Manager
	baseURL string
	logger  *slog.Logger

	defaultUserName string
	defaultUserID   string

	userMu    sync.Mutex
	userCache []Record
}

// New creates a client and loads the access token: the persisted token is
// read and validated against the API, refreshing it when rejected, absent or
// malformed. A failed refresh is fatal; New never returns a client holding an
// invalid token.
func New(ctx context.Context, cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Client{
		http:            newRetryClient(cfg),
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		logger:          slog.Default(),
		defaultUserName: cfg.DefaultUserName,
		defaultUserID:   cfg.DefaultUserID,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tokens == nil {
		store, err := cfg.Auth.NewTokenStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create token store: %w", err)
		}
		manager, err := tokensource.NewManager(
			cfg.Auth.Credentials(),
			store,
			tokensource.WithEndpoint(tokensource.Endpoint(cfg.AccountsURL)),
			tokensource.WithHTTPClient(resty.New().SetTimeout(cfg.Timeout)),
			tokensource.WithLogger(c.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create token manager: %w", err)
		}
		c.tokens = manager
	}

	if _, err := c.tokens.Load(ctx, c.probe); err != nil {
		return nil, fmt.Errorf("loading access token: %w", err)
	}

	return c, nil
}

// newRetryClient builds the transport: bounded automatic retry with
// exponential backoff on connection errors, 429 and 5xx. A 401 is never
// retried here; it belongs to the validation layer.
func newRetryClient(cfg Config) *resty.Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retry.Count).
		SetRetryWaitTime(cfg.Retry.Wait).
		SetRetryMaxWaitTime(cfg.Retry.MaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// a registered condition replaces resty's built-in
			// connection-error retry, so err must be re-checked here
			return err != nil || (resp != nil && retryStatuses[resp.StatusCode()])
		})
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get("X-Request-Id") == "" {
			req.SetHeader("X-Request-Id", uuid.NewString())
		}
		return nil
	})
	return client
}

// probe is the cheap validation call used when loading a persisted token.
// Only a 401 marks the token invalid; other statuses mean the token was
// accepted (or the API is unhappy for unrelated reasons).
func (c *Client) probe(ctx context.Context, accessToken string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", authScheme+" "+accessToken).
		SetQueryParam("type", defaultUserType).
		Get("/users")
	if err != nil {
		return fmt.Errorf("probing access token: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return authError(resp)
	}
	return nil
}

// request describes one logical API call so it can be replayed verbatim
// (same method, path, query and body) after a token refresh.
type request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   any
}

// send executes the request with the currently loaded access token.
func (c *Client) send(ctx context.Context, req request) (*resty.Response, error) {
	tok := c.tokens.Current()
	if tok == nil {
		return nil, fmt.Errorf("no access token loaded")
	}

	r := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", authScheme+" "+tok.AccessToken)
	if len(req.query) > 0 {
		r.SetQueryParamsFromValues(req.query)
	}
	for key, values := range req.header {
		for _, value := range values {
			r.SetHeader(key, value)
		}
	}
	if req.body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.body)
	}
	return r.Execute(req.method, req.path)
}

// call executes a request and interprets the response through validate.
// A nil body with a nil error means the API answered with no content.
func (c *Client) call(ctx context.Context, req request) ([]byte, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.validate(ctx, req, resp, false)
}

// validate applies the vendor status-code policy:
//
//	200                → body
//	201, 202, 204, 304 → no body
//	401 (first time)   → refresh token, replay the request once, re-validate
//	401 (on a replay)  → AuthenticationError
//	anything else      → AuthenticationError
//
// Centralizing the refresh-and-replay here gives every operation transparent
// re-authentication without its own retry loop. At most one replay happens
// per logical call.
func (c *Client) validate(ctx context.Context, req request, resp *resty.Response, retried bool) ([]byte, error) {
	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Body(), nil
	case http.StatusCreated, http.StatusAccepted, http.StatusNoContent, http.StatusNotModified:
		return nil, nil
	case http.StatusUnauthorized:
		if retried {
			return nil, authError(resp)
		}
		if _, err := c.tokens.Refresh(ctx); err != nil {
			return nil, err
		}
		replay, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		return c.validate(ctx, req, replay, true)
	default:
		return nil, authError(resp)
	}
}

// callReportable executes a write whose ordinary business rejections are
// reportable results rather than errors. A 401 still gets one refresh and
// replay; the final response is handed back for ok/status branching.
func (c *Client) callReportable(ctx context.Context, req request) (*resty.Response, map[string]any, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		if _, err := c.tokens.Refresh(ctx); err != nil {
			return nil, nil, err
		}
		if resp, err = c.send(ctx, req); err != nil {
			return nil, nil, err
		}
	}

	// Vendor bodies are JSON in both the success and the rejection case.
	var body map[string]any
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, nil, &FormatError{URL: resp.Request.URL, Hint: "response body is not JSON"}
		}
	}
	return resp, body, nil
}

// authError builds the fatal error for an unhandled response, unquoting the
// URL for readable diagnostics.
func authError(resp *resty.Response) *AuthenticationError {
	rawURL := resp.Request.URL
	if unquoted, err := url.QueryUnescape(rawURL); err == nil {
		rawURL = unquoted
	}
	return &AuthenticationError{
		Status: resp.StatusCode(),
		Reason: resp.Status(),
		Body:   string(resp.Body()),
		URL:    rawURL,
	}
}

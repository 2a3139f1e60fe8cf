package tokensource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/growthpath/zohocrm-go/tokenstore"
)

// grant parameter values for the refresh-token exchange
const grantTypeRefreshToken = "refresh_token"

const defaultExchangeTimeout = 30 * time.Second

// Probe issues a cheap authenticated API call with the given access token.
// It must return an AuthenticationError with status 401 when the API rejects
// the token, and nil (or another error) otherwise.
type Probe func(ctx context.Context, accessToken string) error

// Option configures a Manager.
type Option func(*Manager)

// WithEndpoint overrides the OAuth2 endpoint, e.g. for another Zoho data
// center or a test server.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(m *Manager) {
		m.endpoint = endpoint
	}
}

// WithHTTPClient sets the resty client used for token exchanges.
func WithHTTPClient(client *resty.Client) Option {
	return func(m *Manager) {
		m.http = client
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the current access token for one client instance.
//
// Exactly one token value is current at any time; Refresh swaps it and
// persists the vendor document in the same critical section, so requests
// issued after a refresh observe the new token.
type Manager struct {
	creds    Credentials
	store    tokenstore.TokenStore
	endpoint oauth2.Endpoint
	http     *resty.Client
	logger   *slog.Logger

	mu      sync.Mutex
	current *AccessToken
}

// Compile-time check to ensure Manager implements oauth2.TokenSource
var _ oauth2.TokenSource = (*Manager)(nil)

// NewManager creates a Manager. No I/O is performed until Load or Refresh.
func NewManager(creds Credentials, store tokenstore.TokenStore, opts ...Option) (*Manager, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("missing token store")
	}

	m := &Manager{
		creds:    creds,
		store:    store,
		endpoint: Endpoint(DefaultAccountsURL),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.http == nil {
		m.http = resty.New().SetTimeout(defaultExchangeTimeout)
	}

	return m, nil
}

// Load restores the persisted token and makes it current.
//
// A readable, well-formed document is validated with probe (when given); a 401
// from the probe, a missing file, or a malformed document all fall back to a
// full refresh. Load never installs an invalid token: refresh failure
// propagates as an error.
func (m *Manager) Load(ctx context.Context, probe Probe) (*AccessToken, error) {
	document, err := m.store.Read(ctx)
	if err != nil {
		m.logger.DebugContext(ctx, "no usable persisted token, refreshing", "error", err)
		return m.Refresh(ctx)
	}

	tok, err := ParseAccessToken(document)
	if err != nil {
		m.logger.DebugContext(ctx, "persisted token document malformed, refreshing", "error", err)
		return m.Refresh(ctx)
	}

	if probe != nil {
		if err := probe(ctx, tok.AccessToken); err != nil {
			if IsUnauthorized(err) {
				m.logger.InfoContext(ctx, "persisted access token rejected, refreshing")
				return m.Refresh(ctx)
			}
			return nil, fmt.Errorf("validating persisted access token: %w", err)
		}
	}

	m.mu.Lock()
	m.current = tok
	m.mu.Unlock()
	return tok, nil
}

// Refresh exchanges the refresh token for a new access token, makes it
// current and persists the vendor document wholesale.
//
// Concurrent refreshes on one Manager serialize here; each performs its own
// exchange (idempotent, last write wins).
func (m *Manager) Refresh(ctx context.Context) (*AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"refresh_token": m.creds.RefreshToken,
			"client_id":     m.creds.ClientID,
			"client_secret": m.creds.ClientSecret,
			"grant_type":    grantTypeRefreshToken,
		}).
		Post(m.endpoint.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("requesting access token: %w", err)
	}

	tok, parseErr := ParseAccessToken(resp.Body())
	if resp.StatusCode() != http.StatusOK || parseErr != nil {
		return nil, &AuthenticationError{
			Status: resp.StatusCode(),
			Reason: resp.Status(),
			Body:   string(resp.Body()),
			URL:    m.endpoint.TokenURL,
		}
	}

	if err := m.store.Write(ctx, tok.Raw()); err != nil {
		return nil, fmt.Errorf("persisting access token: %w", err)
	}
	m.current = tok

	m.logger.InfoContext(ctx, "refreshed access token", "api_domain", tok.APIDomain)
	return tok, nil
}

// Current returns the current access token, or nil if none is loaded yet.
func (m *Manager) Current() *AccessToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Token implements oauth2.TokenSource for the currently loaded token.
// It never triggers I/O; call Load or Refresh first.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, errors.New("no access token loaded")
	}
	return m.current.OAuth2(), nil
}
